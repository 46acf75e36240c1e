// internal/domain/models/user.go
package models

import "time"

// UserRecord is one row per (tenant, user) pair, created lazily on first
// sign-in and mutated on every sign-in thereafter.
//
// NOTE:
//   - ID is the sha256 hex of the UPN, so the same principal always maps
//     to the same document without storing the raw UPN as the key.
//   - History is append-only; entries are prefixed with an RFC3339
//     timestamp and never removed.
type UserRecord struct {
	ID       string `bson:"_id" json:"id"`
	TenantID string `bson:"tenant_id" json:"tenantId"`
	UPN      string `bson:"upn" json:"upn"`
	Email    string `bson:"email" json:"email"`
	Name     string `bson:"name" json:"name"`

	Groups []string `bson:"groups" json:"groups"` // replaced wholesale each sign-in
	Admin  bool     `bson:"admin" json:"admin"`

	FirstLogin          time.Time  `bson:"first_login" json:"firstLogin"`
	LastLogin           time.Time  `bson:"last_login" json:"lastLogin"`
	FailedLoginAttempts int        `bson:"failed_login_attempts" json:"failedLoginAttempts"`
	LastFailedLogin     *time.Time `bson:"last_failed_login,omitempty" json:"lastFailedLogin,omitempty"`

	AcceptedTerms     bool       `bson:"accepted_terms" json:"acceptedTerms"`
	AcceptedTermsDate *time.Time `bson:"accepted_terms_date,omitempty" json:"acceptedTermsDate,omitempty"`

	// ContextPrompt is free text appended to every prompt this user sends.
	ContextPrompt string `bson:"context_prompt,omitempty" json:"contextPrompt,omitempty"`

	History []string `bson:"history" json:"history"`
}
