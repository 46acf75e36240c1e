// internal/domain/models/tenant.go
package models

import (
	"strings"
	"time"
)

// TenantRecord is one row per tenant, keyed by the identity provider's
// tenant id. It is created exactly once, the first time any user from the
// tenant signs in, and updated administratively thereafter.
//
// A freshly provisioned tenant has RequiresGroupLogin=true and an empty
// Groups list, so every group-gated login fails until an administrator
// configures the approved groups.
type TenantRecord struct {
	ID            string `bson:"_id" json:"id"`
	PrimaryDomain string `bson:"primary_domain" json:"primaryDomain"`
	Email         string `bson:"email" json:"email"`                // UPN of the user whose sign-in provisioned the tenant
	SupportEmail  string `bson:"support_email" json:"supportEmail"` // support@<primary_domain>

	RequiresGroupLogin bool     `bson:"requires_group_login" json:"requiresGroupLogin"`
	Groups             []string `bson:"groups" json:"groups"`                 // approved group ids; exact, case-sensitive match
	Administrators     []string `bson:"administrators" json:"administrators"` // lower-cased email addresses

	// ContextPrompt is free text appended to every prompt sent by this
	// tenant's users.
	ContextPrompt string `bson:"context_prompt,omitempty" json:"contextPrompt,omitempty"`

	CreatedBy   string     `bson:"created_by" json:"createdBy"`
	DateCreated time.Time  `bson:"date_created" json:"dateCreated"`
	DateUpdated time.Time  `bson:"date_updated" json:"dateUpdated"`
	ModifiedBy  string     `bson:"modified_by,omitempty" json:"modifiedBy,omitempty"`
	DateOnboard *time.Time `bson:"date_onboarded,omitempty" json:"dateOnboarded,omitempty"`

	History []string `bson:"history" json:"history"`
}

// IsAdministrator reports whether the given UPN or email belongs to the
// tenant's administrator list. Administrator addresses are stored
// lower-cased, so the comparison folds case on the caller's side only.
func (t *TenantRecord) IsAdministrator(identifier string) bool {
	id := strings.ToLower(identifier)
	for _, admin := range t.Administrators {
		if admin == id {
			return true
		}
	}
	return false
}
