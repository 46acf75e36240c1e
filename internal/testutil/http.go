package testutil

import (
	"net/http"
	"net/http/httptest"

	"github.com/qgovau/qchat/internal/app/system/auth"
	"github.com/qgovau/qchat/internal/app/system/signin"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	UPN      string
	TenantID string
	Name     string
	Email    string
	Admin    bool
}

// StandardUser returns a TestUser without tenant administrator rights.
func StandardUser() TestUser {
	return TestUser{
		UPN:      "alice@agency.gov",
		TenantID: "T1",
		Name:     "Alice Citizen",
		Email:    "alice@agency.gov",
	}
}

// AdminUser returns a TestUser that administers tenant T1.
func AdminUser() TestUser {
	return TestUser{
		UPN:      "admin@agency.gov",
		TenantID: "T1",
		Name:     "Agency Admin",
		Email:    "admin@agency.gov",
		Admin:    true,
	}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	sessionUser := &auth.SessionUser{
		ID:            signin.HashValue(user.UPN),
		TenantID:      user.TenantID,
		UPN:           user.UPN,
		Name:          user.Name,
		Email:         user.Email,
		Admin:         user.Admin,
		AcceptedTerms: true,
	}
	return auth.WithUser(r, sessionUser)
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return WithUser(req, user)
}
