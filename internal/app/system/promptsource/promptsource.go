// internal/app/system/promptsource/promptsource.go

// Package promptsource resolves the tenant and user context prompts a
// chat turn layers under the system prompt.
package promptsource

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	tenantstore "github.com/qgovau/qchat/internal/app/store/tenants"
	userstore "github.com/qgovau/qchat/internal/app/store/users"
)

// Source reads the context prompts off the tenant and user records. A
// missing record contributes an empty prompt rather than an error, since
// prompts are additive.
type Source struct {
	tenants *tenantstore.Store
	users   *userstore.Store
}

func New(tenants *tenantstore.Store, users *userstore.Store) *Source {
	return &Source{tenants: tenants, users: users}
}

func (s *Source) ContextPrompts(ctx context.Context, tenantID, userID string) (string, string, error) {
	var tenantPrompt, userPrompt string

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	switch {
	case err == nil:
		tenantPrompt = tenant.ContextPrompt
	case errors.Is(err, mongo.ErrNoDocuments):
		// no tenant record yet
	default:
		return "", "", err
	}

	user, err := s.users.GetByID(ctx, tenantID, userID)
	switch {
	case err == nil:
		userPrompt = user.ContextPrompt
	case errors.Is(err, mongo.ErrNoDocuments):
		// no user record yet
	default:
		return "", "", err
	}

	return tenantPrompt, userPrompt, nil
}
