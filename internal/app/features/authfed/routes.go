// internal/app/features/authfed/routes.go
package authfed

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for the federated sign-in endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/signin", h.ServeLogin)
	r.Get("/callback", h.ServeCallback)
	r.Get("/token", h.ServeToken)

	return r
}
