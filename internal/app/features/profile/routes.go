// internal/app/features/profile/routes.go
package profile

import (
	"github.com/go-chi/chi/v5"

	"github.com/qgovau/qchat/internal/app/system/auth"
)

// Routes returns the router for the signed-in user's own record.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeGet)
	r.Put("/prompt", h.ServeSetPrompt)

	return r
}
