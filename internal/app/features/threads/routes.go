// internal/app/features/threads/routes.go
package threads

import (
	"github.com/go-chi/chi/v5"

	"github.com/qgovau/qchat/internal/app/system/auth"
)

// Routes returns the router for the thread API.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireTermsAccepted)

	r.Get("/", h.ServeList)
	r.Post("/", h.ServeCreate)
	r.Get("/{threadID}", h.ServeGet)
	r.Patch("/{threadID}", h.ServeUpdate)
	r.Delete("/{threadID}", h.ServeDelete)

	return r
}
