// internal/app/features/tenantadmin/routes.go
package tenantadmin

import (
	"github.com/go-chi/chi/v5"

	"github.com/qgovau/qchat/internal/app/system/auth"
)

// Routes returns the router for tenant administration.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireAdmin)

	r.Get("/", h.ServeGet)
	r.Put("/", h.ServeUpdate)
	r.Get("/users", h.ServeUsers)
	r.Get("/audit", h.ServeAudit)

	return r
}
