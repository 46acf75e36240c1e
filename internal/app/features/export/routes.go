// internal/app/features/export/routes.go
package export

import (
	"github.com/go-chi/chi/v5"

	"github.com/qgovau/qchat/internal/app/system/auth"
)

// Routes returns the router for transcript exports.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireTermsAccepted)

	r.Get("/{threadID}", h.ServeExport)

	return r
}
