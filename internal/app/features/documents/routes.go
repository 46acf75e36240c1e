// internal/app/features/documents/routes.go
package documents

import (
	"github.com/go-chi/chi/v5"

	"github.com/qgovau/qchat/internal/app/system/auth"
)

// Routes returns the router for document uploads.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireTermsAccepted)

	r.Get("/{threadID}", h.ServeList)
	r.Post("/{threadID}", h.ServeUpload)

	return r
}
