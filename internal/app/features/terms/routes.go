// internal/app/features/terms/routes.go
package terms

import (
	"github.com/go-chi/chi/v5"

	"github.com/qgovau/qchat/internal/app/system/auth"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeTerms)
	r.With(auth.RequireSignedIn).Post("/accept", h.ServeAccept)
	return r
}
