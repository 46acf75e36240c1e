// internal/app/features/chat/routes.go
package chat

import (
	"github.com/go-chi/chi/v5"

	"github.com/qgovau/qchat/internal/app/system/auth"
)

// Routes returns the router for chat turns and feedback.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireTermsAccepted)

	r.Post("/{threadID}", h.ServeTurn)
	r.Post("/{threadID}/feedback/{messageID}", h.ServeFeedback)

	return r
}
