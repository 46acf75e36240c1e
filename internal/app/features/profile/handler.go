// internal/app/features/profile/handler.go
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	userstore "github.com/qgovau/qchat/internal/app/store/users"
	"github.com/qgovau/qchat/internal/app/system/auth"
	"github.com/qgovau/qchat/internal/app/system/timeouts"
)

// Handler serves the signed-in user's own record and their personal
// context prompt.
type Handler struct {
	Users *userstore.Store
	Log   *zap.Logger

	sanitize *bluemonday.Policy
}

func NewHandler(users *userstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Log:      logger,
		sanitize: bluemonday.StrictPolicy(),
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/profile                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetByID(ctx, u.TenantID, u.ID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.Log.Error("load user failed", zap.Error(err), zap.String("user_id", u.ID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/profile/prompt                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

const maxContextPromptLen = 2000

type promptRequest struct {
	ContextPrompt string `json:"contextPrompt"`
}

func (h *Handler) ServeSetPrompt(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	prompt := strings.TrimSpace(h.sanitize.Sanitize(req.ContextPrompt))
	if len([]rune(prompt)) > maxContextPromptLen {
		http.Error(w, "context prompt too long", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.SetContextPrompt(ctx, u.TenantID, u.ID, prompt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.Log.Error("set context prompt failed", zap.Error(err), zap.String("user_id", u.ID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
