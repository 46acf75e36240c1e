// internal/app/features/terms/handler.go
package terms

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"

	userstore "github.com/qgovau/qchat/internal/app/store/users"
	"github.com/qgovau/qchat/internal/app/system/auditlog"
	"github.com/qgovau/qchat/internal/app/system/auth"
	"github.com/qgovau/qchat/internal/app/system/timeouts"
)

type pageData struct {
	Title      string
	IsLoggedIn bool
	UserName   string
	Accepted   bool
}

// Handler serves the terms-of-use page and records acceptance on the
// user record. Acceptance gates the chat surfaces.
type Handler struct {
	Users    *userstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(users *userstore.Store, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		AuditLog: auditLog,
		Log:      logger,
	}
}

// ServeTerms handles GET /terms.
func (h *Handler) ServeTerms(w http.ResponseWriter, r *http.Request) {
	u, signedIn := auth.CurrentUser(r)

	data := pageData{
		Title:      "Terms of Use",
		IsLoggedIn: signedIn,
	}
	if signedIn {
		data.UserName = u.Name
		data.Accepted = u.AcceptedTerms
	}

	templates.Render(w, r, "terms", data)
}

// ServeAccept handles POST /terms/accept.
func (h *Handler) ServeAccept(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.AcceptTerms(ctx, u.TenantID, u.ID); err != nil {
		h.Log.Error("record terms acceptance failed", zap.Error(err), zap.String("user_id", u.ID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := auth.MarkTermsAccepted(w, r); err != nil {
		h.Log.Error("update session terms flag failed", zap.Error(err), zap.String("user_id", u.ID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.AuditLog.TermsAccepted(ctx, r, u.TenantID, u.ID)

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return accept == "application/json" || r.Header.Get("Content-Type") == "application/json"
}
