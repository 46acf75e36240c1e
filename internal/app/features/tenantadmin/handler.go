// internal/app/features/tenantadmin/handler.go
package tenantadmin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/qgovau/qchat/internal/app/store/audit"
	tenantstore "github.com/qgovau/qchat/internal/app/store/tenants"
	userstore "github.com/qgovau/qchat/internal/app/store/users"
	"github.com/qgovau/qchat/internal/app/system/auditlog"
	"github.com/qgovau/qchat/internal/app/system/auth"
	"github.com/qgovau/qchat/internal/app/system/normalize"
	"github.com/qgovau/qchat/internal/app/system/timeouts"
)

// Handler serves tenant administration: the approved-group gate, the
// administrator list, and the tenant context prompt. Admin-only.
type Handler struct {
	Tenants  *tenantstore.Store
	Users    *userstore.Store
	Audit    *audit.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(tenants *tenantstore.Store, users *userstore.Store, auditStore *audit.Store, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Tenants:  tenants,
		Users:    users,
		Audit:    auditStore,
		AuditLog: auditLog,
		Log:      logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/tenant                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	tenant, err := h.Tenants.GetByID(ctx, u.TenantID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.Log.Error("load tenant failed", zap.Error(err), zap.String("tenant_id", u.TenantID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/tenant                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

type updateRequest struct {
	RequiresGroupLogin bool     `json:"requiresGroupLogin"`
	Groups             []string `json:"groups"`
	Administrators     []string `json:"administrators"`
	ContextPrompt      string   `json:"contextPrompt"`
}

func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	upd := tenantstore.ConfigUpdate{
		RequiresGroupLogin: req.RequiresGroupLogin,
		Groups:             normalize.Groups(req.Groups),
		Administrators:     normalizeAdmins(req.Administrators),
		ContextPrompt:      strings.TrimSpace(req.ContextPrompt),
	}
	if len(upd.Administrators) == 0 {
		// A tenant without administrators can never be reconfigured again.
		http.Error(w, "administrators cannot be empty", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	current, err := h.Tenants.GetByID(ctx, u.TenantID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.Log.Error("load tenant failed", zap.Error(err), zap.String("tenant_id", u.TenantID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	changed := fieldsChanged(current.RequiresGroupLogin, current.Groups, current.Administrators, current.ContextPrompt, upd)

	tenant, err := h.Tenants.UpdateConfig(ctx, u.TenantID, u.UPN, upd)
	if err != nil {
		h.Log.Error("update tenant failed", zap.Error(err), zap.String("tenant_id", u.TenantID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if changed != "" {
		h.AuditLog.TenantUpdated(ctx, r, u.TenantID, u.ID, changed)
	}
	writeJSON(w, http.StatusOK, tenant)
}

// fieldsChanged names the fields the update actually touches, for the
// audit trail.
func fieldsChanged(requiresGroupLogin bool, groups, admins []string, contextPrompt string, upd tenantstore.ConfigUpdate) string {
	var changed []string
	if requiresGroupLogin != upd.RequiresGroupLogin {
		changed = append(changed, "requiresGroupLogin")
	}
	if !equalStrings(groups, upd.Groups) {
		changed = append(changed, "groups")
	}
	if !equalStrings(admins, upd.Administrators) {
		changed = append(changed, "administrators")
	}
	if contextPrompt != upd.ContextPrompt {
		changed = append(changed, "contextPrompt")
	}
	return strings.Join(changed, ",")
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// normalizeAdmins folds the administrator list the way the resolver
// stores it: trimmed, lower-cased, empties dropped.
func normalizeAdmins(raw []string) []string {
	return normalize.AdminList(strings.Join(raw, ","))
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/tenant/users                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

const userListLimit = 500

func (h *Handler) ServeUsers(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, err := h.Users.ListForTenant(ctx, u.TenantID, userListLimit)
	if err != nil {
		h.Log.Error("list users failed", zap.Error(err), zap.String("tenant_id", u.TenantID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/tenant/audit                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

const auditListLimit = 200

func (h *Handler) ServeAudit(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.Audit.RecentForTenant(ctx, u.TenantID, auditListLimit)
	if err != nil {
		h.Log.Error("list audit events failed", zap.Error(err), zap.String("tenant_id", u.TenantID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
