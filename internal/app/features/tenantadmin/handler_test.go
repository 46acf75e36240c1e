// internal/app/features/tenantadmin/handler_test.go
package tenantadmin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/qgovau/qchat/internal/app/store/audit"
	tenantstore "github.com/qgovau/qchat/internal/app/store/tenants"
	userstore "github.com/qgovau/qchat/internal/app/store/users"
	"github.com/qgovau/qchat/internal/app/system/auditlog"
	"github.com/qgovau/qchat/internal/domain/models"
	"github.com/qgovau/qchat/internal/testutil"
)

func TestFieldsChanged(t *testing.T) {
	groups := []string{"G1"}
	admins := []string{"admin@agency.gov"}

	cases := []struct {
		name string
		upd  tenantstore.ConfigUpdate
		want string
	}{
		{
			name: "nothing",
			upd: tenantstore.ConfigUpdate{
				RequiresGroupLogin: true,
				Groups:             []string{"G1"},
				Administrators:     []string{"admin@agency.gov"},
				ContextPrompt:      "keep",
			},
			want: "",
		},
		{
			name: "gate toggled",
			upd: tenantstore.ConfigUpdate{
				RequiresGroupLogin: false,
				Groups:             []string{"G1"},
				Administrators:     []string{"admin@agency.gov"},
				ContextPrompt:      "keep",
			},
			want: "requiresGroupLogin",
		},
		{
			name: "groups reordered count as changed",
			upd: tenantstore.ConfigUpdate{
				RequiresGroupLogin: true,
				Groups:             []string{"G2", "G1"},
				Administrators:     []string{"admin@agency.gov"},
				ContextPrompt:      "keep",
			},
			want: "groups",
		},
		{
			name: "everything",
			upd: tenantstore.ConfigUpdate{
				RequiresGroupLogin: false,
				Groups:             nil,
				Administrators:     []string{"other@agency.gov"},
				ContextPrompt:      "new",
			},
			want: "requiresGroupLogin,groups,administrators,contextPrompt",
		},
	}

	for _, c := range cases {
		got := fieldsChanged(true, groups, admins, "keep", c.upd)
		if got != c.want {
			t.Errorf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}

func TestNormalizeAdmins(t *testing.T) {
	got := normalizeAdmins([]string{" Admin@Agency.GOV ", "", "second@agency.gov"})
	if len(got) != 2 || got[0] != "admin@agency.gov" || got[1] != "second@agency.gov" {
		t.Errorf("got %v", got)
	}
}

func newTestHandler(t *testing.T) (*Handler, *testutil.Fixtures, *audit.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	auditStore := audit.New(db)
	h := NewHandler(
		tenantstore.New(db),
		userstore.New(db),
		auditStore,
		auditlog.New(auditStore, zap.NewNop(), auditlog.Config{Auth: "db", Admin: "db"}),
		zap.NewNop(),
	)
	return h, testutil.NewFixtures(t, db), auditStore
}

func TestServeUpdate_AppliesAndAudits(t *testing.T) {
	h, fx, auditStore := newTestHandler(t)
	admin := testutil.AdminUser()

	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateTenant(ctx, admin.TenantID, false, []string{})

	body := `{"requiresGroupLogin":true,"groups":["G1"],"administrators":["admin@agency.gov"],"contextPrompt":"Answer formally."}`
	req := httptest.NewRequest("PUT", "/api/tenant", strings.NewReader(body))
	req = testutil.WithUser(req, admin)
	rec := httptest.NewRecorder()

	h.ServeUpdate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var tenant models.TenantRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &tenant); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !tenant.RequiresGroupLogin || len(tenant.Groups) != 1 {
		t.Errorf("update not applied: gate=%t groups=%v", tenant.RequiresGroupLogin, tenant.Groups)
	}
	if tenant.ContextPrompt != "Answer formally." {
		t.Errorf("context prompt: got %q", tenant.ContextPrompt)
	}

	events, err := auditStore.RecentForTenant(ctx, admin.TenantID, 10)
	if err != nil {
		t.Fatalf("RecentForTenant failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(events))
	}
	if events[0].EventType != audit.EventTenantUpdated {
		t.Errorf("event type: got %q", events[0].EventType)
	}
	fields := events[0].Details["fields_changed"]
	for _, want := range []string{"requiresGroupLogin", "groups", "contextPrompt"} {
		if !strings.Contains(fields, want) {
			t.Errorf("audit details missing %q: %q", want, fields)
		}
	}
}

func TestServeUpdate_NoChangesNoAudit(t *testing.T) {
	h, fx, auditStore := newTestHandler(t)
	admin := testutil.AdminUser()

	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateTenant(ctx, admin.TenantID, false, []string{})

	body := `{"requiresGroupLogin":false,"groups":[],"administrators":["admin@agency.gov"],"contextPrompt":""}`
	req := httptest.NewRequest("PUT", "/api/tenant", strings.NewReader(body))
	req = testutil.WithUser(req, admin)
	rec := httptest.NewRecorder()

	h.ServeUpdate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	events, err := auditStore.RecentForTenant(ctx, admin.TenantID, 10)
	if err != nil {
		t.Fatalf("RecentForTenant failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no audit events, got %d", len(events))
	}
}

func TestServeUpdate_EmptyAdminsRejected(t *testing.T) {
	h, _, _ := newTestHandler(t)
	admin := testutil.AdminUser()

	body := `{"requiresGroupLogin":false,"groups":[],"administrators":[" ", ""],"contextPrompt":""}`
	req := httptest.NewRequest("PUT", "/api/tenant", strings.NewReader(body))
	req = testutil.WithUser(req, admin)
	rec := httptest.NewRecorder()

	h.ServeUpdate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServeAudit_ReturnsTenantEvents(t *testing.T) {
	h, _, auditStore := newTestHandler(t)
	admin := testutil.AdminUser()

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := auditStore.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSignInSuccess,
		TenantID:  admin.TenantID,
		Success:   true,
	}); err != nil {
		t.Fatalf("seed audit event: %v", err)
	}

	req := testutil.NewAuthenticatedRequest("GET", "/api/tenant/audit", admin)
	rec := httptest.NewRecorder()

	h.ServeAudit(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var events []audit.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(events) != 1 || events[0].EventType != audit.EventSignInSuccess {
		t.Errorf("got %+v", events)
	}
}
