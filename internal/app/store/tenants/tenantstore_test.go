// internal/app/store/tenants/tenantstore_test.go
package tenantstore_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	tenantstore "github.com/qgovau/qchat/internal/app/store/tenants"
	"github.com/qgovau/qchat/internal/domain/models"
	"github.com/qgovau/qchat/internal/testutil"
)

func newTenant(id string) models.TenantRecord {
	now := time.Now().UTC()
	return models.TenantRecord{
		ID:                 id,
		PrimaryDomain:      "agency.gov",
		Email:              "owner@agency.gov",
		SupportEmail:       "support@agency.gov",
		RequiresGroupLogin: true,
		Groups:             []string{},
		Administrators:     []string{"admin@agency.gov"},
		CreatedBy:          "owner@agency.gov",
		DateCreated:        now,
		DateUpdated:        now,
		History:            []string{now.Format(time.RFC3339) + ": Tenant created by user owner@agency.gov on failed login."},
	}
}

func TestCreate_DuplicateReturnsSentinel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := tenantstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, newTenant("T1")); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, newTenant("T1"))
	if !errors.Is(err, tenantstore.ErrDuplicate) {
		t.Errorf("duplicate create: got %v, want ErrDuplicate", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := tenantstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, "missing")
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("got %v, want ErrNoDocuments", err)
	}
	if !tenantstore.IsNotFound(err) {
		t.Error("IsNotFound should report true")
	}
}

func TestUpdateConfig_AppendsHistoryPerChangedField(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := tenantstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newTenant("T1"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	baseHistory := len(created.History)

	updated, err := store.UpdateConfig(ctx, "T1", "admin@agency.gov", tenantstore.ConfigUpdate{
		RequiresGroupLogin: true, // unchanged
		Groups:             []string{"G1", "G2"},
		Administrators:     []string{"admin@agency.gov"}, // unchanged
		ContextPrompt:      "Answer as a Queensland public servant.",
	})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	// Two fields changed, so exactly two entries were appended.
	if got := len(updated.History) - baseHistory; got != 2 {
		t.Fatalf("history entries appended: got %d, want 2", got)
	}
	if !strings.Contains(updated.History[baseHistory], "groups changed") {
		t.Errorf("expected groups entry, got %q", updated.History[baseHistory])
	}
	if !strings.Contains(updated.History[baseHistory+1], "contextPrompt changed by admin@agency.gov") {
		t.Errorf("expected contextPrompt entry, got %q", updated.History[baseHistory+1])
	}
	if updated.ModifiedBy != "admin@agency.gov" {
		t.Errorf("modified by: got %q", updated.ModifiedBy)
	}
	if len(updated.Groups) != 2 {
		t.Errorf("groups not applied: %v", updated.Groups)
	}
}

func TestUpdateConfig_NoChangesNoHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := tenantstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newTenant("T1"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := store.UpdateConfig(ctx, "T1", "admin@agency.gov", tenantstore.ConfigUpdate{
		RequiresGroupLogin: created.RequiresGroupLogin,
		Groups:             created.Groups,
		Administrators:     created.Administrators,
		ContextPrompt:      created.ContextPrompt,
	})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if len(updated.History) != len(created.History) {
		t.Errorf("history grew without changes: %d -> %d", len(created.History), len(updated.History))
	}
}
