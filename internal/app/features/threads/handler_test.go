// internal/app/features/threads/handler_test.go
package threads_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	threadsfeature "github.com/qgovau/qchat/internal/app/features/threads"
	docstore "github.com/qgovau/qchat/internal/app/store/documents"
	messagestore "github.com/qgovau/qchat/internal/app/store/messages"
	threadstore "github.com/qgovau/qchat/internal/app/store/threads"
	"github.com/qgovau/qchat/internal/app/system/signin"
	"github.com/qgovau/qchat/internal/domain/models"
	"github.com/qgovau/qchat/internal/testutil"
)

// fakeIndex records the delete cascade's call into the vector index.
type fakeIndex struct {
	deleted []string
}

func (f *fakeIndex) DeleteThreadDocuments(ctx context.Context, tenantID, userID, threadID string) error {
	f.deleted = append(f.deleted, threadID)
	return nil
}

func newTestHandler(t *testing.T) (*threadsfeature.Handler, *testutil.Fixtures, *fakeIndex) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	idx := &fakeIndex{}
	h := threadsfeature.NewHandler(
		threadstore.New(db),
		messagestore.New(db),
		docstore.New(db),
		idx,
		zap.NewNop(),
	)
	return h, testutil.NewFixtures(t, db), idx
}

func TestServeCreate_Defaults(t *testing.T) {
	h, _, _ := newTestHandler(t)
	user := testutil.StandardUser()

	req := testutil.NewAuthenticatedRequest("POST", "/api/threads", user)
	rec := httptest.NewRecorder()

	h.ServeCreate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusCreated)
	}
	var thread models.ChatThread
	if err := json.Unmarshal(rec.Body.Bytes(), &thread); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if thread.Name != "New Chat" {
		t.Errorf("name: got %q, want %q", thread.Name, "New Chat")
	}
	if thread.TenantID != user.TenantID {
		t.Errorf("tenant: got %q", thread.TenantID)
	}
}

func TestServeList_OnlyOwnThreads(t *testing.T) {
	h, fx, _ := newTestHandler(t)
	user := testutil.StandardUser()
	userID := signin.HashValue(user.UPN)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateThread(ctx, user.TenantID, userID, "Mine")
	fx.CreateThread(ctx, user.TenantID, "someone-else", "Not mine")

	req := testutil.NewAuthenticatedRequest("GET", "/api/threads", user)
	rec := httptest.NewRecorder()

	h.ServeList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var threads []models.ChatThread
	if err := json.Unmarshal(rec.Body.Bytes(), &threads); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(threads) != 1 {
		t.Fatalf("expected 1 thread, got %d", len(threads))
	}
	if threads[0].Name != "Mine" {
		t.Errorf("name: got %q", threads[0].Name)
	}
}

func TestServeGet_NotFoundForOtherOwner(t *testing.T) {
	h, fx, _ := newTestHandler(t)
	user := testutil.StandardUser()

	ctx, cancel := testutil.TestContext()
	defer cancel()
	other := fx.CreateThread(ctx, user.TenantID, "someone-else", "Not mine")

	req := testutil.NewAuthenticatedRequest("GET", "/api/threads/"+other.ID, user)
	req = testutil.WithChiURLParam(req, "threadID", other.ID)
	rec := httptest.NewRecorder()

	h.ServeGet(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestServeUpdate_InvalidStyleRejected(t *testing.T) {
	h, fx, _ := newTestHandler(t)
	user := testutil.StandardUser()

	ctx, cancel := testutil.TestContext()
	defer cancel()
	thread := fx.CreateThread(ctx, user.TenantID, signin.HashValue(user.UPN), "Mine")

	req := httptest.NewRequest("PATCH", "/api/threads/"+thread.ID,
		strings.NewReader(`{"style":"chaotic"}`))
	req = testutil.WithUser(req, user)
	req = testutil.WithChiURLParam(req, "threadID", thread.ID)
	rec := httptest.NewRecorder()

	h.ServeUpdate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServeUpdate_RenameAndSettings(t *testing.T) {
	h, fx, _ := newTestHandler(t)
	user := testutil.StandardUser()

	ctx, cancel := testutil.TestContext()
	defer cancel()
	thread := fx.CreateThread(ctx, user.TenantID, signin.HashValue(user.UPN), "Old name")

	req := httptest.NewRequest("PATCH", "/api/threads/"+thread.ID,
		strings.NewReader(`{"name":"Budget review","style":"balanced","internalReference":"REF-42"}`))
	req = testutil.WithUser(req, user)
	req = testutil.WithChiURLParam(req, "threadID", thread.ID)
	rec := httptest.NewRecorder()

	h.ServeUpdate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var got models.ChatThread
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got.Name != "Budget review" {
		t.Errorf("name: got %q", got.Name)
	}
	if got.PreviousName != "Old name" {
		t.Errorf("previous name: got %q", got.PreviousName)
	}
	if got.Style != models.StyleBalanced {
		t.Errorf("style: got %q", got.Style)
	}
	if got.InternalReference != "REF-42" {
		t.Errorf("reference: got %q", got.InternalReference)
	}
}

func TestServeDelete_Cascades(t *testing.T) {
	h, fx, idx := newTestHandler(t)
	user := testutil.StandardUser()
	userID := signin.HashValue(user.UPN)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	thread := fx.CreateThread(ctx, user.TenantID, userID, "Doomed")
	fx.CreateMessage(ctx, user.TenantID, userID, thread.ID, models.RoleUser, "hello")

	req := testutil.NewAuthenticatedRequest("DELETE", "/api/threads/"+thread.ID, user)
	req = testutil.WithChiURLParam(req, "threadID", thread.ID)
	rec := httptest.NewRecorder()

	h.ServeDelete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: got %d", rec.Code)
	}
	if len(idx.deleted) != 1 || idx.deleted[0] != thread.ID {
		t.Errorf("expected index cascade for %s, got %v", thread.ID, idx.deleted)
	}

	// The thread and its messages are gone from the API's view.
	getReq := testutil.NewAuthenticatedRequest("GET", "/api/threads/"+thread.ID, user)
	getReq = testutil.WithChiURLParam(getReq, "threadID", thread.ID)
	getRec := httptest.NewRecorder()
	h.ServeGet(getRec, getReq)
	if getRec.Code != http.StatusNotFound {
		t.Errorf("deleted thread still served: %d", getRec.Code)
	}
}
