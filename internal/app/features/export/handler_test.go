// internal/app/features/export/handler_test.go
package export

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	messagestore "github.com/qgovau/qchat/internal/app/store/messages"
	threadstore "github.com/qgovau/qchat/internal/app/store/threads"
	"github.com/qgovau/qchat/internal/app/system/signin"
	"github.com/qgovau/qchat/internal/domain/models"
	"github.com/qgovau/qchat/internal/testutil"
)

func TestExportFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Budget review", "budget-review"},
		{"  Chat with Report.PDF  ", "chat-with-reportpdf"},
		{"FY24/25 estimates", "fy2425-estimates"},
		{"---", "chat-export"},
		{"", "chat-export"},
		{"日本語のみ", "chat-export"},
	}
	for _, c := range cases {
		if got := exportFileName(c.in); got != c.want {
			t.Errorf("exportFileName(%q): got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	when := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)
	thread := &models.ChatThread{
		Name:              "Budget review",
		InternalReference: "REF-42",
		ChatOverFileName:  "estimates.pdf",
	}
	msgs := []models.ChatMessage{
		{Role: models.RoleUser, Content: "What is the cap?", CreatedAt: when},
		{Role: models.RoleAssistant, Content: "The cap is $300.", CreatedAt: when.Add(time.Minute)},
	}

	out := renderMarkdown(thread, msgs)

	for _, want := range []string{
		"# Budget review\n",
		"Reference: REF-42",
		"Grounded on: estimates.pdf",
		"## You (2026-03-04T09:30:00Z)",
		"## Assistant (2026-03-04T09:31:00Z)",
		"The cap is $300.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q\n%s", want, out)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	when := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)
	msgs := []models.ChatMessage{
		{Role: models.RoleUser, Content: "line one\nline two", CreatedAt: when},
		{Role: models.RoleAssistant, Content: "a, b, and c", Sentiment: models.SentimentPositive, Feedback: "helpful", CreatedAt: when},
	}

	rec := httptest.NewRecorder()
	if err := writeCSV(rec, msgs); err != nil {
		t.Fatalf("writeCSV failed: %v", err)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "timestamp,role,content,sentiment,feedback\n") {
		t.Errorf("missing header: %q", body)
	}
	// Commas and newlines in content come out quoted.
	if !strings.Contains(body, `"line one` + "\n" + `line two"`) {
		t.Errorf("multi-line content not quoted: %q", body)
	}
	if !strings.Contains(body, `"a, b, and c"`) {
		t.Errorf("comma content not quoted: %q", body)
	}
	if !strings.Contains(body, "positive,helpful") {
		t.Errorf("feedback columns missing: %q", body)
	}
}

func TestServeExport(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewHandler(threadstore.New(db), messagestore.New(db), zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	user := testutil.StandardUser()
	userID := signin.HashValue(user.UPN)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	thread := fx.CreateThread(ctx, user.TenantID, userID, "Budget review")
	fx.CreateMessage(ctx, user.TenantID, userID, thread.ID, models.RoleUser, "What is the cap?")

	req := testutil.NewAuthenticatedRequest("GET", "/api/export/"+thread.ID+"?format=csv", user)
	req = testutil.WithChiURLParam(req, "threadID", thread.ID)
	rec := httptest.NewRecorder()

	h.ServeExport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type: got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "budget-review.csv") {
		t.Errorf("disposition: got %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "What is the cap?") {
		t.Errorf("transcript missing from body: %q", rec.Body.String())
	}
}

func TestServeExport_UnsupportedFormat(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewHandler(threadstore.New(db), messagestore.New(db), zap.NewNop())
	user := testutil.StandardUser()

	req := testutil.NewAuthenticatedRequest("GET", "/api/export/some-thread?format=pdf", user)
	req = testutil.WithChiURLParam(req, "threadID", "some-thread")
	rec := httptest.NewRecorder()

	h.ServeExport(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServeExport_OtherOwnersThreadHidden(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewHandler(threadstore.New(db), messagestore.New(db), zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	user := testutil.StandardUser()

	ctx, cancel := testutil.TestContext()
	defer cancel()
	other := fx.CreateThread(ctx, user.TenantID, "someone-else", "Not mine")

	req := testutil.NewAuthenticatedRequest("GET", "/api/export/"+other.ID, user)
	req = testutil.WithChiURLParam(req, "threadID", other.ID)
	rec := httptest.NewRecorder()

	h.ServeExport(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}
