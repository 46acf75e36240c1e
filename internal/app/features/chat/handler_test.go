// internal/app/features/chat/handler_test.go
package chat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	chatfeature "github.com/qgovau/qchat/internal/app/features/chat"
	"github.com/qgovau/qchat/internal/app/services/openai"
	"github.com/qgovau/qchat/internal/app/services/safety"
	"github.com/qgovau/qchat/internal/app/services/search"
	messagestore "github.com/qgovau/qchat/internal/app/store/messages"
	threadstore "github.com/qgovau/qchat/internal/app/store/threads"
	"github.com/qgovau/qchat/internal/app/system/signin"
	"github.com/qgovau/qchat/internal/domain/models"
	"github.com/qgovau/qchat/internal/testutil"
)

type fakeCompleter struct {
	reply     string
	lastStyle string
	lastMsgs  []openai.Message
}

func (f *fakeCompleter) ChatCompletion(ctx context.Context, messages []openai.Message, style string) (string, error) {
	f.lastMsgs = messages
	f.lastStyle = style
	return f.reply, nil
}

type fakeSafety struct {
	analysis safety.Analysis
}

func (f *fakeSafety) AnalyzeText(ctx context.Context, text string) (safety.Analysis, error) {
	return f.analysis, nil
}

type fakeTranslator struct {
	out string
}

func (f *fakeTranslator) Translate(ctx context.Context, input string) (string, error) {
	if f.out == "" {
		return input, nil
	}
	return f.out, nil
}

type fakeRetriever struct {
	docs []search.Document
}

func (f *fakeRetriever) SimilaritySearch(ctx context.Context, query string, k int, tenantID, userID, threadID string) ([]search.Document, error) {
	return f.docs, nil
}

type fakePrompts struct {
	tenant, user string
}

func (f *fakePrompts) ContextPrompts(ctx context.Context, tenantID, userID string) (string, string, error) {
	return f.tenant, f.user, nil
}

type testDeps struct {
	handler   *chatfeature.Handler
	fixtures  *testutil.Fixtures
	completer *fakeCompleter
	safe      *fakeSafety
	threads   *threadstore.Store
	messages  *messagestore.Store
}

func setup(t *testing.T) testDeps {
	t.Helper()
	db := testutil.SetupTestDB(t)

	completer := &fakeCompleter{reply: "The answer is 42."}
	safe := &fakeSafety{}
	threads := threadstore.New(db)
	messages := messagestore.New(db)

	h := chatfeature.NewHandler(
		threads,
		messages,
		completer,
		safe,
		&fakeTranslator{},
		&fakeRetriever{},
		&fakePrompts{tenant: "Tenant guidance.", user: "User guidance."},
		"You are QChat.",
		zap.NewNop(),
	)
	return testDeps{
		handler:   h,
		fixtures:  testutil.NewFixtures(t, db),
		completer: completer,
		safe:      safe,
		threads:   threads,
		messages:  messages,
	}
}

func postTurn(t *testing.T, d testDeps, user testutil.TestUser, threadID, message string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"message": message})
	req := httptest.NewRequest("POST", "/api/chat/"+threadID, strings.NewReader(string(body)))
	req = testutil.WithUser(req, user)
	req = testutil.WithChiURLParam(req, "threadID", threadID)
	rec := httptest.NewRecorder()
	d.handler.ServeTurn(rec, req)
	return rec
}

func TestServeTurn_PersistsBothSides(t *testing.T) {
	d := setup(t)
	user := testutil.StandardUser()
	userID := signin.HashValue(user.UPN)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	thread := d.fixtures.CreateThread(ctx, user.TenantID, userID, "Budget")

	rec := postTurn(t, d, user, thread.ID, "What is the travel cap?")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Message models.ChatMessage `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Message.Role != models.RoleAssistant {
		t.Errorf("role: got %q", resp.Message.Role)
	}
	if resp.Message.Content != "The answer is 42." {
		t.Errorf("content: got %q", resp.Message.Content)
	}

	msgs, err := d.messages.ListForThread(ctx, user.TenantID, userID, thread.ID)
	if err != nil {
		t.Fatalf("ListForThread failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(msgs))
	}
	// Both rows can land in the same millisecond, so index by role.
	byRole := map[string]models.ChatMessage{}
	for _, m := range msgs {
		byRole[m.Role] = m
	}
	userMsg, ok := byRole[models.RoleUser]
	if !ok {
		t.Fatal("user message not persisted")
	}
	if _, ok := byRole[models.RoleAssistant]; !ok {
		t.Fatal("assistant message not persisted")
	}
	if userMsg.TenantPrompt != "Tenant guidance." || userMsg.UserPrompt != "User guidance." {
		t.Errorf("prompt fragments not recorded: (%q, %q)", userMsg.TenantPrompt, userMsg.UserPrompt)
	}
}

func TestServeTurn_WindowStartsWithSystemMessage(t *testing.T) {
	d := setup(t)
	user := testutil.StandardUser()
	userID := signin.HashValue(user.UPN)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	thread := d.fixtures.CreateThread(ctx, user.TenantID, userID, "Budget")

	rec := postTurn(t, d, user, thread.ID, "Hello")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	if len(d.completer.lastMsgs) == 0 {
		t.Fatal("completion was not called")
	}
	first := d.completer.lastMsgs[0]
	if first.Role != models.RoleSystem {
		t.Errorf("first window role: got %q", first.Role)
	}
	for _, part := range []string{"You are QChat.", "Tenant guidance.", "User guidance."} {
		if !strings.Contains(first.Content, part) {
			t.Errorf("system message missing %q", part)
		}
	}
	if d.completer.lastStyle != models.StylePrecise {
		t.Errorf("style: got %q", d.completer.lastStyle)
	}
}

func TestServeTurn_FlaggedMessageRefused(t *testing.T) {
	d := setup(t)
	user := testutil.StandardUser()
	userID := signin.HashValue(user.UPN)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	thread := d.fixtures.CreateThread(ctx, user.TenantID, userID, "Budget")

	d.safe.analysis = safety.Analysis{
		Flagged: true,
		Categories: []safety.CategoryResult{
			{Category: safety.CategoryHate, Severity: 4},
		},
	}

	rec := postTurn(t, d, user, thread.ID, "something hateful")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	var resp struct {
		Flagged  bool   `json:"flagged"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !resp.Flagged || resp.Category != safety.CategoryHate {
		t.Errorf("got flagged=%t category=%q", resp.Flagged, resp.Category)
	}

	// The flagged text is never stored, and the counter is bumped.
	msgs, err := d.messages.ListForThread(ctx, user.TenantID, userID, thread.ID)
	if err != nil {
		t.Fatalf("ListForThread failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("flagged message was persisted: %d rows", len(msgs))
	}
	got, err := d.threads.GetForUser(ctx, user.TenantID, userID, thread.ID)
	if err != nil {
		t.Fatalf("GetForUser failed: %v", err)
	}
	if got.SafetyTriggerCount != 1 {
		t.Errorf("safety trigger count: got %d, want 1", got.SafetyTriggerCount)
	}
}

func TestServeTurn_TitlesNewThread(t *testing.T) {
	d := setup(t)
	user := testutil.StandardUser()
	userID := signin.HashValue(user.UPN)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	thread := d.fixtures.CreateThread(ctx, user.TenantID, userID, "New Chat")
	d.completer.reply = "Travel allowances are capped at the published ATO rates for your band."

	rec := postTurn(t, d, user, thread.ID, "What is the travel cap?")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	got, err := d.threads.GetForUser(ctx, user.TenantID, userID, thread.ID)
	if err != nil {
		t.Fatalf("GetForUser failed: %v", err)
	}
	if got.Name == "New Chat" {
		t.Error("thread was not titled from the reply")
	}
	if n := len([]rune(got.Name)); n > 30 {
		t.Errorf("title too long: %d runes", n)
	}
	if got.PreviousName != "New Chat" {
		t.Errorf("previous name: got %q", got.PreviousName)
	}
}

func TestServeTurn_EmptyMessageRejected(t *testing.T) {
	d := setup(t)
	user := testutil.StandardUser()
	userID := signin.HashValue(user.UPN)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	thread := d.fixtures.CreateThread(ctx, user.TenantID, userID, "Budget")

	// Markup-only input sanitizes down to nothing.
	rec := postTurn(t, d, user, thread.ID, "<script>alert(1)</script>")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServeFeedback(t *testing.T) {
	d := setup(t)
	user := testutil.StandardUser()
	userID := signin.HashValue(user.UPN)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	thread := d.fixtures.CreateThread(ctx, user.TenantID, userID, "Budget")
	msg := d.fixtures.CreateMessage(ctx, user.TenantID, userID, thread.ID, models.RoleAssistant, "a reply")

	body := `{"feedback":"wrong rate","sentiment":"negative","reason":"inaccurate"}`
	req := httptest.NewRequest("POST", "/api/chat/"+thread.ID+"/feedback/"+msg.ID, strings.NewReader(body))
	req = testutil.WithUser(req, user)
	req = testutil.WithChiURLParam(req, "threadID", thread.ID)
	req = testutil.WithChiURLParam(req, "messageID", msg.ID)
	rec := httptest.NewRecorder()

	d.handler.ServeFeedback(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	got, err := d.messages.GetForUser(ctx, user.TenantID, userID, thread.ID, msg.ID)
	if err != nil {
		t.Fatalf("GetForUser failed: %v", err)
	}
	if got.Sentiment != models.SentimentNegative || got.Feedback != "wrong rate" {
		t.Errorf("feedback not recorded: (%q, %q)", got.Sentiment, got.Feedback)
	}
}
