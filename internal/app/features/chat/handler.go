// internal/app/features/chat/handler.go
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	messagestore "github.com/qgovau/qchat/internal/app/store/messages"
	threadstore "github.com/qgovau/qchat/internal/app/store/threads"
	"github.com/qgovau/qchat/internal/app/services/openai"
	"github.com/qgovau/qchat/internal/app/services/safety"
	"github.com/qgovau/qchat/internal/app/services/search"
	"github.com/qgovau/qchat/internal/app/system/auth"
	"github.com/qgovau/qchat/internal/app/system/prompt"
	"github.com/qgovau/qchat/internal/app/system/timeouts"
	"github.com/qgovau/qchat/internal/domain/models"
)

// historyWindow caps how many stored messages ride along on each turn.
const historyWindow = 30

// Completer produces the assistant's reply for a conversation window.
type Completer interface {
	ChatCompletion(ctx context.Context, messages []openai.Message, style string) (string, error)
}

// SafetyAnalyzer screens a message before it reaches the model.
type SafetyAnalyzer interface {
	AnalyzeText(ctx context.Context, text string) (safety.Analysis, error)
}

// Translator localises model output to Australian English.
type Translator interface {
	Translate(ctx context.Context, input string) (string, error)
}

// Retriever finds a thread's relevant document chunks for grounding.
type Retriever interface {
	SimilaritySearch(ctx context.Context, query string, k int, tenantID, userID, threadID string) ([]search.Document, error)
}

// Handler runs one chat turn end to end: sanitize, screen, assemble the
// prompt, complete, localise, persist.
type Handler struct {
	Threads   *threadstore.Store
	Messages  *messagestore.Store
	Completer Completer
	Safety    SafetyAnalyzer
	Translate Translator
	Retriever Retriever
	Log       *zap.Logger

	// SystemPrompt is the caret-unescaped service-wide prompt; empty
	// falls back to the built-in default at assembly time.
	SystemPrompt string
	// TenantPrompts resolves the tenant's context prompt per turn.
	TenantPrompts TenantPromptSource

	sanitize *bluemonday.Policy
}

// TenantPromptSource supplies the tenant and user context prompts.
type TenantPromptSource interface {
	ContextPrompts(ctx context.Context, tenantID, userID string) (tenantPrompt, userPrompt string, err error)
}

func NewHandler(threads *threadstore.Store, messages *messagestore.Store, completer Completer, analyzer SafetyAnalyzer, translate Translator, retriever Retriever, prompts TenantPromptSource, systemPrompt string, logger *zap.Logger) *Handler {
	return &Handler{
		Threads:       threads,
		Messages:      messages,
		Completer:     completer,
		Safety:        analyzer,
		Translate:     translate,
		Retriever:     retriever,
		TenantPrompts: prompts,
		SystemPrompt:  systemPrompt,
		Log:           logger,
		sanitize:      bluemonday.StrictPolicy(),
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/chat/{threadID}                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

type turnRequest struct {
	Message string `json:"message"`
}

type turnResponse struct {
	Message models.ChatMessage `json:"message"`
	Thread  models.ChatThread  `json:"thread"`
}

type safetyResponse struct {
	Flagged  bool   `json:"flagged"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

func (h *Handler) ServeTurn(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	threadID := chi.URLParam(r, "threadID")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	content := strings.TrimSpace(h.sanitize.Sanitize(req.Message))
	if content == "" {
		http.Error(w, "empty message", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upstream())
	defer cancel()

	thread, err := h.Threads.GetForUser(ctx, u.TenantID, u.ID, threadID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.Log.Error("load thread failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Screen the message before it reaches the model. A flagged message
	// is refused and counted against the thread; the text is not stored.
	analysis, err := h.Safety.AnalyzeText(ctx, content)
	if err != nil {
		h.Log.Error("content safety check failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "content safety unavailable", http.StatusBadGateway)
		return
	}
	if analysis.Flagged {
		if err := h.Threads.BumpSafetyTrigger(ctx, u.TenantID, u.ID, threadID); err != nil {
			h.Log.Warn("bump safety trigger failed", zap.Error(err), zap.String("thread_id", threadID))
		}
		h.Log.Info("message flagged by content safety",
			zap.String("thread_id", threadID),
			zap.String("category", analysis.MainCategory()))
		writeJSON(w, http.StatusUnprocessableEntity, safetyResponse{
			Flagged:  true,
			Category: analysis.MainCategory(),
			Message:  analysis.UserMessage(),
		})
		return
	}

	systemMessage, contextText, err := h.buildSystemMessage(ctx, u, thread, content)
	if err != nil {
		h.Log.Error("prompt assembly failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	tenantPrompt, userPrompt, _ := h.contextPrompts(ctx, u)
	userMsg := models.ChatMessage{
		ID:           uuid.NewString(),
		ThreadID:     threadID,
		TenantID:     u.TenantID,
		UserID:       u.ID,
		Role:         models.RoleUser,
		Content:      content,
		SystemPrompt: systemMessage,
		TenantPrompt: tenantPrompt,
		UserPrompt:   userPrompt,
		Context:      contextText,
	}
	if _, err := h.Messages.Insert(ctx, userMsg); err != nil {
		h.Log.Error("persist user message failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	history, err := h.Messages.RecentForThread(ctx, u.TenantID, u.ID, threadID, historyWindow)
	if err != nil {
		h.Log.Error("load history failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	window := make([]openai.Message, 0, len(history)+1)
	window = append(window, openai.Message{Role: models.RoleSystem, Content: systemMessage})
	for _, m := range history {
		window = append(window, openai.Message{Role: m.Role, Content: m.Content})
	}

	completion, err := h.Completer.ChatCompletion(ctx, window, thread.Style)
	if err != nil {
		h.Log.Error("completion failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "completion unavailable", http.StatusBadGateway)
		return
	}

	// Localisation failure is not worth losing the reply over.
	reply := completion
	if translated, err := h.Translate.Translate(ctx, completion); err == nil && translated != "" {
		reply = translated
	} else if err != nil {
		h.Log.Warn("translation failed, keeping original", zap.Error(err), zap.String("thread_id", threadID))
	}

	assistantMsg := models.ChatMessage{
		ID:       uuid.NewString(),
		ThreadID: threadID,
		TenantID: u.TenantID,
		UserID:   u.ID,
		Role:     models.RoleAssistant,
		Content:  reply,
	}
	if reply != completion {
		assistantMsg.OriginalCompletion = completion
	}
	if _, err := h.Messages.Insert(ctx, assistantMsg); err != nil {
		h.Log.Error("persist assistant message failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// First reply titles an uncategorised thread.
	if thread.Name == "New Chat" {
		if renamed, err := h.Threads.Rename(ctx, u.TenantID, u.ID, threadID, reply); err == nil {
			thread = renamed
		} else {
			h.Log.Warn("title thread failed", zap.Error(err), zap.String("thread_id", threadID))
		}
	}

	writeJSON(w, http.StatusOK, turnResponse{Message: assistantMsg, Thread: *thread})
}

// buildSystemMessage assembles the turn's system message. Data chats are
// grounded on retrieved document chunks; simple chats layer the service,
// tenant, and user context prompts.
func (h *Handler) buildSystemMessage(ctx context.Context, u *auth.SessionUser, thread *models.ChatThread, query string) (message, contextText string, err error) {
	if thread.ChatType == models.ChatTypeData {
		docs, err := h.Retriever.SimilaritySearch(ctx, query, 10, u.TenantID, u.ID, thread.ID)
		if err != nil {
			return "", "", err
		}
		chunks := make([]prompt.DocumentChunk, len(docs))
		for i, d := range docs {
			chunks[i] = prompt.DocumentChunk{
				ID:       d.ID,
				FileName: d.FileName,
				Order:    d.Order,
				Content:  d.PageContent,
			}
		}
		message := prompt.AssembleDocument(chunks)
		return message, message, nil
	}

	tenantPrompt, userPrompt, err := h.contextPrompts(ctx, u)
	if err != nil {
		return "", "", err
	}
	return prompt.Assemble(prompt.Parts{
		System: h.SystemPrompt,
		Tenant: tenantPrompt,
		User:   userPrompt,
	}), "", nil
}

func (h *Handler) contextPrompts(ctx context.Context, u *auth.SessionUser) (string, string, error) {
	if h.TenantPrompts == nil {
		return "", "", nil
	}
	return h.TenantPrompts.ContextPrompts(ctx, u.TenantID, u.ID)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/chat/{threadID}/feedback/{messageID}                               |
*─────────────────────────────────────────────────────────────────────────────*/

type feedbackRequest struct {
	Feedback  string `json:"feedback"`
	Sentiment string `json:"sentiment"`
	Reason    string `json:"reason"`
}

func validSentiment(s string) bool {
	return s == models.SentimentNeutral || s == models.SentimentPositive || s == models.SentimentNegative
}

func (h *Handler) ServeFeedback(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	threadID := chi.URLParam(r, "threadID")
	messageID := chi.URLParam(r, "messageID")

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Sentiment == "" {
		req.Sentiment = models.SentimentNeutral
	}
	if !validSentiment(req.Sentiment) {
		http.Error(w, "invalid sentiment", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Messages.SetFeedback(ctx, u.TenantID, u.ID, threadID, messageID, req.Feedback, req.Sentiment, req.Reason)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.Log.Error("set feedback failed", zap.Error(err), zap.String("message_id", messageID))
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
