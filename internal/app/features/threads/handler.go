// internal/app/features/threads/handler.go
package threads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	docstore "github.com/qgovau/qchat/internal/app/store/documents"
	messagestore "github.com/qgovau/qchat/internal/app/store/messages"
	threadstore "github.com/qgovau/qchat/internal/app/store/threads"
	"github.com/qgovau/qchat/internal/app/system/auth"
	"github.com/qgovau/qchat/internal/app/system/timeouts"
	"github.com/qgovau/qchat/internal/domain/models"
)

// DocumentIndex is the slice of the vector index the delete cascade needs.
type DocumentIndex interface {
	DeleteThreadDocuments(ctx context.Context, tenantID, userID, threadID string) error
}

// Handler serves the chat thread API.
type Handler struct {
	Threads   *threadstore.Store
	Messages  *messagestore.Store
	Documents *docstore.Store
	Index     DocumentIndex
	Log       *zap.Logger
}

func NewHandler(threads *threadstore.Store, messages *messagestore.Store, documents *docstore.Store, index DocumentIndex, logger *zap.Logger) *Handler {
	return &Handler{
		Threads:   threads,
		Messages:  messages,
		Documents: documents,
		Index:     index,
		Log:       logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/threads                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	threads, err := h.Threads.ListForUser(ctx, u.TenantID, u.ID, threadstore.DefaultMonthsShown)
	if err != nil {
		h.Log.Error("list threads failed", zap.Error(err), zap.String("user_id", u.ID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if threads == nil {
		threads = []models.ChatThread{}
	}
	writeJSON(w, http.StatusOK, threads)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/threads                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

type createRequest struct {
	Name string `json:"name"`
}

func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var req createRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	thread, err := h.Threads.Create(ctx, u.TenantID, u.ID, u.Name, req.Name)
	if err != nil {
		h.Log.Error("create thread failed", zap.Error(err), zap.String("user_id", u.ID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, thread)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/threads/{threadID}                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

type threadDetail struct {
	Thread   models.ChatThread    `json:"thread"`
	Messages []models.ChatMessage `json:"messages"`
}

func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	threadID := chi.URLParam(r, "threadID")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	thread, err := h.Threads.GetForUser(ctx, u.TenantID, u.ID, threadID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.Log.Error("get thread failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	messages, err := h.Messages.ListForThread(ctx, u.TenantID, u.ID, threadID)
	if err != nil {
		h.Log.Error("list messages failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, threadDetail{Thread: *thread, Messages: messages})
}

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /api/threads/{threadID}                                                |
*─────────────────────────────────────────────────────────────────────────────*/

type updateRequest struct {
	Name              string `json:"name"`
	Style             string `json:"style"`
	Sensitivity       string `json:"sensitivity"`
	InternalReference string `json:"internalReference"`
}

func validStyle(s string) bool {
	return s == models.StyleCreative || s == models.StyleBalanced || s == models.StylePrecise
}

func validSensitivity(s string) bool {
	return s == models.SensitivityOfficial || s == models.SensitivitySensitive || s == models.SensitivityProtected
}

func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	threadID := chi.URLParam(r, "threadID")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Style != "" && !validStyle(req.Style) {
		http.Error(w, "invalid style", http.StatusBadRequest)
		return
	}
	if req.Sensitivity != "" && !validSensitivity(req.Sensitivity) {
		http.Error(w, "invalid sensitivity", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if req.Name != "" {
		if _, err := h.Threads.Rename(ctx, u.TenantID, u.ID, threadID, req.Name); err != nil {
			h.respondUpdateErr(w, err, threadID)
			return
		}
	}
	if req.Style != "" || req.Sensitivity != "" {
		if err := h.Threads.UpdateSettings(ctx, u.TenantID, u.ID, threadID, req.Style, req.Sensitivity); err != nil {
			h.respondUpdateErr(w, err, threadID)
			return
		}
	}
	if req.InternalReference != "" {
		if err := h.Threads.SetReference(ctx, u.TenantID, u.ID, threadID, req.InternalReference); err != nil {
			h.respondUpdateErr(w, err, threadID)
			return
		}
	}

	thread, err := h.Threads.GetForUser(ctx, u.TenantID, u.ID, threadID)
	if err != nil {
		h.respondUpdateErr(w, err, threadID)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

func (h *Handler) respondUpdateErr(w http.ResponseWriter, err error, threadID string) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	h.Log.Error("update thread failed", zap.Error(err), zap.String("thread_id", threadID))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /api/threads/{threadID}                                               |
| Soft deletes the thread, its messages, and its document rows, and clears     |
| the thread's chunks from the vector index.                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	threadID := chi.URLParam(r, "threadID")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Threads.SoftDelete(ctx, u.TenantID, u.ID, threadID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.Log.Error("delete thread failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := h.Messages.SoftDeleteThread(ctx, u.TenantID, u.ID, threadID); err != nil {
		h.Log.Error("delete thread messages failed", zap.Error(err), zap.String("thread_id", threadID))
	}
	if err := h.Documents.SoftDeleteThread(ctx, u.TenantID, u.ID, threadID); err != nil {
		h.Log.Error("delete thread documents failed", zap.Error(err), zap.String("thread_id", threadID))
	}
	if h.Index != nil {
		if err := h.Index.DeleteThreadDocuments(ctx, u.TenantID, u.ID, threadID); err != nil {
			h.Log.Error("clear thread index failed", zap.Error(err), zap.String("thread_id", threadID))
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
