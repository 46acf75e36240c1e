// internal/app/features/documents/handler.go
package documents

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	docstore "github.com/qgovau/qchat/internal/app/store/documents"
	threadstore "github.com/qgovau/qchat/internal/app/store/threads"
	"github.com/qgovau/qchat/internal/app/services/search"
	"github.com/qgovau/qchat/internal/app/system/auth"
	"github.com/qgovau/qchat/internal/app/system/timeouts"
	"github.com/qgovau/qchat/internal/domain/models"
)

// maxUploadBytes bounds how large a single document upload may be.
const maxUploadBytes = 20 << 20

// Indexer is the slice of the vector index the upload pipeline needs.
type Indexer interface {
	IndexDocuments(ctx context.Context, docs []search.Document) error
}

// Handler ingests documents for chat-over-file threads: extract, chunk,
// embed, index, then flip the thread into data mode.
type Handler struct {
	Threads   *threadstore.Store
	Documents *docstore.Store
	Index     Indexer
	IndexName string
	Log       *zap.Logger
}

func NewHandler(threads *threadstore.Store, documents *docstore.Store, index Indexer, indexName string, logger *zap.Logger) *Handler {
	return &Handler{
		Threads:   threads,
		Documents: documents,
		Index:     index,
		IndexName: indexName,
		Log:       logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/documents/{threadID}                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	threadID := chi.URLParam(r, "threadID")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "upload too large or malformed", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.Log.Error("read upload failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	chunks := chunkText(string(content))
	if len(chunks) == 0 {
		http.Error(w, "document is empty", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upstream())
	defer cancel()

	// Ownership guard before any external write.
	if _, err := h.Threads.GetForUser(ctx, u.TenantID, u.ID, threadID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.Log.Error("load thread failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	docs := make([]search.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = search.Document{
			ID:           uuid.NewString(),
			PageContent:  chunk,
			UserID:       u.ID,
			ChatThreadID: threadID,
			TenantID:     u.TenantID,
			Metadata:     header.Filename,
			CreatedDate:  now,
			FileName:     header.Filename,
			Order:        i + 1,
		}
	}
	if err := h.Index.IndexDocuments(ctx, docs); err != nil {
		h.Log.Error("index upload failed", zap.Error(err),
			zap.String("thread_id", threadID),
			zap.String("file", header.Filename))
		http.Error(w, "indexing unavailable", http.StatusBadGateway)
		return
	}

	doc, err := h.Documents.Add(ctx, u.TenantID, u.ID, threadID, header.Filename, h.IndexName, len(chunks))
	if err != nil {
		h.Log.Error("record upload failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	thread, err := h.Threads.AttachFile(ctx, u.TenantID, u.ID, threadID, header.Filename, h.IndexName)
	if err != nil {
		h.Log.Error("attach file to thread failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{Document: doc, Thread: *thread})
}

type uploadResponse struct {
	Document models.ChatDocument `json:"document"`
	Thread   models.ChatThread   `json:"thread"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/documents/{threadID}                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	threadID := chi.URLParam(r, "threadID")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	docs, err := h.Documents.ListForThread(ctx, u.TenantID, u.ID, threadID)
	if err != nil {
		h.Log.Error("list documents failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []models.ChatDocument{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
