// internal/app/features/export/handler.go
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	messagestore "github.com/qgovau/qchat/internal/app/store/messages"
	threadstore "github.com/qgovau/qchat/internal/app/store/threads"
	"github.com/qgovau/qchat/internal/app/system/auth"
	"github.com/qgovau/qchat/internal/app/system/timeouts"
	"github.com/qgovau/qchat/internal/domain/models"
)

// Handler writes a thread transcript out as markdown or CSV so users can
// file conversations in their own recordkeeping systems.
type Handler struct {
	Threads  *threadstore.Store
	Messages *messagestore.Store
	Log      *zap.Logger
}

func NewHandler(threads *threadstore.Store, messages *messagestore.Store, logger *zap.Logger) *Handler {
	return &Handler{Threads: threads, Messages: messages, Log: logger}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/export/{threadID}?format=markdown|csv                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeExport(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	threadID := chi.URLParam(r, "threadID")

	format := query.Get(r, "format")
	if format == "" {
		format = "markdown"
	}
	if format != "markdown" && format != "csv" {
		http.Error(w, "unsupported format", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
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

	msgs, err := h.Messages.ListForThread(ctx, u.TenantID, u.ID, threadID)
	if err != nil {
		h.Log.Error("load messages failed", zap.Error(err), zap.String("thread_id", threadID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	base := exportFileName(thread.Name)
	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+".csv"))
		if err := writeCSV(w, msgs); err != nil {
			h.Log.Error("write csv export failed", zap.Error(err), zap.String("thread_id", threadID))
		}
	default:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+".md"))
		if _, err := w.Write([]byte(renderMarkdown(thread, msgs))); err != nil {
			h.Log.Error("write markdown export failed", zap.Error(err), zap.String("thread_id", threadID))
		}
	}
}

// exportFileName turns a thread title into a safe download name.
func exportFileName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		out = "chat-export"
	}
	return out
}

func renderMarkdown(thread *models.ChatThread, msgs []models.ChatMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", thread.Name)
	fmt.Fprintf(&b, "Exported %s\n\n", time.Now().UTC().Format("2 January 2006 15:04 MST"))
	if thread.InternalReference != "" {
		fmt.Fprintf(&b, "Reference: %s\n\n", thread.InternalReference)
	}
	if thread.ChatOverFileName != "" {
		fmt.Fprintf(&b, "Grounded on: %s\n\n", thread.ChatOverFileName)
	}

	for _, m := range msgs {
		label := "You"
		if m.Role == models.RoleAssistant {
			label = "Assistant"
		}
		fmt.Fprintf(&b, "## %s (%s)\n\n%s\n\n", label, m.CreatedAt.Format(time.RFC3339), m.Content)
	}
	return b.String()
}

func writeCSV(w http.ResponseWriter, msgs []models.ChatMessage) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "role", "content", "sentiment", "feedback"}); err != nil {
		return err
	}
	for _, m := range msgs {
		row := []string{
			m.CreatedAt.Format(time.RFC3339),
			m.Role,
			m.Content,
			m.Sentiment,
			m.Feedback,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
