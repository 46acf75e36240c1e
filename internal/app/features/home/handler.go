// internal/app/features/home/handler.go
package home

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"

	"github.com/qgovau/qchat/internal/app/system/auth"
)

// Handler serves the chat shell. Everything conversational happens over
// the JSON API; this page is the entry point.
type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	u, signedIn := auth.CurrentUser(r)

	data := struct {
		Title      string
		IsLoggedIn bool
		UserName   string
		IsAdmin    bool
	}{
		Title:      "QChat",
		IsLoggedIn: signedIn,
	}
	if signedIn {
		data.UserName = u.Name
		data.IsAdmin = u.Admin
	}

	templates.Render(w, r, "home", data)
}
