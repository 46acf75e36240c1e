// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"

	"github.com/qgovau/qchat/internal/app/system/auth"
)

// pageData is the basic view model for error pages.
type pageData struct {
	Title      string
	IsLoggedIn bool
	UserName   string
	Message    string
	BackURL    string
}

// Handler renders the typed error pages. No DB needed.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Unauthorised renders the "not authorised" page shown when the sign-in
// resolver denies access, or an admin surface refuses a non-admin.
// GET /unauthorised
func (h *Handler) Unauthorised(w http.ResponseWriter, r *http.Request) {
	u, signedIn := auth.CurrentUser(r)

	data := pageData{
		Title:      "Not authorised",
		IsLoggedIn: signedIn,
		Message: "Your account is not authorised to use QChat. Your agency " +
			"may not be onboarded yet, or you may not belong to an approved " +
			"group. Contact your agency's QChat administrator.",
		BackURL: "/",
	}
	if signedIn {
		data.UserName = u.Name
	}

	templates.Render(w, r, "error_page", data)
}

// SignInFailed renders the page shown when the federated sign-in flow
// itself breaks: provider error, expired state, or a store failure.
// GET /login-error
func (h *Handler) SignInFailed(w http.ResponseWriter, r *http.Request) {
	u, signedIn := auth.CurrentUser(r)

	data := pageData{
		Title:      "Sign-in failed",
		IsLoggedIn: signedIn,
		Message: "Something went wrong while signing you in. " +
			"Please try again; if the problem persists contact support.",
		BackURL: "/auth/signin",
	}
	if signedIn {
		data.UserName = u.Name
	}

	templates.Render(w, r, "error_page", data)
}
