// internal/app/features/authfed/handler.go
package authfed

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"

	"github.com/qgovau/qchat/internal/app/store/authstate"
	"github.com/qgovau/qchat/internal/app/system/auditlog"
	"github.com/qgovau/qchat/internal/app/system/auth"
	"github.com/qgovau/qchat/internal/app/system/normalize"
	"github.com/qgovau/qchat/internal/app/system/signin"
	"github.com/qgovau/qchat/internal/app/system/timeouts"
)

// Handler runs the federated sign-in flow: consent redirect, callback
// verification, then the authorization resolver.
type Handler struct {
	Provider *Provider
	States   *authstate.Store
	Resolver *signin.Resolver
	AuditLog *auditlog.Logger
	Tokens   *auth.TokenIssuer
	Log      *zap.Logger
}

func NewHandler(provider *Provider, states *authstate.Store, resolver *signin.Resolver, audit *auditlog.Logger, tokens *auth.TokenIssuer, logger *zap.Logger) *Handler {
	return &Handler{
		Provider: provider,
		States:   states,
		Resolver: resolver,
		AuditLog: audit,
		Tokens:   tokens,
		Log:      logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/signin                                                             |
| Starts the flow by redirecting to the identity provider's consent screen.    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randomToken()
	if err != nil {
		h.Log.Error("failed to generate state", zap.Error(err))
		http.Redirect(w, r, "/login-error", http.StatusSeeOther)
		return
	}
	nonce, err := randomToken()
	if err != nil {
		h.Log.Error("failed to generate nonce", zap.Error(err))
		http.Redirect(w, r, "/login-error", http.StatusSeeOther)
		return
	}

	returnURL := query.Get(r, "return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	expiresAt := time.Now().UTC().Add(10 * time.Minute)
	if err := h.States.Save(ctx, state, nonce, returnURL, expiresAt); err != nil {
		h.Log.Error("failed to save sign-in state", zap.Error(err))
		http.Redirect(w, r, "/login-error", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, h.Provider.AuthCodeURL(state, nonce), http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/callback                                                           |
| Verifies the ID token, runs the sign-in resolver, and either opens a         |
| session or routes the user to the matching failure page.                     |
*─────────────────────────────────────────────────────────────────────────────*/

// idClaims is the slice of the ID token the service reads. The groups
// claim shape varies by provider configuration, so it is decoded loosely
// and normalized below.
type idClaims struct {
	UPN               string `json:"upn"`
	PreferredUsername string `json:"preferred_username"`
	TenantID          string `json:"tid"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Groups            any    `json:"groups"`
}

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("identity provider returned an error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		http.Redirect(w, r, "/login-error", http.StatusSeeOther)
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		h.Log.Warn("callback missing state parameter")
		http.Redirect(w, r, "/login-error", http.StatusSeeOther)
		return
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	nonce, returnURL, ok, err := h.States.Consume(ctxTimeout, state)
	if err != nil {
		h.Log.Error("failed to consume sign-in state", zap.Error(err))
		http.Redirect(w, r, "/login-error", http.StatusSeeOther)
		return
	}
	if !ok {
		h.Log.Warn("unknown or expired sign-in state")
		http.Redirect(w, r, "/login-error", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.Log.Warn("callback missing code parameter")
		http.Redirect(w, r, "/login-error", http.StatusSeeOther)
		return
	}

	idToken, err := h.Provider.Exchange(ctx, code, nonce)
	if err != nil {
		h.Log.Error("token exchange failed", zap.Error(err))
		http.Redirect(w, r, "/login-error", http.StatusSeeOther)
		return
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		h.Log.Error("failed to decode id token claims", zap.Error(err))
		http.Redirect(w, r, "/login-error", http.StatusSeeOther)
		return
	}

	profile, groups := profileFromClaims(claims)

	outcome := h.Resolver.Resolve(ctxTimeout, profile, groups)
	switch {
	case outcome.StoreError():
		h.AuditLog.SignInError(ctx, r, profile.TenantID, outcome.Err)
		http.Redirect(w, r, "/login-error", http.StatusSeeOther)
		return

	case outcome.Denied():
		userID := ""
		if outcome.User != nil {
			userID = outcome.User.ID
		}
		if outcome.TenantCreated {
			h.AuditLog.TenantProvisioned(ctx, r, profile.TenantID, profile.UPN)
		}
		h.AuditLog.SignInDenied(ctx, r, profile.TenantID, userID, profile.UPN, string(outcome.Reason))
		http.Redirect(w, r, "/unauthorised", http.StatusSeeOther)
		return
	}

	user := outcome.User
	sessionUser := auth.SessionUser{
		ID:            user.ID,
		TenantID:      user.TenantID,
		UPN:           user.UPN,
		Name:          user.Name,
		Email:         user.Email,
		Admin:         outcome.Tenant.IsAdministrator(user.UPN),
		AcceptedTerms: user.AcceptedTerms,
	}
	if err := auth.SignIn(w, r, sessionUser); err != nil {
		h.Log.Error("failed to save session", zap.Error(err), zap.String("user_id", user.ID))
		http.Redirect(w, r, "/login-error", http.StatusSeeOther)
		return
	}

	h.AuditLog.SignInSuccess(ctx, r, user.TenantID, user.ID, user.UPN)
	h.Log.Info("user signed in",
		zap.String("tenant_id", user.TenantID),
		zap.String("user_id", user.ID))

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/"), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/token                                                              |
| Mints an API bearer token for the signed-in session.                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeToken(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	token, err := h.Tokens.Issue(*u)
	if err != nil {
		h.Log.Error("failed to issue api token", zap.Error(err), zap.String("user_id", u.ID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"token":"` + token + `"}`))
}

// profileFromClaims maps ID-token claims onto the resolver's profile and
// normalizes the group claim regardless of its wire shape.
func profileFromClaims(c idClaims) (signin.Profile, []string) {
	upn := c.UPN
	if upn == "" {
		upn = c.PreferredUsername
	}

	var raw []string
	switch v := c.Groups.(type) {
	case []any:
		for _, g := range v {
			if s, ok := g.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = []string{v}
	}

	return signin.Profile{
		UPN:      upn,
		TenantID: c.TenantID,
		Name:     c.Name,
		Email:    c.Email,
	}, normalize.Groups(raw)
}

// randomToken creates a cryptographically secure random URL-safe string.
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
