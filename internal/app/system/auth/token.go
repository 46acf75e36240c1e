package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// API callers that cannot hold a cookie (scripted export, service probes)
// authenticate with a bearer token minted at sign-in.

// TokenIssuer signs and verifies the service's API tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// Claims carries the session identity inside the token.
type Claims struct {
	TenantID string `json:"tid"`
	UPN      string `json:"upn"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Admin    bool   `json:"admin"`
	jwt.RegisteredClaims
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue mints a signed token for the user. Subject is the hashed id.
func (ti *TokenIssuer) Issue(u SessionUser) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		TenantID: u.TenantID,
		UPN:      u.UPN,
		Name:     u.Name,
		Email:    u.Email,
		Admin:    u.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
}

// Verify parses a token and returns its claims. Expired or mis-signed
// tokens fail.
func (ti *TokenIssuer) Verify(token string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return ti.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return &claims, nil
}

// LoadBearerUser injects a user into context from an Authorization header.
// It runs after LoadSessionUser and does nothing when a session user is
// already present or no bearer token is offered.
func (ti *TokenIssuer) LoadBearerUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := ti.Verify(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		r = WithUser(r, &SessionUser{
			ID:            claims.Subject,
			TenantID:      claims.TenantID,
			UPN:           claims.UPN,
			Name:          claims.Name,
			Email:         claims.Email,
			Admin:         claims.Admin,
			AcceptedTerms: true,
		})
		next.ServeHTTP(w, r)
	})
}
