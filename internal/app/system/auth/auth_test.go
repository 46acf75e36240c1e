package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func initTestStore(t *testing.T) {
	t.Helper()
	if err := InitSessionStore(strings.Repeat("k", 32), "", false, zap.NewNop()); err != nil {
		t.Fatalf("InitSessionStore: %v", err)
	}
	t.Cleanup(func() { Store = nil })
}

func testUser() SessionUser {
	return SessionUser{
		ID:            "abc123",
		TenantID:      "T1",
		UPN:           "alice@agency.gov",
		Name:          "Alice Citizen",
		Email:         "alice@agency.gov",
		Admin:         true,
		AcceptedTerms: true,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	initTestStore(t)

	// Sign in and capture the cookie.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := SignIn(rec, req, testUser()); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	// Replay it through the middleware.
	var got *SessionUser
	h := LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CurrentUser(r)
	}))
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req2.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req2)

	if got == nil {
		t.Fatal("no user loaded from session")
	}
	if got.ID != "abc123" || got.TenantID != "T1" || !got.Admin || !got.AcceptedTerms {
		t.Errorf("loaded user mismatch: %+v", got)
	}
}

func TestSignOutClearsSession(t *testing.T) {
	initTestStore(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := SignOut(rec, req); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionName && c.MaxAge >= 0 {
			t.Errorf("session cookie not expired: MaxAge=%d", c.MaxAge)
		}
	}
}

func TestRequireSignedIn(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("anonymous api caller gets 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireSignedIn(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/threads", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d, want 401", rec.Code)
		}
	})

	t.Run("anonymous browser is redirected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/chat?x=1", nil)
		req.Header.Set("Accept", "text/html")
		rec := httptest.NewRecorder()
		RequireSignedIn(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("status: got %d, want 303", rec.Code)
		}
		if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/login?return=") {
			t.Errorf("location: got %q", loc)
		}
	})

	t.Run("signed-in user passes", func(t *testing.T) {
		u := testUser()
		req := WithUser(httptest.NewRequest(http.MethodGet, "/chat", nil), &u)
		rec := httptest.NewRecorder()
		RequireSignedIn(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status: got %d, want 200", rec.Code)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("non-admin gets 403", func(t *testing.T) {
		u := testUser()
		u.Admin = false
		req := WithUser(httptest.NewRequest(http.MethodPut, "/api/tenant", nil), &u)
		rec := httptest.NewRecorder()
		RequireAdmin(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status: got %d, want 403", rec.Code)
		}
	})

	t.Run("admin passes", func(t *testing.T) {
		u := testUser()
		req := WithUser(httptest.NewRequest(http.MethodPut, "/api/tenant", nil), &u)
		rec := httptest.NewRecorder()
		RequireAdmin(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status: got %d, want 200", rec.Code)
		}
	})
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	ti := NewTokenIssuer(strings.Repeat("s", 32), time.Hour)

	token, err := ti.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "abc123" || claims.TenantID != "T1" || !claims.Admin {
		t.Errorf("claims mismatch: %+v", claims)
	}
}

func TestTokenIssuerRejects(t *testing.T) {
	ti := NewTokenIssuer(strings.Repeat("s", 32), time.Hour)

	t.Run("expired", func(t *testing.T) {
		short := NewTokenIssuer(strings.Repeat("s", 32), -time.Minute)
		token, err := short.Issue(testUser())
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if _, err := ti.Verify(token); err == nil {
			t.Error("expired token verified")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenIssuer(strings.Repeat("x", 32), time.Hour)
		token, err := other.Issue(testUser())
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if _, err := ti.Verify(token); err == nil {
			t.Error("mis-signed token verified")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := ti.Verify("not.a.token"); err == nil {
			t.Error("garbage token verified")
		}
	})
}

func TestLoadBearerUser(t *testing.T) {
	ti := NewTokenIssuer(strings.Repeat("s", 32), time.Hour)
	token, err := ti.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var got *SessionUser
	h := ti.LoadBearerUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CurrentUser(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/threads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("no user loaded from bearer token")
	}
	if got.UPN != "alice@agency.gov" || got.TenantID != "T1" {
		t.Errorf("loaded user mismatch: %+v", got)
	}

	t.Run("bad token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/threads", nil)
		req.Header.Set("Authorization", "Bearer bogus")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d, want 401", rec.Code)
		}
	})
}
