package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	sm := NewSessionManager("test-secret")
	t.Cleanup(sm.Stop)
	return sm
}

func TestSessionLifecycle(t *testing.T) {
	sm := newTestManager(t)

	session := sm.CreateSession("user-42")
	if session.ID == "" {
		t.Fatal("session ID is empty")
	}
	if session.AccountID != "user-42" {
		t.Fatalf("accountID = %q, want user-42", session.AccountID)
	}

	if got := sm.GetSession(session.ID); got == nil || got.ID != session.ID {
		t.Fatal("session not retrievable after creation")
	}

	sm.DeleteSession(session.ID)
	if sm.GetSession(session.ID) != nil {
		t.Fatal("session retrievable after deletion")
	}
}

func TestExpiredSessionIsRejected(t *testing.T) {
	sm := newTestManager(t)

	session := sm.CreateSession("user-42")
	session.ExpiresAt = time.Now().Add(-time.Minute)

	if sm.GetSession(session.ID) != nil {
		t.Fatal("expired session returned")
	}
}

func TestSessionCookieRoundTrip(t *testing.T) {
	sm := newTestManager(t)
	session := sm.CreateSession("user-42")

	rec := httptest.NewRecorder()
	sm.SetSessionCookie(rec, session)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	got := sm.GetSessionFromRequest(req)
	if got == nil || got.AccountID != "user-42" {
		t.Fatalf("session from request = %+v, want user-42 session", got)
	}
}

func TestTamperedCookieIsRejected(t *testing.T) {
	sm := newTestManager(t)
	session := sm.CreateSession("user-42")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{
		Name:  "pose_check_session",
		Value: session.ID + ".forged-signature",
	})

	if sm.GetSessionFromRequest(req) != nil {
		t.Fatal("tampered cookie accepted")
	}
}

func TestBearerTokenFallback(t *testing.T) {
	sm := newTestManager(t)
	session := sm.CreateSession("user-42")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)

	got := sm.GetSessionFromRequest(req)
	if got == nil || got.ID != session.ID {
		t.Fatal("bearer token session not found")
	}
}

func TestRequireAuth(t *testing.T) {
	sm := newTestManager(t)
	session := sm.CreateSession("user-42")

	var seen *Session
	handler := RequireAuth(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("authenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+session.ID)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if seen == nil || seen.AccountID != "user-42" {
			t.Fatalf("context session = %+v, want user-42", seen)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}
