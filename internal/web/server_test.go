package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/pose-check/internal/checker"
	"github.com/kozaktomas/pose-check/internal/config"
	"github.com/kozaktomas/pose-check/internal/store/mock"
)

type stubEvaluator struct{}

func (stubEvaluator) Evaluate(ctx context.Context, imageBytes []byte, submitterID string) (*checker.Verdict, error) {
	return &checker.Verdict{Status: checker.StatusNew, IsReal: true, ID: "1"}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.Web.AuthToken = "secret-token"
	cfg.Web.SessionSecret = "test-secret"
	cfg.Web.Port = 0

	s := NewServer(cfg, stubEvaluator{}, mock.NewStore(), mock.NewIndex())
	t.Cleanup(func() {
		if err := s.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown: %v", err)
		}
	})
	return s
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCheckRouteRequiresAuth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/check", bytes.NewBufferString(`{"image":"aGVsbG8="}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLoginThenCheck(t *testing.T) {
	s := newTestServer(t)

	// Log in.
	loginBody := bytes.NewBufferString(`{"token":"secret-token","accountId":"discord-123"}`)
	loginReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", loginBody)
	loginReq.Header.Set("Content-Type", "application/json")
	loginRec := httptest.NewRecorder()
	s.Router().ServeHTTP(loginRec, loginReq)

	if loginRec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", loginRec.Code, loginRec.Body.String())
	}

	var login struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(loginRec.Body).Decode(&login); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}

	// Submit a check with the bearer token.
	checkReq := httptest.NewRequest(http.MethodPost, "/api/v1/check", bytes.NewBufferString(`{"image":"aGVsbG8="}`))
	checkReq.Header.Set("Content-Type", "application/json")
	checkReq.Header.Set("Authorization", "Bearer "+login.SessionID)
	checkRec := httptest.NewRecorder()
	s.Router().ServeHTTP(checkRec, checkReq)

	if checkRec.Code != http.StatusOK {
		t.Fatalf("check status = %d, body = %s", checkRec.Code, checkRec.Body.String())
	}

	var verdict checker.Verdict
	if err := json.NewDecoder(checkRec.Body).Decode(&verdict); err != nil {
		t.Fatalf("decoding verdict: %v", err)
	}
	if verdict.Status != checker.StatusNew {
		t.Fatalf("verdict status = %q, want new", verdict.Status)
	}
}
