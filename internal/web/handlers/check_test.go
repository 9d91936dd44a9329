package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/pose-check/internal/checker"
	"github.com/kozaktomas/pose-check/internal/phash"
	"github.com/kozaktomas/pose-check/internal/web/middleware"
)

type fakeEvaluator struct {
	verdict   *checker.Verdict
	err       error
	gotImage  []byte
	gotSubmit string
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, imageBytes []byte, submitterID string) (*checker.Verdict, error) {
	f.gotImage = imageBytes
	f.gotSubmit = submitterID
	if f.err != nil {
		return nil, f.err
	}
	return f.verdict, nil
}

func testSession(accountID string) *middleware.Session {
	return &middleware.Session{
		ID:        "test-session",
		AccountID: accountID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func doCheck(t *testing.T, h *CheckHandler, body *bytes.Buffer, contentType string, session *middleware.Session) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/check", body)
	req.Header.Set("Content-Type", contentType)
	if session != nil {
		req = req.WithContext(middleware.SetSessionInContext(req.Context(), session))
	}
	rec := httptest.NewRecorder()
	h.Check(rec, req)
	return rec
}

func jsonBody(t *testing.T, image string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(map[string]string{"image": image}); err != nil {
		t.Fatalf("encoding body: %v", err)
	}
	return &buf
}

func TestCheckJSONSubmission(t *testing.T) {
	eval := &fakeEvaluator{verdict: &checker.Verdict{
		Status:  checker.StatusNew,
		IsReal:  true,
		ID:      "1",
		Details: &checker.Details{MatchID: 1, UploaderID: "bob"},
	}}
	h := NewCheckHandler(eval)

	raw := []byte("fake image bytes")
	encoded := base64.StdEncoding.EncodeToString(raw)
	rec := doCheck(t, h, jsonBody(t, encoded), "application/json", testSession("bob"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(eval.gotImage, raw) {
		t.Errorf("evaluator received %q, want decoded bytes", eval.gotImage)
	}
	if eval.gotSubmit != "bob" {
		t.Errorf("submitter = %q, want bob", eval.gotSubmit)
	}

	var verdict checker.Verdict
	if err := json.NewDecoder(rec.Body).Decode(&verdict); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if verdict.Status != checker.StatusNew || !verdict.IsReal {
		t.Errorf("verdict = %+v, want new/true", verdict)
	}
}

func TestCheckDataURIPassesThrough(t *testing.T) {
	eval := &fakeEvaluator{verdict: &checker.Verdict{Status: checker.StatusNew, IsReal: true, ID: "1"}}
	h := NewCheckHandler(eval)

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png bytes"))
	rec := doCheck(t, h, jsonBody(t, uri), "application/json", testSession("bob"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if string(eval.gotImage) != uri {
		t.Error("data URI should be forwarded untouched")
	}
}

func TestCheckMultipartSubmission(t *testing.T) {
	eval := &fakeEvaluator{verdict: &checker.Verdict{Status: checker.StatusScanned, IsReal: true, ID: "3"}}
	h := NewCheckHandler(eval)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "photo.jpg")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	raw := []byte("jpeg bytes")
	if _, err := part.Write(raw); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	mw.Close()

	rec := doCheck(t, h, &buf, mw.FormDataContentType(), testSession("alice"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(eval.gotImage, raw) {
		t.Errorf("evaluator received %q, want file bytes", eval.gotImage)
	}
	if eval.gotSubmit != "alice" {
		t.Errorf("submitter = %q, want alice", eval.gotSubmit)
	}
}

func TestCheckRequiresSession(t *testing.T) {
	h := NewCheckHandler(&fakeEvaluator{})
	rec := doCheck(t, h, jsonBody(t, "aGVsbG8="), "application/json", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCheckBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{not json"},
		{"missing image", "{}"},
		{"invalid base64", `{"image": "!!not-base64!!"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCheckHandler(&fakeEvaluator{})
			rec := doCheck(t, h, bytes.NewBufferString(tt.body), "application/json", testSession("bob"))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCheckErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"undecodable image", fmt.Errorf("computing: %w", phash.ErrDecode), http.StatusBadRequest},
		{"adapter failure", fmt.Errorf("%w: store down", checker.ErrAdapter), http.StatusBadGateway},
		{"unknown failure", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCheckHandler(&fakeEvaluator{err: tt.err})
			rec := doCheck(t, h, jsonBody(t, "aGVsbG8="), "application/json", testSession("bob"))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
				t.Errorf("content type = %q, want JSON", rec.Header().Get("Content-Type"))
			}
		})
	}
}
