package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/pose-check/internal/checker"
	"github.com/kozaktomas/pose-check/internal/phash"
	"github.com/kozaktomas/pose-check/internal/web/middleware"
)

// maxUploadSize caps check submissions at 20 MB.
const maxUploadSize = 20 << 20

// Evaluator runs a duplicate check for a submitted image.
type Evaluator interface {
	Evaluate(ctx context.Context, imageBytes []byte, submitterID string) (*checker.Verdict, error)
}

// CheckHandler handles image check submissions.
type CheckHandler struct {
	checker Evaluator
}

// NewCheckHandler creates a new check handler.
func NewCheckHandler(ch Evaluator) *CheckHandler {
	return &CheckHandler{checker: ch}
}

// checkRequest represents a JSON check submission.
type checkRequest struct {
	Image string `json:"image"` // data URI or plain base64
}

// Check evaluates a submitted image and responds with the verdict. Accepts
// either a JSON body with a base64 image or a multipart form with an "image"
// file field.
func (h *CheckHandler) Check(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	payload, ok := h.readPayload(w, r)
	if !ok {
		return
	}

	verdict, err := h.checker.Evaluate(r.Context(), payload, session.AccountID)
	if err != nil {
		switch {
		case errors.Is(err, checker.ErrNoIdentity):
			respondError(w, http.StatusUnauthorized, "unauthorized")
		case errors.Is(err, phash.ErrDecode):
			respondError(w, http.StatusBadRequest, "image could not be decoded")
		case errors.Is(err, checker.ErrAdapter):
			log.Printf("check failed for account %s: %v", sanitizeForLog(session.AccountID), err)
			respondError(w, http.StatusBadGateway, "check temporarily unavailable")
		default:
			log.Printf("check failed for account %s: %v", sanitizeForLog(session.AccountID), err)
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	respondJSON(w, http.StatusOK, verdict)
}

// readPayload extracts the image bytes from a JSON or multipart request.
// On failure it writes the error response and returns ok=false.
func (h *CheckHandler) readPayload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			respondError(w, http.StatusBadRequest, "failed to parse multipart form")
			return nil, false
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			respondError(w, http.StatusBadRequest, "image file is required")
			return nil, false
		}
		defer file.Close()

		payload, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read image file")
			return nil, false
		}
		if len(payload) == 0 {
			respondError(w, http.StatusBadRequest, "image file is empty")
			return nil, false
		}
		return payload, true
	}

	var req checkRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadSize)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return nil, false
	}
	if req.Image == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return nil, false
	}
	if strings.HasPrefix(req.Image, "data:") {
		return []byte(req.Image), true
	}
	payload, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, "image must be base64 encoded")
		return nil, false
	}
	return payload, true
}
