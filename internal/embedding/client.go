// Package embedding provides a client for the external image embedding
// service. The service receives an image as a base64 data URI and returns a
// fixed-length feature vector.
package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultBaseURL = "http://localhost:8000"
	defaultModel   = "clip" // model name for reference only
)

var (
	// ErrService indicates a transport or service-side failure. Retryable by
	// the caller; the client itself never retries.
	ErrService = errors.New("embedding service error")

	// ErrUnexpectedShape indicates a response that is neither a bare vector,
	// a batch of one vector, nor an object with an embedding field.
	ErrUnexpectedShape = errors.New("unexpected embedding response shape")
)

// Client computes image embeddings using the embedding server.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewClient creates a new embedding client.
func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

type embedRequest struct {
	Image string `json:"image"`
	Model string `json:"model,omitempty"`
}

// Embed computes the embedding for an image. The image is sent as a base64
// data URI; the response vector is normalized from whichever shape the model
// returns.
func (c *Client) Embed(ctx context.Context, imageData []byte) ([]float32, error) {
	reqBody, err := json.Marshal(embedRequest{
		Image: DataURI(imageData),
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed/image", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrService, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrService, resp.StatusCode, string(body))
	}

	return decodeVector(body)
}

// Model returns the model name being used.
func (c *Client) Model() string {
	return c.model
}

// decodeVector normalizes the heterogeneous response shapes the model may
// produce into a single vector. Exhaustive: anything unrecognized fails with
// ErrUnexpectedShape, never a silent zero vector.
func decodeVector(body []byte) ([]float32, error) {
	// Batch of one vector: [[...]]
	var batch [][]float32
	if err := json.Unmarshal(body, &batch); err == nil {
		if len(batch) == 0 || len(batch[0]) == 0 {
			return nil, fmt.Errorf("%w: empty batch", ErrUnexpectedShape)
		}
		return batch[0], nil
	}

	// Bare vector: [...]
	var bare []float32
	if err := json.Unmarshal(body, &bare); err == nil {
		if len(bare) == 0 {
			return nil, fmt.Errorf("%w: empty vector", ErrUnexpectedShape)
		}
		return bare, nil
	}

	// Named field: {"embedding": [...]}
	var named struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &named); err == nil && len(named.Embedding) > 0 {
		return named.Embedding, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnexpectedShape, truncate(string(body), 200))
}

// DataURI encodes image bytes as a data URI with a sniffed MIME type.
func DataURI(data []byte) string {
	return "data:" + detectMIMEType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// detectMIMEType detects the MIME type from image magic bytes.
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
