// Package ai provides vision-model backends for generating image captions.
package ai

import (
	"context"
	"fmt"
)

// Provider defines the interface for captioning backends.
type Provider interface {
	Name() string
	Caption(ctx context.Context, imageData []byte) (string, error)
}

// NewProvider creates a captioning backend by name. An empty name disables
// captioning and returns nil without error.
func NewProvider(ctx context.Context, name, openaiToken, geminiKey string) (Provider, error) {
	switch name {
	case "":
		return nil, nil
	case "openai":
		if openaiToken == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_TOKEN")
		}
		return NewOpenAIProvider(openaiToken), nil
	case "gemini":
		if geminiKey == "" {
			return nil, fmt.Errorf("gemini provider requires GEMINI_API_KEY")
		}
		return NewGeminiProvider(ctx, geminiKey)
	default:
		return nil, fmt.Errorf("unknown caption provider %q", name)
	}
}
