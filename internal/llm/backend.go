// Package llm provides inference backend clients for page generation.
//
// Each backend (Hugging Face router, OpenAI-compatible, Anthropic, Google,
// xAI) implements the same two-call Backend contract: one buffered request and
// one streamed request. Backend-specific quirks -- auth header placement,
// base-URL normalization, message shapes, provider pinning -- stay inside the
// adapter and never leak to callers.
package llm

import (
	"context"
	"fmt"
)

// generationTemperature is the fixed sampling temperature for page output.
// Kept low so repeated runs of the same prompt stay comparable.
const generationTemperature = 0.2

// ProviderAuto requests the backend's own routing instead of a pinned
// sub-provider. Only the Hugging Face router distinguishes anything else.
const ProviderAuto = "auto"

// ReferenceImage is an optional vision input attached to a request.
type ReferenceImage struct {
	MimeType   string `json:"mimeType"`
	Base64Data string `json:"base64Data"`
}

// DataURL renders the image as a data: URL for backends that take image URLs.
func (r *ReferenceImage) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", r.MimeType, r.Base64Data)
}

// Input is one fully-assembled request for a single backend call.
type Input struct {
	Model     string          // backend-native model id
	Provider  string          // routing target; ProviderAuto = backend chooses
	System    string          // system prompt
	Prompt    string          // user message text
	Image     *ReferenceImage // optional vision input
	MaxTokens int             // max output tokens; 0 = backend default
}

// Usage is the normalized token accounting for one backend call.
type Usage struct {
	InputTokens       int  `json:"inputTokens"`
	OutputTokens      int  `json:"outputTokens"`
	TotalTokens       int  `json:"totalTokens"`
	CachedInputTokens *int `json:"cachedInputTokens,omitempty"`
}

// BackendResponse is the raw outcome of one successful backend call.
// Text is the full concatenated model output; document extraction happens
// in the caller.
type BackendResponse struct {
	Text  string
	Usage *Usage
}

// TokenFunc receives streamed output deltas in arrival order.
type TokenFunc func(text string)

// Backend executes generation requests against one inference service.
type Backend interface {
	// Name returns the driver name (huggingface, openai, anthropic, google, xai).
	Name() string

	// RequestOnce performs one buffered call. Non-2xx responses and transport
	// failures come back as errors suitable for Classify.
	RequestOnce(ctx context.Context, in Input) (*BackendResponse, error)

	// RequestStreamed performs one streaming call, invoking onToken for every
	// non-empty output delta in arrival order. The returned response carries
	// the full concatenated text.
	RequestStreamed(ctx context.Context, in Input, onToken TokenFunc) (*BackendResponse, error)
}

// New creates the backend for a config entry.
func New(alias string, cfg BackendConfig) (Backend, error) {
	switch cfg.Driver {
	case DriverHuggingFace:
		return NewHuggingFaceBackend(alias, cfg)
	case DriverOpenAI:
		return NewOpenAIBackend(alias, cfg)
	case DriverAnthropic:
		return NewAnthropicBackend(alias, cfg)
	case DriverGoogle:
		return NewGoogleBackend(alias, cfg)
	case DriverXAI:
		return NewXAIBackend(alias, cfg)
	}
	return nil, fmt.Errorf("unknown backend driver: %s", cfg.Driver)
}
