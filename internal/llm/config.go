// Package llm - backend configuration types
//
// This file contains the canonical configuration type for inference backends.
// It is imported by config/config.go via a type alias.
package llm

import (
	"os"
	"time"
)

// Driver names accepted in BackendConfig.Driver.
const (
	DriverHuggingFace = "huggingface"
	DriverOpenAI      = "openai"
	DriverAnthropic   = "anthropic"
	DriverGoogle      = "google"
	DriverXAI         = "xai"
)

// BackendConfig is the configuration for a single backend instance.
// This is the canonical type used by both config loading and backend creation.
type BackendConfig struct {
	Driver         string `json:"driver"`                   // huggingface, openai, anthropic, google, xai
	APIKey         string `json:"apiKey,omitempty"`         // falls back to the driver's env var
	BaseURL        string `json:"baseURL,omitempty"`        // OpenAI-compatible endpoints
	Model          string `json:"model,omitempty"`          // default model for this backend
	MaxTokens      int    `json:"maxTokens,omitempty"`      // output limit override
	ContextWindow  int    `json:"contextWindow,omitempty"`  // model context size, caps output budgeting
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"` // per-request transport timeout
	BillTo         string `json:"billTo,omitempty"`         // Hugging Face org billing
}

// apiKeyEnv maps a driver to its conventional environment variable.
func apiKeyEnv(driver string) string {
	switch driver {
	case DriverHuggingFace:
		return "HF_TOKEN"
	case DriverOpenAI:
		return "OPENAI_API_KEY"
	case DriverAnthropic:
		return "ANTHROPIC_API_KEY"
	case DriverGoogle:
		return "GEMINI_API_KEY"
	case DriverXAI:
		return "XAI_API_KEY"
	}
	return ""
}

// ResolveAPIKey returns the configured key, falling back to the driver's
// environment variable.
func (b *BackendConfig) ResolveAPIKey() string {
	if b.APIKey != "" {
		return b.APIKey
	}
	if env := apiKeyEnv(b.Driver); env != "" {
		return os.Getenv(env)
	}
	return ""
}

// ResolveBillTo returns the Hugging Face billing org, env HF_BILL_TO wins.
func (b *BackendConfig) ResolveBillTo() string {
	if v := os.Getenv("HF_BILL_TO"); v != "" {
		return v
	}
	return b.BillTo
}

// Timeout returns the transport timeout, 0 when unset (caller context rules).
func (b *BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds > 0 {
		return time.Duration(b.TimeoutSeconds) * time.Second
	}
	return 0
}
