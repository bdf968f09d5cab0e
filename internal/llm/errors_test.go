package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantRetryable bool
	}{
		{"bad request", 400, false},
		{"unauthorized", 401, false},
		{"forbidden", 403, false},
		{"not found", 404, false},
		{"request timeout", 408, true},
		{"unprocessable", 422, false},
		{"rate limited", 429, true},
		{"server error", 500, true},
		{"bad gateway", 502, true},
		{"unavailable", 503, true},
		{"gateway timeout", 504, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &BackendError{Backend: "openai", Status: tt.status, Body: `{"error":{"message":"boom"}}`}
			c := Classify(err)
			if c.Status != tt.status {
				t.Errorf("status = %d, want %d", c.Status, tt.status)
			}
			if c.Retryable != tt.wantRetryable {
				t.Errorf("retryable = %v, want %v", c.Retryable, tt.wantRetryable)
			}
			if c.Detail != "boom" {
				t.Errorf("detail = %q, want %q", c.Detail, "boom")
			}
		})
	}
}

func TestClassifyWrappedBackendError(t *testing.T) {
	err := fmt.Errorf("generate: %w", &BackendError{Backend: "google", Status: 429, Body: ""})
	c := Classify(err)
	if c.Status != 429 || !c.Retryable {
		t.Errorf("got %+v, want 429 retryable", c)
	}
}

func TestClassifyTransportTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"deadline exceeded", context.DeadlineExceeded},
		{"wrapped deadline", fmt.Errorf("request: %w", context.DeadlineExceeded)},
		{"flattened reset", errors.New("read tcp 10.0.0.1: ECONNRESET")},
		{"no such host", errors.New("dial tcp: lookup api.example.com: no such host")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.err)
			if c.Status != 504 {
				t.Errorf("status = %d, want 504", c.Status)
			}
			if !c.Retryable {
				t.Error("transport timeouts must be retryable")
			}
		})
	}
}

func TestClassifyUnknownErrorIs502(t *testing.T) {
	c := Classify(errors.New("something odd happened"))
	if c.Status != 502 || !c.Retryable {
		t.Errorf("got %+v, want 502 retryable", c)
	}
}

func TestExtractDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"flat error string", `{"error":"model not found"}`, "model not found"},
		{"nested envelope", `{"error":{"message":"quota exceeded"}}`, "quota exceeded"},
		{"detail key", `{"detail":"invalid request"}`, "invalid request"},
		{"reason key", `{"error":{"reason":"RATE_LIMIT"}}`, "RATE_LIMIT"},
		{"array of errors", `{"error":[{"message":"first"},{"message":"second"}]}`, "first"},
		{"plain text", "upstream connect error", "upstream connect error"},
		{"html page discarded", "<!DOCTYPE html><html><body>502</body></html>", ""},
		{"html string inside json", `{"error":"<html>bad gateway</html>"}`, ""},
		{"empty", "", ""},
		{"json with no known keys", `{"status":"failed"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractDetail(tt.body); got != tt.want {
				t.Errorf("extractDetail(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestExtractDetailTruncates(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := extractDetail(long)
	if len(got) != maxDetailLen+3 {
		t.Errorf("len = %d, want %d", len(got), maxDetailLen+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncated detail must end with ellipsis")
	}
}

func TestIsStreamingUnsupported(t *testing.T) {
	tests := []struct {
		name string
		c    Classified
		want bool
	}{
		{"400 stream not supported", Classified{Status: 400, Detail: "stream is not supported for this model"}, true},
		{"422 unsupported streaming", Classified{Status: 422, Detail: "unsupported parameter: stream"}, true},
		{"404 streaming unsupported", Classified{Status: 404, Detail: "streaming unsupported"}, true},
		{"500 with stream wording", Classified{Status: 500, Detail: "stream not supported"}, false},
		{"400 unrelated", Classified{Status: 400, Detail: "invalid prompt"}, false},
		{"stream mentioned without refusal", Classified{Status: 400, Detail: "stream closed early"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStreamingUnsupported(tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsImageUnsupported(t *testing.T) {
	tests := []struct {
		name string
		c    Classified
		want bool
	}{
		{"400 image not supported", Classified{Status: 400, Detail: "image input is not supported"}, true},
		{"422 only text", Classified{Status: 422, Detail: "image rejected, model accepts only text"}, true},
		{"400 invalid type", Classified{Status: 400, Detail: "image content: invalid type"}, true},
		{"404 never image fallback", Classified{Status: 404, Detail: "image not supported"}, false},
		{"400 unrelated", Classified{Status: 400, Detail: "prompt too long"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsImageUnsupported(tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		detail string
		want   string // substring
	}{
		{"auth", 401, "", "rejected the API credentials"},
		{"forbidden", 403, "", "rejected the API credentials"},
		{"unknown model", 404, "", "does not know this model"},
		{"timeout", 504, "", "timed out"},
		{"rate limit", 429, "", "rate limiting"},
		{"server error", 503, "", "server error"},
		{"fallback with detail", 400, "bad prompt", "request failed (400): bad prompt"},
		{"fallback without detail", 400, "", "request failed (400)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserMessage("openai", tt.status, tt.detail)
			if !strings.Contains(got, tt.want) {
				t.Errorf("UserMessage = %q, want substring %q", got, tt.want)
			}
		})
	}
}
