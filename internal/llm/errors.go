// Package llm - error classification for backend failures.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/roelfdiedericks/xai-go"
	openai "github.com/sashabaranov/go-openai"
)

// maxDetailLen caps the detail string so a giant error body never floods
// logs or user-facing messages.
const maxDetailLen = 220

// BackendError is a non-2xx HTTP outcome from a backend, carrying enough of
// the response for classification. Adapters that speak raw HTTP (Google)
// return this directly; SDK-backed adapters surface their SDK error types
// and Classify unwraps those itself.
type BackendError struct {
	Backend string // driver name for messages
	Status  int    // HTTP status code
	Body    string // raw response body (possibly JSON, possibly an HTML error page)
}

func (e *BackendError) Error() string {
	detail := extractDetail(e.Body)
	if detail == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Backend, e.Status)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Backend, e.Status, detail)
}

// Classified is the normalized verdict on one failed attempt.
type Classified struct {
	Status    int    // HTTP-ish status; 504 for transport timeouts, 502 for unknown
	Detail    string // first plain-text message found in the error, "" if none
	Retryable bool   // true = try the next plan entry
}

// Classify normalizes a backend failure into status + detail + retryable.
//
// Retry policy: a real HTTP status is retryable only for 408, 429 and 5xx.
// Transport-level failures (timeouts, resets, DNS) classify as 504 retryable.
// Anything else unidentifiable is presumed a transient gateway problem (502).
func Classify(err error) Classified {
	if err == nil {
		return Classified{Status: 502, Retryable: true}
	}

	if status, detail, ok := httpStatusOf(err); ok {
		return Classified{
			Status:    status,
			Detail:    truncateDetail(detail),
			Retryable: status == 408 || status == 429 || status >= 500,
		}
	}

	if isTransportTimeout(err) {
		return Classified{Status: 504, Detail: truncateDetail(err.Error()), Retryable: true}
	}

	// Unknown transport failure - presumed transient.
	return Classified{Status: 502, Detail: truncateDetail(extractDetail(err.Error())), Retryable: true}
}

// httpStatusOf digs a numeric HTTP status out of the error chain.
func httpStatusOf(err error) (status int, detail string, ok bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Status, extractDetail(be.Body), true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, apiErr.Message, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, extractDetail(reqErr.Error()), true
	}

	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return antErr.StatusCode, extractDetail(antErr.Error()), true
	}

	var xaiErr *xai.Error
	if errors.As(err, &xaiErr) {
		if s := xaiStatus(xaiErr); s > 0 {
			return s, extractDetail(xaiErr.Error()), true
		}
	}

	return 0, "", false
}

// xaiStatus maps xai-go error codes onto HTTP statuses. The SDK carries its
// own error-kind enum rather than raw statuses; only the kinds we branch on
// are mapped, the rest classify through the generic paths.
func xaiStatus(e *xai.Error) int {
	msg := strings.ToLower(e.Error())
	switch {
	case e.Code == xai.ErrNotFound:
		return 404
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "resource_exhausted"):
		return 429
	case strings.Contains(msg, "unauthenticated") || strings.Contains(msg, "invalid api key"):
		return 401
	case strings.Contains(msg, "permission"):
		return 403
	case strings.Contains(msg, "invalid") && strings.Contains(msg, "request"):
		return 400
	case strings.Contains(msg, "internal") || strings.Contains(msg, "unavailable"):
		return 500
	}
	return 0
}

// isTransportTimeout recognizes the dial/read failures that should classify
// as a 504 rather than an unknown 502.
func isTransportTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	// SDKs sometimes flatten transport errors into strings.
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"context deadline exceeded",
		"connection timed out",
		"connection reset",
		"etimedout",
		"econnreset",
		"enotfound",
		"eai_again",
		"no such host",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// detailKeys are searched, in order, inside structured error payloads.
var detailKeys = []string{"error", "message", "detail", "reason"}

// extractDetail pulls the first plain-text message out of a raw error body.
// Bodies that parse as JSON are searched recursively through the usual error
// envelope keys; HTML-looking bodies (gateway error pages) are discarded so
// markup never reaches a user-facing message.
func extractDetail(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		if s := detailFromValue(parsed, 0); s != "" {
			return truncateDetail(s)
		}
		return ""
	}

	if looksLikeHTML(raw) {
		return ""
	}
	return truncateDetail(raw)
}

// detailFromValue walks a decoded JSON value looking for the first usable
// string. Depth is bounded so a pathological payload can't recurse forever.
func detailFromValue(v any, depth int) string {
	if depth > 6 {
		return ""
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" || looksLikeHTML(s) {
			return ""
		}
		return s
	case map[string]any:
		for _, key := range detailKeys {
			if inner, ok := val[key]; ok {
				if s := detailFromValue(inner, depth+1); s != "" {
					return s
				}
			}
		}
	case []any:
		for _, item := range val {
			if s := detailFromValue(item, depth+1); s != "" {
				return s
			}
		}
	}
	return ""
}

func looksLikeHTML(s string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(s))
	return strings.HasPrefix(trimmed, "<!doctype") ||
		strings.HasPrefix(trimmed, "<html") ||
		strings.HasPrefix(trimmed, "<head") ||
		strings.HasPrefix(trimmed, "<body")
}

func truncateDetail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxDetailLen {
		return s[:maxDetailLen] + "..."
	}
	return s
}

// UserMessage maps a classified failure onto a fixed, friendly sentence.
// The raw detail only appears in the fallback case so provider internals
// stay out of the common error classes.
func UserMessage(backend string, status int, detail string) string {
	switch {
	case status == 401 || status == 403:
		return fmt.Sprintf("%s rejected the API credentials. Check the configured key.", backend)
	case status == 404:
		return fmt.Sprintf("%s does not know this model. Check the model id.", backend)
	case status == 408 || status == 504:
		return fmt.Sprintf("%s timed out before finishing. Try again.", backend)
	case status == 429:
		return fmt.Sprintf("%s is rate limiting requests. Wait a moment and try again.", backend)
	case status >= 500:
		return fmt.Sprintf("%s had a server error. Try again shortly.", backend)
	}
	if detail != "" {
		return fmt.Sprintf("%s request failed (%d): %s", backend, status, detail)
	}
	return fmt.Sprintf("%s request failed (%d)", backend, status)
}

// IsStreamingUnsupported reports whether a classified failure means the
// backend can't stream this model, so the same attempt should re-run
// buffered instead of failing over.
func IsStreamingUnsupported(c Classified) bool {
	if c.Status != 400 && c.Status != 404 && c.Status != 422 {
		return false
	}
	msg := strings.ToLower(c.Detail)
	if !strings.Contains(msg, "stream") {
		return false
	}
	return strings.Contains(msg, "not supported") ||
		strings.Contains(msg, "unsupported")
}

// IsImageUnsupported reports whether a classified failure means the model
// rejected the reference image, so the attempt should retry without it.
func IsImageUnsupported(c Classified) bool {
	if c.Status != 400 && c.Status != 422 {
		return false
	}
	msg := strings.ToLower(c.Detail)
	if !strings.Contains(msg, "image") {
		return false
	}
	return strings.Contains(msg, "not support") ||
		strings.Contains(msg, "unsupported") ||
		strings.Contains(msg, "only text") ||
		strings.Contains(msg, "invalid type")
}
