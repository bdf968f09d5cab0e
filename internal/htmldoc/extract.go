// Package htmldoc pulls a complete HTML document out of raw model output.
//
// Models wrap documents in markdown fences, preface them with commentary, or
// trail off after the closing tag. Extract slices the document out of all of
// that without ever attempting to repair the markup itself.
package htmldoc

import (
	"errors"
	"strings"
)

// ErrNoDocument means no HTML document could be located in the text.
// Callers treat this as a validation failure, never as a transient error.
var ErrNoDocument = errors.New("no HTML document found in model output")

// Extract returns the HTML document contained in raw model output.
//
// A fenced ```html block is preferred, then any bare fenced block, then the
// whole text. Within the candidate the document starts at "<!doctype html"
// when present, otherwise at "<html", and runs through the last "</html>"
// or to the end of the candidate when the closing tag is missing.
func Extract(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrNoDocument
	}

	candidate := fencedBlock(text)
	if candidate == "" {
		candidate = text
	}

	lower := strings.ToLower(candidate)
	start := strings.Index(lower, "<!doctype html")
	if start < 0 {
		start = strings.Index(lower, "<html")
	}
	if start < 0 {
		return "", ErrNoDocument
	}

	end := strings.LastIndex(lower, "</html>")
	if end >= start {
		return candidate[start : end+len("</html>")], nil
	}
	// Unclosed document, take everything from the opening marker.
	return strings.TrimSpace(candidate[start:]), nil
}

// fencedBlock returns the interior of the first markdown fence, preferring a
// ```html fence over a bare one. Returns "" when the text has no fence.
// An unclosed fence yields everything after the opening line.
func fencedBlock(text string) string {
	lower := strings.ToLower(text)

	idx := strings.Index(lower, "```html")
	markerLen := len("```html")
	if idx < 0 {
		idx = strings.Index(lower, "```")
		markerLen = len("```")
	}
	if idx < 0 {
		return ""
	}

	body := text[idx+markerLen:]
	// Skip the rest of the fence info line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}

	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
