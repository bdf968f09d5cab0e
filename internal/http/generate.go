package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/roelfdiedericks/pagesmith/internal/engine"
	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

// maxGenerateBody bounds the request body; inline image data dominates.
const maxGenerateBody = 32 * 1024 * 1024

// providerToken matches valid provider names. Checked case-insensitively
// at this boundary; the planner lowercases later.
var providerToken = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,63}$`)

// GenerateRequest is the POST /api/generate body.
type GenerateRequest struct {
	Model      string   `json:"model"`
	Backend    string   `json:"backend,omitempty"`
	Provider   string   `json:"provider,omitempty"`
	Providers  []string `json:"providers,omitempty"`
	Prompt     string   `json:"prompt,omitempty"`
	BaseHTML   string   `json:"baseHtml,omitempty"`
	Skill      string   `json:"skill,omitempty"`
	ContentURL string   `json:"contentUrl,omitempty"`
	ImageURL   string   `json:"imageUrl,omitempty"`
	ImageData  string   `json:"imageData,omitempty"`
	Stream     bool     `json:"stream,omitempty"`
}

// GenerateFunc runs one generation end to end. Implementations resolve
// the backend, build the prompt and drive the attempt loop.
type GenerateFunc func(ctx context.Context, req *GenerateRequest, cb *engine.Callbacks) (*engine.Result, error)

// validate rejects malformed requests before any backend work starts.
// Called by every surface that builds a GenerateRequest, so provider
// tokens never reach the planner unchecked.
func (req *GenerateRequest) validate() error {
	if req.Model == "" {
		return badRequestf("model is required")
	}
	if req.Provider != "" && !providerToken.MatchString(req.Provider) {
		return badRequestf("invalid provider %q", req.Provider)
	}
	for _, p := range req.Providers {
		if !providerToken.MatchString(p) {
			return badRequestf("invalid provider %q", p)
		}
	}
	return nil
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxGenerateBody)

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	if req.Stream {
		s.generateSSE(w, r, &req)
		return
	}

	result, err := s.generate(r.Context(), &req, nil)
	if err != nil {
		var genErr *engine.GenerationError
		var badReq *BadRequestError
		switch {
		case errors.As(err, &genErr):
			writeJSON(w, genErr.Status, map[string]any{
				"error":    genErr.Message,
				"attempts": genErr.Attempts,
			})
		case errors.As(err, &badReq):
			writeError(w, http.StatusBadRequest, "%s", badReq.Message)
		default:
			writeError(w, http.StatusInternalServerError, "%v", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// sseWriter serializes SSE frames; the heartbeat ticker and the
// generation callbacks write concurrently.
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	nextID  int
}

func (sw *sseWriter) event(name string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		L_error("http: failed to marshal SSE event", "event", name, "error", err)
		return
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.nextID++
	fmt.Fprintf(sw.w, "event: %s\nid: %d\ndata: %s\n\n", name, sw.nextID, payload)
	sw.flusher.Flush()
}

func (sw *sseWriter) heartbeat() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	fmt.Fprintf(sw.w, ": heartbeat\n\n")
	sw.flusher.Flush()
}

func (s *Server) generateSSE(w http.ResponseWriter, r *http.Request, req *GenerateRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sw := &sseWriter{w: w, flusher: flusher}

	heartbeatDone := make(chan struct{})
	defer close(heartbeatDone)
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatDone:
				return
			case <-ticker.C:
				sw.heartbeat()
			}
		}
	}()

	cb := &engine.Callbacks{
		OnAttempt: func(info engine.AttemptInfo) {
			sw.event("attempt", info)
		},
		OnToken: func(text string) {
			sw.event("token", map[string]string{"text": text})
		},
		OnLog: func(message string) {
			sw.event("log", map[string]string{"message": message})
		},
	}

	result, err := s.generate(r.Context(), req, cb)
	if err != nil {
		var genErr *engine.GenerationError
		var badReq *BadRequestError
		switch {
		case errors.As(err, &genErr):
			sw.event("error", map[string]any{
				"error":    genErr.Message,
				"status":   genErr.Status,
				"attempts": genErr.Attempts,
			})
		case errors.As(err, &badReq):
			sw.event("error", map[string]any{
				"error":  badReq.Message,
				"status": http.StatusBadRequest,
			})
		default:
			sw.event("error", map[string]any{
				"error":  err.Error(),
				"status": http.StatusInternalServerError,
			})
		}
	} else {
		sw.event("complete", result)
	}

	sw.event("done", map[string]bool{"done": true})
}
