// Package http serves the pagesmith generation API.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roelfdiedericks/pagesmith/internal/history"
	. "github.com/roelfdiedericks/pagesmith/internal/logging"
	"github.com/roelfdiedericks/pagesmith/internal/skills"
)

// Options holds HTTP server configuration.
type Options struct {
	Listen     string // address to listen on, e.g. "127.0.0.1:3380"
	AuthDigest string // argon2id digest of the bearer token; empty = no auth
	RateLimit  int    // requests per minute per remote IP; 0 = unlimited
}

// Server is the pagesmith API server.
type Server struct {
	server      *http.Server
	opts        Options
	rateLimiter *RateLimiter

	generate GenerateFunc
	history  *history.Store // nil when history is disabled
	skills   *skills.Loader
	models   []ModelInfo

	wg sync.WaitGroup
}

// NewServer assembles the API server. history may be nil.
func NewServer(opts Options, generate GenerateFunc, hist *history.Store, loader *skills.Loader, models []ModelInfo) *Server {
	if opts.Listen == "" {
		opts.Listen = "127.0.0.1:3380"
	}

	s := &Server{
		opts:     opts,
		generate: generate,
		history:  hist,
		skills:   loader,
		models:   models,
	}
	if opts.RateLimit > 0 {
		s.rateLimiter = NewRateLimiter(opts.RateLimit)
	}

	s.server = &http.Server{
		Addr:         opts.Listen,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // generation streams can outlive any fixed write window
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Middleware chain: logging -> strip headers -> rate limit -> auth
	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return s.logRequest(s.stripHeaders(s.rateLimit(s.bearerAuth(h))))
	}

	mux.HandleFunc("GET /healthz", s.logRequest(s.stripHeaders(s.handleHealthz)))
	mux.HandleFunc("GET /api/models", wrap(s.handleModels))
	mux.HandleFunc("POST /api/generate", wrap(s.handleGenerate))
	mux.HandleFunc("GET /api/history", wrap(s.handleHistoryList))
	mux.HandleFunc("GET /api/history/{id}", wrap(s.handleHistoryGet))
	mux.HandleFunc("GET /api/history/{id}/html", wrap(s.handleHistoryHTML))
	mux.HandleFunc("DELETE /api/history/{id}", wrap(s.handleHistoryDelete))
	mux.HandleFunc("GET /api/skills", wrap(s.handleSkills))

	return mux
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		L_info("http: server starting", "addr", s.server.Addr)

		err := s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			L_error("http: server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		L_error("http: shutdown error", "error", err)
		return err
	}
	s.wg.Wait()
	L_info("http: server stopped")
	return nil
}

// logRequest logs each request with a generated request id.
func (s *Server) logRequest(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		lw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(lw, r)

		L_debug("http: request",
			"id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", lw.statusCode,
			"duration", time.Since(start))
	}
}

// loggingResponseWriter wraps ResponseWriter to capture the status code.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lw *loggingResponseWriter) WriteHeader(code int) {
	lw.statusCode = code
	lw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for SSE support.
func (lw *loggingResponseWriter) Flush() {
	if f, ok := lw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// stripHeaders removes fingerprinting headers.
func (s *Server) stripHeaders(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Del("Server")
		w.Header().Del("X-Powered-By")
		handler(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, apiError{Error: fmt.Sprintf(format, args...)})
}
