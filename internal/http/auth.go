package http

import (
	"net"
	"net/http"
	"strings"

	"github.com/roelfdiedericks/pagesmith/internal/auth"
	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

// bearerAuth enforces the configured bearer token. No digest means the
// server runs open, which is the default for loopback listens.
func (s *Server) bearerAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AuthDigest == "" {
			handler(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="pagesmith"`)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		if !auth.VerifyToken(token, s.opts.AuthDigest) {
			L_warn("http: auth failed", "ip", clientIP(r))
			w.Header().Set("WWW-Authenticate", `Bearer realm="pagesmith"`)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		handler(w, r)
	}
}

// clientIP extracts the remote IP, honoring reverse proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
