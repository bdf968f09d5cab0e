package http

import (
	"net/http"
	"sync"
	"time"

	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

// RateLimiter applies a token bucket per remote IP.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      float64 // tokens per second
	burst     float64
	lastPrune time.Time
}

// bucketIdleHorizon is how long a bucket may sit untouched before it is
// dropped. burst/rate is always one minute, so an idle bucket past this
// point has fully refilled and is indistinguishable from a fresh one.
const bucketIdleHorizon = time.Minute

type bucket struct {
	tokens float64
	last   time.Time
}

// NewRateLimiter allows perMinute requests per IP, with a burst of the
// same size.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    float64(perMinute) / 60.0,
		burst:   float64(perMinute),
	}
}

// Allow consumes one token for ip, reporting whether the request may
// proceed.
func (r *RateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Sub(r.lastPrune) > bucketIdleHorizon {
		r.pruneLocked(now)
	}

	b, ok := r.buckets[ip]
	if !ok {
		b = &bucket{tokens: r.burst, last: now}
		r.buckets[ip] = b
	}

	b.tokens += now.Sub(b.last).Seconds() * r.rate
	if b.tokens > r.burst {
		b.tokens = r.burst
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// pruneLocked drops buckets idle past the refill horizon so the map does
// not grow without bound under scanning traffic. Caller holds mu.
func (r *RateLimiter) pruneLocked(now time.Time) {
	for ip, b := range r.buckets {
		if now.Sub(b.last) > bucketIdleHorizon {
			delete(r.buckets, ip)
		}
	}
	r.lastPrune = now
}

// rateLimit middleware rejects requests once an IP exhausts its bucket.
func (s *Server) rateLimit(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter != nil {
			ip := clientIP(r)
			if !s.rateLimiter.Allow(ip) {
				L_warn("http: rate limited", "ip", ip, "path", r.URL.Path)
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		handler(w, r)
	}
}
