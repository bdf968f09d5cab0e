// Package tokens estimates token counts for prompt budgeting.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

// DefaultEncoding is cl100k_base, a reasonable estimate across the backends
// this tool talks to. Exact counts do not matter here, only budget warnings.
const DefaultEncoding = "cl100k_base"

// SafetyMargin covers tokenizer variance between cl100k_base and whatever
// the target model actually uses.
const SafetyMargin = 1.2

// Estimator counts tokens with tiktoken, falling back to chars/4 when the
// encoding cannot be loaded.
type Estimator struct {
	encoding *tiktoken.Tiktoken
	mu       sync.Mutex
}

var (
	global     *Estimator
	globalOnce sync.Once
)

// Get returns the shared estimator.
func Get() *Estimator {
	globalOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(DefaultEncoding)
		if err != nil {
			L_warn("tokens: tiktoken unavailable, using chars/4 fallback", "error", err)
			global = &Estimator{}
			return
		}
		global = &Estimator{encoding: enc}
	})
	return global
}

// Count returns the estimated token count for text.
func (e *Estimator) Count(text string) int {
	if e == nil || e.encoding == nil {
		return len(text) / 4
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.encoding.Encode(text, nil, nil))
}

// Estimate counts tokens with the shared estimator.
func Estimate(text string) int {
	return Get().Count(text)
}

// CapMaxTokens returns a max-output value that fits the model's context
// window after the estimated input (padded by SafetyMargin) and a buffer.
// A zero contextWindow passes requestedMax through unchanged.
func CapMaxTokens(requestedMax, contextWindow, estimatedInput, buffer int) int {
	if contextWindow <= 0 {
		return requestedMax
	}

	safeInput := int(float64(estimatedInput) * SafetyMargin)
	available := contextWindow - safeInput - buffer
	if available < 100 {
		available = 100
	}

	if requestedMax > 0 && requestedMax < available {
		return requestedMax
	}
	return available
}
