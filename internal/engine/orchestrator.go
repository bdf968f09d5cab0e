package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roelfdiedericks/pagesmith/internal/htmldoc"
	"github.com/roelfdiedericks/pagesmith/internal/llm"
	. "github.com/roelfdiedericks/pagesmith/internal/logging"
	"github.com/roelfdiedericks/pagesmith/internal/pricing"
)

// minAttemptBudget is the least wall-clock time an attempt may start with.
// Below this the request aborts instead of starting a doomed call.
const minAttemptBudget = time.Second

// budgetExhaustedMessage is the fixed 504 raised when the shared budget
// cannot cover another attempt.
const budgetExhaustedMessage = "timed out before another provider attempt could start"

// Request is one page-generation job.
type Request struct {
	Model              string
	ProviderHint       string
	ProviderCandidates []string
	System             string
	Prompt             string
	Image              *llm.ReferenceImage
	MaxTokens          int
	Stream             bool
}

// Attempt records the outcome of one backend call, success or failure.
// Appended in order across the whole request and never mutated after.
type Attempt struct {
	Model      string     `json:"model"`
	Provider   string     `json:"provider"`
	Status     string     `json:"status"` // "success" or "error"
	StatusCode int        `json:"statusCode,omitempty"`
	Retryable  bool       `json:"retryable"`
	DurationMs int64      `json:"durationMs"`
	Detail     string     `json:"detail,omitempty"`
	Usage      *llm.Usage `json:"usage,omitempty"`
}

// Result is the successful outcome of a generation request.
type Result struct {
	HTML         string        `json:"html"`
	UsedModel    string        `json:"usedModel"`
	UsedProvider string        `json:"usedProvider"`
	Attempts     []Attempt     `json:"attempts"`
	Usage        *llm.Usage    `json:"usage,omitempty"`
	Cost         *pricing.Cost `json:"cost,omitempty"`
}

// GenerationError is the raised failure, always carrying the full attempt
// history so callers can show everything that was tried.
type GenerationError struct {
	Message  string    `json:"message"`
	Status   int       `json:"status"`
	Attempts []Attempt `json:"attempts"`
}

func (e *GenerationError) Error() string { return e.Message }

// AttemptInfo is handed to OnAttempt before each plan entry runs. ResetCode
// tells a streaming consumer to discard output accumulated from a previous
// failed attempt.
type AttemptInfo struct {
	AttemptNumber int    `json:"attemptNumber"`
	TotalAttempts int    `json:"totalAttempts"`
	Model         string `json:"model"`
	Provider      string `json:"provider"`
	ResetCode     bool   `json:"resetCode"`
}

// Callbacks are the optional progress hooks for one request. All slots may
// be nil. They are invoked synchronously on the calling goroutine, in order.
type Callbacks struct {
	OnAttempt func(AttemptInfo)
	OnToken   func(string)
	OnLog     func(string)
}

func (c *Callbacks) attempt(info AttemptInfo) {
	if c != nil && c.OnAttempt != nil {
		c.OnAttempt(info)
	}
}

func (c *Callbacks) token(text string) {
	if c != nil && c.OnToken != nil {
		c.OnToken(text)
	}
}

func (c *Callbacks) logf(format string, args ...any) {
	if c != nil && c.OnLog != nil {
		c.OnLog(fmt.Sprintf(format, args...))
	}
}

// Orchestrator runs generation requests against one backend. It holds no
// per-request state, so one instance serves concurrent requests.
type Orchestrator struct {
	backend llm.Backend
	budget  time.Duration
	prices  *pricing.Table
}

// New creates an orchestrator with the given wall-clock budget per request.
func New(backend llm.Backend, budget time.Duration) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		budget:  budget,
		prices:  pricing.Get(),
	}
}

// Generate runs the attempt loop for one request.
//
// Attempts execute strictly in plan order, each with a context deadline
// carved from the shared budget. Retryable failures advance the loop;
// anything else raises a GenerationError carrying every attempt so far.
// Two fallbacks run inside a single plan slot: a streaming call refused as
// unsupported re-runs buffered, and a first attempt whose reference image
// is rejected re-runs without the image.
func (o *Orchestrator) Generate(ctx context.Context, req Request, cb *Callbacks) (*Result, error) {
	plan := Plan(req.Model, req.ProviderHint, req.ProviderCandidates)
	deadline := time.Now().Add(o.budget)

	L_debug("engine: starting generation",
		"model", req.Model,
		"backend", o.backend.Name(),
		"planEntries", len(plan),
		"stream", req.Stream,
		"hasImage", req.Image != nil,
	)

	var attempts []Attempt
	image := req.Image

	for i, entry := range plan {
		remaining := time.Until(deadline)
		if remaining < minAttemptBudget {
			cb.logf("Out of time after %d attempt(s).", len(attempts))
			L_warn("engine: budget exhausted", "model", req.Model, "attempts", len(attempts))
			return nil, &GenerationError{Message: budgetExhaustedMessage, Status: 504, Attempts: attempts}
		}

		cb.attempt(AttemptInfo{
			AttemptNumber: i + 1,
			TotalAttempts: len(plan),
			Model:         entry.Model,
			Provider:      entry.Provider,
			ResetCode:     i > 0,
		})
		cb.logf("Attempt %d/%d: %s via %s", i+1, len(plan), entry.Model, entry.Provider)

		resp, dur, err := o.call(ctx, entry, req, image, remaining, req.Stream, cb)
		if err == nil {
			return o.finish(entry, resp, attempts, dur, !req.Stream, cb)
		}
		c := llm.Classify(err)
		L_debug("engine: attempt failed",
			"model", entry.Model, "provider", entry.Provider,
			"status", c.Status, "retryable", c.Retryable, "detail", c.Detail,
		)

		// Image rejection on the first try re-runs the same slot without
		// the image. The retry does not consume a plan entry.
		if i == 0 && image != nil && llm.IsImageUnsupported(c) {
			attempts = append(attempts, o.errorAttempt(entry, c, dur))
			cb.logf("%s rejected the reference image, retrying without it", entry.Model)

			image = nil
			if remaining = time.Until(deadline); remaining < minAttemptBudget {
				return nil, &GenerationError{Message: budgetExhaustedMessage, Status: 504, Attempts: attempts}
			}
			resp, dur, err = o.call(ctx, entry, req, nil, remaining, req.Stream, cb)
			if err == nil {
				return o.finish(entry, resp, attempts, dur, !req.Stream, cb)
			}
			c = llm.Classify(err)
		}

		// A backend that refuses to stream this model gets one buffered
		// re-run of the same slot; its full document surfaces as a single
		// token so streaming consumers still see output.
		if req.Stream && llm.IsStreamingUnsupported(c) {
			attempts = append(attempts, o.errorAttempt(entry, c, dur))
			cb.logf("%s cannot stream this model, retrying buffered", entry.Provider)

			if remaining = time.Until(deadline); remaining < minAttemptBudget {
				return nil, &GenerationError{Message: budgetExhaustedMessage, Status: 504, Attempts: attempts}
			}
			resp, dur, err = o.call(ctx, entry, req, image, remaining, false, cb)
			if err == nil {
				return o.finish(entry, resp, attempts, dur, true, cb)
			}
			c = llm.Classify(err)
		}

		attempts = append(attempts, o.errorAttempt(entry, c, dur))

		message := llm.UserMessage(o.backend.Name(), c.Status, c.Detail)
		if c.Retryable && i < len(plan)-1 {
			cb.logf("Attempt %d failed: %s", i+1, message)
			continue
		}
		L_info("engine: generation failed",
			"model", req.Model, "status", c.Status, "attempts", len(attempts),
		)
		return nil, &GenerationError{Message: message, Status: c.Status, Attempts: attempts}
	}

	// Unreachable, the plan always has at least one entry.
	return nil, &GenerationError{Message: "no provider attempt could be made", Status: 502, Attempts: attempts}
}

// call runs one backend request with a deadline carved from the budget and
// reports the elapsed milliseconds alongside the outcome.
func (o *Orchestrator) call(ctx context.Context, entry PlanEntry, req Request, image *llm.ReferenceImage, remaining time.Duration, stream bool, cb *Callbacks) (*llm.BackendResponse, int64, error) {
	in := llm.Input{
		Model:     entry.Model,
		Provider:  entry.Provider,
		System:    req.System,
		Prompt:    req.Prompt,
		Image:     image,
		MaxTokens: req.MaxTokens,
	}

	attemptCtx, cancel := context.WithTimeout(ctx, remaining)
	defer cancel()

	start := time.Now()
	var resp *llm.BackendResponse
	var err error
	if stream {
		resp, err = o.backend.RequestStreamed(attemptCtx, in, cb.token)
	} else {
		resp, err = o.backend.RequestOnce(attemptCtx, in)
	}
	return resp, time.Since(start).Milliseconds(), err
}

// finish validates the model output and assembles the result. Extraction
// failure is a fatal 422 regardless of plan position. emitToken surfaces
// the whole document as one token for buffered calls.
func (o *Orchestrator) finish(entry PlanEntry, resp *llm.BackendResponse, attempts []Attempt, dur int64, emitToken bool, cb *Callbacks) (*Result, error) {
	html, err := htmldoc.Extract(resp.Text)
	if err != nil {
		attempts = append(attempts, Attempt{
			Model:      entry.Model,
			Provider:   entry.Provider,
			Status:     "error",
			StatusCode: 422,
			Retryable:  false,
			DurationMs: dur,
			Detail:     err.Error(),
		})
		L_warn("engine: output contained no document", "model", entry.Model, "rawLen", len(resp.Text))
		return nil, &GenerationError{
			Message:  fmt.Sprintf("%s produced output with no HTML document", entry.Model),
			Status:   422,
			Attempts: attempts,
		}
	}

	if emitToken {
		cb.token(html)
	}

	attempts = append(attempts, Attempt{
		Model:      entry.Model,
		Provider:   entry.Provider,
		Status:     "success",
		Retryable:  false,
		DurationMs: dur,
		Usage:      resp.Usage,
	})

	var cost *pricing.Cost
	if resp.Usage != nil {
		cost = o.prices.Derive(entry.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.CachedInputTokens)
	}

	L_info("engine: generation succeeded",
		"model", entry.Model, "provider", entry.Provider,
		"attempts", len(attempts), "htmlLen", len(html), "durationMs", dur,
	)

	return &Result{
		HTML:         html,
		UsedModel:    entry.Model,
		UsedProvider: entry.Provider,
		Attempts:     attempts,
		Usage:        resp.Usage,
		Cost:         cost,
	}, nil
}

func (o *Orchestrator) errorAttempt(entry PlanEntry, c llm.Classified, dur int64) Attempt {
	return Attempt{
		Model:      entry.Model,
		Provider:   entry.Provider,
		Status:     "error",
		StatusCode: c.Status,
		Retryable:  c.Retryable,
		DurationMs: dur,
		Detail:     c.Detail,
	}
}
