package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/roelfdiedericks/pagesmith/internal/llm"
)

const testDoc = "<!doctype html><html><body>ok</body></html>"

type fakeCall struct {
	in       llm.Input
	streamed bool
}

// fakeBackend plays a script of responses, one per call, in order.
type fakeBackend struct {
	t      *testing.T
	calls  []fakeCall
	script []func(ctx context.Context, in llm.Input, onToken llm.TokenFunc) (*llm.BackendResponse, error)
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) RequestOnce(ctx context.Context, in llm.Input) (*llm.BackendResponse, error) {
	return f.next(ctx, in, false, nil)
}

func (f *fakeBackend) RequestStreamed(ctx context.Context, in llm.Input, onToken llm.TokenFunc) (*llm.BackendResponse, error) {
	return f.next(ctx, in, true, onToken)
}

func (f *fakeBackend) next(ctx context.Context, in llm.Input, streamed bool, onToken llm.TokenFunc) (*llm.BackendResponse, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, fakeCall{in: in, streamed: streamed})
	if idx >= len(f.script) {
		f.t.Fatalf("unexpected call %d to backend", idx+1)
	}
	return f.script[idx](ctx, in, onToken)
}

func respondWith(text string) func(context.Context, llm.Input, llm.TokenFunc) (*llm.BackendResponse, error) {
	return func(ctx context.Context, in llm.Input, onToken llm.TokenFunc) (*llm.BackendResponse, error) {
		if onToken != nil {
			onToken(text)
		}
		return &llm.BackendResponse{Text: text, Usage: &llm.Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}}, nil
	}
}

func failWith(status int, body string) func(context.Context, llm.Input, llm.TokenFunc) (*llm.BackendResponse, error) {
	return func(ctx context.Context, in llm.Input, onToken llm.TokenFunc) (*llm.BackendResponse, error) {
		return nil, &llm.BackendError{Backend: "fake", Status: status, Body: body}
	}
}

func asGenerationError(t *testing.T, err error) *GenerationError {
	t.Helper()
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error %v is not a GenerationError", err)
	}
	return genErr
}

func TestGenerateRetryableThenSuccess(t *testing.T) {
	backend := &fakeBackend{t: t, script: []func(context.Context, llm.Input, llm.TokenFunc) (*llm.BackendResponse, error){
		failWith(504, `{"error":"gateway timeout"}`),
		respondWith(testDoc),
	}}
	o := New(backend, time.Minute)

	res, err := o.Generate(context.Background(), Request{Model: "m", ProviderHint: "novita"}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(backend.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(backend.calls))
	}
	if len(res.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(res.Attempts))
	}
	if !res.Attempts[0].Retryable || res.Attempts[0].Status != "error" || res.Attempts[0].StatusCode != 504 {
		t.Errorf("first attempt = %+v", res.Attempts[0])
	}
	if res.Attempts[1].Status != "success" {
		t.Errorf("second attempt = %+v", res.Attempts[1])
	}
	if res.UsedProvider != "auto" || res.UsedModel != "m" {
		t.Errorf("used = %s/%s", res.UsedModel, res.UsedProvider)
	}
	if res.HTML != testDoc {
		t.Errorf("html = %q", res.HTML)
	}
	if res.Usage == nil || res.Usage.TotalTokens != 30 {
		t.Errorf("usage = %+v", res.Usage)
	}
}

func TestGenerateNonRetryableRaisesImmediately(t *testing.T) {
	backend := &fakeBackend{t: t, script: []func(context.Context, llm.Input, llm.TokenFunc) (*llm.BackendResponse, error){
		failWith(404, `{"error":"model not found"}`),
	}}
	o := New(backend, time.Minute)

	_, err := o.Generate(context.Background(), Request{Model: "m", ProviderHint: "novita"}, nil)
	genErr := asGenerationError(t, err)

	if len(backend.calls) != 1 {
		t.Errorf("calls = %d, want 1", len(backend.calls))
	}
	if genErr.Status != 404 {
		t.Errorf("status = %d, want 404", genErr.Status)
	}
	if len(genErr.Attempts) != 1 || genErr.Attempts[0].Retryable {
		t.Errorf("attempts = %+v, want single non-retryable", genErr.Attempts)
	}
}

func TestGenerateRetryableOnLastEntryRaises(t *testing.T) {
	backend := &fakeBackend{t: t, script: []func(context.Context, llm.Input, llm.TokenFunc) (*llm.BackendResponse, error){
		failWith(500, `{"error":"upstream broke"}`),
	}}
	o := New(backend, time.Minute)

	_, err := o.Generate(context.Background(), Request{Model: "m"}, nil)
	genErr := asGenerationError(t, err)

	if genErr.Status != 500 {
		t.Errorf("status = %d, want 500", genErr.Status)
	}
	if len(genErr.Attempts) != 1 || !genErr.Attempts[0].Retryable {
		t.Errorf("attempts = %+v, want single retryable recorded", genErr.Attempts)
	}
}

func TestGenerateBudgetExhaustion(t *testing.T) {
	backend := &fakeBackend{t: t, script: []func(context.Context, llm.Input, llm.TokenFunc) (*llm.BackendResponse, error){
		func(ctx context.Context, in llm.Input, onToken llm.TokenFunc) (*llm.BackendResponse, error) {
			// Burn the whole budget, then fail like a timed-out call.
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}}
	o := New(backend, 1100*time.Millisecond)

	_, err := o.Generate(context.Background(), Request{Model: "m", ProviderHint: "novita"}, nil)
	genErr := asGenerationError(t, err)

	if len(backend.calls) != 1 {
		t.Errorf("calls = %d, want 1 (second entry never attempted)", len(backend.calls))
	}
	if genErr.Status != 504 {
		t.Errorf("status = %d, want 504", genErr.Status)
	}
	if !strings.Contains(genErr.Message, "timed out before another provider attempt") {
		t.Errorf("message = %q, want budget exhaustion wording", genErr.Message)
	}
	if len(genErr.Attempts) != 1 {
		t.Errorf("attempts = %+v, want the timed-out attempt recorded", genErr.Attempts)
	}
}

func TestGenerateStreamingUnsupportedFallsBackBuffered(t *testing.T) {
	backend := &fakeBackend{t: t, script: []func(context.Context, llm.Input, llm.TokenFunc) (*llm.BackendResponse, error){
		failWith(400, `{"error":"stream is not supported for this model"}`),
		respondWith(testDoc),
	}}
	o := New(backend, time.Minute)

	var tokens []string
	cb := &Callbacks{OnToken: func(s string) { tokens = append(tokens, s) }}

	res, err := o.Generate(context.Background(), Request{Model: "m", Stream: true}, cb)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(backend.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(backend.calls))
	}
	if !backend.calls[0].streamed || backend.calls[1].streamed {
		t.Errorf("call modes = %v/%v, want streamed then buffered", backend.calls[0].streamed, backend.calls[1].streamed)
	}
	if len(res.Attempts) != 2 || res.Attempts[0].Status != "error" || res.Attempts[1].Status != "success" {
		t.Errorf("attempts = %+v, want failed stream plus buffered success", res.Attempts)
	}
	// The buffered fallback surfaces the whole document as one token.
	if len(tokens) != 1 || tokens[0] != testDoc {
		t.Errorf("tokens = %v, want single full document", tokens)
	}
}

func TestGenerateImageUnsupportedRetriesWithoutImage(t *testing.T) {
	backend := &fakeBackend{t: t, script: []func(context.Context, llm.Input, llm.TokenFunc) (*llm.BackendResponse, error){
		failWith(400, `{"error":"image input is not supported"}`),
		respondWith(testDoc),
	}}
	o := New(backend, time.Minute)

	img := &llm.ReferenceImage{MimeType: "image/png", Base64Data: "aGk="}
	// Plan has exactly one entry; success proves the retry reused the slot.
	res, err := o.Generate(context.Background(), Request{Model: "m", Image: img}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(backend.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(backend.calls))
	}
	if backend.calls[0].in.Image == nil {
		t.Error("first call should carry the image")
	}
	if backend.calls[1].in.Image != nil {
		t.Error("retry should strip the image")
	}
	if len(res.Attempts) != 2 {
		t.Errorf("attempts = %d, want failed image attempt plus success", len(res.Attempts))
	}
}

func TestGenerateExtractionFailureIsFatal422(t *testing.T) {
	backend := &fakeBackend{t: t, script: []func(context.Context, llm.Input, llm.TokenFunc) (*llm.BackendResponse, error){
		func(ctx context.Context, in llm.Input, onToken llm.TokenFunc) (*llm.BackendResponse, error) {
			return &llm.BackendResponse{Text: "sorry, I cannot produce a page"}, nil
		},
	}}
	o := New(backend, time.Minute)

	// Two plan entries, but a validation failure must not advance the loop.
	_, err := o.Generate(context.Background(), Request{Model: "m", ProviderHint: "novita"}, nil)
	genErr := asGenerationError(t, err)

	if len(backend.calls) != 1 {
		t.Errorf("calls = %d, want 1", len(backend.calls))
	}
	if genErr.Status != 422 {
		t.Errorf("status = %d, want 422", genErr.Status)
	}
	last := genErr.Attempts[len(genErr.Attempts)-1]
	if last.StatusCode != 422 || last.Retryable {
		t.Errorf("last attempt = %+v, want fatal 422", last)
	}
}

func TestGenerateCallbacks(t *testing.T) {
	backend := &fakeBackend{t: t, script: []func(context.Context, llm.Input, llm.TokenFunc) (*llm.BackendResponse, error){
		failWith(429, `{"error":"slow down"}`),
		respondWith(testDoc),
	}}
	o := New(backend, time.Minute)

	var infos []AttemptInfo
	var logs []string
	cb := &Callbacks{
		OnAttempt: func(i AttemptInfo) { infos = append(infos, i) },
		OnLog:     func(s string) { logs = append(logs, s) },
	}

	if _, err := o.Generate(context.Background(), Request{Model: "m", ProviderHint: "novita"}, cb); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(infos) != 2 {
		t.Fatalf("onAttempt calls = %d, want 2", len(infos))
	}
	if infos[0].AttemptNumber != 1 || infos[0].ResetCode {
		t.Errorf("first info = %+v", infos[0])
	}
	if infos[1].AttemptNumber != 2 || !infos[1].ResetCode {
		t.Errorf("second info = %+v, want resetCode on retry", infos[1])
	}
	if infos[0].Provider != "novita" || infos[1].Provider != "auto" {
		t.Errorf("providers = %s/%s", infos[0].Provider, infos[1].Provider)
	}
	if len(logs) == 0 {
		t.Error("want progress log lines")
	}
}
