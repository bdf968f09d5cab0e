// Package llm - Hugging Face inference router backend.
//
// The router speaks the chat-completions dialect at a fixed base URL.
// Provider pinning happens through the model id: "model:provider" routes to
// one inference provider, a bare model id lets the router pick.
package llm

import (
	"context"
	"net/http"

	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

// hfRouterBaseURL is the fixed chat-completions endpoint of the router.
const hfRouterBaseURL = "https://router.huggingface.co/v1"

// hfBillingTransport adds the X-HF-Bill-To header so usage lands on an org
// account instead of the token owner.
type hfBillingTransport struct {
	base   http.RoundTripper
	billTo string
}

func (t *hfBillingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-HF-Bill-To", t.billTo)
	if t.base == nil {
		return http.DefaultTransport.RoundTrip(req)
	}
	return t.base.RoundTrip(req)
}

// HuggingFaceBackend routes requests through the Hugging Face inference
// router.
type HuggingFaceBackend struct {
	chatCompleter
	alias string
}

// NewHuggingFaceBackend creates a router backend. A custom BaseURL override
// is honored for testing against a fake router.
func NewHuggingFaceBackend(alias string, cfg BackendConfig) (*HuggingFaceBackend, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = hfRouterBaseURL
	}

	var transport http.RoundTripper
	if billTo := cfg.ResolveBillTo(); billTo != "" {
		transport = &hfBillingTransport{billTo: billTo}
		L_debug("llm: hf billing header enabled", "alias", alias, "billTo", billTo)
	}

	client := newChatClient(cfg.ResolveAPIKey(), baseURL, transport, cfg.Timeout())
	L_debug("llm: huggingface backend created", "alias", alias, "baseURL", baseURL)

	return &HuggingFaceBackend{
		chatCompleter: chatCompleter{backend: DriverHuggingFace, client: client},
		alias:         alias,
	}, nil
}

// Name returns the driver name.
func (b *HuggingFaceBackend) Name() string { return DriverHuggingFace }

// routedModel appends the provider pin to the model id. Auto routing sends
// the bare id so the router's own load balancer chooses.
func routedModel(in Input) string {
	if in.Provider == "" || in.Provider == ProviderAuto {
		return in.Model
	}
	return in.Model + ":" + in.Provider
}

// RequestOnce performs one buffered call against the router.
func (b *HuggingFaceBackend) RequestOnce(ctx context.Context, in Input) (*BackendResponse, error) {
	return b.requestOnce(ctx, routedModel(in), in)
}

// RequestStreamed performs one streaming call against the router.
func (b *HuggingFaceBackend) RequestStreamed(ctx context.Context, in Input, onToken TokenFunc) (*BackendResponse, error) {
	return b.requestStreamed(ctx, routedModel(in), in, onToken)
}
