// Package llm - OpenAI-compatible chat completions backend.
package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

// chatCompleter is the shared chat-completions core. The OpenAI-compatible
// backend uses it directly; the Hugging Face router backend reuses it with
// its own base URL, auth and model pinning on top.
type chatCompleter struct {
	backend string // driver name for logs and errors
	client  *openai.Client
}

// newChatClient builds a go-openai client for a base URL. The /v1 suffix is
// normalized on because compatible servers disagree about including it.
func newChatClient(apiKey, baseURL string, transport http.RoundTripper, timeout time.Duration) *openai.Client {
	if apiKey == "" {
		apiKey = "not-needed" // local servers often skip auth
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/v1") && !strings.HasSuffix(baseURL, "/v1/") {
			baseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
		}
		cfg.BaseURL = baseURL
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	cfg.HTTPClient = &http.Client{Transport: transport, Timeout: timeout}
	return openai.NewClientWithConfig(cfg)
}

// buildChatRequest assembles the backend-native request for one attempt.
func (c *chatCompleter) buildChatRequest(model string, in Input) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if in.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: in.System,
		})
	}

	if in.Image != nil {
		// Vision input rides as a data-URL image part next to the text part.
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    in.Image.DataURL(),
						Detail: openai.ImageURLDetailAuto,
					},
				},
				{
					Type: openai.ChatMessagePartTypeText,
					Text: in.Prompt,
				},
			},
		})
	} else {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: in.Prompt,
		})
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   in.MaxTokens,
		Temperature: generationTemperature,
	}
}

// requestOnce performs one buffered chat completion.
func (c *chatCompleter) requestOnce(ctx context.Context, model string, in Input) (*BackendResponse, error) {
	req := c.buildChatRequest(model, in)

	L_debug("llm: buffered request", "backend", c.backend, "model", model, "maxTokens", in.MaxTokens, "hasImage", in.Image != nil)

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, &BackendError{Backend: c.backend, Status: 502, Body: "response contained no choices"}
	}

	return &BackendResponse{
		Text:  resp.Choices[0].Message.Content,
		Usage: usageFromOpenAI(&resp.Usage),
	}, nil
}

// requestStreamed performs one streaming chat completion, forwarding deltas
// in arrival order and concatenating the full text.
func (c *chatCompleter) requestStreamed(ctx context.Context, model string, in Input, onToken TokenFunc) (*BackendResponse, error) {
	req := c.buildChatRequest(model, in)
	req.Stream = true
	req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	L_debug("llm: streaming request", "backend", c.backend, "model", model, "maxTokens", in.MaxTokens, "hasImage", in.Image != nil)

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var text strings.Builder
	var usage *Usage
	for {
		chunk, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if chunk.Usage != nil {
			usage = usageFromOpenAI(chunk.Usage)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		text.WriteString(delta)
		if onToken != nil {
			onToken(delta)
		}
	}

	return &BackendResponse{Text: text.String(), Usage: usage}, nil
}

// OpenAIBackend talks to OpenAI or any chat-completions-compatible endpoint
// via a configurable base URL.
type OpenAIBackend struct {
	chatCompleter
	alias string
}

// NewOpenAIBackend creates an OpenAI-compatible backend.
func NewOpenAIBackend(alias string, cfg BackendConfig) (*OpenAIBackend, error) {
	client := newChatClient(cfg.ResolveAPIKey(), cfg.BaseURL, nil, cfg.Timeout())

	displayURL := cfg.BaseURL
	if displayURL == "" {
		displayURL = "(default)"
	}
	L_debug("llm: openai backend created", "alias", alias, "baseURL", displayURL)

	return &OpenAIBackend{
		chatCompleter: chatCompleter{backend: DriverOpenAI, client: client},
		alias:         alias,
	}, nil
}

// Name returns the driver name.
func (b *OpenAIBackend) Name() string { return DriverOpenAI }

// RequestOnce performs one buffered call.
func (b *OpenAIBackend) RequestOnce(ctx context.Context, in Input) (*BackendResponse, error) {
	return b.requestOnce(ctx, in.Model, in)
}

// RequestStreamed performs one streaming call.
func (b *OpenAIBackend) RequestStreamed(ctx context.Context, in Input, onToken TokenFunc) (*BackendResponse, error) {
	return b.requestStreamed(ctx, in.Model, in, onToken)
}
