package llm

import (
	"context"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

// anthropicDefaultMaxTokens applies when neither the request nor the backend
// config sets an output limit. The Messages API requires max_tokens.
const anthropicDefaultMaxTokens = 8192

// AnthropicBackend talks to the Anthropic Messages API.
type AnthropicBackend struct {
	alias  string
	model  string
	client *anthropic.Client
}

// NewAnthropicBackend builds a backend for the Anthropic Messages API.
func NewAnthropicBackend(alias string, cfg BackendConfig) (*AnthropicBackend, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout()}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.ResolveAPIKey()),
		option.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicBackend{
		alias:  alias,
		model:  cfg.Model,
		client: &client,
	}, nil
}

func (b *AnthropicBackend) Name() string { return DriverAnthropic }

func (b *AnthropicBackend) params(in Input) anthropic.MessageNewParams {
	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	var blocks []anthropic.ContentBlockParamUnion
	if in.Image != nil {
		blocks = append(blocks, anthropic.NewImageBlockBase64(in.Image.MimeType, in.Image.Base64Data))
	}
	blocks = append(blocks, anthropic.NewTextBlock(in.Prompt))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(in.Model),
		MaxTokens: int64(maxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}
	if in.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: in.System}}
	}
	return params
}

// RequestOnce performs a single buffered Messages call.
func (b *AnthropicBackend) RequestOnce(ctx context.Context, in Input) (*BackendResponse, error) {
	L_debug("llm: anthropic request", "backend", b.alias, "model", in.Model)

	message, err := b.client.Messages.New(ctx, b.params(in))
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range message.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	return &BackendResponse{
		Text:  text.String(),
		Usage: usageFromAnthropic(message.Usage),
	}, nil
}

// RequestStreamed performs a streaming Messages call, forwarding text deltas
// to onToken as they arrive.
func (b *AnthropicBackend) RequestStreamed(ctx context.Context, in Input, onToken TokenFunc) (*BackendResponse, error) {
	L_debug("llm: anthropic stream", "backend", b.alias, "model", in.Model)

	stream := b.client.Messages.NewStreaming(ctx, b.params(in))

	var text strings.Builder
	message := anthropic.Message{}

	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, err
		}
		if eventVariant, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if delta, ok := eventVariant.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				text.WriteString(delta.Text)
				if onToken != nil {
					onToken(delta.Text)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}

	return &BackendResponse{
		Text:  text.String(),
		Usage: usageFromAnthropic(message.Usage),
	}, nil
}
