package llm

import (
	"context"
	"io"
	"math"
	"strings"

	"github.com/roelfdiedericks/xai-go"

	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

// safeInt32 converts int to int32 with bounds checking to prevent overflow.
func safeInt32(n int) int32 {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	if n < math.MinInt32 {
		return math.MinInt32
	}
	return int32(n)
}

// XAIBackend talks to the xAI Grok API.
type XAIBackend struct {
	alias  string
	client *xai.Client
}

// NewXAIBackend builds a backend for the Grok API.
func NewXAIBackend(alias string, cfg BackendConfig) (*XAIBackend, error) {
	client, err := xai.New(xai.Config{
		APIKey:  xai.NewSecureString(cfg.ResolveAPIKey()),
		Timeout: cfg.Timeout(),
	})
	if err != nil {
		return nil, err
	}
	return &XAIBackend{alias: alias, client: client}, nil
}

func (b *XAIBackend) Name() string { return DriverXAI }

func (b *XAIBackend) buildRequest(in Input) *xai.ChatRequest {
	req := xai.NewChatRequest().WithModel(in.Model)
	if in.MaxTokens > 0 {
		req = req.WithMaxTokens(safeInt32(in.MaxTokens))
	}
	if in.System != "" {
		req.SystemMessage(xai.SystemContent{Text: in.System})
	}
	content := xai.UserContent{Text: in.Prompt}
	if in.Image != nil {
		content.ImageURL = in.Image.DataURL()
	}
	req.UserMessage(content)
	return req
}

// RequestOnce performs a single buffered chat completion.
func (b *XAIBackend) RequestOnce(ctx context.Context, in Input) (*BackendResponse, error) {
	L_debug("llm: xai request", "backend", b.alias, "model", in.Model)

	resp, err := b.client.CompleteChat(ctx, b.buildRequest(in))
	if err != nil {
		return nil, err
	}

	return &BackendResponse{
		Text:  resp.Content,
		Usage: usageFromXAI(resp.Usage),
	}, nil
}

// RequestStreamed performs a streaming chat completion, forwarding deltas to
// onToken.
func (b *XAIBackend) RequestStreamed(ctx context.Context, in Input, onToken TokenFunc) (*BackendResponse, error) {
	L_debug("llm: xai stream", "backend", b.alias, "model", in.Model)

	stream, err := b.client.StreamChat(ctx, b.buildRequest(in))
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var text strings.Builder
	var usage xai.Usage

	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if chunk.Delta != "" {
			text.WriteString(chunk.Delta)
			if onToken != nil {
				onToken(chunk.Delta)
			}
		}
		usage = chunk.Usage
	}

	return &BackendResponse{
		Text:  text.String(),
		Usage: usageFromXAI(usage),
	}, nil
}
