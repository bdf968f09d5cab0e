package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

// googleBaseURL is the Generative Language API endpoint. No Go SDK is wired
// here; the REST surface is small enough to speak directly.
const googleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GoogleBackend talks to the Gemini generateContent API over plain HTTP.
type GoogleBackend struct {
	alias   string
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGoogleBackend builds a backend for the Gemini API.
func NewGoogleBackend(alias string, cfg BackendConfig) (*GoogleBackend, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = googleBaseURL
	}
	return &GoogleBackend{
		alias:   alias,
		apiKey:  cfg.ResolveAPIKey(),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout()},
	}, nil
}

func (b *GoogleBackend) Name() string { return DriverGoogle }

// Request and response wire types for generateContent. Gemini accepts both
// camelCase and snake_case keys on requests; responses are camelCase.

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"system_instruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata"`
}

func (b *GoogleBackend) buildRequest(in Input) *geminiRequest {
	var parts []geminiPart
	if in.Image != nil {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: in.Image.MimeType,
			Data:     in.Image.Base64Data,
		}})
	}
	parts = append(parts, geminiPart{Text: in.Prompt})

	req := &geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     generationTemperature,
			MaxOutputTokens: in.MaxTokens,
		},
	}
	if in.System != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: in.System}}}
	}
	return req
}

func (b *GoogleBackend) post(ctx context.Context, url string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding gemini request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, &BackendError{Backend: b.alias, Status: resp.StatusCode, Body: string(raw)}
	}
	return resp, nil
}

// RequestOnce performs a single buffered generateContent call.
func (b *GoogleBackend) RequestOnce(ctx context.Context, in Input) (*BackendResponse, error) {
	L_debug("llm: gemini request", "backend", b.alias, "model", in.Model)

	url := fmt.Sprintf("%s/models/%s:generateContent", b.baseURL, in.Model)
	resp, err := b.post(ctx, url, b.buildRequest(in))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return nil, &BackendError{Backend: b.alias, Status: 502, Body: "gemini returned no candidates"}
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	return &BackendResponse{
		Text:  text.String(),
		Usage: usageFromGemini(parsed.UsageMetadata),
	}, nil
}

// RequestStreamed performs a streaming generateContent call. Each SSE data
// line carries a full chunk object whose candidate text is forwarded to
// onToken.
func (b *GoogleBackend) RequestStreamed(ctx context.Context, in Input, onToken TokenFunc) (*BackendResponse, error) {
	L_debug("llm: gemini stream", "backend", b.alias, "model", in.Model)

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", b.baseURL, in.Model)
	resp, err := b.post(ctx, url, b.buildRequest(in))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var text strings.Builder
	var usage *geminiUsageMetadata

	scanner := bufio.NewScanner(resp.Body)
	// A single chunk can carry a large slab of generated HTML.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok || data == "[DONE]" {
			continue
		}

		var chunk geminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			L_trace("llm: gemini stream chunk parse failed", "backend", b.alias, "error", err)
			continue
		}
		if chunk.UsageMetadata != nil {
			usage = chunk.UsageMetadata
		}
		if len(chunk.Candidates) == 0 {
			continue
		}
		for _, part := range chunk.Candidates[0].Content.Parts {
			if part.Text == "" {
				continue
			}
			text.WriteString(part.Text)
			if onToken != nil {
				onToken(part.Text)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &BackendResponse{
		Text:  text.String(),
		Usage: usageFromGemini(usage),
	}, nil
}
