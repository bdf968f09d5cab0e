// Package llm - usage normalization.
//
// Every backend reports token accounting under different field names
// (prompt_tokens vs input_tokens vs promptTokenCount). These helpers map each
// shape into the common Usage schema. A backend that reports nothing usable
// yields nil rather than a zero-filled struct.
package llm

import (
	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/roelfdiedericks/xai-go"
	openai "github.com/sashabaranov/go-openai"
)

// NormalizeUsage builds a Usage from raw counts, deriving TotalTokens when
// the backend does not report it directly. Negative counts are clamped.
func NormalizeUsage(input, output, total int, cachedInput *int) *Usage {
	input = max(input, 0)
	output = max(output, 0)
	if total <= 0 {
		total = input + output
	}
	if input == 0 && output == 0 && total == 0 {
		return nil
	}
	u := &Usage{InputTokens: input, OutputTokens: output, TotalTokens: total}
	if cachedInput != nil && *cachedInput > 0 {
		v := *cachedInput
		u.CachedInputTokens = &v
	}
	return u
}

// usageFromOpenAI maps a chat-completions usage block. Cached-input detail
// is not universally served on the compatible endpoints, so it stays unset.
func usageFromOpenAI(u *openai.Usage) *Usage {
	if u == nil {
		return nil
	}
	return NormalizeUsage(u.PromptTokens, u.CompletionTokens, u.TotalTokens, nil)
}

// usageFromAnthropic maps the Messages API usage block. Cache reads count as
// cached input.
func usageFromAnthropic(u anthropic.Usage) *Usage {
	cached := int(u.CacheReadInputTokens)
	var cachedPtr *int
	if cached > 0 {
		cachedPtr = &cached
	}
	// Anthropic reports cache tokens separately from input_tokens.
	input := int(u.InputTokens) + int(u.CacheReadInputTokens) + int(u.CacheCreationInputTokens)
	return NormalizeUsage(input, int(u.OutputTokens), 0, cachedPtr)
}

// usageFromXAI maps the Grok SDK usage block.
func usageFromXAI(u xai.Usage) *Usage {
	cached := int(u.CachedPromptTokens)
	var cachedPtr *int
	if cached > 0 {
		cachedPtr = &cached
	}
	return NormalizeUsage(int(u.PromptTokens), int(u.CompletionTokens), 0, cachedPtr)
}

// geminiUsageMetadata is the usageMetadata block of a generateContent
// response.
type geminiUsageMetadata struct {
	PromptTokenCount        int `json:"promptTokenCount"`
	CandidatesTokenCount    int `json:"candidatesTokenCount"`
	TotalTokenCount         int `json:"totalTokenCount"`
	CachedContentTokenCount int `json:"cachedContentTokenCount"`
}

// usageFromGemini maps a usageMetadata block.
func usageFromGemini(m *geminiUsageMetadata) *Usage {
	if m == nil {
		return nil
	}
	var cachedPtr *int
	if m.CachedContentTokenCount > 0 {
		v := m.CachedContentTokenCount
		cachedPtr = &v
	}
	return NormalizeUsage(m.PromptTokenCount, m.CandidatesTokenCount, m.TotalTokenCount, cachedPtr)
}
