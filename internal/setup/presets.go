package setup

import "github.com/roelfdiedericks/pagesmith/internal/config"

// Preset describes one backend choice offered by the wizard.
type Preset struct {
	Key          string
	Name         string
	Description  string
	Driver       string
	DefaultModel string
	EnvVar       string // env var checked for an existing key
	NeedsBaseURL bool
}

// Presets lists the wizard's backend choices in display order.
var Presets = []Preset{
	{
		Key:          "huggingface",
		Name:         "Hugging Face",
		Description:  "router.huggingface.co, open-weights models",
		Driver:       config.DriverHuggingFace,
		DefaultModel: "deepseek-ai/DeepSeek-V3-0324",
		EnvVar:       "HF_TOKEN",
	},
	{
		Key:          "openai",
		Name:         "OpenAI",
		Description:  "api.openai.com",
		Driver:       config.DriverOpenAI,
		DefaultModel: "gpt-5-mini",
		EnvVar:       "OPENAI_API_KEY",
	},
	{
		Key:          "anthropic",
		Name:         "Anthropic",
		Description:  "Claude models",
		Driver:       config.DriverAnthropic,
		DefaultModel: "claude-sonnet-4-5",
		EnvVar:       "ANTHROPIC_API_KEY",
	},
	{
		Key:          "google",
		Name:         "Google",
		Description:  "Gemini models",
		Driver:       config.DriverGoogle,
		DefaultModel: "gemini-2.5-flash",
		EnvVar:       "GEMINI_API_KEY",
	},
	{
		Key:          "xai",
		Name:         "xAI",
		Description:  "Grok models",
		Driver:       config.DriverXAI,
		DefaultModel: "grok-4",
		EnvVar:       "XAI_API_KEY",
	},
	{
		Key:          "custom",
		Name:         "Custom endpoint",
		Description:  "any OpenAI-compatible server",
		Driver:       config.DriverOpenAI,
		NeedsBaseURL: true,
	},
}
