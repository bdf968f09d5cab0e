package main

// --- Output schema (pricing.json) ---
//
// Mirrors internal/pricing.Table. Kept as a local copy so the tool does
// not drag the runtime's logging setup into a maintenance binary.

type Table struct {
	Version string                `json:"version"`
	Models  map[string]ModelPrice `json:"models"`
}

type ModelPrice struct {
	Input       float64 `json:"input"`
	Output      float64 `json:"output"`
	CachedInput float64 `json:"cachedInput,omitempty"`
}

// --- models.dev source structs ---

type ModelsDevModel struct {
	Name string        `toml:"name"`
	Cost ModelsDevCost `toml:"cost"`
}

type ModelsDevCost struct {
	Input     float64 `toml:"input"`
	Output    float64 `toml:"output"`
	CacheRead float64 `toml:"cache_read"`
}

// Lookup binds a pricing table key to the models.dev file that prices it.
// Keys with no models.dev coverage keep their baseline rates.
type Lookup struct {
	// Key is the table entry to update, matched by prefix at runtime.
	Key string
	// Provider is the models.dev provider directory.
	Provider string
	// ModelID is the models.dev model filename without .toml.
	ModelID string
}

var lookups = []Lookup{
	{Key: "claude-opus-4-1", Provider: "anthropic", ModelID: "claude-opus-4-1"},
	{Key: "claude-sonnet-4-5", Provider: "anthropic", ModelID: "claude-sonnet-4-5"},
	{Key: "claude-sonnet-4", Provider: "anthropic", ModelID: "claude-sonnet-4"},
	{Key: "claude-haiku-4-5", Provider: "anthropic", ModelID: "claude-haiku-4-5"},
	{Key: "claude-3-5-haiku", Provider: "anthropic", ModelID: "claude-3-5-haiku"},
	{Key: "gpt-5", Provider: "openai", ModelID: "gpt-5"},
	{Key: "gpt-5-mini", Provider: "openai", ModelID: "gpt-5-mini"},
	{Key: "gpt-5-nano", Provider: "openai", ModelID: "gpt-5-nano"},
	{Key: "gpt-4.1", Provider: "openai", ModelID: "gpt-4.1"},
	{Key: "gpt-4.1-mini", Provider: "openai", ModelID: "gpt-4.1-mini"},
	{Key: "gpt-4o", Provider: "openai", ModelID: "gpt-4o"},
	{Key: "gpt-4o-mini", Provider: "openai", ModelID: "gpt-4o-mini"},
	{Key: "o4-mini", Provider: "openai", ModelID: "o4-mini"},
	{Key: "gemini-2.5-pro", Provider: "google", ModelID: "gemini-2.5-pro"},
	{Key: "gemini-2.5-flash", Provider: "google", ModelID: "gemini-2.5-flash"},
	{Key: "gemini-2.5-flash-lite", Provider: "google", ModelID: "gemini-2.5-flash-lite"},
	{Key: "gemini-2.0-flash", Provider: "google", ModelID: "gemini-2.0-flash"},
	{Key: "grok-4", Provider: "xai", ModelID: "grok-4"},
	{Key: "grok-4-fast", Provider: "xai", ModelID: "grok-4-fast"},
	{Key: "grok-3", Provider: "xai", ModelID: "grok-3"},
	{Key: "grok-3-mini", Provider: "xai", ModelID: "grok-3-mini"},
	{Key: "deepseek-ai/deepseek-v3", Provider: "deepseek", ModelID: "deepseek-chat"},
	{Key: "deepseek-ai/deepseek-r1", Provider: "deepseek", ModelID: "deepseek-reasoner"},
}
