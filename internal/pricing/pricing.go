// Package pricing derives USD cost estimates from normalized token usage.
//
// Prices live in an embedded versioned table keyed by model id prefix.
// Matching is longest-prefix so "claude-sonnet-4-5-20250929" finds the
// "claude-sonnet-4-5" row. Models missing from the table yield no cost
// rather than a zero-dollar guess.
package pricing

import (
	_ "embed"
	"encoding/json"
	"strings"
	"sync"

	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

//go:embed pricing.json
var embeddedPricing []byte

// ModelPrice is the per-1M-token USD rate for one model family.
type ModelPrice struct {
	Input       float64 `json:"input"`
	Output      float64 `json:"output"`
	CachedInput float64 `json:"cachedInput,omitempty"`
}

// Table is the root structure of pricing.json.
type Table struct {
	Version string                `json:"version"`
	Models  map[string]ModelPrice `json:"models"`
}

// Cost is a derived USD estimate for one generation.
type Cost struct {
	Currency            string  `json:"currency"`
	InputUSD            float64 `json:"inputUsd"`
	OutputUSD           float64 `json:"outputUsd"`
	TotalUSD            float64 `json:"totalUsd"`
	PricingVersion      string  `json:"pricingVersion"`
	PricingMatchedModel string  `json:"pricingMatchedModel"`
}

var (
	table Table
	once  sync.Once
)

// Get returns the embedded pricing table.
func Get() *Table {
	once.Do(func() {
		if err := json.Unmarshal(embeddedPricing, &table); err != nil {
			L_error("pricing: failed to parse embedded table", "error", err)
			table = Table{Models: map[string]ModelPrice{}}
		}
	})
	return &table
}

// Match finds the price row for a model id by exact match, then by longest
// prefix. The second return is the matched table key, "" on miss.
func (t *Table) Match(model string) (*ModelPrice, string) {
	model = strings.ToLower(strings.TrimSpace(model))
	if model == "" {
		return nil, ""
	}

	if p, ok := t.Models[model]; ok {
		return &p, model
	}

	var bestKey string
	for key := range t.Models {
		if strings.HasPrefix(model, key) && len(key) > len(bestKey) {
			bestKey = key
		}
	}
	if bestKey == "" {
		return nil, ""
	}
	p := t.Models[bestKey]
	return &p, bestKey
}

// Derive computes the cost of a generation from token counts. Cached input
// tokens bill at the cached rate when the table carries one. Returns nil for
// models not in the table.
func (t *Table) Derive(model string, inputTokens, outputTokens int, cachedInputTokens *int) *Cost {
	price, matched := t.Match(model)
	if price == nil {
		return nil
	}

	billedInput := inputTokens
	var cachedUSD float64
	if cachedInputTokens != nil && *cachedInputTokens > 0 && price.CachedInput > 0 {
		cached := min(*cachedInputTokens, inputTokens)
		billedInput = inputTokens - cached
		cachedUSD = float64(cached) * price.CachedInput / 1_000_000
	}

	inputUSD := float64(billedInput)*price.Input/1_000_000 + cachedUSD
	outputUSD := float64(outputTokens) * price.Output / 1_000_000

	return &Cost{
		Currency:            "USD",
		InputUSD:            inputUSD,
		OutputUSD:           outputUSD,
		TotalUSD:            inputUSD + outputUSD,
		PricingVersion:      t.Version,
		PricingMatchedModel: matched,
	}
}
