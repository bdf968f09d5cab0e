package pricing

import (
	"math"
	"testing"
)

func testTable() *Table {
	return &Table{
		Version: "test-1",
		Models: map[string]ModelPrice{
			"claude-sonnet-4-5": {Input: 3.0, Output: 15.0, CachedInput: 0.3},
			"claude-sonnet-4":   {Input: 3.0, Output: 15.0, CachedInput: 0.3},
			"gpt-5":             {Input: 1.25, Output: 10.0},
		},
	}
}

func TestMatch(t *testing.T) {
	tbl := testTable()

	tests := []struct {
		name    string
		model   string
		wantKey string
	}{
		{"exact", "gpt-5", "gpt-5"},
		{"prefix", "gpt-5-2025-08-07", "gpt-5"},
		{"longest prefix wins", "claude-sonnet-4-5-20250929", "claude-sonnet-4-5"},
		{"shorter family", "claude-sonnet-4-20250514", "claude-sonnet-4"},
		{"case folded", "GPT-5", "gpt-5"},
		{"miss", "some-unknown-model", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, key := tbl.Match(tt.model)
			if key != tt.wantKey {
				t.Errorf("key = %q, want %q", key, tt.wantKey)
			}
			if (price == nil) != (tt.wantKey == "") {
				t.Errorf("price = %v for key %q", price, key)
			}
		})
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDerive(t *testing.T) {
	tbl := testTable()

	t.Run("basic", func(t *testing.T) {
		c := tbl.Derive("gpt-5", 1_000_000, 100_000, nil)
		if c == nil {
			t.Fatal("want cost")
		}
		if !approx(c.InputUSD, 1.25) || !approx(c.OutputUSD, 1.0) || !approx(c.TotalUSD, 2.25) {
			t.Errorf("got %+v", c)
		}
		if c.Currency != "USD" || c.PricingVersion != "test-1" || c.PricingMatchedModel != "gpt-5" {
			t.Errorf("metadata wrong: %+v", c)
		}
	})

	t.Run("cached input billed at cached rate", func(t *testing.T) {
		cached := 500_000
		c := tbl.Derive("claude-sonnet-4-5", 1_000_000, 0, &cached)
		// 500k at 3.0 plus 500k at 0.3 per million.
		if !approx(c.InputUSD, 1.5+0.15) {
			t.Errorf("inputUsd = %v", c.InputUSD)
		}
	})

	t.Run("cached rate absent bills everything at input rate", func(t *testing.T) {
		cached := 500_000
		c := tbl.Derive("gpt-5", 1_000_000, 0, &cached)
		if !approx(c.InputUSD, 1.25) {
			t.Errorf("inputUsd = %v", c.InputUSD)
		}
	})

	t.Run("unknown model yields nil", func(t *testing.T) {
		if c := tbl.Derive("mystery-model", 100, 100, nil); c != nil {
			t.Errorf("got %+v, want nil", c)
		}
	})
}

func TestEmbeddedTableParses(t *testing.T) {
	tbl := Get()
	if tbl.Version == "" {
		t.Error("embedded table has no version")
	}
	if len(tbl.Models) == 0 {
		t.Error("embedded table has no models")
	}
	if p, _ := tbl.Match("claude-sonnet-4-5-20250929"); p == nil {
		t.Error("embedded table should price sonnet models")
	}
}
