package main

import (
	"fmt"
	"os"
)

// merge overlays fetched models.dev rates onto the baseline table.
// The baseline stays authoritative for anything models.dev lacks: rows
// with no lookup, rows whose fetch failed, and cache rates missing
// upstream. models.dev costs are already per 1M tokens.
func merge(base *Table, fetched map[string]*ModelsDevModel) *Table {
	out := &Table{Models: make(map[string]ModelPrice, len(base.Models))}
	for k, v := range base.Models {
		out.Models[k] = v
	}

	updated := 0
	for key, md := range fetched {
		if md.Cost.Input <= 0 && md.Cost.Output <= 0 {
			fmt.Fprintf(os.Stderr, "WARN: models.dev row for %s has no cost data, keeping baseline\n", key)
			continue
		}

		price := out.Models[key]
		price.Input = md.Cost.Input
		price.Output = md.Cost.Output
		if md.Cost.CacheRead > 0 {
			price.CachedInput = md.Cost.CacheRead
		}
		out.Models[key] = price
		updated++
	}

	fmt.Fprintf(os.Stderr, "  merged: %d models, %d updated from models.dev\n", len(out.Models), updated)
	return out
}
