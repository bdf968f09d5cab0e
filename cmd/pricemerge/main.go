// pricemerge refreshes the embedded pricing table from models.dev.
//
// It starts from an existing pricing.json (the baseline keeps manually
// curated rows that models.dev does not cover), fetches current per-model
// costs from the models.dev repository, and writes the merged table back.
//
// Usage:
//
//	go run ./cmd/pricemerge -out internal/pricing/pricing.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func main() {
	outPath := flag.String("out", "internal/pricing/pricing.json", "output pricing.json path")
	basePath := flag.String("base", "", "baseline pricing.json (defaults to -out if it exists)")
	cacheDir := flag.String("cache-dir", defaultCacheDir(), "directory for cached models.dev files")
	refresh := flag.Bool("refresh", false, "ignore cache, always fetch from remote")
	offline := flag.Bool("offline", false, "never fetch, use cache only")
	flag.Parse()

	if *refresh && *offline {
		fmt.Fprintln(os.Stderr, "ERROR: -refresh and -offline are mutually exclusive")
		os.Exit(2)
	}

	base := loadBaseline(*basePath, *outPath)

	fmt.Fprintf(os.Stderr, "pricemerge: fetching %d models.dev entries...\n", len(lookups))
	fetched := fetchAllBatch(lookups, *cacheDir, *refresh, *offline)

	merged := merge(base, fetched)
	merged.Version = time.Now().UTC().Format("2006-01-02")

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: encoding output: %v\n", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(*outPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: writing %s: %v\n", *outPath, err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "pricemerge: wrote %s (%d models, version %s)\n",
		*outPath, len(merged.Models), merged.Version)
}

// loadBaseline reads the starting table. A missing baseline is fine, the
// merge then only contains fetched rows.
func loadBaseline(basePath, outPath string) *Table {
	path := basePath
	if path == "" {
		path = outPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if basePath != "" {
			fmt.Fprintf(os.Stderr, "ERROR: reading baseline %s: %v\n", basePath, err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "pricemerge: no baseline at %s, starting empty\n", path)
		return &Table{Models: map[string]ModelPrice{}}
	}

	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: parsing baseline %s: %v\n", path, err)
		os.Exit(1)
	}
	if t.Models == nil {
		t.Models = map[string]ModelPrice{}
	}
	fmt.Fprintf(os.Stderr, "pricemerge: baseline %s (%d models, version %s)\n",
		path, len(t.Models), t.Version)
	return &t
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "pricemerge")
	}
	return ".pricemerge-cache"
}
