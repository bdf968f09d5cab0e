package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

const modelsDevBaseURL = "https://raw.githubusercontent.com/anomalyco/models.dev/dev/providers/"

var httpClient = &http.Client{Timeout: 30 * time.Second}

func modelsDevURL(provider, modelID string) string {
	return modelsDevBaseURL + provider + "/models/" + modelID + ".toml"
}

func cachePath(cacheDir, provider, modelID string) string {
	return filepath.Join(cacheDir, "models.dev", provider, modelID+".toml")
}

// fetchCached retrieves url, using cachePath as a local cache.
// refresh bypasses the cache on read, offline never touches the network.
// A nil, nil return means the remote file does not exist.
func fetchCached(url, cachePath string, refresh, offline bool) ([]byte, error) {
	if offline {
		data, err := os.ReadFile(cachePath)
		if err != nil {
			return nil, fmt.Errorf("offline mode: cache miss for %s: %w", cachePath, err)
		}
		return data, nil
	}

	if !refresh {
		if data, err := os.ReadFile(cachePath); err == nil {
			return data, nil
		}
	}

	resp, err := httpClient.Get(url)
	if err != nil {
		if data, err2 := os.ReadFile(cachePath); err2 == nil {
			fmt.Fprintf(os.Stderr, "WARN: fetch failed for %s, using cache: %v\n", url, err)
			return data, nil
		}
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		if data, err2 := os.ReadFile(cachePath); err2 == nil {
			fmt.Fprintf(os.Stderr, "WARN: HTTP %d for %s, using cache\n", resp.StatusCode, url)
			return data, nil
		}
		return nil, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}

	if err := writeCache(cachePath, data); err != nil {
		fmt.Fprintf(os.Stderr, "WARN: failed to cache %s: %v\n", cachePath, err)
	}

	return data, nil
}

func writeCache(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// fetchOne fetches and parses a single models.dev TOML file.
// Returns nil when the model is missing upstream or the fetch fails.
func fetchOne(l Lookup, cacheDir string, refresh, offline bool) *ModelsDevModel {
	data, err := fetchCached(modelsDevURL(l.Provider, l.ModelID), cachePath(cacheDir, l.Provider, l.ModelID), refresh, offline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARN: models.dev fetch %s/%s: %v\n", l.Provider, l.ModelID, err)
		return nil
	}
	if data == nil {
		fmt.Fprintf(os.Stderr, "WARN: models.dev has no %s/%s\n", l.Provider, l.ModelID)
		return nil
	}

	var m ModelsDevModel
	if err := toml.Unmarshal(data, &m); err != nil {
		fmt.Fprintf(os.Stderr, "WARN: models.dev parse %s/%s: %v\n", l.Provider, l.ModelID, err)
		return nil
	}
	return &m
}

// fetchAllBatch fetches every lookup concurrently, at most 10 in flight.
func fetchAllBatch(lookups []Lookup, cacheDir string, refresh, offline bool) map[string]*ModelsDevModel {
	results := make(map[string]*ModelsDevModel)
	var mu sync.Mutex
	var wg sync.WaitGroup

	sem := make(chan struct{}, 10)

	for _, l := range lookups {
		wg.Add(1)
		go func(l Lookup) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			model := fetchOne(l, cacheDir, refresh, offline)
			if model != nil {
				mu.Lock()
				results[l.Key] = model
				mu.Unlock()
			}
		}(l)
	}

	wg.Wait()
	return results
}
