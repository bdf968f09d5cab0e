// Package webimport fetches a web page and turns its readable content
// into a markdown content brief for page generation.
package webimport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmltomd "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-shiori/go-readability"

	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxChars  = 40000
	maxRedirects     = 5
	truncationMarker = "\n\n[Content truncated...]"
)

// Article is the imported content brief plus page metadata.
type Article struct {
	Title    string `json:"title"`
	Byline   string `json:"byline,omitempty"`
	SiteName string `json:"siteName,omitempty"`
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
}

// Importer fetches pages over plain HTTP with a browser-like identity.
type Importer struct {
	client   *http.Client
	maxChars int
}

// Option adjusts importer behavior.
type Option func(*Importer)

// WithMaxChars caps the markdown length of imported content.
func WithMaxChars(n int) Option {
	return func(i *Importer) {
		if n > 0 {
			i.maxChars = n
		}
	}
}

// WithHTTPClient replaces the transport, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Importer) {
		i.client = c
	}
}

// New builds an importer with a redirect-capped client.
func New(opts ...Option) *Importer {
	imp := &Importer{
		client: &http.Client{
			Timeout: defaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		maxChars: defaultMaxChars,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Import fetches the page at rawURL and extracts its article content
// as markdown. Non-HTML responses are returned as-is.
func (i *Importer) Import(ctx context.Context, rawURL string) (*Article, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}

	L_debug("webimport: fetching", "url", rawURL, "maxChars", i.maxChars)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		L_warn("webimport: non-200 status", "status", resp.StatusCode, "url", rawURL)
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(i.maxChars*4)))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		L_debug("webimport: non-HTML content", "contentType", contentType, "length", len(body))
		return &Article{
			URL:      rawURL,
			Markdown: truncate(string(body), i.maxChars),
		}, nil
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	markdown, err := htmltomd.ConvertString(article.Content)
	if err != nil {
		L_warn("webimport: markdown conversion failed, using plain text", "url", rawURL, "error", err)
		markdown = article.TextContent
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, fmt.Errorf("no readable content extracted from %s", rawURL)
	}

	result := &Article{
		Title:    article.Title,
		Byline:   article.Byline,
		SiteName: article.SiteName,
		URL:      rawURL,
		Markdown: truncate(markdown, i.maxChars),
	}
	L_debug("webimport: extracted", "url", rawURL, "title", result.Title, "chars", len(result.Markdown))
	return result, nil
}

// Brief renders the article as a content brief section for the prompt.
func (a *Article) Brief() string {
	var b strings.Builder
	if a.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", a.Title)
	}
	if a.Byline != "" {
		fmt.Fprintf(&b, "Author: %s\n", a.Byline)
	}
	if a.SiteName != "" {
		fmt.Fprintf(&b, "Site: %s\n", a.SiteName)
	}
	fmt.Fprintf(&b, "Source: %s\n\n", a.URL)
	b.WriteString(a.Markdown)
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + truncationMarker
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
