package webimport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Launch Notes</title></head>
<body>
<article>
<h1>Launch Notes</h1>
<p>We shipped the new billing engine today. It replaces the nightly batch
job with a streaming ledger and cuts invoice latency from hours to
seconds. The rollout covered every region by noon.</p>
<p>Next quarter we plan to fold usage-based pricing into the same
pipeline so that metered products reconcile in real time as well.</p>
</article>
</body>
</html>`

func TestImport(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	imp := New(WithHTTPClient(srv.Client()))
	art, err := imp.Import(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if !strings.Contains(gotUA, "Mozilla/5.0") {
		t.Errorf("User-Agent = %q, want browser identity", gotUA)
	}
	if art.Title != "Launch Notes" {
		t.Errorf("Title = %q, want Launch Notes", art.Title)
	}
	if !strings.Contains(art.Markdown, "billing engine") {
		t.Errorf("Markdown missing article body: %q", art.Markdown)
	}

	brief := art.Brief()
	if !strings.Contains(brief, "Title: Launch Notes") || !strings.Contains(brief, "Source: "+srv.URL) {
		t.Errorf("Brief missing metadata:\n%s", brief)
	}
}

func TestImportNonHTMLPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "plain facts, no markup")
	}))
	defer srv.Close()

	imp := New(WithHTTPClient(srv.Client()))
	art, err := imp.Import(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if art.Markdown != "plain facts, no markup" {
		t.Errorf("Markdown = %q", art.Markdown)
	}
}

func TestImportTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, strings.Repeat("a", 500))
	}))
	defer srv.Close()

	imp := New(WithHTTPClient(srv.Client()), WithMaxChars(100))
	art, err := imp.Import(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !strings.HasSuffix(art.Markdown, truncationMarker) {
		t.Errorf("expected truncation marker, got tail %q", art.Markdown[len(art.Markdown)-40:])
	}
	if len(art.Markdown) != 100+len(truncationMarker) {
		t.Errorf("len = %d", len(art.Markdown))
	}
}

func TestImportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	imp := New(WithHTTPClient(srv.Client()))

	t.Run("http error", func(t *testing.T) {
		_, err := imp.Import(context.Background(), srv.URL)
		if err == nil || !strings.Contains(err.Error(), "HTTP error") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("bad scheme", func(t *testing.T) {
		_, err := imp.Import(context.Background(), "ftp://example.com/a")
		if err == nil || !strings.Contains(err.Error(), "unsupported URL scheme") {
			t.Errorf("err = %v", err)
		}
	})
}

func TestImportCapsRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	client := srv.Client()
	client.CheckRedirect = New().client.CheckRedirect

	imp := New(WithHTTPClient(client))
	_, err := imp.Import(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "redirects") {
		t.Errorf("err = %v, want redirect cap", err)
	}
}
