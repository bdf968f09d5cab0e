package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestGoogleBackend(t *testing.T, handler http.HandlerFunc) *GoogleBackend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	b, err := NewGoogleBackend("google", BackendConfig{
		Driver:  DriverGoogle,
		APIKey:  "test-key",
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewGoogleBackend: %v", err)
	}
	return b
}

func TestGoogleRequestOnce(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest

	b := newTestGoogleBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(geminiResponse{
			Candidates: []geminiCandidate{{
				Content: geminiContent{Parts: []geminiPart{{Text: "<html>hi</html>"}}},
			}},
			UsageMetadata: &geminiUsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 5},
		})
	})

	resp, err := b.RequestOnce(context.Background(), Input{
		Model:     "gemini-2.5-flash",
		System:    "be helpful",
		Prompt:    "make a page",
		MaxTokens: 2048,
		Image:     &ReferenceImage{MimeType: "image/png", Base64Data: "aGk="},
	})
	if err != nil {
		t.Fatalf("RequestOnce: %v", err)
	}

	if gotPath != "/models/gemini-2.5-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotBody.SystemInstruction == nil || gotBody.SystemInstruction.Parts[0].Text != "be helpful" {
		t.Errorf("system instruction = %+v", gotBody.SystemInstruction)
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 2 {
		t.Fatalf("contents = %+v", gotBody.Contents)
	}
	if gotBody.Contents[0].Parts[0].InlineData == nil {
		t.Error("image part must come first as inline data")
	}
	if gotBody.GenerationConfig.MaxOutputTokens != 2048 {
		t.Errorf("maxOutputTokens = %d", gotBody.GenerationConfig.MaxOutputTokens)
	}

	if resp.Text != "<html>hi</html>" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestGoogleRequestOnceHTTPError(t *testing.T) {
	b := newTestGoogleBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"quota exhausted"}}`)
	})

	_, err := b.RequestOnce(context.Background(), Input{Model: "gemini-2.5-flash", Prompt: "x"})
	if err == nil {
		t.Fatal("want error")
	}
	c := Classify(err)
	if c.Status != 429 || !c.Retryable {
		t.Errorf("classified = %+v, want 429 retryable", c)
	}
	if c.Detail != "quota exhausted" {
		t.Errorf("detail = %q", c.Detail)
	}
}

func TestGoogleRequestStreamed(t *testing.T) {
	b := newTestGoogleBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "alt=sse" {
			t.Errorf("query = %q, want alt=sse", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []geminiResponse{
			{Candidates: []geminiCandidate{{Content: geminiContent{Parts: []geminiPart{{Text: "<html>"}}}}}},
			{Candidates: []geminiCandidate{{Content: geminiContent{Parts: []geminiPart{{Text: "</html>"}}}}},
				UsageMetadata: &geminiUsageMetadata{PromptTokenCount: 7, CandidatesTokenCount: 3}},
		}
		for _, c := range chunks {
			data, _ := json.Marshal(c)
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
	})

	var tokens []string
	resp, err := b.RequestStreamed(context.Background(), Input{Model: "gemini-2.5-flash", Prompt: "x"}, func(tok string) {
		tokens = append(tokens, tok)
	})
	if err != nil {
		t.Fatalf("RequestStreamed: %v", err)
	}

	if resp.Text != "<html></html>" {
		t.Errorf("text = %q", resp.Text)
	}
	if strings.Join(tokens, "") != resp.Text {
		t.Errorf("tokens %v do not rebuild the text", tokens)
	}
	if resp.Usage == nil || resp.Usage.InputTokens != 7 || resp.Usage.OutputTokens != 3 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestGoogleNoCandidates(t *testing.T) {
	b := newTestGoogleBackend(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	})

	_, err := b.RequestOnce(context.Background(), Input{Model: "gemini-2.5-flash", Prompt: "x"})
	if err == nil {
		t.Fatal("want error")
	}
	if c := Classify(err); c.Status != 502 {
		t.Errorf("status = %d, want 502", c.Status)
	}
}
