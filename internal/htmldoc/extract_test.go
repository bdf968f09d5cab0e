package htmldoc

import (
	"errors"
	"strings"
	"testing"
)

func TestExtract(t *testing.T) {
	doc := "<!DOCTYPE html>\n<html><body><h1>Hi</h1></body></html>"

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"bare document", doc, doc, false},
		{"html fence", "Here you go:\n```html\n" + doc + "\n```\nEnjoy!", doc, false},
		{"uppercase fence tag", "```HTML\n" + doc + "\n```", doc, false},
		{"bare fence", "```\n" + doc + "\n```", doc, false},
		{"unclosed fence", "```html\n" + doc, doc, false},
		{"commentary before doctype", "Sure, here is the page.\n" + doc, doc, false},
		{"trailing commentary sliced off", doc + "\nLet me know if you want changes.", doc, false},
		{"html without doctype", "<html><body>x</body></html>", "<html><body>x</body></html>", false},
		{"unclosed document", "<html><body>truncated", "<html><body>truncated", false},
		{"uppercase markers", "<!DOCTYPE HTML><HTML></HTML>", "<!DOCTYPE HTML><HTML></HTML>", false},
		{"no markup", "no markup here", "", true},
		{"empty", "", "", true},
		{"whitespace only", "   \n\t  ", "", true},
		{"fence with no document inside", "```html\njust text\n```", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Extract() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrNoDocument) {
					t.Errorf("error = %v, want ErrNoDocument", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractPrefersDoctypeOverHTMLTag(t *testing.T) {
	raw := "<html>decoy</html>\n<!doctype html><html><body>real</body></html>"
	got, err := Extract(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "<!doctype html") {
		t.Errorf("got %q, want document starting at doctype", got)
	}
	if !strings.Contains(got, "real") {
		t.Errorf("got %q, want the doctype document body", got)
	}
}

func TestExtractNeverRepairs(t *testing.T) {
	raw := "<html><body><div>unbalanced"
	got, err := Extract(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got != raw {
		t.Errorf("got %q, want input returned unmodified", got)
	}
}
