package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/roelfdiedericks/pagesmith/internal/preview"
)

type previewCmd struct {
	Target string `arg:"" help:"History id or HTML file path."`
	Out    string `short:"o" default:"preview.png" help:"PNG output path."`
	Width  int    `default:"1280" help:"Viewport width."`
	Height int    `default:"800" help:"Viewport height."`
	Full   bool   `help:"Capture the full page height."`
}

func (c *previewCmd) Run(*appContext) error {
	html, err := c.loadHTML()
	if err != nil {
		return err
	}

	png, err := preview.Capture(html, preview.Options{
		Width:    c.Width,
		Height:   c.Height,
		FullPage: c.Full,
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(c.Out, png, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Out, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", c.Out, len(png))
	return nil
}

// loadHTML treats the target as a file first, then as a history id.
func (c *previewCmd) loadHTML() (string, error) {
	if info, err := os.Stat(c.Target); err == nil && !info.IsDir() {
		data, err := os.ReadFile(c.Target)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	store, err := openHistory()
	if err != nil {
		return "", err
	}
	defer store.Close()

	rec, err := store.Get(strings.TrimSpace(c.Target))
	if err != nil {
		return "", fmt.Errorf("%s is neither a file nor a known generation: %w", c.Target, err)
	}
	return rec.HTML, nil
}
