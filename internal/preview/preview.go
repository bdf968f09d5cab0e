// Package preview renders generated HTML in headless Chrome and
// captures a PNG screenshot.
package preview

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

// Options control the capture viewport and timing.
type Options struct {
	Width       int
	Height      int
	FullPage    bool
	NavTimeout  time.Duration
	StableDelay time.Duration
}

func (o *Options) applyDefaults() {
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 800
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = 30 * time.Second
	}
	if o.StableDelay <= 0 {
		o.StableDelay = 500 * time.Millisecond
	}
}

// Capture renders the HTML document and returns PNG bytes.
func Capture(html string, opts Options) ([]byte, error) {
	opts.applyDefaults()

	l := launcher.New().
		Headless(true).
		Set("disable-dev-shm-usage").
		Set("no-sandbox")
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	page = page.Timeout(opts.NavTimeout)

	// data: navigation avoids writing the document to disk
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))
	start := time.Now()
	if err := page.Navigate(dataURL); err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		L_warn("preview: page load timeout", "took", time.Since(start))
	}
	if err := page.WaitStable(opts.StableDelay); err != nil {
		L_debug("preview: stability timeout", "took", time.Since(start))
	}

	png, err := page.Screenshot(opts.FullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	L_info("preview: captured", "bytes", len(png), "took", time.Since(start))
	return png, nil
}
