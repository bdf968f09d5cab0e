package media

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestOptimizePassthrough(t *testing.T) {
	data := encodePNG(t, 64, 48)

	got, err := Optimize(data)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if got.MimeType != "image/png" {
		t.Errorf("MimeType = %q, want image/png", got.MimeType)
	}
	if got.Width != 64 || got.Height != 48 {
		t.Errorf("dimensions = %dx%d, want 64x48", got.Width, got.Height)
	}
	if !bytes.Equal(got.Data, data) {
		t.Error("within-limits image was re-encoded")
	}
}

func TestOptimizeDownscalesOversizedDimensions(t *testing.T) {
	data := encodeJPEG(t, 2400, 600)

	got, err := Optimize(data)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if got.Width > MaxDimension || got.Height > MaxDimension {
		t.Errorf("dimensions = %dx%d, want within %d", got.Width, got.Height, MaxDimension)
	}
	if got.MimeType != "image/jpeg" {
		t.Errorf("MimeType = %q, want image/jpeg", got.MimeType)
	}
	if got.Size() > MaxBytes {
		t.Errorf("size = %d, want <= %d", got.Size(), MaxBytes)
	}
}

func TestOptimizeRejectsUnsupportedType(t *testing.T) {
	_, err := Optimize([]byte("%PDF-1.4 not an image"))
	if err == nil {
		t.Fatal("expected error for unsupported type")
	}
	if !strings.Contains(err.Error(), "unsupported image type") {
		t.Errorf("err = %v, want unsupported image type", err)
	}
}

func TestFromDataURL(t *testing.T) {
	data := encodePNG(t, 32, 32)
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)

	got, err := FromDataURL(url)
	if err != nil {
		t.Fatalf("FromDataURL: %v", err)
	}
	if got.MimeType != "image/png" {
		t.Errorf("MimeType = %q, want image/png", got.MimeType)
	}

	ref := got.Reference()
	if ref.MimeType != "image/png" || ref.Base64Data == "" {
		t.Errorf("Reference() = %+v, want populated", ref)
	}
}

func TestFromDataURLMalformed(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"not a data url", "https://example.com/a.png"},
		{"no comma", "data:image/png;base64"},
		{"bad base64", "data:image/png;base64,@@@@"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromDataURL(tt.url); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPrepare(t *testing.T) {
	data := encodePNG(t, 16, 16)

	dir := t.TempDir()
	path := filepath.Join(dir, "ref.png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("raw bytes win over source", func(t *testing.T) {
		got, err := Prepare("ignored", data)
		if err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		if got.Width != 16 {
			t.Errorf("Width = %d, want 16", got.Width)
		}
	})

	t.Run("file path", func(t *testing.T) {
		got, err := Prepare(path, nil)
		if err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		if got.MimeType != "image/png" {
			t.Errorf("MimeType = %q", got.MimeType)
		}
	})

	t.Run("data url", func(t *testing.T) {
		url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
		if _, err := Prepare(url, nil); err != nil {
			t.Fatalf("Prepare: %v", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := Prepare("", nil); err == nil {
			t.Error("expected error for empty source")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Prepare(filepath.Join(dir, "nope.png"), nil); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
