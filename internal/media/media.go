// Package media prepares reference images for vision-capable backends.
// Inputs arrive as file paths, data: URLs, or raw bytes; outputs are
// sized and encoded to fit within backend payload limits.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/gabriel-vasile/mimetype"

	"github.com/roelfdiedericks/pagesmith/internal/llm"

	// webp decode support for image.Decode
	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension is the largest width or height sent to a backend.
	MaxDimension = 2000

	// MaxBytes is the largest encoded image size sent to a backend.
	MaxBytes = 5 * 1024 * 1024
)

// SupportedMIMETypes lists the image formats accepted as reference input.
var SupportedMIMETypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// ImageData is a decoded-and-validated reference image ready to attach.
type ImageData struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// Base64 returns the encoded image body without a data: URL prefix.
func (i *ImageData) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// Size returns the encoded byte length.
func (i *ImageData) Size() int {
	return len(i.Data)
}

// IsWithinLimits reports whether the image already fits the size and
// dimension caps without re-encoding.
func (i *ImageData) IsWithinLimits() bool {
	return i.Size() <= MaxBytes && i.Width <= MaxDimension && i.Height <= MaxDimension
}

// Reference converts the image to the backend attachment form.
func (i *ImageData) Reference() *llm.ReferenceImage {
	return &llm.ReferenceImage{
		MimeType:   i.MimeType,
		Base64Data: i.Base64(),
	}
}

// DetectMIME sniffs the image format from content, ignoring any
// extension or caller-supplied type.
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

// IsSupported reports whether mime is an accepted reference format.
func IsSupported(mime string) bool {
	return SupportedMIMETypes[mime]
}

// decode parses the image and returns its pixel data and format name.
func decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}
