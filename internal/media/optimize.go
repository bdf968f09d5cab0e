package media

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"

	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

// Quality and dimension ladders tried in order until the encoded
// result fits MaxBytes. Quality applies to JPEG output only.
var (
	qualityLevels   = []int{85, 75, 65, 55, 45, 35}
	dimensionLevels = []int{2000, 1800, 1600, 1400, 1200, 1000, 800}
)

// Optimize validates a raw image and shrinks it until it fits the
// backend limits. Images already within limits pass through untouched.
func Optimize(data []byte) (*ImageData, error) {
	mime := DetectMIME(data)
	if !IsSupported(mime) {
		return nil, fmt.Errorf("unsupported image type %s", mime)
	}

	img, format, err := decode(data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	result := &ImageData{
		Data:     data,
		MimeType: mime,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}
	if result.IsWithinLimits() {
		return result, nil
	}

	L_debug("media: optimizing image", "mime", mime, "bytes", len(data),
		"width", result.Width, "height", result.Height)
	return shrink(img, format)
}

// shrink walks the dimension and quality ladders, keeping the smallest
// encoding seen in case no combination fits the byte cap.
func shrink(img image.Image, format string) (*ImageData, error) {
	var best *ImageData

	for _, dim := range dimensionLevels {
		resized := imaging.Fit(img, dim, dim, imaging.Lanczos)
		bounds := resized.Bounds()

		for _, quality := range qualityLevels {
			data, mime, err := encode(resized, format, quality)
			if err != nil {
				return nil, err
			}

			candidate := &ImageData{
				Data:     data,
				MimeType: mime,
				Width:    bounds.Dx(),
				Height:   bounds.Dy(),
			}
			if candidate.Size() <= MaxBytes {
				L_debug("media: image optimized", "bytes", candidate.Size(),
					"width", candidate.Width, "height", candidate.Height, "quality", quality)
				return candidate, nil
			}
			if best == nil || candidate.Size() < best.Size() {
				best = candidate
			}

			// Quality only affects JPEG; other formats get one pass per dimension.
			if mime != "image/jpeg" {
				break
			}
		}
	}

	if best != nil && best.Size() <= MaxBytes {
		return best, nil
	}
	return nil, fmt.Errorf("image could not be reduced below %dMB", MaxBytes/(1024*1024))
}

// encode serializes the image in its original format where possible.
// WebP has no stdlib encoder and is re-encoded as JPEG.
func encode(img image.Image, format string, quality int) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("failed to encode png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, "", fmt.Errorf("failed to encode gif: %w", err)
		}
		return buf.Bytes(), "image/gif", nil
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", fmt.Errorf("failed to encode jpeg: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	}
}
