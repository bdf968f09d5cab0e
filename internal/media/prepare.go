package media

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// maxSourceBytes bounds what we will read before optimization. Larger
// files are rejected rather than decoded.
const maxSourceBytes = 50 * 1024 * 1024

// FromFile reads and optimizes a reference image from disk.
func FromFile(path string) (*ImageData, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	if info.Size() > maxSourceBytes {
		return nil, fmt.Errorf("image %s is too large (%d bytes)", path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return Optimize(data)
}

// FromDataURL decodes a data: URL and optimizes its payload.
func FromDataURL(url string) (*ImageData, error) {
	payload, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return nil, fmt.Errorf("not a data URL")
	}

	meta, body, ok := strings.Cut(payload, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URL")
	}

	var data []byte
	var err error
	if strings.HasSuffix(meta, ";base64") {
		data, err = base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode data URL: %w", err)
		}
	} else {
		data = []byte(body)
	}

	if len(data) > maxSourceBytes {
		return nil, fmt.Errorf("data URL payload is too large (%d bytes)", len(data))
	}
	return Optimize(data)
}

// Prepare resolves a reference image from any accepted source form:
// a data: URL, a file path, or raw bytes when data is non-nil.
func Prepare(source string, data []byte) (*ImageData, error) {
	if len(data) > 0 {
		if len(data) > maxSourceBytes {
			return nil, fmt.Errorf("image payload is too large (%d bytes)", len(data))
		}
		return Optimize(data)
	}
	if strings.HasPrefix(source, "data:") {
		return FromDataURL(source)
	}
	if source != "" {
		return FromFile(source)
	}
	return nil, fmt.Errorf("no image source provided")
}
