// Package imaging decodes uploaded and on-disk images.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Info describes an image without its pixels.
type Info struct {
	Width  int
	Height int
	Format string
}

// Decode parses raw bytes into an image and its dimensions.
func Decode(raw []byte) (image.Image, Info, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, Info{}, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	return img, Info{Width: b.Dx(), Height: b.Dy(), Format: format}, nil
}

// DecodeConfig reads only the header: dimensions and format.
func DecodeConfig(raw []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Info{}, fmt.Errorf("decode image config: %w", err)
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// FormatFromPath returns the lower-cased extension without the dot.
func FormatFromPath(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// MatchesExtension reports whether path ends in one of exts (case-insensitive,
// with or without the leading dot).
func MatchesExtension(path string, exts []string) bool {
	ext := FormatFromPath(path)
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.EqualFold(strings.TrimPrefix(e, "."), ext) {
			return true
		}
	}
	return false
}

// DataURI encodes img as a base64 PNG data URI for vision model inputs.
func DataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
