package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	img, info, err := Decode(pngBytes(t, 4, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Width != 4 || info.Height != 2 || info.Format != "png" {
		t.Errorf("info = %+v", info)
	}
	if img.Bounds().Dx() != 4 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestDecode_Corrupt(t *testing.T) {
	if _, _, err := Decode([]byte("not an image")); err == nil {
		t.Fatal("expected error for corrupt input")
	}
}

func TestDecodeConfig(t *testing.T) {
	info, err := DecodeConfig(pngBytes(t, 3, 7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Width != 3 || info.Height != 7 {
		t.Errorf("info = %+v", info)
	}
}

func TestMatchesExtension(t *testing.T) {
	exts := []string{".jpg", "PNG"}
	tests := []struct {
		path string
		want bool
	}{
		{"/a/b/cat.JPG", true},
		{"dog.png", true},
		{"x.webp", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := MatchesExtension(tt.path, exts); got != tt.want {
			t.Errorf("MatchesExtension(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	if FormatFromPath("/x/Y.JPEG") != "jpeg" {
		t.Errorf("FormatFromPath = %q", FormatFromPath("/x/Y.JPEG"))
	}
}

func TestDataURI(t *testing.T) {
	img, _, _ := Decode(pngBytes(t, 1, 1))
	uri, err := DataURI(img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Errorf("uri prefix = %q", uri[:30])
	}
}
