package local

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/picdex/internal/domain"
	"github.com/kailas-cloud/picdex/internal/domain/item"
)

// mockEmbedder maps an image's width to a fixed vector.
type mockEmbedder struct {
	mu      sync.Mutex
	byWidth map[int][]float32
	calls   int
	err     error
}

func (m *mockEmbedder) EmbedImage(_ context.Context, img image.Image) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.byWidth[img.Bounds().Dx()]}, nil
}

func writePNG(t *testing.T, dir, name string, w, h int, shade uint8) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: shade, A: 255})
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

func newTestRepo(t *testing.T, e *mockEmbedder, opts Options) *Repo {
	t.Helper()
	if opts.Extensions == nil {
		opts.Extensions = []string{".png"}
	}
	r, err := New(e, opts, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func testItem(t *testing.T, id string, vec []float32) item.Item {
	t.Helper()
	it, err := item.New(id, item.Metadata{SourceURI: id + ".jpg", Format: "jpg", Width: 100, Height: 100})
	if err != nil {
		t.Fatalf("item.New: %v", err)
	}
	return it.WithVisionVector(vec)
}
