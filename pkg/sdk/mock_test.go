package picdex

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/picdex/internal/repository/local"
)

// mockVision embeds images as [width, height] and prompts by lookup.
type mockVision struct {
	prompts map[string][]float32
	err     error
}

func (m *mockVision) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	if m.err != nil {
		return EmbeddingResult{}, m.err
	}
	v, ok := m.prompts[text]
	if !ok {
		v = []float32{1, 1}
	}
	return EmbeddingResult{Embedding: v, TotalTokens: 2}, nil
}

func (m *mockVision) EmbedImage(_ context.Context, img image.Image) (EmbeddingResult, error) {
	if m.err != nil {
		return EmbeddingResult{}, m.err
	}
	b := img.Bounds()
	return EmbeddingResult{Embedding: []float32{float32(b.Dx()), float32(b.Dy())}}, nil
}

func newMockVision() *mockVision {
	return &mockVision{prompts: map[string][]float32{
		"wide": {1, 0},
		"tall": {0, 1},
	}}
}

// testClient wires a client over an in-memory local backend.
func testClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	cfg := &clientConfig{workers: 2, batchSize: 10}
	WithVision(newMockVision(), 2).apply(cfg)
	for _, o := range opts {
		o.apply(cfg)
	}
	vision := &embedderAdapter{text: cfg.vision, image: cfg.vision}
	b, err := local.New(vision, local.Options{Directory: t.TempDir(), Extensions: DefaultExtensions}, nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		t.Fatal(err)
	}
	return wireClient(b, cfg, vision, obs)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writePNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), pngBytes(t, w, h), 0o600); err != nil {
		t.Fatal(err)
	}
}
