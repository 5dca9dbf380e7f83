package indexer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/picdex/internal/domain"
	"github.com/kailas-cloud/picdex/internal/domain/item"
)

// --- Mocks ---

// memBackend keeps inserted items in order and rejects duplicates like a real backend.
type memBackend struct {
	mu          sync.Mutex
	items       []item.Item
	validateErr error
	insertErr   error
	inserts     int
	overwrites  []bool
}

func (m *memBackend) ValidateIDs(_ context.Context, ids []string) ([]string, error) {
	if m.validateErr != nil {
		return nil, m.validateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, id := range ids {
		if m.indexOf(id) >= 0 {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memBackend) InsertBatch(_ context.Context, items []item.Item, overwrite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	m.overwrites = append(m.overwrites, overwrite)
	if m.insertErr != nil {
		return m.insertErr
	}
	if !overwrite {
		for _, it := range items {
			if m.indexOf(it.ID()) >= 0 {
				return domain.NewDuplicate(it.ID())
			}
		}
	}
	for _, it := range items {
		if i := m.indexOf(it.ID()); i >= 0 {
			m.items[i] = it
			continue
		}
		m.items = append(m.items, it)
	}
	return nil
}

func (m *memBackend) indexOf(id string) int {
	for i, it := range m.items {
		if it.ID() == id {
			return i
		}
	}
	return -1
}

func (m *memBackend) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// mockVision embeds an image as [width, height].
type mockVision struct {
	err   error
	calls atomic.Int32
}

func (m *mockVision) EmbedImage(_ context.Context, img image.Image) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	b := img.Bounds()
	return domain.EmbeddingResult{Embedding: []float32{float32(b.Dx()), float32(b.Dy())}}, nil
}

type mockText struct {
	err error
}

func (m *mockText) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0, 1}}, nil
}

type mockTagger struct {
	tags []string
	err  error
}

func (m *mockTagger) Tags(_ context.Context, _ image.Image) ([]string, error) {
	return m.tags, m.err
}

type mockOCR struct {
	text  string
	err   error
	calls atomic.Int32
}

func (m *mockOCR) ExtractText(_ context.Context, _ image.Image) (string, error) {
	m.calls.Add(1)
	return m.text, m.err
}

var errProvider = errors.New("provider down")

// --- Helpers ---

type fixture struct {
	backend *memBackend
	vision  *mockVision
	tagger  *mockTagger
	ocr     *mockOCR
	text    *mockText
	svc     *Service
}

func newFixture(logger *zap.Logger) *fixture {
	f := &fixture{
		backend: &memBackend{},
		vision:  &mockVision{},
		tagger:  &mockTagger{tags: []string{"cat", "outdoor"}},
		ocr:     &mockOCR{text: "OPEN"},
		text:    &mockText{},
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f.svc = New(f.backend, Enrichers{
		Vision: f.vision,
		Text:   f.text,
		Tagger: f.tagger,
		OCR:    f.ocr,
	}, Options{Workers: 3}, logger)
	return f
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func source(t *testing.T, w, h int) Source {
	t.Helper()
	return Source{Raw: pngBytes(t, w, h), Meta: item.Metadata{SourceURI: "upload.png"}}
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
