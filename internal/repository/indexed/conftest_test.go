package indexed

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/picdex/internal/db"
	"github.com/kailas-cloud/picdex/internal/domain/item"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchListFn  func(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	searchCountFn func(ctx context.Context, index, query string) (int, error)
	existsMultiFn func(ctx context.Context, keys []string) ([]bool, error)
	incrByFn      func(ctx context.Context, key string, val int64) (int64, error)
	hsetAtomicFn  func(ctx context.Context, items []db.HashSetItem, overwrite bool) error
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if m.searchListFn != nil {
		return m.searchListFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return 0, nil
}

func (m *mockStore) ExistsMulti(ctx context.Context, keys []string) ([]bool, error) {
	if m.existsMultiFn != nil {
		return m.existsMultiFn(ctx, keys)
	}
	return make([]bool, len(keys)), nil
}

func (m *mockStore) IncrBy(ctx context.Context, key string, val int64) (int64, error) {
	if m.incrByFn != nil {
		return m.incrByFn(ctx, key, val)
	}
	return val, nil
}

func (m *mockStore) HSetAtomic(ctx context.Context, items []db.HashSetItem, overwrite bool) error {
	if m.hsetAtomicFn != nil {
		return m.hsetAtomicFn(ctx, items, overwrite)
	}
	return nil
}

func testOptions() Options {
	return Options{
		KeyPrefix:        "picdex:",
		IndexName:        "picdex-items",
		VisionDim:        2,
		TextDim:          2,
		HNSWM:            16,
		HNSWEFConstruct:  200,
		PostFilterFactor: 4,
		MaxWindow:        100,
	}
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, testOptions(), zap.NewNop()), ms
}

func testItem(t *testing.T, id string, vec []float32) item.Item {
	t.Helper()
	it, err := item.New(id, item.Metadata{
		SourceURI: "/photos/" + id + ".jpg",
		Format:    "jpg",
		Width:     200,
		Height:    100,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("item.New: %v", err)
	}
	return it.WithVisionVector(vec)
}

// entry renders it the way FT.SEARCH returns a stored hash.
func entry(t *testing.T, it item.Item, seq int64, score float64) db.SearchEntry {
	t.Helper()
	fields, err := buildHashFields(it, seq)
	if err != nil {
		t.Fatalf("buildHashFields: %v", err)
	}
	return db.SearchEntry{Key: "picdex:item:" + it.ID(), Score: score, Fields: fields}
}
