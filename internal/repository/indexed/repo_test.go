package indexed

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/picdex/internal/db"
	"github.com/kailas-cloud/picdex/internal/domain"
	"github.com/kailas-cloud/picdex/internal/domain/item"
	"github.com/kailas-cloud/picdex/internal/domain/search/filter"
)

// --- EnsureIndex ---

func TestEnsureIndex_Creates(t *testing.T) {
	repo, ms := newTestRepo(t)
	var created *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		created = def
		return nil
	}

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected FT.CREATE")
	}
	if created.Name != "picdex-items" || created.Prefixes[0] != "picdex:item:" {
		t.Errorf("unexpected index: %s", created.String())
	}
	var vectors, sortable int
	var tagList bool
	for _, f := range created.Fields {
		if f.Type == db.IndexFieldTag && f.Name == fieldTagList && f.TagSeparator == tagSeparator {
			tagList = true
		}
		if f.Type == db.IndexFieldVector {
			vectors++
			if f.VectorDistance != db.DistanceCosine || f.VectorAlgo != db.VectorHNSW {
				t.Errorf("field %s: want HNSW COSINE", f.Name)
			}
		}
		if f.Sortable {
			sortable++
		}
	}
	if vectors != 2 || sortable != 1 || !tagList {
		t.Errorf("vectors=%d sortable=%d tag_list=%v, want 2, 1 and true", vectors, sortable, tagList)
	}
}

func TestEnsureIndex_AlreadyExists(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		t.Error("FT.CREATE must not run for an existing index")
		return nil
	}
	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureIndex_CreateRace(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return &db.Error{Op: db.OpCreateIndex, Err: db.ErrIndexExists}
	}
	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("expected concurrent creation to be tolerated, got %v", err)
	}
}

// --- ValidateIDs ---

func TestValidateIDs(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.existsMultiFn = func(_ context.Context, keys []string) ([]bool, error) {
		if keys[0] != "picdex:item:a" {
			t.Errorf("unexpected key: %s", keys[0])
		}
		return []bool{true, false, true}, nil
	}

	got, err := repo.ValidateIDs(context.Background(), []string{"a", "b", "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("got %v, want [a]", got)
	}
}

func TestValidateIDs_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.existsMultiFn = func(_ context.Context, _ []string) ([]bool, error) {
		return nil, &db.Error{Op: db.OpExists, Err: errors.New("connection refused")}
	}
	_, err := repo.ValidateIDs(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

// --- InsertBatch ---

func TestInsertBatch_ReservesSeqs(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.incrByFn = func(_ context.Context, key string, val int64) (int64, error) {
		if key != "picdex:seq" || val != 2 {
			t.Errorf("IncrBy(%s, %d)", key, val)
		}
		return 12, nil
	}
	var written []db.HashSetItem
	ms.hsetAtomicFn = func(_ context.Context, items []db.HashSetItem, overwrite bool) error {
		if overwrite {
			t.Error("overwrite must be off")
		}
		written = items
		return nil
	}

	items := []item.Item{testItem(t, "a", []float32{1, 0}), testItem(t, "b", []float32{0, 1})}
	if err := repo.InsertBatch(context.Background(), items, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("expected 2 hashes, got %d", len(written))
	}
	if written[0].Fields[fieldSeq] != "11" || written[1].Fields[fieldSeq] != "12" {
		t.Errorf("seqs = %s, %s; want 11, 12", written[0].Fields[fieldSeq], written[1].Fields[fieldSeq])
	}
	if written[1].Key != "picdex:item:b" {
		t.Errorf("unexpected key %s", written[1].Key)
	}
}

func TestInsertBatch_Duplicate(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetAtomicFn = func(_ context.Context, _ []db.HashSetItem, _ bool) error {
		return &db.KeyExistsError{Key: "picdex:item:b"}
	}

	items := []item.Item{testItem(t, "a", []float32{1, 0}), testItem(t, "b", []float32{0, 1})}
	err := repo.InsertBatch(context.Background(), items, false)

	var dup *domain.DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
	if dup.ID != "b" {
		t.Errorf("duplicate id = %q, want b", dup.ID)
	}
}

func TestInsertBatch_MissingVisionVector(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.incrByFn = func(_ context.Context, _ string, _ int64) (int64, error) {
		t.Error("no seq must be reserved for an invalid batch")
		return 0, nil
	}
	err := repo.InsertBatch(context.Background(), []item.Item{testItem(t, "a", nil)}, false)
	if !errors.Is(err, domain.ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}
}

func TestInsertBatch_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetAtomicFn = func(_ context.Context, _ []db.HashSetItem, _ bool) error {
		return &db.Error{Op: db.OpEval, Err: errors.New("OOM")}
	}
	err := repo.InsertBatch(context.Background(), []item.Item{testItem(t, "a", []float32{1, 0})}, true)
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

// --- Scroll ---

func TestScroll_FirstPage(t *testing.T) {
	repo, ms := newTestRepo(t)
	a, b, c := testItem(t, "a", []float32{1, 0}), testItem(t, "b", []float32{1, 0}), testItem(t, "c", []float32{1, 0})
	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		if q.SortBy != fieldSeq || !q.Desc || q.Limit != 3 {
			t.Errorf("unexpected list query: %+v", q)
		}
		if len(q.Ranges) != 0 {
			t.Errorf("first page must not bound seq: %+v", q.Ranges)
		}
		return &db.SearchResult{Total: 3, Entries: []db.SearchEntry{
			entry(t, c, 3, 0), entry(t, b, 2, 0), entry(t, a, 1, 0),
		}}, nil
	}

	page, err := repo.Scroll(context.Background(), "", 2, filter.Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].ID() != "c" || page.Items[1].ID() != "b" {
		t.Fatalf("unexpected page: %v", page.Items)
	}
	if page.NextCursor != "2" {
		t.Errorf("next cursor = %q, want 2", page.NextCursor)
	}
	if page.Items[0].VisionVector() != nil {
		t.Error("scroll must strip vectors")
	}
}

func TestScroll_CursorAndExhaustion(t *testing.T) {
	repo, ms := newTestRepo(t)
	a := testItem(t, "a", []float32{1, 0})
	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		if len(q.Ranges) != 1 || q.Ranges[0].Field != fieldSeq || *q.Ranges[0].Max != 2 || !q.Ranges[0].MaxExclusive {
			t.Errorf("expected exclusive seq bound, got %+v", q.Ranges)
		}
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{entry(t, a, 1, 0)}}, nil
	}

	page, err := repo.Scroll(context.Background(), "2", 2, filter.Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 || page.NextCursor != "" {
		t.Errorf("expected final page, got %d items cursor %q", len(page.Items), page.NextCursor)
	}
}

func TestScroll_TextFilterKeepsPaging(t *testing.T) {
	repo, ms := newTestRepo(t)
	cat := testItem(t, "cat", []float32{1, 0}).WithTags([]string{"Cat"})
	dog := testItem(t, "dog", []float32{1, 0}).WithTags([]string{"dog"})

	calls := 0
	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		calls++
		if q.Limit != 5 {
			t.Errorf("limit = %d, want count*factor+1 = 5", q.Limit)
		}
		if len(q.Tags) != 0 {
			t.Errorf("short tag pushed down: %+v", q.Tags)
		}
		if calls == 1 {
			es := []db.SearchEntry{entry(t, dog, 9, 0), entry(t, dog, 8, 0), entry(t, dog, 7, 0),
				entry(t, dog, 6, 0), entry(t, dog, 5, 0)}
			return &db.SearchResult{Total: 9, Entries: es}, nil
		}
		if *q.Ranges[0].Max != 6 {
			t.Errorf("second fetch should resume below seq 6, got %v", *q.Ranges[0].Max)
		}
		return &db.SearchResult{Total: 9, Entries: []db.SearchEntry{entry(t, cat, 4, 0)}}, nil
	}

	// single-rune tags are too short for the index and stay local
	f, _ := filter.New(filter.WithTagText("c"))
	page, err := repo.Scroll(context.Background(), "", 1, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID() != "cat" {
		t.Fatalf("unexpected page: %v", page.Items)
	}
	if page.NextCursor != "" {
		t.Errorf("expected exhausted cursor, got %q", page.NextCursor)
	}
}

func TestScroll_InvalidCursor(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Scroll(context.Background(), "abc", 10, filter.Params{})
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

// --- Count ---

func TestCount(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchCountFn = func(_ context.Context, index, query string) (int, error) {
		if index != "picdex-items" || query != "*" {
			t.Errorf("SearchCount(%s, %s)", index, query)
		}
		return 42, nil
	}
	n, err := repo.Count(context.Background())
	if err != nil || n != 42 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestScroll_TagPushdown(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		if q.Limit != 3 {
			t.Errorf("limit = %d, want count+1 = 3", q.Limit)
		}
		if len(q.Tags) != 1 || q.Tags[0].Field != fieldTagList || q.Tags[0].Text != "sun" {
			t.Errorf("tags = %+v, want tag_list infix sun", q.Tags)
		}
		return &db.SearchResult{}, nil
	}

	f, _ := filter.New(filter.WithTagText("sun"))
	if _, err := repo.Scroll(context.Background(), "", 2, f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
