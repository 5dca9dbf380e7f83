package result

import (
	"testing"

	"github.com/kailas-cloud/picdex/internal/domain/item"
)

func TestNew(t *testing.T) {
	it, _ := item.New("img-1", item.Metadata{Width: 2, Height: 1})
	r := New(it, 0.95)

	if r.ID() != "img-1" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Score() != 0.95 {
		t.Errorf("Score() = %f", r.Score())
	}
	if r.Item().Width() != 2 {
		t.Errorf("Item().Width() = %d", r.Item().Width())
	}
}

func TestWithScore_Copies(t *testing.T) {
	it, _ := item.New("img-1", item.Metadata{Width: 1, Height: 1})
	r := New(it, 0.8)
	boosted := r.WithScore(1.2)
	if boosted.Score() != 1.2 {
		t.Errorf("boosted Score() = %f", boosted.Score())
	}
	if r.Score() != 0.8 {
		t.Errorf("original Score() = %f", r.Score())
	}
}
