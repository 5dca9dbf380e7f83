package search

import (
	"testing"

	"github.com/kailas-cloud/picdex/internal/domain/search/result"
	"github.com/kailas-cloud/picdex/internal/domain/search/space"
)

func TestRerank_StableOnTies(t *testing.T) {
	in := []result.Result{
		resultWith(t, "a", 0.5, []float32{1, 0}, nil),
		resultWith(t, "b", 0.5, []float32{1, 0}, nil),
		resultWith(t, "c", 0.5, []float32{1, 0}, nil),
	}
	out := rerank(in, []float32{0, 1}, space.Text)
	for i, id := range []string{"a", "b", "c"} {
		if out[i].ID() != id || out[i].Score() != 0.5 {
			t.Fatalf("position %d = %s (%v)", i, out[i].ID(), out[i].Score())
		}
	}
}

func TestRerank_VisionSpace(t *testing.T) {
	in := []result.Result{
		resultWith(t, "far", 0.8, []float32{0, 1}, nil),
		resultWith(t, "near", 0.5, []float32{1, 0}, nil),
	}
	out := rerank(in, []float32{1, 0}, space.Vision)
	if out[0].ID() != "near" || out[0].Score() != 1.0 {
		t.Fatalf("first = %s (%v), want near (1.0)", out[0].ID(), out[0].Score())
	}
	if out[1].Score() != 0.8 {
		t.Errorf("orthogonal item score = %v, want unchanged 0.8", out[1].Score())
	}
}

func TestRerank_ZeroVectorsKeepScore(t *testing.T) {
	in := []result.Result{resultWith(t, "z", 0.4, []float32{0, 0}, nil)}
	if out := rerank(in, []float32{1, 0}, space.Vision); out[0].Score() != 0.4 {
		t.Errorf("zero candidate: score = %v", out[0].Score())
	}
	in = []result.Result{resultWith(t, "y", 0.4, []float32{1, 0}, nil)}
	if out := rerank(in, []float32{0, 0}, space.Vision); out[0].Score() != 0.4 {
		t.Errorf("zero extra vector: score = %v", out[0].Score())
	}
}

func TestRerank_DoesNotMutateInput(t *testing.T) {
	in := []result.Result{
		resultWith(t, "a", 0.1, []float32{0, 1}, nil),
		resultWith(t, "b", 0.2, []float32{1, 0}, nil),
	}
	_ = rerank(in, []float32{1, 0}, space.Vision)
	if in[0].ID() != "a" || in[1].Score() != 0.2 {
		t.Fatal("input slice was modified")
	}
}
