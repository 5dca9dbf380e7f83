package filter

import (
	"testing"

	"github.com/kailas-cloud/picdex/internal/domain/item"
)

func newItem(t *testing.T, w, h int, tags []string, ocr string) item.Item {
	t.Helper()
	it, err := item.New("id", item.Metadata{Width: w, Height: h})
	if err != nil {
		t.Fatalf("item.New: %v", err)
	}
	return it.WithTags(tags).WithOCR(ocr, []float32{1})
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{"empty", nil, false},
		{"all set", []Option{
			WithTagText("cat"), WithOCRText("x"), WithMinWidth(1), WithMinHeight(1),
			WithMinRatio(0.5), WithMaxRatio(2),
		}, false},
		{"negative width", []Option{WithMinWidth(-1)}, true},
		{"negative height", []Option{WithMinHeight(-1)}, true},
		{"negative ratio", []Option{WithMinRatio(-0.1)}, true},
		{"inverted ratio", []Option{WithMinRatio(2), WithMaxRatio(1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPasses(t *testing.T) {
	tests := []struct {
		name string
		item func(t *testing.T) item.Item
		opts []Option
		want bool
	}{
		{
			name: "no filters",
			item: func(t *testing.T) item.Item { return newItem(t, 10, 10, nil, "") },
			want: true,
		},
		{
			name: "min width excludes narrow item",
			item: func(t *testing.T) item.Item { return newItem(t, 50, 100, nil, "") },
			opts: []Option{WithMinWidth(100)},
			want: false,
		},
		{
			name: "min width inclusive",
			item: func(t *testing.T) item.Item { return newItem(t, 100, 100, nil, "") },
			opts: []Option{WithMinWidth(100)},
			want: true,
		},
		{
			name: "min height excludes",
			item: func(t *testing.T) item.Item { return newItem(t, 100, 20, nil, "") },
			opts: []Option{WithMinHeight(21)},
			want: false,
		},
		{
			name: "tag case-insensitive substring",
			item: func(t *testing.T) item.Item { return newItem(t, 1, 1, []string{"cat", "outdoor"}, "") },
			opts: []Option{WithTagText("CAT")},
			want: true,
		},
		{
			name: "tag partial match",
			item: func(t *testing.T) item.Item { return newItem(t, 1, 1, []string{"tabby cat"}, "") },
			opts: []Option{WithTagText("abb")},
			want: true,
		},
		{
			name: "tag filter on untagged item",
			item: func(t *testing.T) item.Item { return newItem(t, 1, 1, nil, "") },
			opts: []Option{WithTagText("cat")},
			want: false,
		},
		{
			name: "ratio within range",
			item: func(t *testing.T) item.Item { return newItem(t, 200, 100, nil, "") },
			opts: []Option{WithMinRatio(1.5), WithMaxRatio(2)},
			want: true,
		},
		{
			name: "ratio below min",
			item: func(t *testing.T) item.Item { return newItem(t, 100, 100, nil, "") },
			opts: []Option{WithMinRatio(1.5)},
			want: false,
		},
		{
			name: "ratio above max",
			item: func(t *testing.T) item.Item { return newItem(t, 300, 100, nil, "") },
			opts: []Option{WithMaxRatio(2)},
			want: false,
		},
		{
			name: "exact ocr literal",
			item: func(t *testing.T) item.Item { return newItem(t, 1, 1, nil, "Hello World") },
			opts: []Option{WithOCRText("World")},
			want: true,
		},
		{
			name: "exact ocr is case-sensitive",
			item: func(t *testing.T) item.Item { return newItem(t, 1, 1, nil, "Hello World") },
			opts: []Option{WithOCRText("world")},
			want: false,
		},
		{
			name: "exact ocr without text",
			item: func(t *testing.T) item.Item { return newItem(t, 1, 1, nil, "") },
			opts: []Option{WithOCRText("x")},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.opts...)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := Passes(tt.item(t), p); got != tt.want {
				t.Errorf("Passes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPasses_MissingAttributes(t *testing.T) {
	// hydrated item without mirrored attributes: width missing = 0, ratio missing = 1.0
	it := item.Reconstruct("id", item.Metadata{Width: 500, Height: 100}, 5, nil, nil, nil, "")

	p, _ := New(WithMinWidth(1))
	if Passes(it, p) {
		t.Error("missing width attribute should fail min_width")
	}
	p, _ = New(WithMinRatio(0.5), WithMaxRatio(1.5))
	if !Passes(it, p) {
		t.Error("missing aspect ratio should be treated as 1.0")
	}
}

func TestNumericOnly(t *testing.T) {
	p, _ := New(WithTagText("cat"), WithOCRText("x"), WithMinWidth(5))
	if !p.HasTextPredicates() {
		t.Fatal("HasTextPredicates() = false")
	}
	n := p.NumericOnly()
	if n.HasTextPredicates() {
		t.Error("NumericOnly kept text predicates")
	}
	if w, ok := n.MinWidth(); !ok || w != 5 {
		t.Errorf("MinWidth() = %v, %v", w, ok)
	}
	if _, ok := p.TagText(); !ok {
		t.Error("NumericOnly mutated the receiver")
	}
}

func TestIsEmpty(t *testing.T) {
	var p Params
	if !p.IsEmpty() {
		t.Error("zero Params should be empty")
	}
	if p.WithOCRText("x").IsEmpty() {
		t.Error("Params with OCR text should not be empty")
	}
}
