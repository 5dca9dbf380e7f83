package item

import (
	"testing"
	"time"
)

func TestNew_Valid(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	it, err := New("id-1", Metadata{
		SourceURI: "/data/cat.JPG",
		IsLocal:   true,
		Format:    ".JPG",
		Width:     400,
		Height:    200,
		CreatedAt: created,
		Attributes: Attributes{
			AttrFilename: String("cat.JPG"),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.ID() != "id-1" {
		t.Errorf("ID() = %q", it.ID())
	}
	if it.Format() != "jpg" {
		t.Errorf("Format() = %q, want jpg", it.Format())
	}
	if it.AspectRatio() != 2 {
		t.Errorf("AspectRatio() = %v, want 2", it.AspectRatio())
	}
	if !it.CreatedAt().Equal(created) {
		t.Errorf("CreatedAt() = %v", it.CreatedAt())
	}
	if w, ok := it.Attributes().Number(AttrWidth); !ok || w != 400 {
		t.Errorf("width attribute = %v, %v", w, ok)
	}
	if r, ok := it.Attributes().Number(AttrAspectRatio); !ok || r != 2 {
		t.Errorf("aspect_ratio attribute = %v, %v", r, ok)
	}
	if it.Attributes()[AttrFilename].Str() != "cat.JPG" {
		t.Errorf("filename attribute = %v", it.Attributes()[AttrFilename])
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		id   string
		meta Metadata
	}{
		{"empty id", "", Metadata{Width: 1, Height: 1}},
		{"zero width", "x", Metadata{Width: 0, Height: 1}},
		{"negative height", "x", Metadata{Width: 1, Height: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.id, tt.meta); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNew_ClonesAttributes(t *testing.T) {
	attrs := Attributes{"k": String("v")}
	it, _ := New("id", Metadata{Width: 1, Height: 1, Attributes: attrs})
	attrs["k"] = String("mutated")
	if it.Attributes()["k"].Str() != "v" {
		t.Error("attribute mutation leaked into item")
	}
}

func TestWithOCR_EmptyNormalizesToAbsent(t *testing.T) {
	it, _ := New("id", Metadata{Width: 1, Height: 1})

	withText := it.WithOCR("hello", []float32{1, 0})
	if txt, ok := withText.OCRText(); !ok || txt != "hello" {
		t.Errorf("OCRText() = %q, %v", txt, ok)
	}
	if withText.TextVector() == nil {
		t.Error("TextVector() should be set")
	}

	cleared := withText.WithOCR("   ", []float32{1, 0})
	if _, ok := cleared.OCRText(); ok {
		t.Error("blank OCR text should be absent")
	}
	if cleared.TextVector() != nil {
		t.Error("TextVector() should be dropped with OCR text")
	}

	// original copy untouched
	if _, ok := withText.OCRText(); !ok {
		t.Error("WithOCR mutated receiver copy")
	}
}

func TestWithOCR_MissingVectorDropsText(t *testing.T) {
	it, _ := New("id", Metadata{Width: 1, Height: 1})
	it = it.WithOCR("hello", nil)
	if _, ok := it.OCRText(); ok {
		t.Error("text without vector should be absent")
	}
}

func TestWithoutVectors(t *testing.T) {
	it, _ := New("id", Metadata{Width: 1, Height: 1})
	it = it.WithVisionVector([]float32{1}).WithOCR("t", []float32{2})
	stripped := it.WithoutVectors()
	if stripped.VisionVector() != nil || stripped.TextVector() != nil {
		t.Error("vectors should be stripped")
	}
	if _, ok := stripped.OCRText(); !ok {
		t.Error("OCR text should survive stripping")
	}
	if it.VisionVector() == nil {
		t.Error("original lost its vector")
	}
}

func TestWithTags_Copies(t *testing.T) {
	tags := []string{"cat", "outdoor"}
	it, _ := New("id", Metadata{Width: 1, Height: 1})
	it = it.WithTags(tags)
	tags[0] = "dog"
	if it.Tags()[0] != "cat" {
		t.Error("tag mutation leaked into item")
	}
	if it.WithTags(nil).Tags() != nil {
		t.Error("empty tags should be nil")
	}
}

func TestReconstruct_DropsTextVectorWithoutText(t *testing.T) {
	it := Reconstruct("id", Metadata{Width: 2, Height: 1}, 2, []float32{1}, []float32{1}, nil, "")
	if it.TextVector() != nil {
		t.Error("text vector without OCR text must be dropped")
	}
}

func TestAccessors_ReturnCopies(t *testing.T) {
	it, _ := New("id", Metadata{Width: 100, Height: 50})
	it = it.WithTags([]string{"cat"})

	it.Tags()[0] = "dog"
	it.Attributes()[AttrWidth] = Int(1)

	if it.Tags()[0] != "cat" {
		t.Error("tag mutation leaked into item")
	}
	if w, _ := it.Number(AttrWidth); w != 100 {
		t.Errorf("width attribute = %v, want 100", w)
	}
}

func TestReconstruct_ClonesInputs(t *testing.T) {
	tags := []string{"cat"}
	attrs := Attributes{AttrWidth: Int(2)}
	it := Reconstruct("id", Metadata{Width: 2, Height: 1, Attributes: attrs}, 2, []float32{1}, nil, tags, "")

	tags[0] = "dog"
	attrs[AttrWidth] = Int(9)

	if it.Tags()[0] != "cat" {
		t.Error("tag mutation leaked into item")
	}
	if w, _ := it.Number(AttrWidth); w != 2 {
		t.Errorf("width attribute = %v, want 2", w)
	}
}

func TestHasTagContaining(t *testing.T) {
	it, _ := New("id", Metadata{Width: 1, Height: 1})
	it = it.WithTags([]string{"Outdoor Scene"})
	if !it.HasTagContaining("door") {
		t.Error("expected case-insensitive substring match")
	}
	if it.HasTagContaining("cat") {
		t.Error("unexpected match")
	}
}
