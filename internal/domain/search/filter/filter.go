package filter

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/picdex/internal/domain/item"
)

// Params is an immutable set of optional query-time constraints.
// An unset field imposes no constraint.
type Params struct {
	tagText   string
	ocrText   string
	minWidth  *int
	minHeight *int
	minRatio  *float64
	maxRatio  *float64
}

// Option sets one constraint.
type Option func(*Params)

// WithTagText requires some tag to contain text, case-insensitively.
func WithTagText(text string) Option {
	return func(p *Params) { p.tagText = strings.TrimSpace(text) }
}

// WithOCRText requires the extracted text to contain text literally.
func WithOCRText(text string) Option {
	return func(p *Params) { p.ocrText = text }
}

// WithMinWidth requires width >= w.
func WithMinWidth(w int) Option {
	return func(p *Params) { p.minWidth = &w }
}

// WithMinHeight requires height >= h.
func WithMinHeight(h int) Option {
	return func(p *Params) { p.minHeight = &h }
}

// WithMinRatio requires aspect ratio >= r.
func WithMinRatio(r float64) Option {
	return func(p *Params) { p.minRatio = &r }
}

// WithMaxRatio requires aspect ratio <= r.
func WithMaxRatio(r float64) Option {
	return func(p *Params) { p.maxRatio = &r }
}

// New validates and creates Params.
func New(opts ...Option) (Params, error) {
	var p Params
	for _, o := range opts {
		o(&p)
	}
	if p.minWidth != nil && *p.minWidth < 0 {
		return Params{}, fmt.Errorf("min_width must be non-negative")
	}
	if p.minHeight != nil && *p.minHeight < 0 {
		return Params{}, fmt.Errorf("min_height must be non-negative")
	}
	if p.minRatio != nil && *p.minRatio < 0 {
		return Params{}, fmt.Errorf("min_ratio must be non-negative")
	}
	if p.maxRatio != nil && *p.maxRatio < 0 {
		return Params{}, fmt.Errorf("max_ratio must be non-negative")
	}
	if p.minRatio != nil && p.maxRatio != nil && *p.minRatio > *p.maxRatio {
		return Params{}, fmt.Errorf("min_ratio %v exceeds max_ratio %v", *p.minRatio, *p.maxRatio)
	}
	return p, nil
}

// TagText returns the tag substring constraint.
func (p Params) TagText() (string, bool) { return p.tagText, p.tagText != "" }

// OCRText returns the exact OCR constraint.
func (p Params) OCRText() (string, bool) { return p.ocrText, p.ocrText != "" }

// MinWidth returns the width lower bound.
func (p Params) MinWidth() (int, bool) { return deref(p.minWidth) }

// MinHeight returns the height lower bound.
func (p Params) MinHeight() (int, bool) { return deref(p.minHeight) }

// MinRatio returns the aspect ratio lower bound.
func (p Params) MinRatio() (float64, bool) { return deref(p.minRatio) }

// MaxRatio returns the aspect ratio upper bound.
func (p Params) MaxRatio() (float64, bool) { return deref(p.maxRatio) }

// IsEmpty reports whether no constraint is set.
func (p Params) IsEmpty() bool {
	return !p.HasTextPredicates() && p.minWidth == nil && p.minHeight == nil &&
		p.minRatio == nil && p.maxRatio == nil
}

// HasTextPredicates reports whether a tag or OCR substring clause is set.
func (p Params) HasTextPredicates() bool {
	return p.tagText != "" || p.ocrText != ""
}

// NumericOnly returns a copy without the substring clauses.
func (p Params) NumericOnly() Params {
	p.tagText, p.ocrText = "", ""
	return p
}

// WithOCRText returns a copy with the exact OCR constraint set.
func (p Params) WithOCRText(text string) Params {
	p.ocrText = text
	return p
}

// Passes reports whether it satisfies every clause of p.
func Passes(it item.Item, p Params) bool {
	if tag, ok := p.TagText(); ok && !it.HasTagContaining(tag) {
		return false
	}
	if w, ok := p.MinWidth(); ok {
		got, _ := it.Number(item.AttrWidth)
		if got < float64(w) {
			return false
		}
	}
	if h, ok := p.MinHeight(); ok {
		got, _ := it.Number(item.AttrHeight)
		if got < float64(h) {
			return false
		}
	}
	if p.minRatio != nil || p.maxRatio != nil {
		ratio, ok := it.Number(item.AttrAspectRatio)
		if !ok {
			ratio = 1.0
		}
		if lo, ok := p.MinRatio(); ok && ratio < lo {
			return false
		}
		if hi, ok := p.MaxRatio(); ok && ratio > hi {
			return false
		}
	}
	if want, ok := p.OCRText(); ok {
		got, present := it.OCRText()
		if !present || !strings.Contains(got, want) {
			return false
		}
	}
	return true
}

func deref[T any](v *T) (T, bool) {
	if v == nil {
		var zero T
		return zero, false
	}
	return *v, true
}
