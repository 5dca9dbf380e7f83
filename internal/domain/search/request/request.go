package request

import (
	"fmt"

	"github.com/kailas-cloud/picdex/internal/domain/search/filter"
	"github.com/kailas-cloud/picdex/internal/domain/search/mode"
	"github.com/kailas-cloud/picdex/internal/domain/search/query"
	"github.com/kailas-cloud/picdex/internal/domain/search/space"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed prompt length.
	MaxQueryLength = 4096
	DefaultCount   = 10
	MaxCount       = 100
	MaxCriteria    = 16
	// MaxSkip keeps skip+count within a single backend fetch.
	MaxSkip = query.MaxTopK - MaxCount
)

// Paging is a validated count/skip pair.
type Paging struct {
	count int
	skip  int
}

// NewPaging validates paging. A zero count defaults to DefaultCount.
func NewPaging(count, skip int) (Paging, error) {
	if count == 0 {
		count = DefaultCount
	}
	if count < 1 || count > MaxCount {
		return Paging{}, fmt.Errorf("count must be between 1 and %d", MaxCount)
	}
	if skip < 0 || skip > MaxSkip {
		return Paging{}, fmt.Errorf("skip must be between 0 and %d", MaxSkip)
	}
	return Paging{count: count, skip: skip}, nil
}

// Count returns the number of results requested.
func (p Paging) Count() int { return p.count }

// Skip returns the number of top hits to skip.
func (p Paging) Skip() int { return p.skip }

// Text is a validated prompt search.
type Text struct {
	prompt  string
	basis   space.Space
	exact   bool
	filters filter.Params
	paging  Paging
}

// NewText validates a prompt search. Exact matching only applies to the text basis.
func NewText(prompt string, basis space.Space, exact bool, filters filter.Params, paging Paging) (Text, error) {
	if err := validatePrompt(prompt); err != nil {
		return Text{}, err
	}
	if basis == "" {
		basis = space.Vision
	}
	if !basis.IsValid() {
		return Text{}, fmt.Errorf("invalid basis: %q", basis)
	}
	return Text{prompt: prompt, basis: basis, exact: exact, filters: filters, paging: paging}, nil
}

// Prompt returns the query text.
func (r Text) Prompt() string { return r.prompt }

// Basis returns the embedding space queried.
func (r Text) Basis() space.Space { return r.basis }

// Exact reports whether OCR text must contain the prompt literally.
func (r Text) Exact() bool { return r.exact }

// Filters returns the query filters.
func (r Text) Filters() filter.Params { return r.filters }

// Paging returns the requested page.
func (r Text) Paging() Paging { return r.paging }

// Composite is a validated multi-criterion search.
type Composite struct {
	criteria []string
	negative []string
	basis    space.Space
	mode     mode.Mode
	filters  filter.Params
	paging   Paging
}

// NewComposite validates a multi-criterion search.
// Defaults: basis=vision, mode=average.
func NewComposite(
	criteria, negative []string,
	basis space.Space, m mode.Mode,
	filters filter.Params, paging Paging,
) (Composite, error) {
	if len(criteria) == 0 {
		return Composite{}, fmt.Errorf("at least one criterion is required")
	}
	if len(criteria)+len(negative) > MaxCriteria {
		return Composite{}, fmt.Errorf("too many criteria (max %d)", MaxCriteria)
	}
	for _, c := range append(append([]string(nil), criteria...), negative...) {
		if err := validatePrompt(c); err != nil {
			return Composite{}, err
		}
	}
	if basis == "" {
		basis = space.Vision
	}
	if !basis.IsValid() {
		return Composite{}, fmt.Errorf("invalid basis: %q", basis)
	}
	if m == "" {
		m = mode.Average
	}
	if !m.IsValid() {
		return Composite{}, fmt.Errorf("invalid composition mode: %q", m)
	}
	return Composite{
		criteria: append([]string(nil), criteria...),
		negative: append([]string(nil), negative...),
		basis:    basis,
		mode:     m,
		filters:  filters,
		paging:   paging,
	}, nil
}

// Criteria returns the positive prompts.
func (r Composite) Criteria() []string { return r.criteria }

// Negative returns the negative prompts.
func (r Composite) Negative() []string { return r.negative }

// Basis returns the embedding space queried.
func (r Composite) Basis() space.Space { return r.basis }

// Mode returns the composition strategy.
func (r Composite) Mode() mode.Mode { return r.mode }

// Filters returns the query filters.
func (r Composite) Filters() filter.Params { return r.filters }

// Paging returns the requested page.
func (r Composite) Paging() Paging { return r.paging }

// Combined is a composite search re-ranked by an extra prompt in the other modality.
type Combined struct {
	Composite
	extraPrompt string
}

// NewCombined validates a combined search.
func NewCombined(base Composite, extraPrompt string) (Combined, error) {
	if err := validatePrompt(extraPrompt); err != nil {
		return Combined{}, fmt.Errorf("extra prompt: %w", err)
	}
	return Combined{Composite: base, extraPrompt: extraPrompt}, nil
}

// ExtraPrompt returns the prompt embedded in the other modality.
func (r Combined) ExtraPrompt() string { return r.extraPrompt }

func validatePrompt(s string) error {
	if s == "" {
		return fmt.Errorf("query is required")
	}
	if len(s) > MaxQueryLength {
		return fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	return nil
}
