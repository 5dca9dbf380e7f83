package chi

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/kailas-cloud/picdex/internal/domain/search/filter"
	"github.com/kailas-cloud/picdex/internal/domain/search/mode"
	"github.com/kailas-cloud/picdex/internal/domain/search/request"
	"github.com/kailas-cloud/picdex/internal/domain/search/space"
)

// Query parameter names shared by the GET endpoints.
const (
	paramCount     = "count"
	paramSkip      = "skip"
	paramBasis     = "basis"
	paramExact     = "exact"
	paramSeed      = "seed"
	paramCursor    = "cursor"
	paramTagText   = "tag_text"
	paramMinWidth  = "min_width"
	paramMinHeight = "min_height"
	paramMinRatio  = "min_ratio"
	paramMaxRatio  = "max_ratio"
	paramOverwrite = "overwrite"
	paramSkipOCR   = "skip_ocr"
)

func pagingFromQuery(q url.Values) (request.Paging, error) {
	count, err := intParam(q, paramCount)
	if err != nil {
		return request.Paging{}, err
	}
	skip, err := intParam(q, paramSkip)
	if err != nil {
		return request.Paging{}, err
	}
	p, err := request.NewPaging(count, skip)
	if err != nil {
		return request.Paging{}, fmt.Errorf("paging: %w", err)
	}
	return p, nil
}

func filtersFromQuery(q url.Values) (filter.Params, error) {
	var opts []filter.Option
	if v := q.Get(paramTagText); v != "" {
		opts = append(opts, filter.WithTagText(v))
	}
	for _, p := range []struct {
		name string
		opt  func(int) filter.Option
	}{
		{paramMinWidth, filter.WithMinWidth},
		{paramMinHeight, filter.WithMinHeight},
	} {
		if !q.Has(p.name) {
			continue
		}
		n, err := intParam(q, p.name)
		if err != nil {
			return filter.Params{}, err
		}
		opts = append(opts, p.opt(n))
	}
	for _, p := range []struct {
		name string
		opt  func(float64) filter.Option
	}{
		{paramMinRatio, filter.WithMinRatio},
		{paramMaxRatio, filter.WithMaxRatio},
	} {
		if !q.Has(p.name) {
			continue
		}
		f, err := strconv.ParseFloat(q.Get(p.name), 64)
		if err != nil {
			return filter.Params{}, fmt.Errorf("%s must be a number", p.name)
		}
		opts = append(opts, p.opt(f))
	}
	params, err := filter.New(opts...)
	if err != nil {
		return filter.Params{}, fmt.Errorf("filters: %w", err)
	}
	return params, nil
}

func filtersFromBody(f *FilterRequest) (filter.Params, error) {
	if f == nil {
		return filter.Params{}, nil
	}
	var opts []filter.Option
	if f.TagText != nil {
		opts = append(opts, filter.WithTagText(*f.TagText))
	}
	if f.MinWidth != nil {
		opts = append(opts, filter.WithMinWidth(*f.MinWidth))
	}
	if f.MinHeight != nil {
		opts = append(opts, filter.WithMinHeight(*f.MinHeight))
	}
	if f.MinRatio != nil {
		opts = append(opts, filter.WithMinRatio(*f.MinRatio))
	}
	if f.MaxRatio != nil {
		opts = append(opts, filter.WithMaxRatio(*f.MaxRatio))
	}
	params, err := filter.New(opts...)
	if err != nil {
		return filter.Params{}, fmt.Errorf("filters: %w", err)
	}
	return params, nil
}

func compositeFromBody(req *AdvancedRequest) (request.Composite, error) {
	filters, err := filtersFromBody(req.Filters)
	if err != nil {
		return request.Composite{}, err
	}
	paging, err := request.NewPaging(req.Count, req.Skip)
	if err != nil {
		return request.Composite{}, fmt.Errorf("paging: %w", err)
	}
	c, err := request.NewComposite(
		req.Criteria, req.NegativeCriteria,
		space.Space(req.Basis), mode.Mode(req.Mode),
		filters, paging,
	)
	if err != nil {
		return request.Composite{}, fmt.Errorf("build search request: %w", err)
	}
	return c, nil
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", name)
	}
	return b, nil
}
