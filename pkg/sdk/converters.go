package picdex

import (
	"fmt"

	"github.com/kailas-cloud/picdex/internal/domain/item"
	"github.com/kailas-cloud/picdex/internal/domain/search/filter"
	"github.com/kailas-cloud/picdex/internal/domain/search/request"
	"github.com/kailas-cloud/picdex/internal/domain/search/result"
	indexeruc "github.com/kailas-cloud/picdex/internal/usecase/indexer"
)

func toFilterParams(f Filters) (filter.Params, error) {
	var opts []filter.Option
	if f.TagText != "" {
		opts = append(opts, filter.WithTagText(f.TagText))
	}
	if f.MinWidth != 0 {
		opts = append(opts, filter.WithMinWidth(f.MinWidth))
	}
	if f.MinHeight != 0 {
		opts = append(opts, filter.WithMinHeight(f.MinHeight))
	}
	if f.MinRatio != 0 {
		opts = append(opts, filter.WithMinRatio(f.MinRatio))
	}
	if f.MaxRatio != 0 {
		opts = append(opts, filter.WithMaxRatio(f.MaxRatio))
	}
	p, err := filter.New(opts...)
	if err != nil {
		return filter.Params{}, invalidQuery(err)
	}
	return p, nil
}

func toQueryParts(f Filters, count, skip int) (filter.Params, request.Paging, error) {
	params, err := toFilterParams(f)
	if err != nil {
		return filter.Params{}, request.Paging{}, err
	}
	paging, err := request.NewPaging(count, skip)
	if err != nil {
		return filter.Params{}, request.Paging{}, invalidQuery(err)
	}
	return params, paging, nil
}

func toAttributes(m map[string]any) (item.Attributes, error) {
	if len(m) == 0 {
		return nil, nil
	}
	attrs := make(item.Attributes, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case string:
			attrs[k] = item.String(x)
		case int:
			attrs[k] = item.Int(int64(x))
		case int64:
			attrs[k] = item.Int(x)
		case float32:
			attrs[k] = item.Float(float64(x))
		case float64:
			attrs[k] = item.Float(x)
		default:
			return nil, fmt.Errorf("attribute %q: unsupported type %T", k, v)
		}
	}
	return attrs, nil
}

func toSource(raw []byte, meta ImageMeta) (indexeruc.Source, error) {
	attrs, err := toAttributes(meta.Attributes)
	if err != nil {
		return indexeruc.Source{}, err
	}
	return indexeruc.Source{Raw: raw, Meta: item.Metadata{
		SourceURI:  meta.SourceURI,
		IsLocal:    meta.IsLocal,
		CreatedAt:  meta.CreatedAt,
		Attributes: attrs,
	}}, nil
}

func fromItem(it item.Item) Item {
	out := Item{
		ID:          it.ID(),
		SourceURI:   it.SourceURI(),
		IsLocal:     it.IsLocal(),
		Format:      it.Format(),
		Width:       it.Width(),
		Height:      it.Height(),
		AspectRatio: it.AspectRatio(),
		CreatedAt:   it.CreatedAt(),
		Tags:        it.Tags(),
	}
	out.OCRText, _ = it.OCRText()
	if attrs := it.Attributes(); len(attrs) > 0 {
		out.Attributes = make(map[string]any, len(attrs))
		for k, v := range attrs {
			switch v.Kind() {
			case item.KindInt:
				n, _ := v.Number()
				out.Attributes[k] = int64(n)
			case item.KindFloat:
				out.Attributes[k], _ = v.Number()
			default:
				out.Attributes[k] = v.Str()
			}
		}
	}
	return out
}

func fromResults(rs []result.Result) []Hit {
	hits := make([]Hit, len(rs))
	for i, r := range rs {
		hits[i] = Hit{Item: fromItem(r.Item()), Score: r.Score()}
	}
	return hits
}
