package db

// NumericRange is an inclusive range over a NUMERIC field. Nil bounds are open.
type NumericRange struct {
	Field        string
	Min          *float64
	Max          *float64
	MaxExclusive bool
}

// TagInfix matches documents with a value in a TAG field that contains Text.
type TagInfix struct {
	Field string
	Text  string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Ranges       []NumericRange
	Tags         []TagInfix
	Vector       []float32
	K            int
	ReturnFields []string
}

// ListQuery is the input for a sorted, paginated scan of an index.
type ListQuery struct {
	IndexName    string
	Ranges       []NumericRange
	Tags         []TagInfix
	SortBy       string
	Desc         bool
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
