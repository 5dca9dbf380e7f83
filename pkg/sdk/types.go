package picdex

import "time"

// Basis selects the embedding space a prompt is matched in.
type Basis string

// Basis constants.
const (
	// BasisVision matches prompts against image content.
	BasisVision Basis = "vision"
	// BasisText matches prompts against OCR-extracted text. Requires WithOCR.
	BasisText Basis = "text"
)

// Mode controls how multiple criteria are composed.
type Mode string

// Mode constants.
const (
	// ModeAverage queries one point derived from all criteria.
	ModeAverage Mode = "average"
	// ModeBestScore scores each candidate by its best matching criterion.
	ModeBestScore Mode = "best_score"
)

// Filters restrict results. Zero values are unset.
type Filters struct {
	TagText   string // some tag contains this text, case-insensitive
	MinWidth  int
	MinHeight int
	MinRatio  float64 // width / height
	MaxRatio  float64
}

// TextQuery is a prompt search.
type TextQuery struct {
	Basis Basis // default: BasisVision
	// Exact additionally requires the OCR text to contain the prompt.
	// Only meaningful with BasisText.
	Exact   bool
	Filters Filters
	Count   int // default 10, max 100
	Skip    int
}

// Query is a search without a prompt (image or random).
type Query struct {
	Filters Filters
	Count   int
	Skip    int
}

// CompositeQuery combines positive and negative criteria.
type CompositeQuery struct {
	Criteria []string
	Negative []string
	Basis    Basis // default: BasisVision
	Mode     Mode  // default: ModeAverage
	Filters  Filters
	Count    int
	Skip     int
}

// Item is an indexed image.
type Item struct {
	ID          string
	SourceURI   string
	IsLocal     bool
	Format      string
	Width       int
	Height      int
	AspectRatio float64
	CreatedAt   time.Time
	Tags        []string
	OCRText     string // empty when the image has no text
	Attributes  map[string]any
}

// Hit is a single search result.
type Hit struct {
	Item
	Score float64
}

// Page is one page of a scroll.
type Page struct {
	Items      []Item
	NextCursor string // empty on the last page
}

// ImageMeta describes an image handed to the indexer. Format, width and
// height are read from the image itself.
type ImageMeta struct {
	SourceURI  string
	IsLocal    bool
	CreatedAt  time.Time // default: now
	Attributes map[string]any
}

// Image is one entry of a batch.
type Image struct {
	Raw  []byte
	Meta ImageMeta
}

// ScanReport summarizes a directory scan.
type ScanReport struct {
	Found    int
	Indexed  int
	Existing int
	Failed   int
}
