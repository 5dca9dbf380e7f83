package item

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Metadata describes an image before it is embedded.
type Metadata struct {
	SourceURI  string
	IsLocal    bool
	Format     string
	Width      int
	Height     int
	CreatedAt  time.Time
	Attributes Attributes
}

// Item is one searchable image (immutable value object).
type Item struct {
	id           string
	sourceURI    string
	isLocal      bool
	format       string
	width        int
	height       int
	aspectRatio  float64
	createdAt    time.Time
	visionVector []float32
	textVector   []float32
	tags         []string
	ocrText      string
	attributes   Attributes
}

// New validates metadata and creates an Item without vectors.
// Width, height and aspect ratio are mirrored into the attributes.
func New(id string, meta Metadata) (Item, error) {
	if id == "" {
		return Item{}, fmt.Errorf("item id is required")
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		return Item{}, fmt.Errorf("image dimensions must be positive, got %dx%d", meta.Width, meta.Height)
	}
	createdAt := meta.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	ratio := float64(meta.Width) / float64(meta.Height)

	attrs := meta.Attributes.Clone()
	if attrs == nil {
		attrs = make(Attributes, 3)
	}
	attrs[AttrWidth] = Int(int64(meta.Width))
	attrs[AttrHeight] = Int(int64(meta.Height))
	attrs[AttrAspectRatio] = Float(ratio)

	return Item{
		id:          id,
		sourceURI:   meta.SourceURI,
		isLocal:     meta.IsLocal,
		format:      strings.ToLower(strings.TrimPrefix(meta.Format, ".")),
		width:       meta.Width,
		height:      meta.Height,
		aspectRatio: ratio,
		createdAt:   createdAt,
		attributes:  attrs,
	}, nil
}

// Reconstruct creates an Item without validation (storage hydration).
func Reconstruct(
	id string, meta Metadata, aspectRatio float64,
	visionVector, textVector []float32, tags []string, ocrText string,
) Item {
	if ocrText == "" {
		textVector = nil
	}
	return Item{
		id: id, sourceURI: meta.SourceURI, isLocal: meta.IsLocal, format: meta.Format,
		width: meta.Width, height: meta.Height, aspectRatio: aspectRatio, createdAt: meta.CreatedAt,
		visionVector: visionVector, textVector: textVector, tags: slices.Clone(tags), ocrText: ocrText,
		attributes: meta.Attributes.Clone(),
	}
}

// ID returns the content-derived identifier.
func (it Item) ID() string { return it.id }

// SourceURI returns the path or object name the image was loaded from.
func (it Item) SourceURI() string { return it.sourceURI }

// IsLocal reports whether the image is served from the local filesystem.
func (it Item) IsLocal() bool { return it.isLocal }

// Format returns the lower-cased image format.
func (it Item) Format() string { return it.format }

// Width returns the width in pixels.
func (it Item) Width() int { return it.width }

// Height returns the height in pixels.
func (it Item) Height() int { return it.height }

// AspectRatio returns width/height.
func (it Item) AspectRatio() float64 { return it.aspectRatio }

// CreatedAt returns the indexing timestamp.
func (it Item) CreatedAt() time.Time { return it.createdAt }

// VisionVector returns the embedding in the visual space.
func (it Item) VisionVector() []float32 { return it.visionVector }

// TextVector returns the embedding of the OCR text, nil when no text was extracted.
func (it Item) TextVector() []float32 { return it.textVector }

// Tags returns a copy of the classifier labels ordered by confidence.
func (it Item) Tags() []string { return slices.Clone(it.tags) }

// OCRText returns the extracted text and whether any is present.
func (it Item) OCRText() (string, bool) { return it.ocrText, it.ocrText != "" }

// Attributes returns a copy of the filterable attribute map.
func (it Item) Attributes() Attributes { return it.attributes.Clone() }

// Number returns the numeric attribute key without copying the map.
func (it Item) Number(key string) (float64, bool) { return it.attributes.Number(key) }

// HasTagContaining reports whether some tag contains text, ignoring case.
func (it Item) HasTagContaining(text string) bool {
	needle := strings.ToLower(text)
	for _, t := range it.tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

// WithVisionVector returns a copy with the visual embedding set.
func (it Item) WithVisionVector(v []float32) Item {
	it.visionVector = v
	return it
}

// WithOCR returns a copy with the OCR text and its embedding set.
// Empty text normalizes to absent and drops the vector.
func (it Item) WithOCR(text string, vec []float32) Item {
	text = strings.TrimSpace(text)
	if text == "" || len(vec) == 0 {
		it.ocrText, it.textVector = "", nil
		return it
	}
	it.ocrText, it.textVector = text, vec
	return it
}

// WithTags returns a copy with the given labels.
func (it Item) WithTags(tags []string) Item {
	if len(tags) == 0 {
		it.tags = nil
		return it
	}
	it.tags = append([]string(nil), tags...)
	return it
}

// WithoutVectors returns a copy with both embeddings stripped.
func (it Item) WithoutVectors() Item {
	it.visionVector, it.textVector = nil, nil
	return it
}
