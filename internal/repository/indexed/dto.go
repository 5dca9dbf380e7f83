package indexed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/picdex/internal/db"
	"github.com/kailas-cloud/picdex/internal/domain/item"
)

// Hash field names. Vector fields double as FT index attributes.
const (
	fieldID           = "id"
	fieldSourceURI    = "source_uri"
	fieldLocal        = "local"
	fieldFormat       = "format"
	fieldWidth        = "width"
	fieldHeight       = "height"
	fieldAspectRatio  = "aspect_ratio"
	fieldCreatedAt    = "created_at"
	fieldSeq          = "seq"
	fieldTags         = "tags"
	fieldTagList      = "tag_list"
	fieldOCRText      = "ocr_text"
	fieldVisionVector = "vision_vector"
	fieldTextVector   = "text_vector"
	fieldAttributes   = "attributes"
)

// tag_list holds the tags joined by tagSeparator for the TAG index field;
// infix queries need at least minInfixLen runes.
const (
	tagSeparator = "|"
	minInfixLen  = 2
)

// metaFields are returned by every query; vector fields are added on demand.
var metaFields = []string{
	fieldID, fieldSourceURI, fieldLocal, fieldFormat, fieldWidth, fieldHeight,
	fieldAspectRatio, fieldCreatedAt, fieldSeq, fieldTags, fieldOCRText, fieldAttributes,
}

// hit is a hydrated hash together with its insertion sequence.
type hit struct {
	item  item.Item
	seq   int64
	score float64
}

// buildHashFields converts an Item into a flat map[string]string for HSET.
func buildHashFields(it item.Item, seq int64) (map[string]string, error) {
	m := make(map[string]string, 14)
	m[fieldID] = it.ID()
	m[fieldSourceURI] = it.SourceURI()
	m[fieldLocal] = strconv.FormatBool(it.IsLocal())
	m[fieldFormat] = it.Format()
	m[fieldWidth] = strconv.Itoa(it.Width())
	m[fieldHeight] = strconv.Itoa(it.Height())
	m[fieldAspectRatio] = strconv.FormatFloat(it.AspectRatio(), 'g', -1, 64)
	m[fieldCreatedAt] = it.CreatedAt().UTC().Format(time.RFC3339Nano)
	m[fieldSeq] = strconv.FormatInt(seq, 10)
	m[fieldVisionVector] = db.EncodeVector(it.VisionVector())

	if tags := it.Tags(); len(tags) > 0 {
		raw, err := json.Marshal(tags)
		if err != nil {
			return nil, fmt.Errorf("marshal tags: %w", err)
		}
		m[fieldTags] = string(raw)
		m[fieldTagList] = joinTags(tags)
	}
	if text, ok := it.OCRText(); ok {
		m[fieldOCRText] = text
		m[fieldTextVector] = db.EncodeVector(it.TextVector())
	}
	if attrs := it.Attributes(); len(attrs) > 0 {
		enc := make(map[string]string, len(attrs))
		for k, v := range attrs {
			enc[k] = encodeValue(v)
		}
		raw, err := json.Marshal(enc)
		if err != nil {
			return nil, fmt.Errorf("marshal attributes: %w", err)
		}
		m[fieldAttributes] = string(raw)
	}
	return m, nil
}

func joinTags(tags []string) string {
	clean := make([]string, len(tags))
	for i, t := range tags {
		clean[i] = strings.ReplaceAll(t, tagSeparator, " ")
	}
	return strings.Join(clean, tagSeparator)
}

// parseHashFields converts a flat hash map back into an Item.
// Malformed optional fields degrade to absent.
func parseHashFields(id string, m map[string]string) (item.Item, int64) {
	meta := item.Metadata{
		SourceURI:  m[fieldSourceURI],
		Format:     m[fieldFormat],
		Attributes: make(item.Attributes),
	}
	meta.IsLocal, _ = strconv.ParseBool(m[fieldLocal])
	meta.Width, _ = strconv.Atoi(m[fieldWidth])
	meta.Height, _ = strconv.Atoi(m[fieldHeight])
	if ts, err := time.Parse(time.RFC3339Nano, m[fieldCreatedAt]); err == nil {
		meta.CreatedAt = ts
	}
	ratio, _ := strconv.ParseFloat(m[fieldAspectRatio], 64)
	seq, _ := strconv.ParseInt(m[fieldSeq], 10, 64)

	var tags []string
	if raw := m[fieldTags]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &tags)
	}

	visionVec, _ := db.DecodeVector(m[fieldVisionVector])
	textVec, _ := db.DecodeVector(m[fieldTextVector])

	if raw := m[fieldAttributes]; raw != "" {
		var enc map[string]string
		_ = json.Unmarshal([]byte(raw), &enc)
		for k, v := range enc {
			if val, ok := decodeValue(v); ok {
				meta.Attributes[k] = val
			}
		}
	}

	if stored := m[fieldID]; stored != "" {
		id = stored
	}
	return item.Reconstruct(id, meta, ratio, visionVec, textVec, tags, m[fieldOCRText]), seq
}

// encodeValue prefixes the payload with its kind: s:, i: or f:.
func encodeValue(v item.Value) string {
	switch v.Kind() {
	case item.KindInt:
		return "i:" + v.Format()
	case item.KindFloat:
		return "f:" + v.Format()
	default:
		return "s:" + v.Format()
	}
}

func decodeValue(s string) (item.Value, bool) {
	kind, payload, ok := strings.Cut(s, ":")
	if !ok {
		return item.Value{}, false
	}
	switch kind {
	case "s":
		return item.String(payload), true
	case "i":
		n, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return item.Value{}, false
		}
		return item.Int(n), true
	case "f":
		f, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return item.Value{}, false
		}
		return item.Float(f), true
	default:
		return item.Value{}, false
	}
}
