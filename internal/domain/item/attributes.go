package item

import "strconv"

// Well-known attribute keys mirrored from the typed item fields.
const (
	AttrWidth       = "width"
	AttrHeight      = "height"
	AttrAspectRatio = "aspect_ratio"
	AttrFilename    = "filename"
)

// Kind discriminates the variant held by a Value.
type Kind uint8

// Attribute value kinds.
const (
	KindString Kind = iota + 1
	KindInt
	KindFloat
)

// Value is a tagged attribute value: exactly one of string, int or float.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
}

// String creates a string attribute.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int creates an integer attribute.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float creates a float attribute.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Kind returns the variant tag. The zero Value has kind 0.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload, or "" for non-string values.
func (v Value) Str() string { return v.s }

// Number returns the value as float64 for int and float variants.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Format renders the payload as text.
func (v Value) Format() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return ""
	}
}

// Attributes is the open key-value mapping used by filter predicates.
type Attributes map[string]Value

// Number looks up a numeric attribute. Missing or non-numeric keys report false.
func (a Attributes) Number(key string) (float64, bool) {
	v, ok := a[key]
	if !ok {
		return 0, false
	}
	return v.Number()
}

// Clone returns a shallow copy (Values are immutable).
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	c := make(Attributes, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}
