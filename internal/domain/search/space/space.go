package space

// Space names an embedding space a query is expressed in.
type Space string

// Embedding spaces.
const (
	// Vision is the image encoder's space; its text tower embeds prompts.
	Vision Space = "vision"
	// Text is the OCR text encoder's space.
	Text Space = "text"
)

// IsValid checks if the space is one of the supported values.
func (s Space) IsValid() bool {
	return s == Vision || s == Text
}

// Other returns the opposite modality.
func (s Space) Other() Space {
	if s == Text {
		return Vision
	}
	return Text
}
