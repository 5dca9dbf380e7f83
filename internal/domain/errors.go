package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate signals content that is already indexed.
	ErrDuplicate = errors.New("duplicate item")
	// ErrInvalidQuery signals malformed query parameters.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidItem signals an item that violates the data model.
	ErrInvalidItem = errors.New("invalid item")
	// ErrBackendUnavailable signals that the active search backend cannot serve the call.
	ErrBackendUnavailable = errors.New("search backend unavailable")
	// ErrEmbeddingFailure signals that the mandatory vision vector could not be produced.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrNumericDomain signals a similarity computed against a zero-magnitude vector.
	ErrNumericDomain = errors.New("numeric domain error")
	// ErrOCRSearchDisabled signals a text-basis query while OCR search is off.
	ErrOCRSearchDisabled = errors.New("ocr search is not enabled")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)

// DuplicateError carries the id of content that already exists in the backend.
type DuplicateError struct {
	ID string
}

func (e *DuplicateError) Error() string {
	if e.ID == "" {
		return ErrDuplicate.Error()
	}
	return fmt.Sprintf("%s: %s", ErrDuplicate.Error(), e.ID)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// NewDuplicate creates a duplicate error for the given id.
func NewDuplicate(id string) error {
	return &DuplicateError{ID: id}
}

// UnsupportedError reports an operation the active backend does not implement.
type UnsupportedError struct {
	Backend string
	Op      string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s backend does not support %s", e.Backend, e.Op)
}

func (e *UnsupportedError) Unwrap() error { return ErrBackendUnavailable }
