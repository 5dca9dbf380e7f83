package picdex

import "github.com/kailas-cloud/picdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrDuplicate              = domain.ErrDuplicate
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrInvalidImage           = domain.ErrInvalidItem
	ErrBackendUnavailable     = domain.ErrBackendUnavailable
	ErrEmbeddingFailure       = domain.ErrEmbeddingFailure
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrNumericDomain          = domain.ErrNumericDomain
	ErrOCRSearchDisabled      = domain.ErrOCRSearchDisabled
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
)

// DuplicateError carries the id of content that is already indexed.
// Use errors.As() to extract it.
type DuplicateError = domain.DuplicateError
