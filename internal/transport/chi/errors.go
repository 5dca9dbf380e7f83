package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/picdex/internal/domain"
	logpkg "github.com/kailas-cloud/picdex/internal/logger"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// defaultErrorHandlers is ordered: specific typed errors precede the sentinels they unwrap to.
func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		duplicateHandler,
		unsupportedHandler,
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidItem, http.StatusBadRequest, ErrorCodeInvalidImage),
		sentinelHandler(domain.ErrOCRSearchDisabled, http.StatusBadRequest, ErrorCodeOCRSearchDisabled),
		sentinelHandler(domain.ErrNumericDomain, http.StatusUnprocessableEntity, ErrorCodeNumericDomain),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, ErrorCodeBackendUnavailable),
		sentinelHandler(domain.ErrEmbeddingFailure, http.StatusBadGateway, ErrorCodeEmbeddingFailure),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
	}
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var unsupported *domain.UnsupportedError
	if errors.As(err, &unsupported) {
		return unsupported.Error()
	}
	sentinels := []error{
		domain.ErrDuplicate,
		domain.ErrInvalidQuery,
		domain.ErrInvalidItem,
		domain.ErrOCRSearchDisabled,
		domain.ErrNumericDomain,
		domain.ErrNotFound,
		domain.ErrBackendUnavailable,
		domain.ErrEmbeddingFailure,
		domain.ErrEmbeddingProviderError,
		domain.ErrVectorDimMismatch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// duplicateHandler reports the id of the content that is already indexed.
func duplicateHandler(w http.ResponseWriter, err error, msg string) bool {
	var dup *domain.DuplicateError
	if !errors.As(err, &dup) {
		return false
	}
	writeJSON(w, http.StatusConflict, ErrorResponse{Code: ErrorCodeDuplicate, Message: msg, ID: dup.ID})
	return true
}

// unsupportedHandler maps operations the active backend lacks to 501.
func unsupportedHandler(w http.ResponseWriter, err error, msg string) bool {
	var unsupported *domain.UnsupportedError
	if !errors.As(err, &unsupported) {
		return false
	}
	writeError(w, http.StatusNotImplemented, ErrorCodeNotImplemented, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
