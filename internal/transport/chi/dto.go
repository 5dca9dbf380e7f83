package chi

import "time"

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeInvalidImage           ErrorCode = "invalid_image"
	ErrorCodeDuplicate              ErrorCode = "duplicate"
	ErrorCodeNotFound               ErrorCode = "not_found"
	ErrorCodeOCRSearchDisabled      ErrorCode = "ocr_search_disabled"
	ErrorCodeNumericDomain          ErrorCode = "numeric_domain"
	ErrorCodeNotImplemented         ErrorCode = "not_implemented"
	ErrorCodeBackendUnavailable     ErrorCode = "backend_unavailable"
	ErrorCodeEmbeddingFailure       ErrorCode = "embedding_failure"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	ID      string    `json:"id,omitempty"`
}

// FilterRequest carries the optional filters of the JSON search endpoints.
type FilterRequest struct {
	TagText   *string  `json:"tag_text,omitempty"`
	MinWidth  *int     `json:"min_width,omitempty"`
	MinHeight *int     `json:"min_height,omitempty"`
	MinRatio  *float64 `json:"min_ratio,omitempty"`
	MaxRatio  *float64 `json:"max_ratio,omitempty"`
}

// AdvancedRequest is the body of POST /search/advanced.
type AdvancedRequest struct {
	Criteria         []string       `json:"criteria"`
	NegativeCriteria []string       `json:"negative_criteria,omitempty"`
	Basis            string         `json:"basis,omitempty"`
	Mode             string         `json:"mode,omitempty"`
	Filters          *FilterRequest `json:"filters,omitempty"`
	Count            int            `json:"count,omitempty"`
	Skip             int            `json:"skip,omitempty"`
}

// CombinedRequest is the body of POST /search/combined.
type CombinedRequest struct {
	AdvancedRequest
	ExtraPrompt string `json:"extra_prompt"`
}

// ItemResponse is one image in a result list.
type ItemResponse struct {
	ID          string         `json:"id"`
	Score       *float64       `json:"score,omitempty"`
	URL         string         `json:"url"`
	Format      string         `json:"format,omitempty"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	AspectRatio float64        `json:"aspect_ratio"`
	CreatedAt   time.Time      `json:"created_at"`
	Tags        []string       `json:"tags,omitempty"`
	OCRText     *string        `json:"ocr_text,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// SearchResponse lists ranked results.
type SearchResponse struct {
	Items []ItemResponse `json:"items"`
	Count int            `json:"count"`
	Skip  int            `json:"skip"`
}

// ScrollResponse is one page of GET /images/scroll.
type ScrollResponse struct {
	Items      []ItemResponse `json:"items"`
	NextCursor *string        `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

// UploadResponse is returned by POST /admin/upload.
type UploadResponse struct {
	Item ItemResponse `json:"item"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
