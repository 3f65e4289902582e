package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: network timeouts, temporary service unavailability.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: invalid input, unsupported file type, missing configuration.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryResource indicates resource exhaustion or quota issues.
	// Examples: upstream rate limiting, quota exceeded.
	CategoryResource ErrorCategory = "resource"

	// CategoryInternal indicates unexpected errors, bugs, or system failures.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	switch c {
	case CategoryTransient, CategoryResource:
		return true
	default:
		return false
	}
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes for failure scenarios in the resume-chat pipeline.
const (
	// Transient errors
	ErrCodeTimeout     ErrorCode = "TIMEOUT"     // Operation timed out
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE" // Service temporarily unavailable
	ErrCodeNetworkErr  ErrorCode = "NETWORK_ERR" // Network connectivity issue

	// Permanent errors
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"     // Malformed or missing input
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"         // Resource does not exist
	ErrCodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"    // Resource already exists
	ErrCodeUnsupported      ErrorCode = "UNSUPPORTED"       // File or content type not supported
	ErrCodeCanceled         ErrorCode = "CANCELED"          // Operation was canceled
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE" // Vector store not configured

	// Pipeline errors
	ErrCodeUpstream          ErrorCode = "UPSTREAM"           // External API returned non-success
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE" // Generation output failed structural parsing
	ErrCodeDimensionMismatch ErrorCode = "DIMENSION_MISMATCH" // Vector length differs from index dimension

	// Resource errors
	ErrCodeRateLimit     ErrorCode = "RATE_LIMITED"   // Upstream rate limit exceeded
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED" // Upstream quota exhausted

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL" // Unexpected internal error
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	// Transient
	case ErrCodeTimeout, ErrCodeUnavailable, ErrCodeNetworkErr, ErrCodeUpstream:
		return CategoryTransient

	// Permanent
	case ErrCodeInvalidInput, ErrCodeNotFound, ErrCodeAlreadyExists,
		ErrCodeUnsupported, ErrCodeCanceled, ErrCodeStoreUnavailable,
		ErrCodeMalformedResponse, ErrCodeDimensionMismatch:
		return CategoryPermanent

	// Resource
	case ErrCodeRateLimit, ErrCodeQuotaExceeded:
		return CategoryResource

	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	return c.DefaultCategory().IsRetryable()
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeTimeout:           "operation timed out",
	ErrCodeUnavailable:       "service temporarily unavailable",
	ErrCodeNetworkErr:        "network connectivity error",
	ErrCodeInvalidInput:      "invalid input provided",
	ErrCodeNotFound:          "resource not found",
	ErrCodeAlreadyExists:     "resource already exists",
	ErrCodeUnsupported:       "unsupported file or content type",
	ErrCodeCanceled:          "operation canceled",
	ErrCodeStoreUnavailable:  "vector store not configured",
	ErrCodeUpstream:          "upstream service error",
	ErrCodeMalformedResponse: "malformed model response",
	ErrCodeDimensionMismatch: "embedding dimension mismatch",
	ErrCodeRateLimit:         "rate limit exceeded",
	ErrCodeQuotaExceeded:     "quota exceeded",
	ErrCodeInternal:          "internal error",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

// HTTPStatus maps an error code to the HTTP status the API surfaces for it.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeInvalidInput, ErrCodeUnsupported:
		return 400
	case ErrCodeNotFound:
		return 404
	case ErrCodeAlreadyExists:
		return 409
	case ErrCodeRateLimit, ErrCodeQuotaExceeded:
		return 429
	case ErrCodeTimeout:
		return 504
	case ErrCodeUpstream, ErrCodeMalformedResponse:
		return 502
	case ErrCodeUnavailable, ErrCodeStoreUnavailable:
		return 503
	default:
		return 500
	}
}
