package errors

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// PipelineError is the interface for all structured errors in jobtalk.
// It extends the standard error interface with context the HTTP layer and
// the retrieval orchestrator use to decide how to degrade.
type PipelineError interface {
	error

	// Code returns the specific error code identifying the failure type.
	Code() ErrorCode

	// Category returns the error category for retry/handling decisions.
	Category() ErrorCategory

	// Retryable returns true if the operation may succeed on retry.
	Retryable() bool

	// Metadata returns additional context as key-value pairs.
	Metadata() map[string]string

	// Unwrap returns the underlying error, if any.
	Unwrap() error
}

// Error is the concrete implementation of PipelineError.
type Error struct {
	code      ErrorCode
	category  ErrorCategory
	message   string
	cause     error
	metadata  map[string]string
	retryable *bool // nil means use default based on category
	timestamp time.Time
	sessionID string // chat session, if applicable
	status    int    // upstream HTTP status, if applicable
}

// Ensure Error implements PipelineError and json.Marshaler/Unmarshaler.
var (
	_ PipelineError    = (*Error)(nil)
	_ json.Marshaler   = (*Error)(nil)
	_ json.Unmarshaler = (*Error)(nil)
)

// Error returns the error message.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.category
}

// Retryable returns whether this error is retryable.
func (e *Error) Retryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	return e.category.IsRetryable()
}

// Metadata returns the error metadata.
func (e *Error) Metadata() map[string]string {
	if e.metadata == nil {
		return make(map[string]string)
	}
	// Return a copy to prevent modification
	result := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		result[k] = v
	}
	return result
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Timestamp returns when the error occurred.
func (e *Error) Timestamp() time.Time {
	return e.timestamp
}

// SessionID returns the chat session ID, if set.
func (e *Error) SessionID() string {
	return e.sessionID
}

// UpstreamStatus returns the upstream HTTP status, or 0 if not set.
func (e *Error) UpstreamStatus() int {
	return e.status
}

// HTTPStatus returns the HTTP status the API should surface for this error.
// An upstream status, when recorded, takes precedence over the code mapping.
func (e *Error) HTTPStatus() int {
	if e.status >= 400 {
		return e.status
	}
	return e.code.HTTPStatus()
}

// errorJSON is the JSON representation of an Error.
type errorJSON struct {
	Code      ErrorCode         `json:"code"`
	Category  ErrorCategory     `json:"category"`
	Message   string            `json:"message"`
	Cause     string            `json:"cause,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Retryable bool              `json:"retryable"`
	Timestamp string            `json:"timestamp,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Status    int               `json:"upstream_status,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	j := errorJSON{
		Code:      e.code,
		Category:  e.category,
		Message:   e.message,
		Metadata:  e.metadata,
		Retryable: e.Retryable(),
		SessionID: e.sessionID,
		Status:    e.status,
	}
	if e.cause != nil {
		j.Cause = e.cause.Error()
	}
	if !e.timestamp.IsZero() {
		j.Timestamp = e.timestamp.Format(time.RFC3339Nano)
	}
	return json.Marshal(j)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Error) UnmarshalJSON(data []byte) error {
	var j errorJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	e.code = j.Code
	e.category = j.Category
	e.message = j.Message
	e.metadata = j.Metadata
	e.sessionID = j.SessionID
	e.status = j.Status
	r := j.Retryable
	e.retryable = &r
	if j.Cause != "" {
		e.cause = fmt.Errorf("%s", j.Cause)
	}
	if j.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339Nano, j.Timestamp); err == nil {
			e.timestamp = t
		}
	}
	return nil
}

// Option is a functional option for configuring an Error.
type Option func(*Error)

// WithCategory overrides the default category.
func WithCategory(cat ErrorCategory) Option {
	return func(e *Error) {
		e.category = cat
	}
}

// WithRetryable explicitly sets whether the error is retryable.
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = &retryable
	}
}

// WithMetadata adds metadata key-value pairs.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithSessionID sets the chat session ID.
func WithSessionID(id string) Option {
	return func(e *Error) {
		e.sessionID = id
	}
}

// WithUpstreamStatus records the HTTP status returned by an external service.
func WithUpstreamStatus(status int) Option {
	return func(e *Error) {
		e.status = status
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata["upstream_status"] = strconv.Itoa(status)
	}
}

// WithTimestamp sets a custom timestamp.
func WithTimestamp(t time.Time) Option {
	return func(e *Error) {
		e.timestamp = t
	}
}

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(e *Error) {
		e.cause = cause
	}
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:      code,
		category:  code.DefaultCategory(),
		message:   message,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// FromCode creates an error with the default description for the code.
func FromCode(code ErrorCode, opts ...Option) *Error {
	return New(code, code.Description(), opts...)
}

// InvalidInput creates an invalid input error.
func InvalidInput(message string, opts ...Option) *Error {
	return New(ErrCodeInvalidInput, message, opts...)
}

// NotFound creates a not found error.
func NotFound(message string, opts ...Option) *Error {
	return New(ErrCodeNotFound, message, opts...)
}

// Unsupported creates an unsupported content error.
func Unsupported(message string, opts ...Option) *Error {
	return New(ErrCodeUnsupported, message, opts...)
}

// Timeout creates a timeout error.
func Timeout(message string, opts ...Option) *Error {
	return New(ErrCodeTimeout, message, opts...)
}

// Internal creates an internal error.
func Internal(message string, opts ...Option) *Error {
	return New(ErrCodeInternal, message, opts...)
}

// StoreUnavailable creates an error indicating the vector store is not
// configured or reachable. The vector store adapter has no local fallback,
// so callers must degrade or fail loudly.
func StoreUnavailable(message string, opts ...Option) *Error {
	return New(ErrCodeStoreUnavailable, message, opts...)
}

// Upstream creates an error for a non-success response from an external
// service, recording the upstream status and response detail.
func Upstream(service string, status int, detail string, opts ...Option) *Error {
	opts = append([]Option{
		WithUpstreamStatus(status),
		WithMetadata("service", service),
	}, opts...)
	return New(ErrCodeUpstream, fmt.Sprintf("%s error (status %d): %s", service, status, detail), opts...)
}

// MalformedResponse creates an error for generation output that failed
// structural parsing even after recovery.
func MalformedResponse(message string, opts ...Option) *Error {
	return New(ErrCodeMalformedResponse, message, opts...)
}

// DimensionMismatch creates an error for vectors whose length does not match
// the index dimension.
func DimensionMismatch(want, got int, opts ...Option) *Error {
	return New(ErrCodeDimensionMismatch,
		fmt.Sprintf("embedding dimension mismatch: index expects %d, got %d", want, got), opts...)
}
