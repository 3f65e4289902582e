package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a PipelineError, it wraps it with the new message.
// Otherwise, it creates a new Internal error wrapping the original.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	// If it's already a PipelineError, preserve its properties
	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		wrapped := &Error{
			code:      pipeErr.code,
			category:  pipeErr.category,
			message:   message,
			cause:     err,
			metadata:  pipeErr.Metadata(),
			retryable: pipeErr.retryable,
			sessionID: pipeErr.sessionID,
			status:    pipeErr.status,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	// Check for context errors
	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}

	// Default to internal error for unknown errors
	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsPipelineError attempts to extract a PipelineError from an error chain.
// Returns nil if no PipelineError is found.
func AsPipelineError(err error) PipelineError {
	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		return pipeErr
	}
	return nil
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		return pipeErr.code == code
	}
	return false
}

// IsCategory checks if any error in the chain has the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		return pipeErr.category == category
	}
	return false
}

// IsRetryable checks if the error is retryable.
func IsRetryable(err error) bool {
	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		return pipeErr.Retryable()
	}
	// Default to not retryable for unknown errors
	return false
}

// IsTransient checks if the error is transient.
func IsTransient(err error) bool {
	return IsCategory(err, CategoryTransient)
}

// IsPermanent checks if the error is permanent.
func IsPermanent(err error) bool {
	return IsCategory(err, CategoryPermanent)
}

// Code extracts the error code from an error, if available.
// Returns empty string if err is not a PipelineError.
func Code(err error) ErrorCode {
	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		return pipeErr.code
	}
	return ""
}

// Category extracts the error category from an error, if available.
// Returns empty string if err is not a PipelineError.
func Category(err error) ErrorCategory {
	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		return pipeErr.category
	}
	return ""
}

// GetMetadata extracts metadata from an error.
// Returns nil if err is not a PipelineError.
func GetMetadata(err error) map[string]string {
	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		return pipeErr.Metadata()
	}
	return nil
}

// HTTPStatus returns the HTTP status the API should surface for an error.
// Unknown errors map to 500.
func HTTPStatus(err error) int {
	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		return pipeErr.HTTPStatus()
	}
	return 500
}

// Cause returns the root cause of the error chain.
func Cause(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		inner := unwrapper.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}

// Join combines multiple errors into a single error.
// If all errors are nil, returns nil.
// Uses errors.Join from the standard library.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
