// Package errors provides a structured error taxonomy for the jobtalk
// retrieval pipeline. It defines error codes and categories so that the HTTP
// layer, the retrieval orchestrator, and the analysis components can handle
// failures consistently.
//
// # Error Categories
//
// Errors are classified into four categories:
//
//   - Transient: Temporary failures where retry may succeed (network issues, etc.)
//   - Permanent: Failures where retry will not help (invalid input, unsupported type, etc.)
//   - Resource: Resource exhaustion issues (upstream rate limits, quotas)
//   - Internal: Unexpected errors indicating bugs or system failures
//
// # Error Codes
//
// Each error has a specific code that identifies the type of failure:
//
//   - INVALID_INPUT: Malformed or missing request input
//   - UPSTREAM: External API returned a non-success response
//   - MALFORMED_RESPONSE: Generation output failed structural parsing
//   - STORE_UNAVAILABLE: Vector store not configured or reachable
//   - DIMENSION_MISMATCH: Vector length differs from index dimension
//   - And more...
//
// # Usage
//
// Create a new error:
//
//	err := errors.Upstream("openai", 429, "rate limit exceeded")
//
// Wrap an existing error with context:
//
//	wrapped := errors.Wrap(err, "embedding resume chunks")
//
// Map an error to an HTTP status in a handler:
//
//	status := errors.HTTPStatus(err)
package errors
