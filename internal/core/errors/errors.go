// Package errors provides centralized error definitions for the application.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Circuit breaker errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// Lookup errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")

	// ErrChannelNotFound indicates a channel could not be resolved.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrNotAChannel indicates the resolved peer is not a channel.
	ErrNotAChannel = errors.New("peer is not a channel")
)

// Response and parsing errors.
var (
	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")

	// ErrMalformedEmbedding indicates a stored embedding could not be decoded.
	ErrMalformedEmbedding = errors.New("malformed embedding")

	// ErrInvalidScore indicates the evaluator reply is not a number.
	ErrInvalidScore = errors.New("invalid score")
)

// Quota and throttling errors.
var (
	// ErrRateLimited indicates rate limiting was triggered.
	ErrRateLimited = errors.New("rate limited")
)

// Configuration errors.
var (
	// ErrPromptMissing indicates a required prompt template is empty.
	ErrPromptMissing = errors.New("prompt template missing")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
