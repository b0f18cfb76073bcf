package carrier

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AuthError means the client-credentials exchange or an authenticated call
// was rejected by the carrier. Not retried.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("carrier authentication failed with status %d: %s", e.StatusCode, e.Body)
}

// RateLimitError is surfaced to the caller with the server-supplied
// Retry-After hint. The pipeline does not retry it.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("carrier rate limit exceeded, retry after %s", e.RetryAfter)
}

// TimeoutError is returned once the retry budget for a timed-out request
// is exhausted.
type TimeoutError struct {
	Path string
	Err  error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("carrier request timeout: %s", e.Path)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// transportError wraps connection-level failures so the pipeline can tell
// retryable failures from HTTP error statuses.
type transportError struct {
	Path string
	Err  error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("carrier request failed: %s: %v", e.Path, e.Err)
}

func (e *transportError) Unwrap() error { return e.Err }

// APIError wraps any other non-2xx carrier response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("carrier API error %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a carrier 404. Sync flows treat this
// as a recoverable not-found signal rather than a failure.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func isTransient(err error) bool {
	var timeoutErr *TimeoutError
	var transErr *transportError
	return errors.As(err, &timeoutErr) || errors.As(err, &transErr)
}
