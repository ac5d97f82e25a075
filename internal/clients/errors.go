package clients

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError is returned when the remote API throttled the request and
// retries were exhausted. The orchestrator treats it as entity-scoped.
type RateLimitError struct {
	Service    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited (retry after %s)", e.Service, e.RetryAfter)
}

// AuthError is returned when authentication could not be established or
// refreshed. The orchestrator aborts the pass rather than grinding through
// per-entity failures.
type AuthError struct {
	Service string
	Reason  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %s", e.Service, e.Reason)
}

// APIError carries a non-retryable remote failure.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: API request failed: %d - %s", e.Service, e.StatusCode, e.Body)
}

func IsRateLimited(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// Retryable reports whether a failed call may be retried: transport errors
// (no HTTP response, status 0), 5xx and rate limiting are transient;
// everything else is not.
func Retryable(statusCode int) bool {
	return statusCode == 0 || statusCode == 429 || statusCode >= 500
}
