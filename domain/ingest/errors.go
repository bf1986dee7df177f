package ingest

import (
	"errors"
	"fmt"
	"time"
)

// ErrAuth indicates the hosting provider or a backend rejected the
// credentials. Fatal for the run; never retried.
var ErrAuth = errors.New("authentication failed")

// ErrAlreadyRunning indicates an indexing run is already active for the
// project. The caller gets it back immediately without a second run starting.
var ErrAlreadyRunning = errors.New("indexing already running for project")

// ErrContentTooLarge indicates an item exceeded a size threshold and was
// skipped rather than processed.
var ErrContentTooLarge = errors.New("content too large")

// TransientError wraps a failure worth retrying with backoff: network
// errors, timeouts, and 5xx responses.
type TransientError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError for the given operation.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RateLimitedError indicates the provider asked us to pause. Iteration
// waits until the reset time instead of failing.
type RateLimitedError struct {
	ResetAt time.Time
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.ResetAt.Format(time.RFC3339))
}

// RateLimited creates a RateLimitedError with the provider's reset time.
func RateLimited(resetAt time.Time) error {
	return &RateLimitedError{ResetAt: resetAt}
}

// IsRateLimited reports whether err is a rate-limit pause, returning the
// reset time when it is.
func IsRateLimited(err error) (time.Time, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.ResetAt, true
	}
	return time.Time{}, false
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

// FetchError wraps a page-level fetch failure after retries were exhausted.
// Commits yielded before the failing page remain valid.
type FetchError struct {
	Page int
	Err  error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error { return e.Err }
