// Package errors defines the sentinel errors shared across the pipeline and
// the transient/permanent classification used by the retry layer.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrFetchFailed        = errors.New("fetch failed")
	ErrFeedUnavailable    = errors.New("feed unavailable")
	ErrSummaryParseFailed = errors.New("summary parse failed")
	ErrBackendUnavailable = errors.New("retrieval backend unavailable")
	ErrStateUnavailable   = errors.New("state store unavailable")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
)

// AppError wraps a sentinel with a human-readable message, an optional
// underlying cause, and, for errors originating from HTTP calls, the
// upstream status code.
type AppError struct {
	Err        error
	Cause      error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Wrap attaches an underlying cause to a sentinel so that both remain
// matchable with errors.Is / errors.As.
func Wrap(sentinel error, cause error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Cause:   cause,
		Message: fmt.Sprintf(format, args...),
	}
}

// HTTPStatusCode maps an error to the status code the QA service should
// return for it.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrBackendUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsTransient reports whether err is worth retrying: upstream 5xx and 429
// responses, timeouts, and network-level failures. Cancellation, other 4xx,
// and parse failures are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrSummaryParseFailed) || errors.Is(err, ErrInvalidInput) {
		return false
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode >= 500 || appErr.StatusCode == http.StatusTooManyRequests
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrFeedUnavailable) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
