package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"testing"
)

func TestIsTransientClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"timeout sentinel", ErrTimeout, true},
		{"rate limited", ErrRateLimited, true},
		{"backend unavailable", ErrBackendUnavailable, true},
		{"parse failure", ErrSummaryParseFailed, false},
		{"invalid input", ErrInvalidInput, false},
		{"http 404", Newf(ErrFetchFailed, 404, "status 404"), false},
		{"http 429", Newf(ErrFetchFailed, 429, "status 429"), true},
		{"http 500", Newf(ErrFetchFailed, 500, "status 500"), true},
		{"http 502 wrapped", fmt.Errorf("calling feed: %w", Newf(ErrFetchFailed, 502, "status 502")), true},
		{"network error", Wrap(ErrFetchFailed, &net.OpError{Op: "dial", Err: os.ErrDeadlineExceeded}, "dialing"), true},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("%s: IsTransient = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestWrapPreservesSentinelAndCause(t *testing.T) {
	cause := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	err := Wrap(ErrFetchFailed, cause, "fetching %s", "https://example.org")

	if !errors.Is(err, ErrFetchFailed) {
		t.Error("sentinel lost")
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Error("cause lost")
	}
	var netErr net.Error
	if !errors.As(err, &netErr) {
		t.Error("net.Error not reachable through wrap")
	}
}

func TestHTTPStatusCode(t *testing.T) {
	cases := map[error]int{
		ErrInvalidInput:                        http.StatusBadRequest,
		ErrNotFound:                            http.StatusNotFound,
		ErrRateLimited:                         http.StatusTooManyRequests,
		ErrUnauthorized:                        http.StatusUnauthorized,
		ErrBackendUnavailable:                  http.StatusServiceUnavailable,
		errors.New("anything else"):            http.StatusInternalServerError,
		Newf(ErrInvalidInput, 0, "bad thing"):  http.StatusBadRequest,
		New(ErrRateLimited, 429, "slow down"):  http.StatusTooManyRequests,
		Wrap(ErrNotFound, os.ErrNotExist, "x"): http.StatusNotFound,
	}
	for err, want := range cases {
		if got := HTTPStatusCode(err); got != want {
			t.Errorf("HTTPStatusCode(%v) = %d, want %d", err, got, want)
		}
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := Newf(ErrFetchFailed, 502, "fetching %s: status %d", "https://example.org/a", 502)
	if err.Error() == "" {
		t.Fatal("empty message")
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("not an AppError")
	}
	if appErr.StatusCode != 502 {
		t.Errorf("status = %d", appErr.StatusCode)
	}
}

func TestIsTransientTimeoutInterface(t *testing.T) {
	err := fmt.Errorf("request: %w", &timeoutErr{})
	if !IsTransient(err) {
		t.Error("timeout net.Error must be transient")
	}
}

type timeoutErr struct{}

func (*timeoutErr) Error() string   { return "i/o timeout" }
func (*timeoutErr) Timeout() bool   { return true }
func (*timeoutErr) Temporary() bool { return true }

var _ net.Error = (*timeoutErr)(nil)
