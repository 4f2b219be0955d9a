package feedapi

import (
	"errors"
	"fmt"
)

// Sentinel errors exposed so callers can classify failures without parsing
// messages. Every error returned by Client wraps exactly one of these.
var (
	ErrNetwork          = errors.New("network error")
	ErrServer           = errors.New("server error")
	ErrRateLimited      = errors.New("rate limited")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
)

// Error carries the failed operation and HTTP status (0 for transport-level
// failures) alongside the sentinel it wraps.
type Error struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("feedapi: %s: %v (status %d)", e.Op, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("feedapi: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// statusError maps an unexpected HTTP status to the sentinel taxonomy.
func statusError(op string, status int) error {
	var sentinel error
	switch {
	case status == 429:
		sentinel = ErrRateLimited
	case status == 401 || status == 403:
		sentinel = ErrPermissionDenied
	case status == 404:
		sentinel = ErrNotFound
	case status >= 500:
		sentinel = ErrServer
	default:
		// Anything else non-2xx is the backend misbehaving; the exact
		// code travels in Error.StatusCode.
		sentinel = ErrServer
	}
	return &Error{Op: op, StatusCode: status, Err: sentinel}
}

// transportError wraps a failed round trip as a network error.
func transportError(op string, err error) error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
}
