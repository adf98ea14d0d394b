package mediathek

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrInvalidUserAgent    = errors.New("mediathek: invalid user agent")
	ErrUpstreamUnavailable = errors.New("mediathek: host unreachable or transport failure")
	ErrUpstreamError       = errors.New("mediathek: unexpected HTTP status")
	ErrBadResponse         = errors.New("mediathek: invalid response format")
	ErrQueryRejected       = errors.New("mediathek: query rejected")
)

// APIError wraps a sentinel error with request context.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}
