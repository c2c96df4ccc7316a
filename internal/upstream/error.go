package upstream

import (
	"errors"
	"fmt"
)

// Error reports a failed call to a third-party service. Message carries the
// human-readable text the service returned, when it returned one.
type Error struct {
	Service    string
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "request failed"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Service, e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Service, e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Describe returns the message suitable for API clients.
func (e *Error) Describe() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s request failed", e.Service)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var upErr *Error
	if errors.As(err, &upErr) {
		return upErr, true
	}
	return nil, false
}
