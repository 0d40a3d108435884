package host

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned for calls on a closed connection.
	ErrClosed = errors.New("host connection closed")
	// ErrIncompatibleHost is returned when the host API version does not
	// satisfy the configured constraint.
	ErrIncompatibleHost = errors.New("incompatible host api version")
)

// RemoteError is an error reported by the host for one call.
type RemoteError struct {
	Method  string
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("host %s failed (%d): %s", e.Method, e.Code, e.Message)
}
