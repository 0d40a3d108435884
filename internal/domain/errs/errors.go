// Package errs defines the error kinds shared by the scoreboard renderer.
// Callers match them with errors.Is; every layer wraps with %w.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel error kinds.
var (
	// ErrResourceNotFound reports a reference that resolved to nothing.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrDecode reports a malformed image or font payload.
	ErrDecode = errors.New("decode failed")
	// ErrFormatViolation reports data outside its representable range.
	ErrFormatViolation = errors.New("format violation")
	// ErrInvalidArgument reports a programmer error in call arguments.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotReady reports that startup resources are still loading.
	ErrNotReady = errors.New("not ready")
)

// DecodeError carries the source of a payload that failed to decode.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decode %q failed", e.Source)
	}
	return fmt.Sprintf("decode %q failed: %v", e.Source, e.Err)
}

// Unwrap exposes both the decode kind and the underlying cause.
func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}
