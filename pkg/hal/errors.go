package hal

import (
	"errors"
	"fmt"
)

// Status is a platform status code (an OSStatus).
type Status int32

// Status codes used across backends.
const (
	NoErr Status = 0

	StatusUnspecified          Status = 'w'<<24 | 'h'<<16 | 'a'<<8 | 't'
	StatusUnknownProperty      Status = 'w'<<24 | 'h'<<16 | 'o'<<8 | '?'
	StatusBadPropertySize      Status = '!'<<24 | 's'<<16 | 'i'<<8 | 'z'
	StatusIllegalOperation     Status = 'n'<<24 | 'o'<<16 | 'p'<<8 | 'e'
	StatusBadObject            Status = '!'<<24 | 'o'<<16 | 'b'<<8 | 'j'
	StatusUnsupportedOperation Status = 'u'<<24 | 'n'<<16 | 'o'<<8 | 'p'

	StatusUnitInvalidProperty      Status = -10879
	StatusUnitInvalidScope         Status = -10866
	StatusUnitInvalidElement       Status = -10877
	StatusUnitInvalidPropertyValue Status = -10851
)

// Err converts a status into an error, nil for NoErr.
func (s Status) Err() error {
	if s == NoErr {
		return nil
	}
	return &StatusError{Status: s}
}

func (s Status) String() string {
	if s > 0 && isPrintableFourCC(uint32(s)) {
		return fmt.Sprintf("'%s' (%d)", FourCC(uint32(s)), int32(s))
	}
	return fmt.Sprintf("%d", int32(s))
}

// StatusError carries the verbatim status of a failed platform call.
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string {
	return "hal status " + e.Status.String()
}

// IsStatus reports whether err is a StatusError with the given status.
func IsStatus(err error, status Status) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Status == status
}

// StatusOf extracts the platform status from err.
// It returns NoErr for nil and StatusUnspecified for errors that do not carry a status.
func StatusOf(err error) Status {
	if err == nil {
		return NoErr
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return StatusUnspecified
}

// ContractViolation is the panic value raised when the platform reports success
// but breaks a documented invariant (a sentinel handle on success, a misaligned list...).
// These are never recovered by the harness.
type ContractViolation struct {
	Op     string
	Detail string
}

func (c ContractViolation) Error() string {
	return fmt.Sprintf("hal contract violation in %s: %s", c.Op, c.Detail)
}

// Assert panics with a ContractViolation when cond is false.
func Assert(cond bool, op string, format string, args ...any) {
	if !cond {
		panic(ContractViolation{Op: op, Detail: fmt.Sprintf(format, args...)})
	}
}
