//go:build !darwin || !cgo

package coreaudio

import (
	"log/slog"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
)

// HAL is never constructed on this platform.
type HAL struct {
	hal.HAL
}

func New(*slog.Logger) (*HAL, error) {
	return nil, ErrUnavailable
}
