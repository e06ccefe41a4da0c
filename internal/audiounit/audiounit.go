// Package audiounit controls the I/O routing of output processing units.
package audiounit

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/internal/device"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/google/uuid"
)

var (
	ErrNoUnits         = errors.New("backend cannot create processing units")
	ErrNoDefaultDevice = errors.New("no default device")
)

// bus maps a direction to the unit scope and element of its routing flag.
func bus(scope hal.Scope) (hal.UnitScope, hal.Element, error) {
	switch scope {
	case hal.ScopeInput:
		return hal.UnitScopeInput, hal.ElementInputBus, nil
	case hal.ScopeOutput:
		return hal.UnitScopeOutput, hal.ElementOutputBus, nil
	}
	return 0, 0, fmt.Errorf("unit routing for scope %s: %w", scope, device.ErrScopeNotAllowed)
}

// EnableScope turns input or output of the unit on or off.
func EnableScope(unit hal.Unit, scope hal.Scope, enabled bool) error {
	unitScope, element, err := bus(scope)
	if err != nil {
		return err
	}
	var value uint32
	if enabled {
		value = 1
	}
	if err := unit.SetProperty(hal.SelectorUnitEnableIO, unitScope, element, hal.PutUint32(value)); err != nil {
		return fmt.Errorf("failed to set %s enabled=%t: %w", scope, enabled, err)
	}
	return nil
}

// ScopeEnabled reports whether the unit actually does I/O in the direction.
func ScopeEnabled(unit hal.Unit, scope hal.Scope) (bool, error) {
	unitScope, element, err := bus(scope)
	if err != nil {
		return false, err
	}
	value, err := property(unit, hal.SelectorUnitHasIO, unitScope, element)
	if err != nil {
		return false, fmt.Errorf("failed to read %s I/O state: %w", scope, err)
	}
	return value != 0, nil
}

// BufferFrameSize reads the negotiated buffer size.
// The element comes from scope; propertyScope picks the side of the unit and is
// independent of it.
func BufferFrameSize(unit hal.Unit, scope hal.Scope, propertyScope hal.UnitScope) (uint32, error) {
	_, element, err := bus(scope)
	if err != nil {
		return 0, err
	}
	frames, err := property(unit, hal.SelectorBufferFrameSize, propertyScope, element)
	if err != nil {
		return 0, fmt.Errorf("failed to read buffer frame size of the %s bus: %w", scope, err)
	}
	return frames, nil
}

func property(unit hal.Unit, selector hal.Selector, scope hal.UnitScope, element hal.Element) (uint32, error) {
	data := make([]byte, 4)
	n, err := unit.Property(selector, scope, element, data)
	if err != nil {
		return 0, err
	}
	return hal.Uint32(data[:n])
}

// Unit is an output processing unit owned by the harness.
type Unit struct {
	logger *slog.Logger
	unit   hal.Unit
	kind   hal.UnitKind
}

// Factory returns the unit factory of the backend, if it has one.
func Factory(h hal.HAL) (hal.UnitFactory, error) {
	factory, ok := h.(hal.UnitFactory)
	if !ok {
		return nil, ErrNoUnits
	}
	return factory, nil
}

func NewUnit(factory hal.UnitFactory, kind hal.UnitKind, logger *slog.Logger) (*Unit, error) {
	if logger == nil {
		logger = slog.Default()
	}
	unit, err := factory.NewOutputUnit(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s unit: %w", kind, err)
	}
	return &Unit{
		logger: logger.With(
			"unit uuid", uuid.New(),
			"kind", kind,
		),
		unit: unit,
		kind: kind,
	}, nil
}

// DefaultUnit creates a HAL output unit doing I/O in scope only, on the default device of scope.
func DefaultUnit(h hal.HAL, scope hal.Scope, logger *slog.Logger) (*Unit, error) {
	if !scope.Directional() {
		return nil, fmt.Errorf("default unit: %w", device.ErrScopeNotAllowed)
	}
	factory, err := Factory(h)
	if err != nil {
		return nil, err
	}
	current, ok := device.NewAPI(h, logger).Default(scope)
	if !ok {
		return nil, fmt.Errorf("default %s unit: %w", scope, ErrNoDefaultDevice)
	}

	unit, err := NewUnit(factory, hal.UnitHALOutput, logger)
	if err != nil {
		return nil, err
	}
	other := hal.ScopeOutput
	if scope == hal.ScopeOutput {
		other = hal.ScopeInput
	}
	if err := unit.EnableScope(scope, true); err != nil {
		unit.Close()
		return nil, err
	}
	if err := unit.EnableScope(other, false); err != nil {
		unit.Close()
		return nil, err
	}
	if err := unit.SetCurrentDevice(current); err != nil {
		unit.Close()
		return nil, err
	}
	return unit, nil
}

func (u *Unit) Kind() hal.UnitKind {
	return u.kind
}

func (u *Unit) EnableScope(scope hal.Scope, enabled bool) error {
	return EnableScope(u.unit, scope, enabled)
}

func (u *Unit) ScopeEnabled(scope hal.Scope) (bool, error) {
	return ScopeEnabled(u.unit, scope)
}

func (u *Unit) BufferFrameSize(scope hal.Scope, propertyScope hal.UnitScope) (uint32, error) {
	return BufferFrameSize(u.unit, scope, propertyScope)
}

// CurrentDevice is the device the unit talks to.
func (u *Unit) CurrentDevice() (hal.ObjectID, error) {
	id, err := property(u.unit, hal.SelectorUnitCurrentDevice, hal.UnitScopeGlobal, 0)
	if err != nil {
		return hal.ObjectUnknown, fmt.Errorf("failed to read current device: %w", err)
	}
	return hal.ObjectID(id), nil
}

func (u *Unit) SetCurrentDevice(device hal.ObjectID) error {
	if err := u.unit.SetProperty(hal.SelectorUnitCurrentDevice, hal.UnitScopeGlobal, 0, hal.PutUint32(uint32(device))); err != nil {
		u.logger.Error("failed to set current device", "device", device, "err", err)
		return fmt.Errorf("failed to set current device to %d: %w", device, err)
	}
	return nil
}

// Close disposes the unit.
func (u *Unit) Close() error {
	if err := u.unit.Dispose(); err != nil {
		return fmt.Errorf("failed to dispose %s unit: %w", u.kind, err)
	}
	u.logger.Debug("unit disposed")
	return nil
}
