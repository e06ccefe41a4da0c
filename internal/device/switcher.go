package device

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
)

var (
	ErrNoDevices     = errors.New("no devices in scope")
	ErrNotInSnapshot = errors.New("current default device was not in scope when the switcher was created")
)

// Switcher cycles the default device of a scope through the devices that were in
// scope when it was created. The snapshot is never refreshed.
type Switcher struct {
	api     *API
	scope   hal.Scope
	devices []hal.ObjectID
}

func (api *API) NewSwitcher(scope hal.Scope) (*Switcher, error) {
	if !scope.Directional() {
		return nil, fmt.Errorf("switcher: %w", ErrScopeNotAllowed)
	}
	devices, err := api.ListInScope(scope)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("switcher for %s: %w", scope, ErrNoDevices)
	}
	return &Switcher{
		api:     api,
		scope:   scope,
		devices: devices,
	}, nil
}

// Devices returns the snapshot.
func (s *Switcher) Devices() []hal.ObjectID {
	return slices.Clone(s.devices)
}

// Next makes the device after the current default the new default, wrapping around.
// It returns what SetDefault returns; with a single device that is false.
func (s *Switcher) Next() (bool, error) {
	current, ok := s.api.Default(s.scope)
	if !ok {
		return false, nil
	}
	position := slices.Index(s.devices, current)
	if position < 0 {
		return false, fmt.Errorf("device %d: %w", current, ErrNotInSnapshot)
	}
	next := s.devices[(position+1)%len(s.devices)]
	return s.api.SetDefault(next, s.scope)
}
