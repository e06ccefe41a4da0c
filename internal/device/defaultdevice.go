package device

import (
	"fmt"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
)

// Default returns the system default device for the scope.
// It reports false when the query fails, when there is no default, and for the global scope.
func (api *API) Default(scope hal.Scope) (hal.ObjectID, bool) {
	selector, err := scope.DefaultDeviceSelector()
	if err != nil {
		return hal.ObjectUnknown, false
	}
	id, err := readUint32(api.hal, hal.ObjectSystem, hal.GlobalAddress(selector), nil)
	if err != nil {
		api.logger.Debug("default device query failed", "scope", scope, "err", err)
		return hal.ObjectUnknown, false
	}
	device := hal.ObjectID(id)
	return device, device != hal.ObjectUnknown
}

// SetDefault makes device the default of the scope.
//
// The platform accepts any value, so nothing is written (and false is returned) when there
// is no current default, when device already is the default, or when device has no channels
// in the scope.
func (api *API) SetDefault(device hal.ObjectID, scope hal.Scope) (bool, error) {
	current, ok := api.Default(scope)
	if !ok || current == device || !api.InScope(device, scope) {
		return false, nil
	}

	selector, err := scope.DefaultDeviceSelector()
	if err != nil {
		return false, err
	}
	if err := api.hal.SetPropertyData(hal.ObjectSystem, hal.GlobalAddress(selector), hal.PutUint32(uint32(device))); err != nil {
		return false, fmt.Errorf("setting default %s device to %d: %w", scope, device, err)
	}
	api.logger.Info("default device changed", "scope", scope, "from", current, "to", device)
	return true, nil
}

// DefaultSourceData returns the data source code of the scope's default device.
// It reports false when there is no default device, no source, or the source is zero.
func (api *API) DefaultSourceData(scope hal.Scope) (uint32, bool) {
	device, ok := api.Default(scope)
	if !ok {
		return 0, false
	}
	code, err := api.ActiveSource(device, scope)
	if err != nil || code == 0 {
		return 0, false
	}
	return code, true
}

// DefaultSourceName renders DefaultSourceData as its four characters.
func (api *API) DefaultSourceName(scope hal.Scope) (string, bool) {
	code, ok := api.DefaultSourceData(scope)
	if !ok {
		return "", false
	}
	return hal.FourCC(code), true
}
