// Package device reads and writes device properties through a hal.HAL:
// attributes of a single device, the device list, and the system default devices.
package device

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/google/uuid"
)

// ErrScopeNotAllowed is returned when a per-direction property is addressed in the global scope.
var ErrScopeNotAllowed = errors.New("property requires the input or output scope")

// API is the entry point for device queries against one platform.
type API struct {
	logger *slog.Logger
	hal    hal.HAL
}

func NewAPI(h hal.HAL, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		logger: logger.With(
			"device api uuid", uuid.New(),
		),
		hal: h,
	}
}

// HAL returns the platform the API talks to.
func (api *API) HAL() hal.HAL {
	return api.hal
}

func address(selector hal.Selector, scope hal.Scope) hal.PropertyAddress {
	return hal.PropertyAddress{
		Selector: selector,
		Scope:    scope.PropertyScope(),
		Element:  hal.ElementMain,
	}
}

// directionalAddress builds an address for a property that only exists per direction.
func directionalAddress(selector hal.Selector, scope hal.Scope) (hal.PropertyAddress, error) {
	if !scope.Directional() {
		return hal.PropertyAddress{}, fmt.Errorf("%s: %w", selector, ErrScopeNotAllowed)
	}
	return address(selector, scope), nil
}

func requireDevice(device hal.ObjectID, op string) {
	hal.Assert(device != hal.ObjectUnknown, op, "called with the unknown object")
}

// UniqueID returns the identifier of the device that stays stable across reboots.
func (api *API) UniqueID(device hal.ObjectID, scope hal.Scope) (string, error) {
	requireDevice(device, "unique id")
	uid, err := Fetch(api.hal, device, address(hal.SelectorDeviceUID, scope), nil, decodeString)
	if err != nil {
		return "", fmt.Errorf("reading unique id of device %d: %w", device, err)
	}
	return uid, nil
}

// DisplayName returns the human-readable name of the device.
func (api *API) DisplayName(device hal.ObjectID, scope hal.Scope) (string, error) {
	requireDevice(device, "display name")
	name, err := Fetch(api.hal, device, address(hal.SelectorName, scope), nil, decodeString)
	if err != nil {
		return "", fmt.Errorf("reading name of device %d: %w", device, err)
	}
	return name, nil
}

// ActiveSource returns the code of the currently selected data source
// (the physical path, e.g. internal microphone or line in).
func (api *API) ActiveSource(device hal.ObjectID, scope hal.Scope) (uint32, error) {
	requireDevice(device, "active source")
	addr, err := directionalAddress(hal.SelectorDataSource, scope)
	if err != nil {
		return 0, err
	}
	code, err := readUint32(api.hal, device, addr, nil)
	if err != nil {
		return 0, fmt.Errorf("reading data source of device %d: %w", device, err)
	}
	return code, nil
}

// ActiveSourceName translates the active data source code into its label.
func (api *API) ActiveSourceName(device hal.ObjectID, scope hal.Scope) (string, error) {
	code, err := api.ActiveSource(device, scope)
	if err != nil {
		return "", err
	}

	translation := hal.Translation{Input: hal.PutUint32(code)}
	name, err := Fetch(api.hal, device, address(hal.SelectorDataSourceNameForID, scope), translation, decodeString)
	if err != nil {
		return "", fmt.Errorf("translating data source %q of device %d: %w", hal.FourCC(code), device, err)
	}
	return name, nil
}
