package device

import (
	"fmt"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
)

// ListAll returns every device the system knows about, in platform order.
// No devices is an empty list, not an error.
func (api *API) ListAll() ([]hal.ObjectID, error) {
	devices, err := Fetch(api.hal, hal.ObjectSystem, hal.GlobalAddress(hal.SelectorDevices), nil, decodeDeviceList)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return devices, nil
}

func decodeDeviceList(data []byte) ([]hal.ObjectID, error) {
	hal.Assert(len(data)%hal.ObjectIDSize == 0, "list devices", "%d bytes is not a whole number of handles", len(data))
	devices, err := hal.DecodeObjectIDs(data)
	if err != nil {
		return nil, err
	}
	for i, device := range devices {
		hal.Assert(device != hal.ObjectUnknown, "list devices", "unknown object at index %d", i)
	}
	return devices, nil
}

// ListInScope returns the devices with at least one channel in the scope.
func (api *API) ListInScope(scope hal.Scope) ([]hal.ObjectID, error) {
	devices, err := api.ListAll()
	if err != nil {
		return nil, err
	}

	inScope := make([]hal.ObjectID, 0, len(devices))
	for _, device := range devices {
		if api.InScope(device, scope) {
			inScope = append(inScope, device)
		}
	}
	return inScope, nil
}

// ChannelCount sums the channels of every group in the device's stream configuration.
// A failed query is returned as an error, never as zero channels.
func (api *API) ChannelCount(device hal.ObjectID, scope hal.Scope) (uint32, error) {
	requireDevice(device, "channel count")
	addr, err := directionalAddress(hal.SelectorStreamConfiguration, scope)
	if err != nil {
		return 0, err
	}
	streams, err := Fetch(api.hal, device, addr, nil, hal.DecodeBufferList)
	if err != nil {
		return 0, fmt.Errorf("reading %s stream configuration of device %d: %w", scope, device, err)
	}
	return streams.Channels(), nil
}

// InScope reports whether the device has channels in the scope.
// Query failures count as not in scope.
func (api *API) InScope(device hal.ObjectID, scope hal.Scope) bool {
	channels, err := api.ChannelCount(device, scope)
	if err != nil {
		api.logger.Debug("channel count query failed", "device", device, "scope", scope, "err", err)
		return false
	}
	return channels > 0
}
