// Package portaudiohal is a read-only hal.HAL built from a PortAudio device snapshot.
//
// It answers the device list, the default devices, unique ids, names and stream
// configurations. PortAudio cannot change defaults, create aggregate devices or report
// property changes, so those requests fail with hal.StatusUnsupportedOperation.
package portaudiohal

import (
	"fmt"
	"log/slog"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
)

// Device ids start past the system object so the two never collide.
const firstDeviceID hal.ObjectID = 100

type deviceInfo struct {
	uid    string
	name   string
	input  int
	output int
}

type HAL struct {
	logger   *slog.Logger
	devices  []deviceInfo
	defaults map[hal.Selector]hal.ObjectID
}

var _ hal.HAL = (*HAL)(nil)

// New takes a snapshot of the PortAudio devices. Devices plugged in later are not seen.
func New(logger *slog.Logger) (*HAL, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer func() {
		if err := portaudio.Terminate(); err != nil {
			slog.Warn("failed to terminate PortAudio", "err", err)
		}
	}()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list PortAudio devices: %w", err)
	}
	// no default is not an error, the device simply has none
	defaultInput, _ := portaudio.DefaultInputDevice()
	defaultOutput, _ := portaudio.DefaultOutputDevice()

	return fromDeviceInfo(devices, defaultInput, defaultOutput, logger), nil
}

func fromDeviceInfo(devices []*portaudio.DeviceInfo, defaultInput, defaultOutput *portaudio.DeviceInfo, logger *slog.Logger) *HAL {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HAL{
		logger: logger.With(
			"portaudio hal uuid", uuid.New(),
		),
		devices: make([]deviceInfo, len(devices)),
		defaults: map[hal.Selector]hal.ObjectID{
			hal.SelectorDefaultInputDevice:  hal.ObjectUnknown,
			hal.SelectorDefaultOutputDevice: hal.ObjectUnknown,
		},
	}
	for i, d := range devices {
		id := firstDeviceID + hal.ObjectID(i)
		hostAPI := "unknown"
		if d.HostApi != nil {
			hostAPI = d.HostApi.Name
		}
		h.devices[i] = deviceInfo{
			uid:    hostAPI + ":" + d.Name,
			name:   d.Name,
			input:  d.MaxInputChannels,
			output: d.MaxOutputChannels,
		}
		if d == defaultInput {
			h.defaults[hal.SelectorDefaultInputDevice] = id
		}
		if d == defaultOutput {
			h.defaults[hal.SelectorDefaultOutputDevice] = id
		}
	}
	h.logger.Debug("portaudio snapshot taken", "devices", len(h.devices))
	return h
}

func (h *HAL) device(object hal.ObjectID) (deviceInfo, bool) {
	index := int(object) - int(firstDeviceID)
	if index < 0 || index >= len(h.devices) {
		return deviceInfo{}, false
	}
	return h.devices[index], true
}

func (h *HAL) value(object hal.ObjectID, address hal.PropertyAddress) ([]byte, hal.Status) {
	if object == hal.ObjectSystem {
		switch address.Selector {
		case hal.SelectorDevices:
			ids := make([]hal.ObjectID, len(h.devices))
			for i := range ids {
				ids[i] = firstDeviceID + hal.ObjectID(i)
			}
			return hal.EncodeObjectIDs(ids), hal.NoErr
		case hal.SelectorDefaultInputDevice, hal.SelectorDefaultOutputDevice:
			return hal.PutUint32(uint32(h.defaults[address.Selector])), hal.NoErr
		case hal.SelectorPlugInForBundleID:
			return nil, hal.StatusUnsupportedOperation
		}
		return nil, hal.StatusUnknownProperty
	}

	d, ok := h.device(object)
	if !ok {
		return nil, hal.StatusBadObject
	}
	switch address.Selector {
	case hal.SelectorDeviceUID:
		return []byte(d.uid), hal.NoErr
	case hal.SelectorName:
		return []byte(d.name), hal.NoErr
	case hal.SelectorStreamConfiguration:
		var channels int
		switch address.Scope {
		case hal.PropertyScopeInput:
			channels = d.input
		case hal.PropertyScopeOutput:
			channels = d.output
		default:
			return nil, hal.StatusUnknownProperty
		}
		if channels == 0 {
			return hal.EncodeBufferList(nil), hal.NoErr
		}
		return hal.EncodeBufferList(hal.BufferList{{Channels: uint32(channels)}}), hal.NoErr
	}
	return nil, hal.StatusUnknownProperty
}

func (h *HAL) PropertyDataSize(object hal.ObjectID, address hal.PropertyAddress, _ hal.Qualifier) (uint32, error) {
	value, status := h.value(object, address)
	if status != hal.NoErr {
		return 0, status.Err()
	}
	return uint32(len(value)), nil
}

func (h *HAL) PropertyData(object hal.ObjectID, address hal.PropertyAddress, _ hal.Qualifier, data []byte) (uint32, error) {
	value, status := h.value(object, address)
	if status != hal.NoErr {
		return 0, status.Err()
	}
	if len(data) < len(value) {
		return 0, hal.StatusBadPropertySize.Err()
	}
	return uint32(copy(data, value)), nil
}

func (h *HAL) SetPropertyData(hal.ObjectID, hal.PropertyAddress, []byte) error {
	return hal.StatusUnsupportedOperation.Err()
}

func (h *HAL) AddPropertyListener(hal.ObjectID, hal.PropertyAddress, hal.ListenerProc, hal.ListenerToken) error {
	return hal.StatusUnsupportedOperation.Err()
}

func (h *HAL) RemovePropertyListener(hal.ObjectID, hal.PropertyAddress, hal.ListenerToken) error {
	return hal.StatusUnsupportedOperation.Err()
}
