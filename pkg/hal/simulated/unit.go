package simulated

import (
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
)

type busKey struct {
	scope   hal.UnitScope
	element hal.Element
}

// The two routing flags of an output unit: input on bus 1, output on bus 0.
var (
	inputBus  = busKey{hal.UnitScopeInput, hal.ElementInputBus}
	outputBus = busKey{hal.UnitScopeOutput, hal.ElementOutputBus}
)

type unit struct {
	hal  *HAL
	kind hal.UnitKind

	mu        sync.Mutex
	disposed  bool
	enabled   map[busKey]bool
	device    hal.ObjectID
	frameSize uint32
}

// NewOutputUnit creates an output unit bound to the default output device,
// with output enabled and input disabled.
func (h *HAL) NewOutputUnit(kind hal.UnitKind) (hal.Unit, error) {
	if kind != hal.UnitHALOutput && kind != hal.UnitDefaultOutput {
		return nil, hal.StatusUnitInvalidPropertyValue.Err()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return &unit{
		hal:  h,
		kind: kind,
		enabled: map[busKey]bool{
			inputBus:  false,
			outputBus: true,
		},
		device:    h.defaults[hal.SelectorDefaultOutputDevice],
		frameSize: h.bufferFrameSize,
	}, nil
}

func (u *unit) Property(selector hal.Selector, scope hal.UnitScope, element hal.Element, data []byte) (uint32, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.disposed {
		return 0, hal.StatusBadObject.Err()
	}

	var value uint32
	switch selector {
	case hal.SelectorUnitEnableIO:
		bus, status := u.bus(scope, element)
		if status != hal.NoErr {
			return 0, status.Err()
		}
		value = boolValue(u.enabled[bus])
	case hal.SelectorUnitHasIO:
		bus, status := u.bus(scope, element)
		if status != hal.NoErr {
			return 0, status.Err()
		}
		value = boolValue(u.enabled[bus] && u.deviceHasChannels(bus))
	case hal.SelectorUnitCurrentDevice:
		if scope != hal.UnitScopeGlobal {
			return 0, hal.StatusUnitInvalidScope.Err()
		}
		value = uint32(u.device)
	case hal.SelectorBufferFrameSize:
		if scope > hal.UnitScopeOutput {
			return 0, hal.StatusUnitInvalidScope.Err()
		}
		if element != hal.ElementOutputBus && element != hal.ElementInputBus {
			return 0, hal.StatusUnitInvalidElement.Err()
		}
		value = u.frameSize
	default:
		return 0, hal.StatusUnitInvalidProperty.Err()
	}

	if len(data) < 4 {
		return 0, hal.StatusBadPropertySize.Err()
	}
	return uint32(copy(data, hal.PutUint32(value))), nil
}

func (u *unit) SetProperty(selector hal.Selector, scope hal.UnitScope, element hal.Element, data []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.disposed {
		return hal.StatusBadObject.Err()
	}
	value, err := hal.Uint32(data)
	if err != nil {
		return hal.StatusBadPropertySize.Err()
	}

	switch selector {
	case hal.SelectorUnitEnableIO:
		bus, status := u.bus(scope, element)
		if status != hal.NoErr {
			return status.Err()
		}
		u.enabled[bus] = value != 0
	case hal.SelectorUnitCurrentDevice:
		if scope != hal.UnitScopeGlobal {
			return hal.StatusUnitInvalidScope.Err()
		}
		if u.kind == hal.UnitDefaultOutput {
			return hal.StatusUnitInvalidProperty.Err()
		}
		u.hal.mu.Lock()
		exists := u.hal.findLocked(hal.ObjectID(value)) != nil
		u.hal.mu.Unlock()
		if !exists {
			return hal.StatusUnitInvalidPropertyValue.Err()
		}
		u.device = hal.ObjectID(value)
	case hal.SelectorBufferFrameSize:
		if value == 0 {
			return hal.StatusUnitInvalidPropertyValue.Err()
		}
		u.frameSize = value
	default:
		return hal.StatusUnitInvalidProperty.Err()
	}
	return nil
}

func (u *unit) Dispose() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.disposed {
		return hal.StatusBadObject.Err()
	}
	u.disposed = true
	return nil
}

// bus validates a routing flag address. The default output unit has no input side.
func (u *unit) bus(scope hal.UnitScope, element hal.Element) (busKey, hal.Status) {
	key := busKey{scope, element}
	switch key {
	case outputBus:
		return key, hal.NoErr
	case inputBus:
		if u.kind == hal.UnitDefaultOutput {
			return key, hal.StatusUnitInvalidProperty
		}
		return key, hal.NoErr
	}
	if scope != hal.UnitScopeInput && scope != hal.UnitScopeOutput {
		return key, hal.StatusUnitInvalidScope
	}
	return key, hal.StatusUnitInvalidElement
}

func (u *unit) deviceHasChannels(bus busKey) bool {
	u.hal.mu.Lock()
	defer u.hal.mu.Unlock()
	d := u.hal.findLocked(u.device)
	if d == nil {
		return false
	}
	if bus == inputBus {
		return d.spec.Input.Channels() > 0
	}
	return d.spec.Output.Channels() > 0
}

func boolValue(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
