// Package hal describes the audio hardware-abstraction layer consumed by the harness.
//
// Everything the harness knows about the platform goes through the HAL interface:
// typed property reads with two-phase size-then-fetch semantics, property writes,
// asynchronous property listeners, and (optionally) output processing units.
// Backends live elsewhere: a CoreAudio backend for darwin, a read-only PortAudio
// backend, and an in-memory simulation used by tests and fixtures.
package hal

import "fmt"

// ObjectID is an opaque handle issued by the platform for an audio object
// (the system object, a device, a plug-in).
type ObjectID uint32

const (
	// ObjectUnknown is the sentinel meaning "no object".
	ObjectUnknown ObjectID = 0

	// ObjectSystem is the object owning the device list and the default devices.
	ObjectSystem ObjectID = 1
)

// ObjectIDSize is the number of bytes an ObjectID occupies in property data.
const ObjectIDSize = 4

// Selector names a property, as a four character code.
type Selector uint32

func (s Selector) String() string {
	return printableFourCC(uint32(s))
}

// PropertyScope is the directional namespace a property address lives in.
type PropertyScope uint32

func (s PropertyScope) String() string {
	return printableFourCC(uint32(s))
}

// Element selects a sub-unit of an object. The harness always addresses the main element.
type Element uint32

// PropertyAddress is the (selector, scope, element) triple identifying a property.
type PropertyAddress struct {
	Selector Selector
	Scope    PropertyScope
	Element  Element
}

func (a PropertyAddress) String() string {
	return fmt.Sprintf("%s/%s/%d", a.Selector, a.Scope, a.Element)
}

// Qualifier is extra input attached to a property query.
// It is either a Translation or a Dictionary.
type Qualifier interface {
	isQualifier()
}

// Translation is the input half of a value translation request
// (e.g. source code -> source name, bundle id -> plug-in).
// The translated value is written into the data buffer of the query.
type Translation struct {
	Input []byte
}

func (Translation) isQualifier() {}

// Dictionary is a key/value configuration bundle handed to the platform,
// e.g. the description of an aggregate device.
//
// Values are string, int32 or []Dictionary.
type Dictionary map[string]any

func (Dictionary) isQualifier() {}

// ListenerToken correlates a listener registration with the notifications delivered for it.
type ListenerToken uint64

// ListenerProc is invoked by the platform, on a platform-controlled goroutine,
// whenever one or more properties registered under the token change.
// The addresses slice must be treated as read-only.
type ListenerProc func(object ObjectID, addresses []PropertyAddress, token ListenerToken) Status

// HAL is the platform's audio hardware-abstraction layer.
//
// All calls are synchronous. Property data is exchanged as raw bytes in the platform's
// native layout; string-valued properties are delivered as UTF-8.
type HAL interface {
	// PropertyDataSize reports how many bytes PropertyData will need for the address.
	PropertyDataSize(object ObjectID, address PropertyAddress, qualifier Qualifier) (uint32, error)

	// PropertyData fills data (which is also read as input for in/out requests)
	// and returns the number of bytes written.
	PropertyData(object ObjectID, address PropertyAddress, qualifier Qualifier, data []byte) (uint32, error)

	SetPropertyData(object ObjectID, address PropertyAddress, data []byte) error

	AddPropertyListener(object ObjectID, address PropertyAddress, proc ListenerProc, token ListenerToken) error
	RemovePropertyListener(object ObjectID, address PropertyAddress, token ListenerToken) error
}

// UnitKind selects which output processing unit to instantiate.
type UnitKind int

const (
	// UnitHALOutput talks to any device and supports input and output.
	UnitHALOutput UnitKind = iota
	// UnitDefaultOutput follows the system default output device.
	UnitDefaultOutput
)

func (k UnitKind) String() string {
	switch k {
	case UnitHALOutput:
		return "hal-output"
	case UnitDefaultOutput:
		return "default-output"
	}
	return "?"
}

// UnitScope is the side of a processing unit's signal-flow graph a property applies to.
type UnitScope uint32

const (
	UnitScopeGlobal UnitScope = 0
	UnitScopeInput  UnitScope = 1
	UnitScopeOutput UnitScope = 2
)

// Unit is an audio processing unit.
type Unit interface {
	Property(selector Selector, scope UnitScope, element Element, data []byte) (uint32, error)
	SetProperty(selector Selector, scope UnitScope, element Element, data []byte) error
	Dispose() error
}

// UnitFactory is implemented by backends that can create processing units.
type UnitFactory interface {
	NewOutputUnit(kind UnitKind) (Unit, error)
}
