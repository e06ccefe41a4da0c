package hal

import (
	"fmt"
	"strings"
)

// Scope is the direction the harness is interested in.
// It picks the property namespace of device properties and the bus of a processing unit.
type Scope int

const (
	ScopeInput Scope = iota
	ScopeOutput
	// ScopeGlobal addresses device-wide attributes spanning both directions.
	ScopeGlobal
)

func (s Scope) String() string {
	switch s {
	case ScopeInput:
		return "input"
	case ScopeOutput:
		return "output"
	case ScopeGlobal:
		return "global"
	}
	return "?"
}

// PropertyScope is the namespace device properties are addressed in for this scope.
func (s Scope) PropertyScope() PropertyScope {
	switch s {
	case ScopeInput:
		return PropertyScopeInput
	case ScopeOutput:
		return PropertyScopeOutput
	}
	return PropertyScopeGlobal
}

// Directional reports whether the scope is Input or Output.
func (s Scope) Directional() bool {
	return s == ScopeInput || s == ScopeOutput
}

// DefaultDeviceSelector is the system property holding the default device for the scope.
func (s Scope) DefaultDeviceSelector() (Selector, error) {
	switch s {
	case ScopeInput:
		return SelectorDefaultInputDevice, nil
	case ScopeOutput:
		return SelectorDefaultOutputDevice, nil
	}
	return 0, fmt.Errorf("no default device for scope %s", s)
}

// ParseScope converts "input", "output" or "global" (case-insensitive) into a Scope.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(s) {
	case "input", "in":
		return ScopeInput, nil
	case "output", "out":
		return ScopeOutput, nil
	case "global":
		return ScopeGlobal, nil
	}
	return 0, fmt.Errorf("unknown scope %q", s)
}

// GlobalAddress builds an address on the main element of the global scope.
func GlobalAddress(selector Selector) PropertyAddress {
	return PropertyAddress{
		Selector: selector,
		Scope:    PropertyScopeGlobal,
		Element:  ElementMain,
	}
}
