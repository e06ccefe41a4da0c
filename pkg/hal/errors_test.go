package hal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusErr(t *testing.T) {
	assert.NoError(t, NoErr.Err())

	err := StatusUnknownProperty.Err()
	require.Error(t, err)
	assert.Equal(t, "hal status 'who?' (2003332927)", err.Error())
	assert.True(t, IsStatus(err, StatusUnknownProperty))
	assert.False(t, IsStatus(err, StatusBadObject))

	negative := StatusUnitInvalidElement.Err()
	assert.Equal(t, "hal status -10877", negative.Error())
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, NoErr, StatusOf(nil))

	wrapped := fmt.Errorf("reading device list: %w", StatusBadObject.Err())
	assert.Equal(t, StatusBadObject, StatusOf(wrapped))
	assert.True(t, IsStatus(wrapped, StatusBadObject))

	assert.Equal(t, StatusUnspecified, StatusOf(errors.New("plain")))
}

func TestAssert(t *testing.T) {
	assert.NotPanics(t, func() { Assert(true, "op", "never") })
	assert.PanicsWithValue(t,
		ContractViolation{Op: "list devices", Detail: "sentinel at index 2"},
		func() { Assert(false, "list devices", "sentinel at index %d", 2) },
	)
}

func TestScope(t *testing.T) {
	tests := []struct {
		in    string
		scope Scope
		prop  PropertyScope
	}{
		{"input", ScopeInput, PropertyScopeInput},
		{"Output", ScopeOutput, PropertyScopeOutput},
		{"global", ScopeGlobal, PropertyScopeGlobal},
	}
	for _, tt := range tests {
		scope, err := ParseScope(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.scope, scope)
		assert.Equal(t, tt.prop, scope.PropertyScope())
	}

	_, err := ParseScope("sideways")
	assert.Error(t, err)

	_, err = ScopeGlobal.DefaultDeviceSelector()
	assert.Error(t, err)

	selector, err := ScopeInput.DefaultDeviceSelector()
	require.NoError(t, err)
	assert.Equal(t, SelectorDefaultInputDevice, selector)
}
