package listener

import (
	"testing"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/stretchr/testify/assert"
)

func registered(t *testing.T, address hal.PropertyAddress, callback Callback) hal.ListenerToken {
	t.Helper()
	l := New(nil, hal.ObjectSystem, address, callback, nil)
	token := registerListener(l)
	t.Cleanup(func() { unregisterListener(token) })
	return token
}

func TestDispatchForwardsEveryAddress(t *testing.T) {
	address := hal.GlobalAddress(hal.SelectorDefaultInputDevice)
	var got []hal.PropertyAddress
	token := registered(t, address, func(addresses []hal.PropertyAddress) hal.Status {
		got = addresses
		return hal.StatusUnspecified
	})

	delivered := []hal.PropertyAddress{address, address}
	status := dispatch(hal.ObjectSystem, delivered, token)
	assert.Equal(t, hal.StatusUnspecified, status, "callback status is returned unchanged")
	assert.Equal(t, delivered, got)
}

func TestDispatchStaleToken(t *testing.T) {
	called := false
	token := registered(t, hal.GlobalAddress(hal.SelectorDevices), func([]hal.PropertyAddress) hal.Status {
		called = true
		return hal.NoErr
	})
	unregisterListener(token)

	assert.Equal(t, hal.NoErr, dispatch(hal.ObjectSystem, []hal.PropertyAddress{hal.GlobalAddress(hal.SelectorDevices)}, token))
	assert.False(t, called)
}

func TestDispatchContractViolations(t *testing.T) {
	address := hal.GlobalAddress(hal.SelectorDefaultOutputDevice)
	token := registered(t, address, func([]hal.PropertyAddress) hal.Status { return hal.NoErr })

	assert.Panics(t, func() {
		dispatch(42, []hal.PropertyAddress{address}, token)
	}, "wrong object")

	assert.Panics(t, func() {
		dispatch(hal.ObjectSystem, []hal.PropertyAddress{address, hal.GlobalAddress(hal.SelectorDevices)}, token)
	}, "wrong selector")
}

func TestTokensAreUnique(t *testing.T) {
	seen := map[hal.ListenerToken]bool{}
	for i := 0; i < 100; i++ {
		token := registered(t, hal.GlobalAddress(hal.SelectorDevices), nil)
		assert.False(t, seen[token])
		assert.NotZero(t, token)
		seen[token] = true
	}
}
