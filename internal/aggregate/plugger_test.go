package aggregate

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/internal/listener"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSystem(t *testing.T) *simulated.HAL {
	t.Helper()
	h := simulated.New(nil)
	h.AddDevice(simulated.DeviceSpec{UID: "BuiltInMicrophoneDevice", Input: hal.BufferList{{Channels: 1}}})
	h.AddDevice(simulated.DeviceSpec{UID: "BuiltInSpeakerDevice", Output: hal.BufferList{{Channels: 2}}})
	h.Settle()
	return h
}

func newPlugger(t *testing.T, h hal.HAL, scope hal.Scope) *Plugger {
	t.Helper()
	p, err := New(h, Config{Scope: scope, Name: "TestAggregateDevice", Vendor: "example"}, nil)
	require.NoError(t, err)
	p.now = func() time.Time { return time.Unix(0, 1700000000123456789) }
	return p
}

func TestPlugUnplugRoundTrip(t *testing.T) {
	h := newSystem(t)
	before := h.DeviceIDs()

	var notifications atomic.Int32
	l := listener.New(h, hal.ObjectSystem, hal.GlobalAddress(hal.SelectorDevices), func([]hal.PropertyAddress) hal.Status {
		notifications.Add(1)
		return hal.NoErr
	}, nil)
	require.NoError(t, l.Start())
	defer l.Close()

	p := newPlugger(t, h, hal.ScopeOutput)
	assert.False(t, p.Plugged())
	assert.Equal(t, hal.ObjectUnknown, p.DeviceID())

	require.NoError(t, p.Plug())
	assert.True(t, p.Plugged())
	assert.Contains(t, h.DeviceIDs(), p.DeviceID())

	info, ok := h.Aggregate(p.DeviceID())
	require.True(t, ok)
	assert.Equal(t, "TestAggregateDevice_1700000000123456789", info.Name)
	assert.Equal(t, "org.example.TestAggregateDevice_1700000000123456789", info.UID)
	assert.True(t, info.Private)
	assert.False(t, info.Stacked)
	assert.Equal(t, []string{"BuiltInSpeakerDevice"}, info.SubDevices)

	require.NoError(t, p.Unplug())
	assert.Equal(t, hal.ObjectUnknown, p.DeviceID())

	h.Settle()
	assert.Equal(t, before, h.DeviceIDs())
	assert.Equal(t, int32(2), notifications.Load())
}

func TestPlugTwice(t *testing.T) {
	h := newSystem(t)
	p := newPlugger(t, h, hal.ScopeInput)

	require.NoError(t, p.Plug())
	id := p.DeviceID()
	assert.ErrorIs(t, p.Plug(), ErrAlreadyPlugged)
	assert.Equal(t, id, p.DeviceID())

	require.NoError(t, p.Unplug())
	assert.ErrorIs(t, p.Unplug(), ErrNotPlugged)
}

func TestCloseUnplugs(t *testing.T) {
	h := newSystem(t)
	before := h.DeviceIDs()
	p := newPlugger(t, h, hal.ScopeInput)

	require.NoError(t, p.Plug())
	require.NoError(t, p.Close())
	assert.False(t, p.Plugged())
	assert.Equal(t, before, h.DeviceIDs())

	assert.NoError(t, p.Close())
}

func TestPlugWithoutDefaultDevice(t *testing.T) {
	h := simulated.New(nil)
	h.AddDevice(simulated.DeviceSpec{UID: "speaker", Output: hal.BufferList{{Channels: 2}}})
	p := newPlugger(t, h, hal.ScopeInput)

	err := p.Plug()
	var resolution *ResolutionError
	require.ErrorAs(t, err, &resolution)
	assert.ErrorIs(t, err, ErrNoDefaultDevice)
	assert.False(t, p.Plugged())
}

func TestPlugPlatformFailure(t *testing.T) {
	h := newSystem(t)
	p := newPlugger(t, h, hal.ScopeOutput)
	h.FailOn(simulated.PluginID, hal.SelectorCreateAggregateDevice, hal.StatusUnspecified)

	err := p.Plug()
	assert.True(t, hal.IsStatus(err, hal.StatusUnspecified))
	assert.False(t, p.Plugged())
}

func TestUnplugPlatformFailure(t *testing.T) {
	h := newSystem(t)
	p := newPlugger(t, h, hal.ScopeOutput)
	require.NoError(t, p.Plug())

	h.FailOn(simulated.PluginID, hal.SelectorDestroyAggregateDevice, hal.StatusIllegalOperation)
	assert.True(t, hal.IsStatus(p.Unplug(), hal.StatusIllegalOperation))
	assert.True(t, p.Plugged())

	h.ClearFailures()
	assert.NoError(t, p.Unplug())
}

func TestPluginUnavailable(t *testing.T) {
	h := newSystem(t)
	h.FailOn(hal.ObjectSystem, hal.SelectorPlugInForBundleID, hal.StatusUnknownProperty)

	_, err := New(h, DefaultConfig(hal.ScopeOutput), nil)
	var resolution *ResolutionError
	require.ErrorAs(t, err, &resolution)
	assert.True(t, errors.Is(err, ErrPluginUnavailable))
	assert.True(t, hal.IsStatus(err, hal.StatusUnknownProperty))
}

func TestGlobalScopeRejected(t *testing.T) {
	_, err := New(newSystem(t), DefaultConfig(hal.ScopeGlobal), nil)
	assert.Error(t, err)
}

// unknownPlugin resolves the plug-in to the unknown object.
type unknownPlugin struct {
	*simulated.HAL
}

func (unknownPlugin) PropertyData(_ hal.ObjectID, _ hal.PropertyAddress, _ hal.Qualifier, data []byte) (uint32, error) {
	return uint32(copy(data, hal.PutUint32(uint32(hal.ObjectUnknown)))), nil
}

func TestPluginSentinelPanics(t *testing.T) {
	h := unknownPlugin{newSystem(t)}
	assert.Panics(t, func() { New(h, DefaultConfig(hal.ScopeOutput), nil) })
}

// The default device is used as the only sub-device even when it is an aggregate itself.
func TestAggregateDefaultIsNotExpanded(t *testing.T) {
	h := newSystem(t)
	first := newPlugger(t, h, hal.ScopeOutput)
	require.NoError(t, first.Plug())
	defer first.Close()

	address := hal.GlobalAddress(hal.SelectorDefaultOutputDevice)
	require.NoError(t, h.SetPropertyData(hal.ObjectSystem, address, hal.PutUint32(uint32(first.DeviceID()))))

	second := newPlugger(t, h, hal.ScopeOutput)
	second.now = func() time.Time { return time.Unix(0, 42) }
	require.NoError(t, second.Plug())
	defer second.Close()

	firstInfo, _ := h.Aggregate(first.DeviceID())
	secondInfo, ok := h.Aggregate(second.DeviceID())
	require.True(t, ok)
	assert.Equal(t, []string{firstInfo.UID}, secondInfo.SubDevices)
}
