package device

import (
	"testing"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSystem struct {
	hal     *simulated.HAL
	api     *API
	mic     hal.ObjectID
	speaker hal.ObjectID
	usb     hal.ObjectID
	silent  hal.ObjectID
}

func fourCC(t *testing.T, s string) uint32 {
	t.Helper()
	code, err := hal.ParseFourCC(s)
	require.NoError(t, err)
	return code
}

func newTestSystem(t *testing.T) testSystem {
	t.Helper()
	h := simulated.New(nil)
	imic := fourCC(t, "imic")
	s := testSystem{hal: h}
	s.mic = h.AddDevice(simulated.DeviceSpec{
		UID:   "BuiltInMicrophoneDevice",
		Name:  "Built-in Microphone",
		Input: hal.BufferList{{Channels: 1}},
		InputSource: &simulated.Source{
			Active: imic,
			Names:  map[uint32]string{imic: "Internal Microphone"},
		},
	})
	s.speaker = h.AddDevice(simulated.DeviceSpec{
		UID:    "BuiltInSpeakerDevice",
		Name:   "Built-in Output",
		Output: hal.BufferList{{Channels: 2}},
	})
	s.usb = h.AddDevice(simulated.DeviceSpec{
		UID:    "usb",
		Name:   "USB Interface",
		Input:  hal.BufferList{{Channels: 2}, {Channels: 2}},
		Output: hal.BufferList{{Channels: 2}},
	})
	s.silent = h.AddDevice(simulated.DeviceSpec{UID: "silent", Name: "No Channels"})
	h.Settle()
	s.api = NewAPI(h, nil)
	return s
}

func TestUniqueIDAndName(t *testing.T) {
	s := newTestSystem(t)

	uid, err := s.api.UniqueID(s.mic, hal.ScopeGlobal)
	require.NoError(t, err)
	assert.Equal(t, "BuiltInMicrophoneDevice", uid)

	name, err := s.api.DisplayName(s.speaker, hal.ScopeOutput)
	require.NoError(t, err)
	assert.Equal(t, "Built-in Output", name)

	_, err = s.api.UniqueID(404, hal.ScopeGlobal)
	assert.True(t, hal.IsStatus(err, hal.StatusBadObject))
}

func TestUnknownObjectPanics(t *testing.T) {
	s := newTestSystem(t)
	assert.Panics(t, func() { s.api.UniqueID(hal.ObjectUnknown, hal.ScopeGlobal) })
	assert.Panics(t, func() { s.api.ActiveSource(hal.ObjectUnknown, hal.ScopeInput) })
}

func TestActiveSource(t *testing.T) {
	s := newTestSystem(t)

	code, err := s.api.ActiveSource(s.mic, hal.ScopeInput)
	require.NoError(t, err)
	assert.Equal(t, "imic", hal.FourCC(code))

	name, err := s.api.ActiveSourceName(s.mic, hal.ScopeInput)
	require.NoError(t, err)
	assert.Equal(t, "Internal Microphone", name)

	_, err = s.api.ActiveSource(s.mic, hal.ScopeGlobal)
	assert.ErrorIs(t, err, ErrScopeNotAllowed)
}

func TestActiveSourceNameWithoutSource(t *testing.T) {
	s := newTestSystem(t)

	var name string
	var err error
	require.NotPanics(t, func() { name, err = s.api.ActiveSourceName(s.speaker, hal.ScopeOutput) })
	assert.Empty(t, name)
	var statusErr *hal.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, hal.StatusUnknownProperty, statusErr.Status)
}

func TestListAll(t *testing.T) {
	s := newTestSystem(t)

	devices, err := s.api.ListAll()
	require.NoError(t, err)
	assert.Equal(t, []hal.ObjectID{s.mic, s.speaker, s.usb, s.silent}, devices)
	for _, device := range devices {
		assert.NotEqual(t, hal.ObjectUnknown, device)
	}
}

func TestListAllEmpty(t *testing.T) {
	api := NewAPI(simulated.New(nil), nil)
	devices, err := api.ListAll()
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestListAllFailure(t *testing.T) {
	s := newTestSystem(t)
	s.hal.FailOn(hal.ObjectSystem, hal.SelectorDevices, hal.StatusUnspecified)

	_, err := s.api.ListAll()
	assert.True(t, hal.IsStatus(err, hal.StatusUnspecified))
}

// sentinelHAL reports a device list containing the unknown object.
type sentinelHAL struct {
	hal.HAL
	data []byte
}

func (h sentinelHAL) PropertyDataSize(hal.ObjectID, hal.PropertyAddress, hal.Qualifier) (uint32, error) {
	return uint32(len(h.data)), nil
}

func (h sentinelHAL) PropertyData(_ hal.ObjectID, _ hal.PropertyAddress, _ hal.Qualifier, data []byte) (uint32, error) {
	return uint32(copy(data, h.data)), nil
}

func TestListAllContractViolations(t *testing.T) {
	withSentinel := NewAPI(sentinelHAL{data: hal.EncodeObjectIDs([]hal.ObjectID{5, hal.ObjectUnknown})}, nil)
	assert.PanicsWithValue(t,
		hal.ContractViolation{Op: "list devices", Detail: "unknown object at index 1"},
		func() { withSentinel.ListAll() },
	)

	misaligned := NewAPI(sentinelHAL{data: make([]byte, 6)}, nil)
	assert.Panics(t, func() { misaligned.ListAll() })
}

func TestChannelCount(t *testing.T) {
	s := newTestSystem(t)

	tests := []struct {
		name     string
		device   hal.ObjectID
		scope    hal.Scope
		channels uint32
	}{
		{"mic input", s.mic, hal.ScopeInput, 1},
		{"mic output", s.mic, hal.ScopeOutput, 0},
		{"usb input sums groups", s.usb, hal.ScopeInput, 4},
		{"usb output", s.usb, hal.ScopeOutput, 2},
		{"silent input", s.silent, hal.ScopeInput, 0},
		{"silent output", s.silent, hal.ScopeOutput, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channels, err := s.api.ChannelCount(tt.device, tt.scope)
			require.NoError(t, err)
			assert.Equal(t, tt.channels, channels)
			assert.Equal(t, tt.channels > 0, s.api.InScope(tt.device, tt.scope))
		})
	}
}

func TestChannelCountFailureIsNotZero(t *testing.T) {
	s := newTestSystem(t)
	s.hal.FailOn(s.usb, hal.SelectorStreamConfiguration, hal.StatusIllegalOperation)

	_, err := s.api.ChannelCount(s.usb, hal.ScopeInput)
	assert.True(t, hal.IsStatus(err, hal.StatusIllegalOperation))
	assert.False(t, s.api.InScope(s.usb, hal.ScopeInput))
}

func TestListInScope(t *testing.T) {
	s := newTestSystem(t)

	inputs, err := s.api.ListInScope(hal.ScopeInput)
	require.NoError(t, err)
	assert.Equal(t, []hal.ObjectID{s.mic, s.usb}, inputs)

	outputs, err := s.api.ListInScope(hal.ScopeOutput)
	require.NoError(t, err)
	assert.Equal(t, []hal.ObjectID{s.speaker, s.usb}, outputs)

	// bidirectional devices are in both, devices in neither have no channels
	assert.Contains(t, inputs, s.usb)
	assert.Contains(t, outputs, s.usb)
	assert.NotContains(t, inputs, s.silent)
	assert.NotContains(t, outputs, s.silent)
}
