package device

import (
	"testing"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := newTestSystem(t)

	input, ok := s.api.Default(hal.ScopeInput)
	require.True(t, ok)
	assert.Equal(t, s.mic, input)

	output, ok := s.api.Default(hal.ScopeOutput)
	require.True(t, ok)
	assert.Equal(t, s.speaker, output)

	_, ok = s.api.Default(hal.ScopeGlobal)
	assert.False(t, ok)

	s.hal.FailOn(hal.ObjectSystem, hal.SelectorDefaultOutputDevice, hal.StatusUnspecified)
	_, ok = s.api.Default(hal.ScopeOutput)
	assert.False(t, ok)
}

func TestDefaultNone(t *testing.T) {
	api := NewAPI(simulated.New(nil), nil)
	_, ok := api.Default(hal.ScopeOutput)
	assert.False(t, ok)

	changed, err := api.SetDefault(5, hal.ScopeOutput)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSetDefault(t *testing.T) {
	s := newTestSystem(t)

	tests := []struct {
		name    string
		device  hal.ObjectID
		changed bool
	}{
		{"already default", s.speaker, false},
		{"not in scope", s.mic, false},
		{"no channels", s.silent, false},
		{"in scope", s.usb, true},
		{"back", s.speaker, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := s.api.SetDefault(tt.device, hal.ScopeOutput)
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)

			if changed {
				current, ok := s.api.Default(hal.ScopeOutput)
				require.True(t, ok)
				assert.Equal(t, tt.device, current)
			}
		})
	}
}

func TestSetDefaultWriteFailure(t *testing.T) {
	s := newTestSystem(t)

	// FailOn would break the read of the current default too
	api := NewAPI(failingWrites{s.hal}, nil)
	changed, err := api.SetDefault(s.usb, hal.ScopeOutput)
	assert.False(t, changed)
	assert.True(t, hal.IsStatus(err, hal.StatusIllegalOperation))
}

type failingWrites struct {
	*simulated.HAL
}

func (failingWrites) SetPropertyData(hal.ObjectID, hal.PropertyAddress, []byte) error {
	return hal.StatusIllegalOperation.Err()
}

func TestDefaultSource(t *testing.T) {
	s := newTestSystem(t)

	code, ok := s.api.DefaultSourceData(hal.ScopeInput)
	require.True(t, ok)
	assert.Equal(t, fourCC(t, "imic"), code)

	name, ok := s.api.DefaultSourceName(hal.ScopeInput)
	require.True(t, ok)
	assert.Equal(t, "imic", name)

	// the default output has no data source
	_, ok = s.api.DefaultSourceName(hal.ScopeOutput)
	assert.False(t, ok)
}

func TestSwitcherCyclesBack(t *testing.T) {
	s := newTestSystem(t)

	switcher, err := s.api.NewSwitcher(hal.ScopeOutput)
	require.NoError(t, err)
	devices := switcher.Devices()
	require.Len(t, devices, 2)

	original, ok := s.api.Default(hal.ScopeOutput)
	require.True(t, ok)

	for i := range devices {
		changed, err := switcher.Next()
		require.NoError(t, err)
		assert.True(t, changed)

		current, _ := s.api.Default(hal.ScopeOutput)
		assert.Equal(t, devices[(i+1)%len(devices)], current)
	}

	current, _ := s.api.Default(hal.ScopeOutput)
	assert.Equal(t, original, current)
}

func TestSwitcherSnapshot(t *testing.T) {
	s := newTestSystem(t)

	switcher, err := s.api.NewSwitcher(hal.ScopeInput)
	require.NoError(t, err)

	late := s.hal.AddDevice(simulated.DeviceSpec{UID: "late", Input: hal.BufferList{{Channels: 1}}})
	assert.NotContains(t, switcher.Devices(), late)

	// move the default outside the snapshot behind the switcher's back
	_, err = s.api.SetDefault(late, hal.ScopeInput)
	require.NoError(t, err)
	_, err = switcher.Next()
	assert.ErrorIs(t, err, ErrNotInSnapshot)
}

func TestSwitcherErrors(t *testing.T) {
	s := newTestSystem(t)

	_, err := s.api.NewSwitcher(hal.ScopeGlobal)
	assert.ErrorIs(t, err, ErrScopeNotAllowed)

	_, err = NewAPI(simulated.New(nil), nil).NewSwitcher(hal.ScopeOutput)
	assert.ErrorIs(t, err, ErrNoDevices)
}
