package simulated

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML description of a simulated system.
//
//	devices:
//	  - uid: BuiltInMicrophoneDevice
//	    name: MacBook Pro Microphone
//	    input: [1]
//	    sources:
//	      input:
//	        active: imic
//	        names: {imic: Internal Microphone}
//	defaults:
//	  input: BuiltInMicrophoneDevice
//	buffer_frame_size: 512
type Fixture struct {
	Devices         []FixtureDevice `yaml:"devices"`
	Defaults        FixtureDefaults `yaml:"defaults"`
	BufferFrameSize uint32          `yaml:"buffer_frame_size"`
}

// FixtureDevice describes one device. Input and Output list the channels of each group.
type FixtureDevice struct {
	UID     string                   `yaml:"uid"`
	Name    string                   `yaml:"name"`
	Input   []uint32                 `yaml:"input"`
	Output  []uint32                 `yaml:"output"`
	Sources map[string]FixtureSource `yaml:"sources"` // keyed by "input" or "output"
}

// FixtureSource lists data sources by their four character codes.
type FixtureSource struct {
	Active string            `yaml:"active"`
	Names  map[string]string `yaml:"names"`
}

// FixtureDefaults names the default devices by unique id.
// Empty means the first device with channels in that direction.
type FixtureDefaults struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// BuiltinFixture is a small laptop-like system with one microphone, one speaker pair and
// one USB interface doing both directions.
const BuiltinFixture = `
devices:
  - uid: BuiltInMicrophoneDevice
    name: Built-in Microphone
    input: [1]
    sources:
      input:
        active: imic
        names:
          imic: Internal Microphone
          emic: External Microphone
  - uid: BuiltInSpeakerDevice
    name: Built-in Output
    output: [2]
    sources:
      output:
        active: ispk
        names:
          ispk: Internal Speakers
          hdpn: Headphones
  - uid: AppleUSBAudioEngine:Focusrite:Scarlett 2i2:1
    name: Scarlett 2i2 USB
    input: [2]
    output: [2]
defaults:
  input: BuiltInMicrophoneDevice
  output: BuiltInSpeakerDevice
buffer_frame_size: 512
`

// ParseFixture decodes a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &fixture, nil
}

// LoadFixture reads a YAML fixture from path and builds the simulation it describes.
// An empty path loads BuiltinFixture.
func LoadFixture(path string, logger *slog.Logger) (*HAL, error) {
	data := []byte(BuiltinFixture)
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read fixture: %w", err)
		}
	}
	fixture, err := ParseFixture(data)
	if err != nil {
		return nil, err
	}
	return fixture.Build(logger)
}

// Build creates a simulation populated with the fixture's devices.
func (f *Fixture) Build(logger *slog.Logger) (*HAL, error) {
	h := New(logger)
	if f.BufferFrameSize != 0 {
		h.SetBufferFrameSize(f.BufferFrameSize)
	}

	byUID := make(map[string]hal.ObjectID, len(f.Devices))
	for _, fd := range f.Devices {
		if fd.UID == "" {
			return nil, fmt.Errorf("fixture device %q has no uid", fd.Name)
		}
		if _, ok := byUID[fd.UID]; ok {
			return nil, fmt.Errorf("fixture device uid %q is not unique", fd.UID)
		}
		spec, err := fd.spec()
		if err != nil {
			return nil, err
		}
		byUID[fd.UID] = h.AddDevice(spec)
	}

	defaults := []struct {
		uid      string
		selector hal.Selector
	}{
		{f.Defaults.Input, hal.SelectorDefaultInputDevice},
		{f.Defaults.Output, hal.SelectorDefaultOutputDevice},
	}
	for _, d := range defaults {
		if d.uid == "" {
			continue
		}
		id, ok := byUID[d.uid]
		if !ok {
			return nil, fmt.Errorf("fixture default %s names unknown device %q", d.selector, d.uid)
		}
		if err := h.SetPropertyData(hal.ObjectSystem, hal.GlobalAddress(d.selector), hal.PutUint32(uint32(id))); err != nil {
			return nil, err
		}
	}
	h.Settle()
	return h, nil
}

func (fd FixtureDevice) spec() (DeviceSpec, error) {
	spec := DeviceSpec{
		UID:    fd.UID,
		Name:   fd.Name,
		Input:  bufferList(fd.Input),
		Output: bufferList(fd.Output),
	}
	for direction, fs := range fd.Sources {
		source, err := fs.source()
		if err != nil {
			return DeviceSpec{}, fmt.Errorf("fixture device %q: %w", fd.UID, err)
		}
		switch direction {
		case "input":
			spec.InputSource = source
		case "output":
			spec.OutputSource = source
		default:
			return DeviceSpec{}, fmt.Errorf("fixture device %q: unknown source direction %q", fd.UID, direction)
		}
	}
	return spec, nil
}

func (fs FixtureSource) source() (*Source, error) {
	source := &Source{Names: make(map[uint32]string, len(fs.Names))}
	for code, name := range fs.Names {
		value, err := hal.ParseFourCC(code)
		if err != nil {
			return nil, err
		}
		source.Names[value] = name
	}
	if fs.Active != "" {
		active, err := hal.ParseFourCC(fs.Active)
		if err != nil {
			return nil, err
		}
		source.Active = active
	}
	return source, nil
}

func bufferList(channels []uint32) hal.BufferList {
	list := make(hal.BufferList, len(channels))
	for i, n := range channels {
		// 32-bit float samples, 512 frames
		list[i] = hal.Buffer{Channels: n, ByteSize: n * 4 * defaultBufferFrameSize}
	}
	return list
}
