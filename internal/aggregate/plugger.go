// Package aggregate plugs and unplugs private aggregate devices.
//
// A Plugger groups the current default device of its scope under a freshly synthesized
// virtual device, which shows up in the system device list exactly like a device being
// plugged in. Unplug destroys it again.
//
// If the default device is itself an aggregate device it is used as the single
// sub-device as is; its own sub-devices are not expanded.
package aggregate

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/internal/device"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/google/uuid"
)

var (
	ErrAlreadyPlugged    = errors.New("aggregate device already plugged")
	ErrNotPlugged        = errors.New("no aggregate device plugged")
	ErrNoDefaultDevice   = errors.New("no default device")
	ErrPluginUnavailable = errors.New("aggregate device plug-in unavailable")
)

// ResolutionError reports that the plug-in or the sub-devices could not be resolved.
type ResolutionError struct {
	What string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %s: %v", e.What, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

type Config struct {
	// Scope whose default device becomes the sub-device.
	Scope hal.Scope

	// Name is suffixed with a nanosecond timestamp so repeated runs never collide.
	Name string

	// Vendor goes into the unique id, org.<Vendor>.<name>.
	Vendor string
}

func DefaultConfig(scope hal.Scope) Config {
	return Config{
		Scope:  scope,
		Name:   "HarnessAggregateDevice",
		Vendor: "halharness",
	}
}

// Plugger is not safe for concurrent use.
type Plugger struct {
	logger  *slog.Logger
	hal     hal.HAL
	devices *device.API
	config  Config
	now     func() time.Time

	plugin hal.ObjectID
	device hal.ObjectID
}

// New resolves the aggregate device plug-in. The plug-in is resolved once per Plugger.
func New(h hal.HAL, config Config, logger *slog.Logger) (*Plugger, error) {
	if !config.Scope.Directional() {
		return nil, fmt.Errorf("aggregate device for scope %s: %w", config.Scope, device.ErrScopeNotAllowed)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		"plugger uuid", uuid.New(),
		"scope", config.Scope,
	)

	plugin, err := resolvePlugin(h)
	if err != nil {
		logger.Error("failed to resolve aggregate device plug-in", "err", err)
		return nil, err
	}

	return &Plugger{
		logger:  logger,
		hal:     h,
		devices: device.NewAPI(h, logger),
		config:  config,
		now:     time.Now,
		plugin:  plugin,
		device:  hal.ObjectUnknown,
	}, nil
}

func resolvePlugin(h hal.HAL) (hal.ObjectID, error) {
	address := hal.GlobalAddress(hal.SelectorPlugInForBundleID)
	translation := hal.Translation{Input: []byte(hal.CoreAudioBundleID)}

	size, err := h.PropertyDataSize(hal.ObjectSystem, address, translation)
	if err != nil {
		return hal.ObjectUnknown, &ResolutionError{What: hal.CoreAudioBundleID + " plug-in", Err: fmt.Errorf("%w: %w", ErrPluginUnavailable, err)}
	}
	hal.Assert(size == hal.ObjectIDSize, "resolve plug-in", "translation result is %d bytes", size)

	data := make([]byte, size)
	if _, err := h.PropertyData(hal.ObjectSystem, address, translation, data); err != nil {
		return hal.ObjectUnknown, &ResolutionError{What: hal.CoreAudioBundleID + " plug-in", Err: fmt.Errorf("%w: %w", ErrPluginUnavailable, err)}
	}
	plugin, err := hal.Uint32(data)
	if err != nil {
		return hal.ObjectUnknown, err
	}
	hal.Assert(hal.ObjectID(plugin) != hal.ObjectUnknown, "resolve plug-in", "platform returned the unknown object")
	return hal.ObjectID(plugin), nil
}

// DeviceID is the aggregate device, hal.ObjectUnknown while unplugged.
func (p *Plugger) DeviceID() hal.ObjectID {
	return p.device
}

func (p *Plugger) Plugged() bool {
	return p.device != hal.ObjectUnknown
}

// Plug creates the aggregate device.
func (p *Plugger) Plug() error {
	if p.Plugged() {
		return ErrAlreadyPlugged
	}

	subDevices, err := p.subDevices()
	if err != nil {
		return err
	}

	address := hal.GlobalAddress(hal.SelectorCreateAggregateDevice)
	size, err := p.hal.PropertyDataSize(p.plugin, address, nil)
	if err != nil {
		return fmt.Errorf("failed to query aggregate device creation: %w", err)
	}
	hal.Assert(size != 0, "create aggregate device", "plug-in reported an empty result")

	name := fmt.Sprintf("%s_%d", p.config.Name, p.now().UnixNano())
	description := hal.Dictionary{
		hal.AggregateNameKey:          name,
		hal.AggregateUIDKey:           fmt.Sprintf("org.%s.%s", p.config.Vendor, name),
		hal.AggregatePrivateKey:       int32(1),
		hal.AggregateStackedKey:       int32(0),
		hal.AggregateSubDeviceListKey: subDevices,
	}

	data := make([]byte, size)
	if _, err := p.hal.PropertyData(p.plugin, address, description, data); err != nil {
		p.logger.Error("failed to create aggregate device", "name", name, "err", err)
		return fmt.Errorf("failed to create aggregate device %s: %w", name, err)
	}
	id, err := hal.Uint32(data)
	if err != nil {
		return err
	}
	hal.Assert(hal.ObjectID(id) != hal.ObjectUnknown, "create aggregate device", "platform returned the unknown object")

	p.device = hal.ObjectID(id)
	p.logger.Info("aggregate device plugged", "device", p.device, "name", name)
	return nil
}

// subDevices is the default device of the scope, keyed by its unique id.
func (p *Plugger) subDevices() ([]hal.Dictionary, error) {
	current, ok := p.devices.Default(p.config.Scope)
	if !ok {
		return nil, &ResolutionError{What: p.config.Scope.String() + " sub-device", Err: ErrNoDefaultDevice}
	}
	uid, err := p.devices.UniqueID(current, hal.ScopeGlobal)
	if err != nil {
		return nil, &ResolutionError{What: p.config.Scope.String() + " sub-device", Err: err}
	}
	return []hal.Dictionary{
		{hal.SubDeviceUIDKey: uid},
	}, nil
}

// Unplug destroys the aggregate device.
func (p *Plugger) Unplug() error {
	if !p.Plugged() {
		return ErrNotPlugged
	}

	address := hal.GlobalAddress(hal.SelectorDestroyAggregateDevice)
	size, err := p.hal.PropertyDataSize(p.plugin, address, nil)
	if err != nil {
		return fmt.Errorf("failed to query aggregate device destruction: %w", err)
	}
	hal.Assert(size != 0, "destroy aggregate device", "plug-in reported an empty request")

	data := make([]byte, max(size, hal.ObjectIDSize))
	copy(data, hal.PutUint32(uint32(p.device)))
	if _, err := p.hal.PropertyData(p.plugin, address, nil, data); err != nil {
		p.logger.Error("failed to destroy aggregate device", "device", p.device, "err", err)
		return fmt.Errorf("failed to destroy aggregate device %d: %w", p.device, err)
	}

	p.logger.Info("aggregate device unplugged", "device", p.device)
	p.device = hal.ObjectUnknown
	return nil
}

// Close unplugs the aggregate device if there is one.
func (p *Plugger) Close() error {
	if !p.Plugged() {
		return nil
	}
	return p.Unplug()
}
