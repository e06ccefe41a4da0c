package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/internal/coreaudio"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/internal/device"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/internal/portaudiohal"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal/simulated"
)

var (
	errUnknownBackend = errors.New("unknown backend")
	errUnknownDevice  = errors.New("unknown device")
)

type backendOpener func(backend, fixture string, logger *slog.Logger) (hal.HAL, error)

// openHAL opens one of the "simulated", "coreaudio" or "portaudio" backends.
func openHAL(backend, fixture string, logger *slog.Logger) (hal.HAL, error) {
	switch backend {
	case "simulated":
		h, err := simulated.LoadFixture(fixture, logger)
		if err != nil {
			return nil, err
		}
		return h, nil
	case "coreaudio":
		h, err := coreaudio.New(logger)
		if err != nil {
			return nil, err
		}
		return h, nil
	case "portaudio":
		h, err := portaudiohal.New(logger)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	return nil, fmt.Errorf("%w %q", errUnknownBackend, backend)
}

// resolveDevice accepts either an object id or a device unique id.
func resolveDevice(api *device.API, arg string) (hal.ObjectID, error) {
	devices, err := api.ListAll()
	if err != nil {
		return hal.ObjectUnknown, err
	}
	if id, err := strconv.ParseUint(arg, 10, 32); err == nil {
		for _, d := range devices {
			if d == hal.ObjectID(id) {
				return d, nil
			}
		}
		return hal.ObjectUnknown, fmt.Errorf("%w %s", errUnknownDevice, arg)
	}
	for _, d := range devices {
		if uid, err := api.UniqueID(d, hal.ScopeGlobal); err == nil && uid == arg {
			return d, nil
		}
	}
	return hal.ObjectUnknown, fmt.Errorf("%w %q", errUnknownDevice, arg)
}

func describe(api *device.API, id hal.ObjectID) string {
	name, err := api.DisplayName(id, hal.ScopeGlobal)
	if err != nil {
		return strconv.FormatUint(uint64(id), 10)
	}
	return fmt.Sprintf("%d (%s)", id, name)
}
