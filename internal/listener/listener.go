// Package listener observes property changes of an audio object.
//
// A Listener owns at most one platform registration at a time. The platform calls back
// on its own goroutine with an opaque token; a process-wide registry maps the token back
// to the listener, so a notification that races with Stop is dropped instead of reaching
// a listener that is gone.
package listener

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/google/uuid"
)

var ErrAlreadyStarted = errors.New("listener already started")

// Callback receives every address delivered by one notification. The slice is read-only.
// The returned status is handed back to the platform.
type Callback func(addresses []hal.PropertyAddress) hal.Status

type Listener struct {
	logger *slog.Logger
	hal    hal.HAL

	object   hal.ObjectID
	address  hal.PropertyAddress
	callback Callback

	mu    sync.Mutex
	token hal.ListenerToken // zero while idle
}

func New(h hal.HAL, object hal.ObjectID, address hal.PropertyAddress, callback Callback, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		logger: logger.With(
			"listener uuid", uuid.New(),
			"object", object,
			"address", address,
		),
		hal:      h,
		object:   object,
		address:  address,
		callback: callback,
	}
}

// NewDefaultDeviceListener listens for changes of the default device of scope.
func NewDefaultDeviceListener(h hal.HAL, scope hal.Scope, callback Callback, logger *slog.Logger) (*Listener, error) {
	selector, err := scope.DefaultDeviceSelector()
	if err != nil {
		return nil, err
	}
	return New(h, hal.ObjectSystem, hal.GlobalAddress(selector), callback, logger), nil
}

// Start registers with the platform. Starting a started listener fails with ErrAlreadyStarted
// and leaves the existing registration alone.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token != 0 {
		return ErrAlreadyStarted
	}

	// Registered before the platform knows about it: the first notification can
	// arrive before AddPropertyListener returns.
	token := registerListener(l)
	if err := l.hal.AddPropertyListener(l.object, l.address, dispatch, token); err != nil {
		unregisterListener(token)
		l.logger.Error("failed to add property listener", "err", err)
		return fmt.Errorf("failed to listen on %s of object %d: %w", l.address, l.object, err)
	}
	l.token = token
	l.logger.Debug("listener started", "token", token)
	return nil
}

// Stop removes the platform registration. Stopping an idle listener does nothing.
// When the platform refuses, the listener stays active.
func (l *Listener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token == 0 {
		return nil
	}

	if err := l.hal.RemovePropertyListener(l.object, l.address, l.token); err != nil {
		l.logger.Error("failed to remove property listener", "token", l.token, "err", err)
		return fmt.Errorf("failed to stop listening on %s of object %d: %w", l.address, l.object, err)
	}
	unregisterListener(l.token)
	l.logger.Debug("listener stopped", "token", l.token)
	l.token = 0
	return nil
}

// Close stops the listener if it is active.
func (l *Listener) Close() error {
	return l.Stop()
}

func (l *Listener) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.token != 0
}
