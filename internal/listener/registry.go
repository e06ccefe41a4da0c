package listener

import (
	"sync"
	"sync/atomic"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
)

// The platform hands the registration token back on every notification.
// Tokens map to started listeners and are never reused.
var (
	mu        sync.Mutex
	listeners = map[hal.ListenerToken]*Listener{}
	lastToken atomic.Uint64
)

func registerListener(l *Listener) hal.ListenerToken {
	token := hal.ListenerToken(lastToken.Add(1))
	mu.Lock()
	defer mu.Unlock()
	listeners[token] = l
	return token
}

func unregisterListener(token hal.ListenerToken) {
	mu.Lock()
	defer mu.Unlock()
	delete(listeners, token)
}

func findListener(token hal.ListenerToken) *Listener {
	mu.Lock()
	defer mu.Unlock()
	return listeners[token]
}

func registeredListeners() int {
	mu.Lock()
	defer mu.Unlock()
	return len(listeners)
}

// dispatch is the single hal.ListenerProc every listener registers with.
// It runs on a goroutine owned by the platform.
func dispatch(object hal.ObjectID, addresses []hal.PropertyAddress, token hal.ListenerToken) hal.Status {
	l := findListener(token)
	if l == nil {
		// stopped while the notification was in flight
		return hal.NoErr
	}

	hal.Assert(object == l.object, "listener dispatch", "notified for object %d, listening on %d", object, l.object)
	for i, address := range addresses {
		hal.Assert(address.Selector == l.address.Selector, "listener dispatch",
			"address %d has selector %s, listening for %s", i, address.Selector, l.address.Selector)
	}
	return l.callback(addresses)
}
