// Package coreaudio is the hal.HAL backed by the CoreAudio hardware abstraction layer.
//
// It is only available on darwin with cgo enabled. Elsewhere New returns ErrUnavailable.
package coreaudio

import (
	"errors"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
)

var ErrUnavailable = errors.New("coreaudio backend requires darwin and cgo")

// CoreAudio only hands back the opaque token, so the procs live here until removed.
var (
	procsMu sync.Mutex
	procs   = map[hal.ListenerToken]hal.ListenerProc{}
)

func addProc(token hal.ListenerToken, proc hal.ListenerProc) bool {
	procsMu.Lock()
	defer procsMu.Unlock()
	if _, ok := procs[token]; ok {
		return false
	}
	procs[token] = proc
	return true
}

func removeProc(token hal.ListenerToken) {
	procsMu.Lock()
	defer procsMu.Unlock()
	delete(procs, token)
}

func findProc(token hal.ListenerToken) hal.ListenerProc {
	procsMu.Lock()
	defer procsMu.Unlock()
	return procs[token]
}

// notify forwards one CoreAudio notification to the proc registered under token.
func notify(object hal.ObjectID, addresses []hal.PropertyAddress, token hal.ListenerToken) hal.Status {
	proc := findProc(token)
	if proc == nil {
		return hal.NoErr
	}
	return proc(object, addresses, token)
}

// aggregateDescription is the part of a hal.Dictionary CoreAudio understands.
type aggregateDescription struct {
	name       string
	uid        string
	private    int32
	stacked    int32
	subDevices []string
}

func parseAggregateDescription(qualifier hal.Qualifier) (aggregateDescription, bool) {
	dictionary, ok := qualifier.(hal.Dictionary)
	if !ok {
		return aggregateDescription{}, false
	}
	var d aggregateDescription
	d.name, _ = dictionary[hal.AggregateNameKey].(string)
	d.uid, _ = dictionary[hal.AggregateUIDKey].(string)
	d.private, _ = dictionary[hal.AggregatePrivateKey].(int32)
	d.stacked, _ = dictionary[hal.AggregateStackedKey].(int32)
	subDevices, _ := dictionary[hal.AggregateSubDeviceListKey].([]hal.Dictionary)
	for _, sub := range subDevices {
		uid, ok := sub[hal.SubDeviceUIDKey].(string)
		if !ok {
			return aggregateDescription{}, false
		}
		d.subDevices = append(d.subDevices, uid)
	}
	return d, d.name != "" && d.uid != ""
}
