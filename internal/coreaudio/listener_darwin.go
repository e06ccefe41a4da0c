//go:build darwin && cgo

package coreaudio

/*
#include <CoreAudio/CoreAudio.h>
#include <stdint.h>
*/
import "C"

import (
	"unsafe"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
)

//export goHALPropertyListener
func goHALPropertyListener(object C.AudioObjectID, count C.UInt32, addresses *C.AudioObjectPropertyAddress, token C.uintptr_t) C.OSStatus {
	raw := unsafe.Slice(addresses, int(count))
	delivered := make([]hal.PropertyAddress, len(raw))
	for i, a := range raw {
		delivered[i] = hal.PropertyAddress{
			Selector: hal.Selector(a.mSelector),
			Scope:    hal.PropertyScope(a.mScope),
			Element:  hal.Element(a.mElement),
		}
	}
	return C.OSStatus(notify(hal.ObjectID(object), delivered, hal.ListenerToken(token)))
}
