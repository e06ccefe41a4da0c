//go:build darwin && cgo

package coreaudio

/*
#cgo LDFLAGS: -framework AudioToolbox -framework CoreAudio -framework CoreFoundation

#include <AudioToolbox/AudioToolbox.h>
#include <CoreAudio/CoreAudio.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdint.h>
#include <stdlib.h>

static AudioObjectPropertyAddress hh_address(UInt32 selector, UInt32 scope, UInt32 element) {
    AudioObjectPropertyAddress address = { selector, scope, element };
    return address;
}

static OSStatus hh_get_size(AudioObjectID object, UInt32 selector, UInt32 scope, UInt32 element, UInt32* size) {
    AudioObjectPropertyAddress address = hh_address(selector, scope, element);
    return AudioObjectGetPropertyDataSize(object, &address, 0, NULL, size);
}

static OSStatus hh_get_data(AudioObjectID object, UInt32 selector, UInt32 scope, UInt32 element, UInt32* size, void* data) {
    AudioObjectPropertyAddress address = hh_address(selector, scope, element);
    return AudioObjectGetPropertyData(object, &address, 0, NULL, size, data);
}

static OSStatus hh_set_data(AudioObjectID object, UInt32 selector, UInt32 scope, UInt32 element, UInt32 size, const void* data) {
    AudioObjectPropertyAddress address = hh_address(selector, scope, element);
    return AudioObjectSetPropertyData(object, &address, 0, NULL, size, data);
}

// hh_copy_utf8 writes s into buf when it fits and always reports the UTF-8 length.
static void hh_copy_utf8(CFStringRef s, char* buf, UInt32 cap, UInt32* needed) {
    CFRange range = CFRangeMake(0, CFStringGetLength(s));
    CFIndex used = 0;
    CFStringGetBytes(s, range, kCFStringEncodingUTF8, 0, false, NULL, 0, &used);
    *needed = (UInt32)used;
    if (buf != NULL && cap >= *needed) {
        CFStringGetBytes(s, range, kCFStringEncodingUTF8, 0, false, (UInt8*)buf, cap, &used);
    }
}

static OSStatus hh_string_property(AudioObjectID object, UInt32 selector, UInt32 scope, UInt32 element, char* buf, UInt32 cap, UInt32* needed) {
    CFStringRef s = NULL;
    UInt32 size = sizeof(CFStringRef);
    OSStatus status = hh_get_data(object, selector, scope, element, &size, &s);
    if (status != noErr) {
        return status;
    }
    if (s == NULL) {
        *needed = 0;
        return noErr;
    }
    hh_copy_utf8(s, buf, cap, needed);
    CFRelease(s);
    return noErr;
}

static OSStatus hh_source_name(AudioObjectID object, UInt32 scope, UInt32 element, UInt32 code, char* buf, UInt32 cap, UInt32* needed) {
    CFStringRef s = NULL;
    AudioValueTranslation translation = { &code, sizeof(UInt32), &s, sizeof(CFStringRef) };
    UInt32 size = sizeof(AudioValueTranslation);
    OSStatus status = hh_get_data(object, kAudioDevicePropertyDataSourceNameForIDCFString, scope, element, &size, &translation);
    if (status != noErr) {
        return status;
    }
    if (s == NULL) {
        *needed = 0;
        return noErr;
    }
    hh_copy_utf8(s, buf, cap, needed);
    CFRelease(s);
    return noErr;
}

static OSStatus hh_plugin_for_bundle(const char* bundle, AudioObjectID* plugin) {
    CFStringRef bundleID = CFStringCreateWithCString(kCFAllocatorDefault, bundle, kCFStringEncodingUTF8);
    AudioValueTranslation translation = { &bundleID, sizeof(CFStringRef), plugin, sizeof(AudioObjectID) };
    UInt32 size = sizeof(AudioValueTranslation);
    OSStatus status = hh_get_data(kAudioObjectSystemObject, kAudioHardwarePropertyPlugInForBundleID, kAudioObjectPropertyScopeGlobal, 0, &size, &translation);
    CFRelease(bundleID);
    return status;
}

static void hh_add_string(CFMutableDictionaryRef dict, CFStringRef key, const char* value) {
    CFStringRef s = CFStringCreateWithCString(kCFAllocatorDefault, value, kCFStringEncodingUTF8);
    CFDictionaryAddValue(dict, key, s);
    CFRelease(s);
}

static void hh_add_int(CFMutableDictionaryRef dict, CFStringRef key, SInt32 value) {
    CFNumberRef n = CFNumberCreate(kCFAllocatorDefault, kCFNumberIntType, &value);
    CFDictionaryAddValue(dict, key, n);
    CFRelease(n);
}

static OSStatus hh_create_aggregate(AudioObjectID plugin, const char* name, const char* uid, SInt32 isPrivate, SInt32 isStacked, char** subDevices, int count, AudioObjectID* device) {
    CFMutableDictionaryRef dict = CFDictionaryCreateMutable(kCFAllocatorDefault, 0, &kCFTypeDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
    hh_add_string(dict, CFSTR(kAudioAggregateDeviceNameKey), name);
    hh_add_string(dict, CFSTR(kAudioAggregateDeviceUIDKey), uid);
    hh_add_int(dict, CFSTR(kAudioAggregateDeviceIsPrivateKey), isPrivate);
    hh_add_int(dict, CFSTR(kAudioAggregateDeviceIsStackedKey), isStacked);

    CFMutableArrayRef list = CFArrayCreateMutable(kCFAllocatorDefault, 0, &kCFTypeArrayCallBacks);
    for (int i = 0; i < count; i++) {
        CFMutableDictionaryRef sub = CFDictionaryCreateMutable(kCFAllocatorDefault, 0, &kCFTypeDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
        hh_add_string(sub, CFSTR(kAudioSubDeviceUIDKey), subDevices[i]);
        CFArrayAppendValue(list, sub);
        CFRelease(sub);
    }
    CFDictionaryAddValue(dict, CFSTR(kAudioAggregateDeviceSubDeviceListKey), list);
    CFRelease(list);

    AudioObjectPropertyAddress address = hh_address(kAudioPlugInCreateAggregateDevice, kAudioObjectPropertyScopeGlobal, 0);
    UInt32 size = sizeof(AudioObjectID);
    OSStatus status = AudioObjectGetPropertyData(plugin, &address, sizeof(dict), &dict, &size, device);
    CFRelease(dict);
    return status;
}

extern OSStatus goHALPropertyListener(AudioObjectID object, UInt32 count, AudioObjectPropertyAddress* addresses, uintptr_t token);

static OSStatus hh_listener(AudioObjectID object, UInt32 count, const AudioObjectPropertyAddress* addresses, void* data) {
    return goHALPropertyListener(object, count, (AudioObjectPropertyAddress*)addresses, (uintptr_t)data);
}

static OSStatus hh_add_listener(AudioObjectID object, UInt32 selector, UInt32 scope, UInt32 element, uintptr_t token) {
    AudioObjectPropertyAddress address = hh_address(selector, scope, element);
    return AudioObjectAddPropertyListener(object, &address, hh_listener, (void*)token);
}

static OSStatus hh_remove_listener(AudioObjectID object, UInt32 selector, UInt32 scope, UInt32 element, uintptr_t token) {
    AudioObjectPropertyAddress address = hh_address(selector, scope, element);
    return AudioObjectRemovePropertyListener(object, &address, hh_listener, (void*)token);
}

static OSStatus hh_new_unit(int defaultOutput, AudioUnit* unit) {
    AudioComponentDescription desc = {
        kAudioUnitType_Output,
        defaultOutput ? kAudioUnitSubType_DefaultOutput : kAudioUnitSubType_HALOutput,
        kAudioUnitManufacturer_Apple,
        0,
        0,
    };
    AudioComponent component = AudioComponentFindNext(NULL, &desc);
    if (component == NULL) {
        return kAudioHardwareUnspecifiedError;
    }
    return AudioComponentInstanceNew(component, unit);
}

static OSStatus hh_unit_get(AudioUnit unit, UInt32 selector, UInt32 scope, UInt32 element, void* data, UInt32* size) {
    return AudioUnitGetProperty(unit, selector, scope, element, data, size);
}

static OSStatus hh_unit_set(AudioUnit unit, UInt32 selector, UInt32 scope, UInt32 element, const void* data, UInt32 size) {
    return AudioUnitSetProperty(unit, selector, scope, element, data, size);
}

static OSStatus hh_unit_dispose(AudioUnit unit) {
    return AudioComponentInstanceDispose(unit);
}
*/
import "C"

import (
	"log/slog"
	"unsafe"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/google/uuid"
)

type HAL struct {
	logger *slog.Logger
}

var (
	_ hal.HAL         = (*HAL)(nil)
	_ hal.UnitFactory = (*HAL)(nil)
)

func New(logger *slog.Logger) (*HAL, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &HAL{
		logger: logger.With(
			"coreaudio hal uuid", uuid.New(),
		),
	}, nil
}

func status(s C.OSStatus) error {
	return hal.Status(s).Err()
}

func ptr(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Pointer(&data[0])
}

func cAddress(address hal.PropertyAddress) (C.UInt32, C.UInt32, C.UInt32) {
	return C.UInt32(address.Selector), C.UInt32(address.Scope), C.UInt32(address.Element)
}

func translationCode(qualifier hal.Qualifier) (C.UInt32, error) {
	translation, ok := qualifier.(hal.Translation)
	if !ok {
		return 0, hal.StatusBadPropertySize.Err()
	}
	code, err := hal.Uint32(translation.Input)
	if err != nil {
		return 0, hal.StatusBadPropertySize.Err()
	}
	return C.UInt32(code), nil
}

// stringValue copies a UTF-8 value into data, or only measures it when data is nil.
func (h *HAL) stringValue(object hal.ObjectID, address hal.PropertyAddress, qualifier hal.Qualifier, data []byte) (uint32, error) {
	selector, scope, element := cAddress(address)
	var needed C.UInt32
	var result C.OSStatus
	buf := (*C.char)(ptr(data))

	if address.Selector == hal.SelectorDataSourceNameForID {
		code, err := translationCode(qualifier)
		if err != nil {
			return 0, err
		}
		result = C.hh_source_name(C.AudioObjectID(object), scope, element, code, buf, C.UInt32(len(data)), &needed)
	} else {
		result = C.hh_string_property(C.AudioObjectID(object), selector, scope, element, buf, C.UInt32(len(data)), &needed)
	}
	if err := status(result); err != nil {
		return 0, err
	}
	if data != nil && int(needed) > len(data) {
		return 0, hal.StatusBadPropertySize.Err()
	}
	return uint32(needed), nil
}

func isString(selector hal.Selector) bool {
	switch selector {
	case hal.SelectorDeviceUID, hal.SelectorName, hal.SelectorDataSourceNameForID:
		return true
	}
	return false
}

func (h *HAL) PropertyDataSize(object hal.ObjectID, address hal.PropertyAddress, qualifier hal.Qualifier) (uint32, error) {
	if isString(address.Selector) {
		return h.stringValue(object, address, qualifier, nil)
	}

	selector, scope, element := cAddress(address)
	var size C.UInt32
	if err := status(C.hh_get_size(C.AudioObjectID(object), selector, scope, element, &size)); err != nil {
		return 0, err
	}
	if address.Selector == hal.SelectorPlugInForBundleID {
		// CoreAudio reports the size of the translation record, the value is a handle
		return hal.ObjectIDSize, nil
	}
	return uint32(size), nil
}

func (h *HAL) PropertyData(object hal.ObjectID, address hal.PropertyAddress, qualifier hal.Qualifier, data []byte) (uint32, error) {
	if isString(address.Selector) {
		if len(data) == 0 {
			return 0, nil
		}
		return h.stringValue(object, address, qualifier, data)
	}

	switch address.Selector {
	case hal.SelectorPlugInForBundleID:
		return h.pluginForBundle(qualifier, data)
	case hal.SelectorCreateAggregateDevice:
		return h.createAggregate(object, qualifier, data)
	}

	selector, scope, element := cAddress(address)
	size := C.UInt32(len(data))
	if err := status(C.hh_get_data(C.AudioObjectID(object), selector, scope, element, &size, ptr(data))); err != nil {
		return 0, err
	}
	return uint32(size), nil
}

func (h *HAL) pluginForBundle(qualifier hal.Qualifier, data []byte) (uint32, error) {
	translation, ok := qualifier.(hal.Translation)
	if !ok || len(data) < hal.ObjectIDSize {
		return 0, hal.StatusBadPropertySize.Err()
	}
	bundle := C.CString(string(translation.Input))
	defer C.free(unsafe.Pointer(bundle))

	var plugin C.AudioObjectID
	if err := status(C.hh_plugin_for_bundle(bundle, &plugin)); err != nil {
		return 0, err
	}
	return uint32(copy(data, hal.PutUint32(uint32(plugin)))), nil
}

func (h *HAL) createAggregate(plugin hal.ObjectID, qualifier hal.Qualifier, data []byte) (uint32, error) {
	description, ok := parseAggregateDescription(qualifier)
	if !ok {
		return 0, hal.StatusIllegalOperation.Err()
	}
	if len(data) < hal.ObjectIDSize {
		return 0, hal.StatusBadPropertySize.Err()
	}

	name := C.CString(description.name)
	defer C.free(unsafe.Pointer(name))
	uid := C.CString(description.uid)
	defer C.free(unsafe.Pointer(uid))

	count := len(description.subDevices)
	var subDevices **C.char
	if count > 0 {
		subDevices = (**C.char)(C.malloc(C.size_t(count) * C.size_t(unsafe.Sizeof(uintptr(0)))))
		defer C.free(unsafe.Pointer(subDevices))
		list := unsafe.Slice(subDevices, count)
		for i, subUID := range description.subDevices {
			list[i] = C.CString(subUID)
			defer C.free(unsafe.Pointer(list[i]))
		}
	}

	var device C.AudioObjectID
	result := C.hh_create_aggregate(C.AudioObjectID(plugin), name, uid,
		C.SInt32(description.private), C.SInt32(description.stacked), subDevices, C.int(count), &device)
	if err := status(result); err != nil {
		return 0, err
	}
	h.logger.Debug("aggregate device created", "name", description.name, "device", uint32(device))
	return uint32(copy(data, hal.PutUint32(uint32(device)))), nil
}

func (h *HAL) SetPropertyData(object hal.ObjectID, address hal.PropertyAddress, data []byte) error {
	selector, scope, element := cAddress(address)
	return status(C.hh_set_data(C.AudioObjectID(object), selector, scope, element, C.UInt32(len(data)), ptr(data)))
}

func (h *HAL) AddPropertyListener(object hal.ObjectID, address hal.PropertyAddress, proc hal.ListenerProc, token hal.ListenerToken) error {
	if !addProc(token, proc) {
		return hal.StatusIllegalOperation.Err()
	}
	selector, scope, element := cAddress(address)
	if err := status(C.hh_add_listener(C.AudioObjectID(object), selector, scope, element, C.uintptr_t(token))); err != nil {
		removeProc(token)
		return err
	}
	return nil
}

func (h *HAL) RemovePropertyListener(object hal.ObjectID, address hal.PropertyAddress, token hal.ListenerToken) error {
	selector, scope, element := cAddress(address)
	if err := status(C.hh_remove_listener(C.AudioObjectID(object), selector, scope, element, C.uintptr_t(token))); err != nil {
		return err
	}
	removeProc(token)
	return nil
}

type unit struct {
	ref C.AudioUnit
}

func (h *HAL) NewOutputUnit(kind hal.UnitKind) (hal.Unit, error) {
	var defaultOutput C.int
	if kind == hal.UnitDefaultOutput {
		defaultOutput = 1
	}
	var ref C.AudioUnit
	if err := status(C.hh_new_unit(defaultOutput, &ref)); err != nil {
		return nil, err
	}
	hal.Assert(ref != nil, "new output unit", "platform returned a nil unit")
	return &unit{ref: ref}, nil
}

func (u *unit) Property(selector hal.Selector, scope hal.UnitScope, element hal.Element, data []byte) (uint32, error) {
	size := C.UInt32(len(data))
	if err := status(C.hh_unit_get(u.ref, C.UInt32(selector), C.UInt32(scope), C.UInt32(element), ptr(data), &size)); err != nil {
		return 0, err
	}
	return uint32(size), nil
}

func (u *unit) SetProperty(selector hal.Selector, scope hal.UnitScope, element hal.Element, data []byte) error {
	return status(C.hh_unit_set(u.ref, C.UInt32(selector), C.UInt32(scope), C.UInt32(element), ptr(data), C.UInt32(len(data))))
}

func (u *unit) Dispose() error {
	return status(C.hh_unit_dispose(u.ref))
}
