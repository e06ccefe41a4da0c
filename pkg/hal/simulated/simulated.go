// Package simulated is an in-memory HAL.
//
// It behaves like the real platform where the harness cares about it: the system
// object owns the device list and the default devices, devices answer unique id,
// name, stream configuration and data source queries, the CoreAudio plug-in
// creates and destroys aggregate devices, and listeners are notified on their own
// goroutines. Like the real platform it accepts nonsensical default devices
// without complaint.
//
// Intended for tests and for running the harness without touching real hardware.
package simulated

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/google/uuid"
)

// PluginID is the object id of the simulated aggregate device factory.
const PluginID hal.ObjectID = 2

const (
	firstDeviceID          hal.ObjectID = 100
	defaultBufferFrameSize uint32       = 512
)

// Source describes the data sources of one direction of a device.
type Source struct {
	Active uint32
	Names  map[uint32]string
}

// DeviceSpec describes a device to add to the simulation.
// A nil Source means the device has no data source property in that direction.
type DeviceSpec struct {
	UID          string
	Name         string
	Input        hal.BufferList
	Output       hal.BufferList
	InputSource  *Source
	OutputSource *Source
}

func (s *Source) clone() *Source {
	if s == nil {
		return nil
	}
	return &Source{Active: s.Active, Names: maps.Clone(s.Names)}
}

// AggregateInfo is the description an aggregate device was created with.
type AggregateInfo struct {
	Name       string
	UID        string
	Private    bool
	Stacked    bool
	SubDevices []string
}

type device struct {
	id        hal.ObjectID
	spec      DeviceSpec
	aggregate *AggregateInfo
}

func (d *device) streams(scope hal.PropertyScope) (hal.BufferList, bool) {
	switch scope {
	case hal.PropertyScopeInput:
		return d.spec.Input, true
	case hal.PropertyScopeOutput:
		return d.spec.Output, true
	}
	return nil, false
}

func (d *device) source(scope hal.PropertyScope) *Source {
	switch scope {
	case hal.PropertyScopeInput:
		return d.spec.InputSource
	case hal.PropertyScopeOutput:
		return d.spec.OutputSource
	}
	return nil
}

type listenerKey struct {
	object  hal.ObjectID
	address hal.PropertyAddress
	token   hal.ListenerToken
}

type failureKey struct {
	object   hal.ObjectID
	selector hal.Selector
}

type notification struct {
	object  hal.ObjectID
	address hal.PropertyAddress
	procs   []hal.ListenerProc
	tokens  []hal.ListenerToken
}

// HAL is the simulated platform. The zero value is not usable, use New.
type HAL struct {
	logger *slog.Logger

	mu              sync.Mutex
	devices         []*device
	nextID          hal.ObjectID
	defaults        map[hal.Selector]hal.ObjectID
	listeners       map[listenerKey]hal.ListenerProc
	failures        map[failureKey]hal.Status
	bufferFrameSize uint32
	queued          []notification

	// Notifications are delivered in queue order by a single goroutine at a time.
	delivering bool
	pending    sync.WaitGroup
}

var (
	_ hal.HAL         = (*HAL)(nil)
	_ hal.UnitFactory = (*HAL)(nil)
)

// New creates an empty simulation with no devices.
func New(logger *slog.Logger) *HAL {
	if logger == nil {
		logger = slog.Default()
	}
	return &HAL{
		logger: logger.With(
			"simulated hal uuid", uuid.New(),
		),
		nextID: firstDeviceID,
		defaults: map[hal.Selector]hal.ObjectID{
			hal.SelectorDefaultInputDevice:  hal.ObjectUnknown,
			hal.SelectorDefaultOutputDevice: hal.ObjectUnknown,
		},
		listeners:       make(map[listenerKey]hal.ListenerProc),
		failures:        make(map[failureKey]hal.Status),
		bufferFrameSize: defaultBufferFrameSize,
	}
}

// --------------------------------------------------------------------------------
// Simulation control

// AddDevice plugs a device in. A device becomes the default of a direction it has
// channels in when that direction has no default yet.
func (h *HAL) AddDevice(spec DeviceSpec) hal.ObjectID {
	h.mu.Lock()
	d := h.addDeviceLocked(spec, nil)
	h.mu.Unlock()
	h.flush()
	return d.id
}

// RemoveDevice unplugs a device. Defaults pointing at it move to the first remaining
// device of the same direction.
func (h *HAL) RemoveDevice(id hal.ObjectID) error {
	h.mu.Lock()
	err := h.removeDeviceLocked(id)
	h.mu.Unlock()
	h.flush()
	return err
}

// FailOn makes every call touching (object, selector) fail with status until ClearFailures.
func (h *HAL) FailOn(object hal.ObjectID, selector hal.Selector, status hal.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures[failureKey{object, selector}] = status
}

func (h *HAL) ClearFailures() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.failures)
}

// SetBufferFrameSize changes the frame size new processing units negotiate.
func (h *HAL) SetBufferFrameSize(frames uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bufferFrameSize = frames
}

// Settle blocks until every notification queued so far has been delivered.
func (h *HAL) Settle() {
	h.pending.Wait()
}

// DeviceIDs returns the current device list, in order.
func (h *HAL) DeviceIDs() []hal.ObjectID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deviceIDsLocked()
}

// ListenerCount is the number of live listener registrations.
func (h *HAL) ListenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Aggregate returns the description of an aggregate device created through the plug-in.
func (h *HAL) Aggregate(id hal.ObjectID) (AggregateInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d := h.findLocked(id)
	if d == nil || d.aggregate == nil {
		return AggregateInfo{}, false
	}
	info := *d.aggregate
	info.SubDevices = slices.Clone(info.SubDevices)
	return info, true
}

// --------------------------------------------------------------------------------
// hal.HAL

func (h *HAL) PropertyDataSize(object hal.ObjectID, address hal.PropertyAddress, qualifier hal.Qualifier) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if status := h.failureLocked(object, address.Selector); status != hal.NoErr {
		return 0, status.Err()
	}
	value, status := h.readLocked(object, address, qualifier, nil, true)
	if status != hal.NoErr {
		return 0, status.Err()
	}
	return uint32(len(value)), nil
}

func (h *HAL) PropertyData(object hal.ObjectID, address hal.PropertyAddress, qualifier hal.Qualifier, data []byte) (uint32, error) {
	h.mu.Lock()
	n, status := h.propertyDataLocked(object, address, qualifier, data)
	h.mu.Unlock()
	h.flush()
	return n, status.Err()
}

func (h *HAL) propertyDataLocked(object hal.ObjectID, address hal.PropertyAddress, qualifier hal.Qualifier, data []byte) (uint32, hal.Status) {
	if status := h.failureLocked(object, address.Selector); status != hal.NoErr {
		return 0, status
	}
	// Requests with side effects must not run when the result cannot be returned.
	if address.Selector == hal.SelectorCreateAggregateDevice && len(data) < hal.ObjectIDSize {
		return 0, hal.StatusBadPropertySize
	}
	value, status := h.readLocked(object, address, qualifier, data, false)
	if status != hal.NoErr {
		return 0, status
	}
	if len(data) < len(value) {
		return 0, hal.StatusBadPropertySize
	}
	return uint32(copy(data, value)), hal.NoErr
}

func (h *HAL) SetPropertyData(object hal.ObjectID, address hal.PropertyAddress, data []byte) error {
	h.mu.Lock()
	status := h.writeLocked(object, address, data)
	h.mu.Unlock()
	h.flush()
	return status.Err()
}

func (h *HAL) AddPropertyListener(object hal.ObjectID, address hal.PropertyAddress, proc hal.ListenerProc, token hal.ListenerToken) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if status := h.failureLocked(object, address.Selector); status != hal.NoErr {
		return status.Err()
	}
	if !h.objectExistsLocked(object) {
		return hal.StatusBadObject.Err()
	}
	key := listenerKey{object, address, token}
	if _, ok := h.listeners[key]; ok {
		return hal.StatusIllegalOperation.Err()
	}
	h.listeners[key] = proc
	return nil
}

func (h *HAL) RemovePropertyListener(object hal.ObjectID, address hal.PropertyAddress, token hal.ListenerToken) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if status := h.failureLocked(object, address.Selector); status != hal.NoErr {
		return status.Err()
	}
	key := listenerKey{object, address, token}
	if _, ok := h.listeners[key]; !ok {
		return hal.StatusIllegalOperation.Err()
	}
	delete(h.listeners, key)
	return nil
}

// --------------------------------------------------------------------------------
// Property reads

func (h *HAL) readLocked(object hal.ObjectID, address hal.PropertyAddress, qualifier hal.Qualifier, input []byte, sizeOnly bool) ([]byte, hal.Status) {
	switch object {
	case hal.ObjectSystem:
		return h.readSystemLocked(address, qualifier)
	case PluginID:
		return h.readPluginLocked(address, qualifier, input, sizeOnly)
	}
	d := h.findLocked(object)
	if d == nil {
		return nil, hal.StatusBadObject
	}
	return readDevice(d, address, qualifier)
}

func (h *HAL) readSystemLocked(address hal.PropertyAddress, qualifier hal.Qualifier) ([]byte, hal.Status) {
	switch address.Selector {
	case hal.SelectorDevices:
		return hal.EncodeObjectIDs(h.deviceIDsLocked()), hal.NoErr
	case hal.SelectorDefaultInputDevice, hal.SelectorDefaultOutputDevice:
		return hal.PutUint32(uint32(h.defaults[address.Selector])), hal.NoErr
	case hal.SelectorPlugInForBundleID:
		translation, ok := qualifier.(hal.Translation)
		if !ok {
			return nil, hal.StatusBadPropertySize
		}
		if string(translation.Input) != hal.CoreAudioBundleID {
			return nil, hal.StatusIllegalOperation
		}
		return hal.PutUint32(uint32(PluginID)), hal.NoErr
	}
	return nil, hal.StatusUnknownProperty
}

func readDevice(d *device, address hal.PropertyAddress, qualifier hal.Qualifier) ([]byte, hal.Status) {
	switch address.Selector {
	case hal.SelectorDeviceUID:
		return []byte(d.spec.UID), hal.NoErr
	case hal.SelectorName:
		return []byte(d.spec.Name), hal.NoErr
	case hal.SelectorStreamConfiguration:
		streams, ok := d.streams(address.Scope)
		if !ok {
			return nil, hal.StatusUnknownProperty
		}
		return hal.EncodeBufferList(streams), hal.NoErr
	case hal.SelectorDataSource:
		source := d.source(address.Scope)
		if source == nil {
			return nil, hal.StatusUnknownProperty
		}
		return hal.PutUint32(source.Active), hal.NoErr
	case hal.SelectorDataSourceNameForID:
		source := d.source(address.Scope)
		if source == nil {
			return nil, hal.StatusUnknownProperty
		}
		translation, ok := qualifier.(hal.Translation)
		if !ok {
			return nil, hal.StatusBadPropertySize
		}
		code, err := hal.Uint32(translation.Input)
		if err != nil {
			return nil, hal.StatusBadPropertySize
		}
		name, ok := source.Names[code]
		if !ok {
			return nil, hal.StatusIllegalOperation
		}
		return []byte(name), hal.NoErr
	}
	return nil, hal.StatusUnknownProperty
}

func (h *HAL) readPluginLocked(address hal.PropertyAddress, qualifier hal.Qualifier, input []byte, sizeOnly bool) ([]byte, hal.Status) {
	switch address.Selector {
	case hal.SelectorCreateAggregateDevice:
		if sizeOnly {
			return make([]byte, hal.ObjectIDSize), hal.NoErr
		}
		description, ok := qualifier.(hal.Dictionary)
		if !ok {
			return nil, hal.StatusIllegalOperation
		}
		d, status := h.createAggregateLocked(description)
		if status != hal.NoErr {
			return nil, status
		}
		return hal.PutUint32(uint32(d.id)), hal.NoErr
	case hal.SelectorDestroyAggregateDevice:
		if sizeOnly {
			return make([]byte, hal.ObjectIDSize), hal.NoErr
		}
		id, err := hal.Uint32(input)
		if err != nil {
			return nil, hal.StatusBadPropertySize
		}
		d := h.findLocked(hal.ObjectID(id))
		if d == nil || d.aggregate == nil {
			return nil, hal.StatusBadObject
		}
		if err := h.removeDeviceLocked(d.id); err != nil {
			return nil, hal.StatusOf(err)
		}
		return hal.PutUint32(id), hal.NoErr
	}
	return nil, hal.StatusUnknownProperty
}

// --------------------------------------------------------------------------------
// Property writes

func (h *HAL) writeLocked(object hal.ObjectID, address hal.PropertyAddress, data []byte) hal.Status {
	if status := h.failureLocked(object, address.Selector); status != hal.NoErr {
		return status
	}
	if object == hal.ObjectSystem {
		switch address.Selector {
		case hal.SelectorDefaultInputDevice, hal.SelectorDefaultOutputDevice:
			id, err := hal.Uint32(data)
			if err != nil {
				return hal.StatusBadPropertySize
			}
			h.setDefaultLocked(address.Selector, hal.ObjectID(id))
			return hal.NoErr
		case hal.SelectorDevices, hal.SelectorPlugInForBundleID:
			return hal.StatusIllegalOperation
		}
		return hal.StatusUnknownProperty
	}

	d := h.findLocked(object)
	if d == nil {
		if object == PluginID {
			return hal.StatusIllegalOperation
		}
		return hal.StatusBadObject
	}
	if address.Selector != hal.SelectorDataSource {
		return hal.StatusIllegalOperation
	}
	source := d.source(address.Scope)
	if source == nil {
		return hal.StatusUnknownProperty
	}
	code, err := hal.Uint32(data)
	if err != nil {
		return hal.StatusBadPropertySize
	}
	if _, ok := source.Names[code]; !ok {
		return hal.StatusIllegalOperation
	}
	if source.Active != code {
		source.Active = code
		h.queueLocked(d.id, address)
	}
	return hal.NoErr
}

// --------------------------------------------------------------------------------
// Device list bookkeeping

func (h *HAL) addDeviceLocked(spec DeviceSpec, aggregate *AggregateInfo) *device {
	spec.Input = slices.Clone(spec.Input)
	spec.Output = slices.Clone(spec.Output)
	spec.InputSource = spec.InputSource.clone()
	spec.OutputSource = spec.OutputSource.clone()
	d := &device{
		id:        h.nextID,
		spec:      spec,
		aggregate: aggregate,
	}
	h.nextID++
	h.devices = append(h.devices, d)
	h.queueLocked(hal.ObjectSystem, hal.GlobalAddress(hal.SelectorDevices))

	if h.defaults[hal.SelectorDefaultInputDevice] == hal.ObjectUnknown && spec.Input.Channels() > 0 {
		h.setDefaultLocked(hal.SelectorDefaultInputDevice, d.id)
	}
	if h.defaults[hal.SelectorDefaultOutputDevice] == hal.ObjectUnknown && spec.Output.Channels() > 0 {
		h.setDefaultLocked(hal.SelectorDefaultOutputDevice, d.id)
	}
	h.logger.Debug("device added", "id", d.id, "uid", spec.UID, "aggregate", aggregate != nil)
	return d
}

func (h *HAL) removeDeviceLocked(id hal.ObjectID) error {
	index := slices.IndexFunc(h.devices, func(d *device) bool { return d.id == id })
	if index < 0 {
		return hal.StatusBadObject.Err()
	}
	h.devices = slices.Delete(h.devices, index, index+1)
	h.queueLocked(hal.ObjectSystem, hal.GlobalAddress(hal.SelectorDevices))

	if h.defaults[hal.SelectorDefaultInputDevice] == id {
		h.setDefaultLocked(hal.SelectorDefaultInputDevice, h.firstWithChannelsLocked(hal.PropertyScopeInput))
	}
	if h.defaults[hal.SelectorDefaultOutputDevice] == id {
		h.setDefaultLocked(hal.SelectorDefaultOutputDevice, h.firstWithChannelsLocked(hal.PropertyScopeOutput))
	}
	h.logger.Debug("device removed", "id", id)
	return nil
}

func (h *HAL) createAggregateLocked(description hal.Dictionary) (*device, hal.Status) {
	name, _ := description[hal.AggregateNameKey].(string)
	uid, _ := description[hal.AggregateUIDKey].(string)
	if name == "" || uid == "" {
		return nil, hal.StatusIllegalOperation
	}
	if slices.ContainsFunc(h.devices, func(d *device) bool { return d.spec.UID == uid }) {
		return nil, hal.StatusIllegalOperation
	}
	private, _ := description[hal.AggregatePrivateKey].(int32)
	stacked, _ := description[hal.AggregateStackedKey].(int32)
	subDeviceList, _ := description[hal.AggregateSubDeviceListKey].([]hal.Dictionary)

	info := &AggregateInfo{
		Name:    name,
		UID:     uid,
		Private: private != 0,
		Stacked: stacked != 0,
	}
	spec := DeviceSpec{UID: uid, Name: name}
	for _, subDevice := range subDeviceList {
		subUID, _ := subDevice[hal.SubDeviceUIDKey].(string)
		index := slices.IndexFunc(h.devices, func(d *device) bool { return d.spec.UID == subUID })
		if index < 0 {
			return nil, hal.StatusIllegalOperation
		}
		sub := h.devices[index]
		info.SubDevices = append(info.SubDevices, subUID)
		spec.Input = append(spec.Input, sub.spec.Input...)
		spec.Output = append(spec.Output, sub.spec.Output...)
	}
	return h.addDeviceLocked(spec, info), hal.NoErr
}

func (h *HAL) setDefaultLocked(selector hal.Selector, id hal.ObjectID) {
	if h.defaults[selector] == id {
		return
	}
	h.defaults[selector] = id
	h.queueLocked(hal.ObjectSystem, hal.GlobalAddress(selector))
}

func (h *HAL) firstWithChannelsLocked(scope hal.PropertyScope) hal.ObjectID {
	for _, d := range h.devices {
		if streams, _ := d.streams(scope); streams.Channels() > 0 {
			return d.id
		}
	}
	return hal.ObjectUnknown
}

func (h *HAL) deviceIDsLocked() []hal.ObjectID {
	ids := make([]hal.ObjectID, len(h.devices))
	for i, d := range h.devices {
		ids[i] = d.id
	}
	return ids
}

func (h *HAL) findLocked(id hal.ObjectID) *device {
	for _, d := range h.devices {
		if d.id == id {
			return d
		}
	}
	return nil
}

func (h *HAL) objectExistsLocked(object hal.ObjectID) bool {
	return object == hal.ObjectSystem || object == PluginID || h.findLocked(object) != nil
}

func (h *HAL) failureLocked(object hal.ObjectID, selector hal.Selector) hal.Status {
	return h.failures[failureKey{object, selector}]
}

// --------------------------------------------------------------------------------
// Notifications

// queueLocked records the listeners of (object, address) as they are right now.
// A listener removed before delivery still receives the notification, as on the real platform.
func (h *HAL) queueLocked(object hal.ObjectID, address hal.PropertyAddress) {
	n := notification{object: object, address: address}
	for key, proc := range h.listeners {
		if key.object == object && key.address == address {
			n.procs = append(n.procs, proc)
			n.tokens = append(n.tokens, key.token)
		}
	}
	if len(n.procs) == 0 {
		return
	}
	h.pending.Add(1)
	h.queued = append(h.queued, n)
}

// flush starts delivering queued notifications unless a delivery goroutine is already
// running, in which case that goroutine picks them up.
func (h *HAL) flush() {
	h.mu.Lock()
	if len(h.queued) == 0 || h.delivering {
		h.mu.Unlock()
		return
	}
	h.delivering = true
	h.mu.Unlock()
	go h.deliver()
}

func (h *HAL) deliver() {
	for {
		h.mu.Lock()
		if len(h.queued) == 0 {
			h.delivering = false
			h.mu.Unlock()
			return
		}
		n := h.queued[0]
		h.queued = h.queued[1:]
		h.mu.Unlock()

		for i, proc := range n.procs {
			if status := proc(n.object, []hal.PropertyAddress{n.address}, n.tokens[i]); status != hal.NoErr {
				h.logger.Debug("listener returned status", "status", status, "address", n.address)
			}
		}
		h.pending.Done()
	}
}
