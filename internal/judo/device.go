package judo

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Model identifies the water-treatment unit type. The value doubles as
// the "parameter" field of the connect handshake and as a topic level,
// so it carries the appliance's own spelling.
type Model string

// Known unit types.
const (
	// ModelISoftPlus is the i-soft plus water softener.
	ModelISoftPlus Model = "i-soft plus"

	// ModelIDos is the i-dos mineral dosing unit.
	ModelIDos Model = "i-dos"
)

// Device is one appliance unit reported by the device-list call.
//
// Devices are created when the login's device-list response is parsed
// and live for the process lifetime; nothing is persisted.
//
// Thread Safety: all methods are safe for concurrent use.
type Device struct {
	// SerialNumber uniquely identifies the unit.
	SerialNumber string

	// Model is the unit type, used to select event texts and the
	// status command table.
	Model Model

	// seen holds the raw composite key of every event already
	// published for this device. The event-log walk stops at the first
	// previously seen entry.
	seen   map[string]struct{}
	seenMu sync.Mutex
}

// NewDevice creates a device with an empty seen-event set.
func NewDevice(serialNumber string, model Model) *Device {
	return &Device{
		SerialNumber: serialNumber,
		Model:        model,
		seen:         make(map[string]struct{}),
	}
}

// Seen reports whether an event key has already been published.
func (d *Device) Seen(key string) bool {
	d.seenMu.Lock()
	defer d.seenMu.Unlock()
	_, ok := d.seen[key]
	return ok
}

// MarkSeen records an event key as published.
func (d *Device) MarkSeen(key string) {
	d.seenMu.Lock()
	defer d.seenMu.Unlock()
	d.seen[key] = struct{}{}
}

// SeenCount returns the number of distinct events published so far.
func (d *Device) SeenCount() int {
	d.seenMu.Lock()
	defer d.seenMu.Unlock()
	return len(d.seen)
}

// Registry holds the devices discovered at login, in list order.
// The walk and sweep iterate devices in exactly this order.
//
// Thread Safety: all methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	devices []*Device
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a device. Duplicate serial numbers are ignored: the
// appliance occasionally repeats entries across device-list responses.
func (r *Registry) Add(d *Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.devices {
		if existing.SerialNumber == d.SerialNumber {
			return
		}
	}
	r.devices = append(r.devices, d)
}

// Devices returns the registered devices in discovery order.
// The returned slice is a copy; the devices themselves are shared.
func (r *Registry) Devices() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Find returns the device with the given serial number, or nil.
func (r *Registry) Find(serialNumber string) *Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.devices {
		if d.SerialNumber == serialNumber {
			return d
		}
	}
	return nil
}

// Event is one parsed entry of a device's event log.
//
// The raw composite string is the event's identity: the appliance has
// no event IDs, so dedup and archiving key on the exact raw text.
type Event struct {
	// Raw is the unparsed composite string as returned by the appliance.
	Raw string

	// Timestamp is the first composite field, an epoch timestamp in
	// seconds on the appliance's own clock.
	Timestamp int64

	// Code is the second composite field, the numeric event code.
	Code int

	// Fields holds all trimmed composite fields, including the two above.
	// Several event texts template trailing fields into the message.
	Fields []string
}

// ParseEvent parses a raw composite event string.
//
// The format is comma-separated: "<timestamp>, <code>, <aux>...".
//
// Returns:
//   - Event: Parsed event
//   - error: ErrProtocol if the string has fewer than two fields or
//     non-numeric timestamp/code
func ParseEvent(raw string) (Event, error) {
	parts := strings.Split(raw, ",")
	if len(parts) < 2 {
		return Event{}, fmt.Errorf("%w: event data %q has fewer than two fields", ErrProtocol, raw)
	}

	fields := make([]string, len(parts))
	for i, p := range parts {
		fields[i] = strings.TrimSpace(p)
	}

	timestamp, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("%w: event timestamp %q is not numeric", ErrProtocol, fields[0])
	}

	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return Event{}, fmt.Errorf("%w: event code %q is not numeric", ErrProtocol, fields[1])
	}

	return Event{
		Raw:       raw,
		Timestamp: timestamp,
		Code:      code,
		Fields:    fields,
	}, nil
}
