package judo

import (
	"errors"
	"testing"
)

// =============================================================================
// Event Parsing Tests
// =============================================================================

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent("1700000100, 40, 0, 30")
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}

	if ev.Timestamp != 1700000100 {
		t.Errorf("Timestamp = %d, want 1700000100", ev.Timestamp)
	}
	if ev.Code != 40 {
		t.Errorf("Code = %d, want 40", ev.Code)
	}
	if len(ev.Fields) != 4 {
		t.Errorf("len(Fields) = %d, want 4", len(ev.Fields))
	}
	if ev.Fields[3] != "30" {
		t.Errorf("Fields[3] = %q, want 30 (trimmed)", ev.Fields[3])
	}
	if ev.Raw != "1700000100, 40, 0, 30" {
		t.Errorf("Raw = %q, want original string", ev.Raw)
	}
}

func TestParseEventInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"single field", "1700000100"},
		{"non-numeric timestamp", "abc, 40"},
		{"non-numeric code", "1700000100, xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvent(tt.raw)
			if !errors.Is(err, ErrProtocol) {
				t.Errorf("ParseEvent(%q) error = %v, want ErrProtocol", tt.raw, err)
			}
		})
	}
}

// =============================================================================
// Device and Registry Tests
// =============================================================================

func TestDeviceSeen(t *testing.T) {
	d := NewDevice("711001", ModelISoftPlus)

	if d.Seen("1700000100, 61") {
		t.Error("Seen() = true for fresh device")
	}

	d.MarkSeen("1700000100, 61")
	if !d.Seen("1700000100, 61") {
		t.Error("Seen() = false after MarkSeen")
	}
	if d.SeenCount() != 1 {
		t.Errorf("SeenCount() = %d, want 1", d.SeenCount())
	}

	// Marking the same key again must not grow the set.
	d.MarkSeen("1700000100, 61")
	if d.SeenCount() != 1 {
		t.Errorf("SeenCount() = %d after duplicate mark, want 1", d.SeenCount())
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	r.Add(NewDevice("711001", ModelISoftPlus))
	r.Add(NewDevice("711002", ModelIDos))
	r.Add(NewDevice("711001", ModelISoftPlus)) // duplicate serial

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (duplicate ignored)", r.Len())
	}

	devices := r.Devices()
	if devices[0].SerialNumber != "711001" || devices[1].SerialNumber != "711002" {
		t.Error("Devices() not in discovery order")
	}

	if d := r.Find("711002"); d == nil || d.Model != ModelIDos {
		t.Error("Find(711002) did not return the dosing unit")
	}
	if r.Find("999999") != nil {
		t.Error("Find(999999) = non-nil, want nil")
	}
}
