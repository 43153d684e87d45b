package judo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// EventHandler receives every newly discovered event, exactly once per
// composite key over the process lifetime.
type EventHandler func(d *Device, ev Event, text string)

// Scanner walks each device's event log backward from the newest entry
// and emits events that have not been published before.
//
// The appliance serves its log newest-first through a line index: a
// request at line 0 returns the newest entry along with its actual line
// number, and the walk continues downward at line-1. Hitting an entry
// that was already published means everything older was published too,
// so the walk stops there.
//
// Completed scan cycles count toward the status sweep: every Nth
// exhausted cycle triggers the Poller and resets the counter. Status
// cadence is therefore coupled to scan cadence, not wall-clock time.
type Scanner struct {
	session *Session
	poller  *Poller
	handler EventHandler

	// threshold is the number of completed cycles between status sweeps.
	threshold int

	// autoReconnect enables one connect handshake and retry when a
	// request fails with ErrDeviceOffline mid-walk.
	autoReconnect bool

	// counter counts completed cycles since the last sweep.
	// Invariant: 0 <= counter < threshold outside Scan.
	counter int

	logger Logger
}

// ScannerConfig holds configuration for creating a Scanner.
type ScannerConfig struct {
	// Session is the appliance session (required).
	Session *Session

	// Poller is triggered every Nth completed cycle (optional; when nil
	// the cycle counter still runs but no sweep happens).
	Poller *Poller

	// Handler receives discovered events (required).
	Handler EventHandler

	// StatusCycleThreshold is N in "sweep every Nth cycle". Default 6.
	StatusCycleThreshold int

	// AutoReconnect enables the mid-walk reconnect retry.
	AutoReconnect bool

	// Logger is an optional structured logger.
	Logger Logger
}

// NewScanner creates a scanner.
//
// Returns:
//   - *Scanner: Ready scanner
//   - error: If session or handler is missing
func NewScanner(cfg ScannerConfig) (*Scanner, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("judo: scanner requires a session")
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("judo: scanner requires an event handler")
	}

	threshold := cfg.StatusCycleThreshold
	if threshold <= 0 {
		threshold = 6
	}

	return &Scanner{
		session:       cfg.Session,
		poller:        cfg.Poller,
		handler:       cfg.Handler,
		threshold:     threshold,
		autoReconnect: cfg.AutoReconnect,
		logger:        cfg.Logger,
	}, nil
}

// Counter returns the number of completed cycles since the last sweep.
func (s *Scanner) Counter() int {
	return s.counter
}

// Scan runs one full cycle: every registered device's event log is
// walked once, in registry order. Per-device failures are logged and
// contained - they never abort the remaining devices. After the last
// device the cycle counter advances and may trigger the status sweep.
//
// Scan is not safe for concurrent invocation; the scheduler guarantees
// a single in-flight cycle.
func (s *Scanner) Scan(ctx context.Context) {
	devices := s.session.Registry().Devices()
	if len(devices) == 0 {
		return
	}

	for _, d := range devices {
		if err := s.scanDevice(ctx, d); err != nil {
			s.logError("event scan failed", "serial", d.SerialNumber, "error", err)
		}
	}

	s.counter++
	if s.counter >= s.threshold {
		s.counter = 0
		if s.poller != nil {
			s.poller.Sweep(ctx)
		}
	}
}

// scanDevice walks one device's event log until it is exhausted.
func (s *Scanner) scanDevice(ctx context.Context, d *Device) error {
	if !s.session.IsActive(d) {
		if err := s.session.ConnectDevice(ctx, d); err != nil {
			return err
		}
	}

	line := 0
	previousLine := math.MaxInt

	for {
		resp, err := s.fetchEventLine(ctx, d, line)
		if err != nil {
			return err
		}
		if !resp.OK() {
			return fmt.Errorf("fetching events: appliance said %q", resp.DataString())
		}

		raw := resp.DataString()
		if raw == "" {
			// Empty log: exhausted immediately.
			return nil
		}

		if d.Seen(raw) {
			// Newest-first log: everything below this line is older
			// and was already published.
			return nil
		}
		d.MarkSeen(raw)

		if ev, perr := ParseEvent(raw); perr != nil {
			s.logError("unparseable event entry", "serial", d.SerialNumber, "error", perr)
		} else {
			s.handler(d, ev, ResolveEventText(d.Model, ev))
		}

		if resp.Line <= 1 {
			return nil
		}
		if resp.Line >= previousLine {
			// The line index must strictly decrease; a misbehaving
			// appliance must not trap the walk.
			return fmt.Errorf("%w: event line did not decrease (%d after %d)", ErrProtocol, resp.Line, previousLine)
		}
		previousLine = resp.Line
		line = resp.Line - 1
	}
}

// fetchEventLine requests one event-log line, optionally recovering a
// lost device context once.
func (s *Scanner) fetchEventLine(ctx context.Context, d *Device, line int) (*Response, error) {
	params := Params{
		"line":   strconv.Itoa(line),
		"offset": "0",
	}

	resp, err := s.session.Do(ctx, "state", "event list", 1, params)
	if errors.Is(err, ErrDeviceOffline) && s.autoReconnect {
		s.logWarn("device context lost mid-walk, reconnecting", "serial", d.SerialNumber)
		if cerr := s.session.ConnectDevice(ctx, d); cerr != nil {
			return nil, cerr
		}
		return s.session.Do(ctx, "state", "event list", 1, params)
	}
	return resp, err
}

func (s *Scanner) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Scanner) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
