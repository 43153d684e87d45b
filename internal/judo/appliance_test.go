package judo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeDevice is one unit the fake appliance reports in its device list.
type fakeDevice struct {
	serial string
	model  string
}

// fakeAppliance simulates the appliance control API over TLS: login
// with token issue, device list, connect handshake, newest-first event
// log and status registers. Event logs are stored oldest-first; line 1
// is the oldest entry and line len(log) the newest.
type fakeAppliance struct {
	server *httptest.Server

	mu       sync.Mutex
	user     string
	pass     string
	devices  []fakeDevice
	events   map[string][]string
	statuses map[string]string

	token           string
	loggedIn        bool
	connectedSerial string

	// dropSessionOnce makes the next authenticated request answer
	// "not logged in" once, simulating server-side session expiry.
	dropSessionOnce bool

	// rejectAllSessions makes every non-login request answer
	// "not logged in" even with a fresh token.
	rejectAllSessions bool

	// dropConnectOnce makes the next event-list request answer
	// "not connected" once, simulating a lost device context.
	dropConnectOnce bool

	// failStatus lists "group/command" keys that answer status "error".
	failStatus map[string]bool

	// delay is a minimum response time applied to every request,
	// for tests that need a slow appliance.
	delay time.Duration

	// inFlight/maxInFlight gauge concurrent requests, so tests can
	// assert that appliance I/O stays serialized.
	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	loginCount int
	requests   []string
}

func newFakeAppliance(devices ...fakeDevice) *fakeAppliance {
	f := &fakeAppliance{
		user:       "admin",
		pass:       "secret",
		devices:    devices,
		events:     make(map[string][]string),
		statuses:   make(map[string]string),
		failStatus: make(map[string]bool),
	}
	f.server = httptest.NewTLSServer(http.HandlerFunc(f.handle))
	return f
}

func (f *fakeAppliance) Close() {
	f.server.Close()
}

// addEvent appends a raw event to a device's log as the new newest entry.
func (f *fakeAppliance) addEvent(serial, raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[serial] = append(f.events[serial], raw)
}

func (f *fakeAppliance) logins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCount
}

// setRequestDelay makes every subsequent request take at least d to answer.
func (f *fakeAppliance) setRequestDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// maxConcurrent returns the highest number of requests ever in flight.
func (f *fakeAppliance) maxConcurrent() int {
	return int(f.maxInFlight.Load())
}

// requestCount counts handled requests with the given "group/command" key.
func (f *fakeAppliance) requestCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r == key {
			n++
		}
	}
	return n
}

func (f *fakeAppliance) handle(w http.ResponseWriter, r *http.Request) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	delay := f.delay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	q := r.URL.Query()
	group := q.Get("group")
	command := q.Get("command")
	f.requests = append(f.requests, group+"/"+command)

	write := func(resp map[string]any) {
		_ = json.NewEncoder(w).Encode(resp)
	}

	if group == "register" && command == "login" {
		if q.Get("user") != f.user || q.Get("password") != f.pass {
			write(map[string]any{"status": "error", "data": "wrong credentials"})
			return
		}
		f.loggedIn = true
		f.loginCount++
		f.token = fmt.Sprintf("token-%d", f.loginCount)
		write(map[string]any{"status": "ok", "data": "login ok", "token": f.token})
		return
	}

	if f.dropSessionOnce {
		f.dropSessionOnce = false
		f.loggedIn = false
		write(map[string]any{"status": "error", "data": "not logged in"})
		return
	}
	if f.rejectAllSessions || !f.loggedIn || q.Get("token") != f.token {
		write(map[string]any{"status": "error", "data": "not logged in"})
		return
	}

	if group == "register" && command == "show" {
		entries := make([]map[string]string, 0, len(f.devices))
		for _, d := range f.devices {
			entries = append(entries, map[string]string{
				"serial number": d.serial,
				"wtuType":       d.model,
			})
		}
		write(map[string]any{"status": "ok", "data": entries})
		return
	}

	if group == "register" && command == "connect" {
		serial := q.Get("serial number")
		for _, d := range f.devices {
			if d.serial == serial {
				f.connectedSerial = serial
				write(map[string]any{"status": "ok", "data": "connected", "serial number": serial})
				return
			}
		}
		write(map[string]any{"status": "error", "data": "unknown device"})
		return
	}

	if f.connectedSerial == "" {
		write(map[string]any{"status": "error", "data": "not connected"})
		return
	}

	if group == "state" && command == "event list" {
		if f.dropConnectOnce {
			f.dropConnectOnce = false
			f.connectedSerial = ""
			write(map[string]any{"status": "error", "data": "not connected"})
			return
		}
		log := f.events[f.connectedSerial]
		if len(log) == 0 {
			write(map[string]any{"status": "ok", "data": "", "line": 0})
			return
		}
		line, _ := strconv.Atoi(q.Get("line"))
		if line <= 0 || line > len(log) {
			line = len(log)
		}
		write(map[string]any{"status": "ok", "data": log[line-1], "line": line})
		return
	}

	key := group + "/" + command
	if f.failStatus[key] {
		write(map[string]any{"status": "error", "data": "register unavailable"})
		return
	}
	value := f.statuses[key]
	if value == "" {
		value = "0"
	}
	write(map[string]any{"status": "ok", "data": value})
}

// newTestClient builds a Client pointed at the fake appliance.
func newTestClient(t *testing.T, f *fakeAppliance) *Client {
	t.Helper()
	u, err := url.Parse(f.server.URL)
	if err != nil {
		t.Fatalf("parsing fake appliance URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parsing fake appliance port: %v", err)
	}
	return NewClient(u.Hostname(), port, 5*time.Second)
}

// newTestSession builds a logged-out Session against the fake appliance.
func newTestSession(t *testing.T, f *fakeAppliance) *Session {
	t.Helper()
	return NewSession(newTestClient(t, f), f.user, f.pass)
}
