package judo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// State is the session lifecycle state.
type State int

// Session states.
const (
	StateLoggedOut State = iota
	StateLoggingIn
	StateLoggedIn
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateLoggedIn:
		return "logged_in"
	case StateLoggingIn:
		return "logging_in"
	default:
		return "logged_out"
	}
}

// deviceListEntry is one element of the register/show response.
type deviceListEntry struct {
	SerialNumber string `json:"serial number"`
	ModelType    string `json:"wtuType"`
}

// Session owns the login/token lifecycle and the device registry.
//
// It wraps the transport client and transparently recovers from session
// loss: a request rejected with "not logged in" triggers one re-login
// and one retry of the original request. The retry is bounded so a
// server that persistently rejects credentials cannot cause recursion.
//
// The appliance holds exactly one active device context server-side;
// the session tracks which serial number that is so callers know when
// the connect handshake is required.
//
// Thread Safety: all methods are safe for concurrent use, but the
// protocol itself requires serialized device I/O - the scheduler is the
// only driver in practice.
type Session struct {
	client   *Client
	username string
	password string
	registry *Registry

	mu           sync.Mutex
	state        State
	token        string
	activeSerial string

	// onStateChange is invoked after every state transition (optional).
	onStateChange func(State)

	logger Logger
}

// NewSession creates a session in the LoggedOut state.
//
// Parameters:
//   - client: Appliance transport client
//   - username: Customer account name
//   - password: Customer account password
func NewSession(client *Client, username, password string) *Session {
	return &Session{
		client:   client,
		username: username,
		password: password,
		registry: NewRegistry(),
	}
}

// SetLogger sets an optional logger.
func (s *Session) SetLogger(logger Logger) {
	s.logger = logger
}

// SetOnStateChange sets a callback invoked after every state
// transition. Used by the bridge to publish connection status.
func (s *Session) SetOnStateChange(callback func(State)) {
	s.mu.Lock()
	s.onStateChange = callback
	s.mu.Unlock()
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LoggedIn reports whether a login has succeeded and not been invalidated.
func (s *Session) LoggedIn() bool {
	return s.State() == StateLoggedIn
}

// Token returns the current session token ("" when logged out).
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// ActiveSerial returns the serial number of the device context the
// appliance currently holds ("" when none).
func (s *Session) ActiveSerial() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSerial
}

// IsActive reports whether the given device is the active server-side context.
func (s *Session) IsActive(d *Device) bool {
	return s.ActiveSerial() == d.SerialNumber
}

// Registry returns the device registry populated at first login.
func (s *Session) Registry() *Registry {
	return s.registry
}

// setState transitions the session state and fires the callback.
func (s *Session) setState(state State) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	callback := s.onStateChange
	s.mu.Unlock()

	if changed && callback != nil {
		callback(state)
	}
}

// absorb captures token rotation and active-device updates from a response.
// The appliance may rotate the token on any call.
func (s *Session) absorb(resp *Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if resp.Token != "" {
		s.token = resp.Token
	}
	if resp.SerialNumber != "" {
		s.activeSerial = resp.SerialNumber
	}
}

// invalidate clears the token after the appliance reported session loss.
func (s *Session) invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	s.setState(StateLoggedOut)
}

// request issues one request with the current token attached.
func (s *Session) request(ctx context.Context, group, command string, msgNumber int, params Params) (*Response, error) {
	merged := make(Params, len(params)+1)
	for key, value := range params {
		merged[key] = value
	}
	if token := s.Token(); token != "" {
		merged["token"] = token
	}

	resp, err := s.client.Request(ctx, group, command, msgNumber, merged)
	if err != nil {
		return nil, err
	}
	s.absorb(resp)
	return resp, nil
}

// Login authenticates against the appliance with the customer role.
//
// On the first successful login the full device list is fetched and
// cached in the registry; later logins (token recovery) skip that.
//
// Returns:
//   - error: ErrAuth when credentials are rejected, ErrTransport/
//     ErrProtocol from the transport, or a device-list fetch failure
func (s *Session) Login(ctx context.Context) error {
	s.setState(StateLoggingIn)

	resp, err := s.request(ctx, "register", "login", 2, Params{
		"name":     "login",
		"user":     s.username,
		"password": s.password,
		"role":     "customer",
	})
	if err != nil {
		s.setState(StateLoggedOut)
		return fmt.Errorf("login: %w", err)
	}
	if !resp.OK() {
		s.setState(StateLoggedOut)
		return fmt.Errorf("%w: %s", ErrAuth, resp.DataString())
	}

	s.setState(StateLoggedIn)
	s.logInfo("logged in", "active_serial", s.ActiveSerial())

	if s.registry.Len() == 0 {
		if err := s.fetchDeviceList(ctx); err != nil {
			return err
		}
	}

	return nil
}

// fetchDeviceList loads the register/show device list into the registry.
func (s *Session) fetchDeviceList(ctx context.Context) error {
	resp, err := s.request(ctx, "register", "show", 1, nil)
	if err != nil {
		return fmt.Errorf("fetching device list: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("fetching device list: appliance said %q", resp.DataString())
	}

	var entries []deviceListEntry
	if err := json.Unmarshal(resp.Data, &entries); err != nil {
		return fmt.Errorf("%w: decoding device list: %w", ErrProtocol, err)
	}

	for _, entry := range entries {
		if entry.SerialNumber == "" {
			continue
		}
		s.registry.Add(NewDevice(entry.SerialNumber, Model(entry.ModelType)))
	}

	s.logInfo("device list loaded", "devices", s.registry.Len())
	return nil
}

// Do issues a request with automatic session-loss recovery.
//
// A "not logged in" response invalidates the token, re-authenticates,
// and retries the original request exactly once; a second rejection
// yields ErrSession. A "not connected" response yields ErrDeviceOffline
// without any recovery attempt - the caller decides whether and when to
// issue the connect handshake (see Scanner/Poller auto-reconnect).
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - group, command, msgNumber: Appliance command addressing
//   - params: Extra query parameters (may be nil)
//
// Returns:
//   - *Response: Appliance response (status may still be "error" for
//     payloads other than the two session signals)
//   - error: Classified per the package error taxonomy
func (s *Session) Do(ctx context.Context, group, command string, msgNumber int, params Params) (*Response, error) {
	resp, err := s.request(ctx, group, command, msgNumber, params)
	if err != nil {
		return nil, err
	}

	if resp.NotLoggedIn() {
		s.logWarn("session lost, re-authenticating", "group", group, "command", command)
		s.invalidate()

		if err := s.Login(ctx); err != nil {
			return nil, err
		}

		resp, err = s.request(ctx, group, command, msgNumber, params)
		if err != nil {
			return nil, err
		}
		if resp.NotLoggedIn() {
			return nil, fmt.Errorf("%w: %s/%s still rejected after re-login", ErrSession, group, command)
		}
	}

	if resp.NotConnected() {
		return nil, fmt.Errorf("%w: %s/%s", ErrDeviceOffline, group, command)
	}

	return resp, nil
}

// ConnectDevice makes the given device the active server-side context.
//
// Must be called before event or status queries whenever the active
// serial differs from the target device.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - d: Device to connect
//
// Returns:
//   - error: If the handshake fails or is rejected
func (s *Session) ConnectDevice(ctx context.Context, d *Device) error {
	resp, err := s.Do(ctx, "register", "connect", 5, Params{
		"parameter":     string(d.Model),
		"serial number": d.SerialNumber,
	})
	if err != nil {
		return fmt.Errorf("connecting device %s: %w", d.SerialNumber, err)
	}
	if !resp.OK() {
		return fmt.Errorf("connecting device %s: appliance said %q", d.SerialNumber, resp.DataString())
	}

	// Most firmwares echo the serial back (absorbed above); set it
	// explicitly for the ones that do not.
	s.mu.Lock()
	s.activeSerial = d.SerialNumber
	s.mu.Unlock()

	s.logDebug("device connected", "serial", d.SerialNumber, "model", string(d.Model))
	return nil
}

func (s *Session) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Session) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Session) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
