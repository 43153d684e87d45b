package judo

import "errors"

// Domain errors for the appliance protocol.
// Use errors.Is() to classify failures in calling code.
var (
	// ErrTransport is returned when the HTTP request to the appliance
	// fails at the network level (unreachable, timeout, TLS handshake).
	// The core never retries these automatically.
	ErrTransport = errors.New("judo: transport error")

	// ErrProtocol is returned when the appliance responds with a body
	// that is not the expected JSON shape. Fatal to the current request.
	ErrProtocol = errors.New("judo: protocol error")

	// ErrAuth is returned when the appliance rejects the login
	// credentials. Fatal to the current login attempt; the scheduler
	// keeps ticking and retries lazily.
	ErrAuth = errors.New("judo: login rejected")

	// ErrSession is returned when session-loss recovery itself failed:
	// a request still reports "not logged in" after one re-login.
	ErrSession = errors.New("judo: session recovery failed")

	// ErrDeviceOffline is returned when the appliance reports
	// "not connected": the request needs an active device context.
	// The caller must issue the connect handshake before retrying.
	ErrDeviceOffline = errors.New("judo: device not connected")
)
