package judo

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Well-known error payloads the appliance uses on the data field.
const (
	dataNotLoggedIn  = "not logged in"
	dataNotConnected = "not connected"
)

// Params holds extra query parameters for one appliance request.
type Params map[string]string

// Response is the decoded JSON body of one appliance response.
//
// The data field is kept raw because its type depends on the request:
// a plain string for most commands, an object array for the device list.
type Response struct {
	Status       string          `json:"status"`
	Data         json.RawMessage `json:"data"`
	Token        string          `json:"token"`
	SerialNumber string          `json:"serial number"`
	Line         int             `json:"line"`
}

// OK reports whether the appliance accepted the request.
func (r *Response) OK() bool {
	return r.Status == "ok"
}

// DataString returns the data field as a string.
// Non-string data (e.g. the device list array) is returned as raw JSON.
func (r *Response) DataString() string {
	if len(r.Data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Data, &s); err == nil {
		return s
	}
	return string(r.Data)
}

// NotLoggedIn reports whether the appliance rejected the request for a
// missing or expired session token.
func (r *Response) NotLoggedIn() bool {
	return r.Status == "error" && r.DataString() == dataNotLoggedIn
}

// NotConnected reports whether the appliance rejected the request
// because no device context is active.
func (r *Response) NotConnected() bool {
	return r.Status == "error" && r.DataString() == dataNotConnected
}

// Logger is the logging interface the judo package components accept.
// Satisfied by logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Client issues requests to the appliance's local control API.
//
// Every request is an HTTPS GET against the fixed control port, with
// the three-part group/command/msgnumber addressing in the query string.
//
// The appliance ships a self-signed certificate that cannot be
// verified, so certificate validation is disabled. This is a deliberate
// tradeoff: the API only exists on the LAN and offers no way to install
// a trusted certificate.
type Client struct {
	baseURL    string
	httpClient *http.Client

	logger Logger
}

// NewClient creates a client for the appliance at the given address.
//
// Parameters:
//   - address: Appliance IP address or hostname
//   - port: Control API port (8124 on every known model)
//   - timeout: Per-request transport timeout
//
// Returns:
//   - *Client: Ready to use; no connection is made until the first request
func NewClient(address string, port int, timeout time.Duration) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, // #nosec G402 -- self-signed appliance certificate, see type doc
		},
	}

	return &Client{
		baseURL: fmt.Sprintf("https://%s:%d/", address, port),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// SetLogger sets an optional logger for request tracing.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// Request issues one appliance request and decodes the response.
//
// The response is returned even when its status is "error": classifying
// error payloads (session loss, missing device context) is the session
// manager's job, not the transport's.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - group: Command group (e.g. "register", "state", "consumption")
//   - command: Command name within the group (e.g. "event list")
//   - msgNumber: Protocol message number for the command
//   - params: Extra query parameters (may be nil)
//
// Returns:
//   - *Response: Decoded response
//   - error: ErrTransport on network failure, ErrProtocol on undecodable body
func (c *Client) Request(ctx context.Context, group, command string, msgNumber int, params Params) (*Response, error) {
	query := url.Values{}
	query.Set("group", group)
	query.Set("command", command)
	query.Set("msgnumber", strconv.Itoa(msgNumber))
	for key, value := range params {
		query.Set(key, value)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrTransport, err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	if c.logger != nil {
		c.logger.Debug("appliance request",
			"group", group,
			"command", command,
			"msgnumber", msgNumber,
		)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", ErrTransport, group, command, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s/%s: unexpected HTTP status %d", ErrTransport, group, command, resp.StatusCode)
	}

	var decoded Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: decoding response: %w", ErrProtocol, group, command, err)
	}

	return &decoded, nil
}
