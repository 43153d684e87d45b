package mqtt

import "fmt"

// Connection status values published on the connected topic.
//
// These mirror the convention used by mqtt-smarthome adapters:
// new subscribers always receive a retained value describing the
// current health of the device session.
const (
	// ConnectionUnknown means the bridge is not running or crashed (LWT).
	ConnectionUnknown = "0"

	// ConnectionConnecting means the broker connection is up but no
	// appliance session has been established yet.
	ConnectionConnecting = "1"

	// ConnectionConnected means the appliance session is established.
	ConnectionConnected = "2"
)

// Topics builds judo2mqtt topic names under an instance prefix.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{Prefix: "judo"}
//	topics.Event("i-soft plus", 71)
//	// Returns: "judo/event/i-soft plus/71"
type Topics struct {
	// Prefix is the instance name used as the first topic level.
	Prefix string
}

// Connected returns the retained connection-status topic.
//
// Example: judo/connected
func (t Topics) Connected() string {
	return fmt.Sprintf("%s/connected", t.Prefix)
}

// Status returns the retained status topic for one metric of a device model.
//
// Example: judo/status/i-soft plus/water total
func (t Topics) Status(model, command string) string {
	return fmt.Sprintf("%s/status/%s/%s", t.Prefix, model, command)
}

// Event returns the retained event topic for one event code of a device model.
//
// Example: judo/event/i-soft plus/71
func (t Topics) Event(model string, code int) string {
	return fmt.Sprintf("%s/event/%s/%d", t.Prefix, model, code)
}

// SetWildcard returns the subscription pattern for inbound device commands.
//
// Pattern: judo/set/+/+
func (t Topics) SetWildcard() string {
	return fmt.Sprintf("%s/set/+/+", t.Prefix)
}

// CmdWildcard returns the subscription pattern for inbound generic commands.
//
// Pattern: judo/cmd/+
func (t Topics) CmdWildcard() string {
	return fmt.Sprintf("%s/cmd/+", t.Prefix)
}
