// Package bridge glues the appliance protocol to the MQTT broker.
//
// The bridge owns the topic surface under the configured instance name:
//
//	<instance>/connected            retained "0"/"1"/"2"
//	<instance>/status/<model>/<cmd> retained {ts, val}
//	<instance>/event/<model>/<code> retained {ts, val}
//	<instance>/set/+/+              subscribed, logged and dropped
//	<instance>/cmd/+                subscribed, logged and dropped
//
// It also fans events out to the optional history sinks (InfluxDB and
// the local SQLite archive). The appliance-facing work happens in the
// judo package; the bridge only translates callbacks into messages.
package bridge
