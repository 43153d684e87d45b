// Package mqtt provides the MQTT client for judo2mqtt.
//
// This package wraps eclipse/paho.mqtt.golang with:
//
//   - Connection management with auto-reconnect and exponential backoff
//   - Last Will and Testament on the connected topic ("0" on crash)
//   - Subscription tracking with automatic restoration on reconnect
//   - Publish/subscribe with timeouts and panic-recovering handlers
//   - Topic builders for the instance topic hierarchy
//
// # Topic hierarchy
//
//	<instance>/connected                  retained, "0"/"1"/"2"
//	<instance>/status/<model>/<command>   retained JSON {ts, val}
//	<instance>/event/<model>/<code>       retained JSON {ts, val}
//	<instance>/set/+/+                    inbound device commands
//	<instance>/cmd/+                      inbound generic commands
package mqtt
