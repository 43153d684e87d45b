package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteStatus writes one appliance status record to InfluxDB.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Numeric values are written as floats under the "value" field so they
// can be graphed; non-numeric values are written under "text".
//
// Parameters:
//   - serial: Appliance serial number
//   - model: Device model (e.g., "i-soft plus")
//   - command: The status command name (e.g., "water total")
//   - value: The raw data string from the appliance
//
// Example:
//
//	client.WriteStatus("12345", "i-soft plus", "water total", "8000")
func (c *Client) WriteStatus(serial, model, command, value string) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"serial":  serial,
		"model":   model,
		"command": command,
	}

	fields := map[string]interface{}{}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		fields["value"] = f
	} else {
		fields["text"] = value
	}

	point := write.NewPoint("status", tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WriteEvent writes one appliance event occurrence to InfluxDB.
//
// Parameters:
//   - serial: Appliance serial number
//   - model: Device model
//   - code: Numeric event code
//   - text: Resolved human-readable event text
//   - occurred: Event timestamp as reported by the appliance
func (c *Client) WriteEvent(serial, model string, code int, text string, occurred time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"event",
		map[string]string{
			"serial": serial,
			"model":  model,
			"code":   strconv.Itoa(code),
		},
		map[string]interface{}{
			"text": text,
		},
		occurred,
	)

	c.writeAPI.WritePoint(point)
}
