// Package influxdb provides the optional history sink for judo2mqtt.
//
// Retained MQTT messages only hold the latest value per topic. When
// enabled, this package mirrors every published status record and event
// into InfluxDB ("status" and "event" measurements, tagged by serial,
// model, and command/code) so consumption and event history can be
// queried and graphed.
//
// Writes are batched and non-blocking; failures surface through the
// SetOnError callback and never affect the MQTT publish path.
package influxdb
