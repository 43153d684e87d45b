// Package config loads and validates judo2mqtt configuration.
//
// Configuration is layered: hardcoded defaults, then the YAML file,
// then JUDO2MQTT_* environment variable overrides. The loaded Config
// is treated as immutable for the lifetime of the process.
//
// # Example
//
//	instance: judo
//	device:
//	  address: 192.168.1.50
//	  username: admin
//	  password: secret
//	mqtt:
//	  broker:
//	    host: localhost
//	    port: 1883
//	polling:
//	  interval: 10
//	  status_cycle_threshold: 6
//
// Secrets (device password, MQTT password, InfluxDB token) should be
// provided via environment variables rather than committed to the file.
package config
