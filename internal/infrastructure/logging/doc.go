// Package logging provides structured logging for judo2mqtt.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting bridge", "instance", cfg.Instance)
//	logger.Error("login failed", "error", err)
//
// # Security
//
// Never log the appliance password, session token, or MQTT credentials.
package logging
