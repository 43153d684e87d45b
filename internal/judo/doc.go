// Package judo implements the local control protocol of JUDO
// water-treatment appliances.
//
// The appliance exposes an HTTPS/JSON API on port 8124. Every call is a
// GET with group/command/msgnumber addressing in the query string; the
// appliance answers {status, data} plus optional token, serial number
// and line fields. The package layers:
//
//   - Client: the HTTPS transport with error classification
//   - Session: login, token rotation, device registry, and bounded
//     recovery from server-side session loss
//   - Scanner: the backward event-log walk with in-memory dedup
//   - Poller: the per-model status command sweep
//   - Scheduler: the fixed-interval drive loop, one cycle in flight
//
// The package is transport-only: it knows nothing about MQTT. Callers
// receive events and status values through handler functions.
package judo
