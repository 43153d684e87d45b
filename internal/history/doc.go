// Package history archives published appliance events to SQLite.
//
// The appliance's own event log is a small ring buffer; once entries
// rotate out they are gone. The archive keeps every event the bridge
// ever published, deduplicated on the raw composite key, so the full
// history survives both appliance rotation and bridge restarts.
//
// The archive never feeds back into runtime behaviour: publish dedup is
// in-memory in the device registry.
package history
