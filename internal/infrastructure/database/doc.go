// Package database provides the SQLite connection for the event archive.
//
// It wraps database/sql with the mattn/go-sqlite3 driver, configured
// for a single-writer workload: WAL mode, busy timeout, foreign keys,
// and a connection pool capped at one open connection.
//
// The archive is optional; when disabled in config this package is
// never opened.
package database
