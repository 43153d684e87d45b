package history

import (
	"context"
	"fmt"
	"time"

	"github.com/graywater/judo2mqtt/internal/infrastructure/database"
)

// schema is the archive table. One row per appliance event, keyed by the
// raw composite string the appliance returned, so replaying a device's
// log after a restart never duplicates rows.
const schema = `
CREATE TABLE IF NOT EXISTS events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	serial_number TEXT    NOT NULL,
	model         TEXT    NOT NULL,
	code          INTEGER NOT NULL,
	occurred_at   INTEGER NOT NULL,
	raw           TEXT    NOT NULL UNIQUE,
	text          TEXT    NOT NULL,
	recorded_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_serial_occurred
	ON events (serial_number, occurred_at DESC);
`

// Store is the persistent archive of published appliance events.
//
// The archive is observability only: runtime event dedup lives in memory
// in the device registry, so deleting the archive file never changes
// which events get published.
type Store struct {
	db *database.DB
}

// Record is one archived event row.
type Record struct {
	SerialNumber string
	Model        string
	Code         int
	OccurredAt   time.Time
	Raw          string
	Text         string
}

// New creates a Store on the given database and ensures the schema exists.
//
// Parameters:
//   - ctx: Context for the schema setup
//   - db: Open database connection (owned by the caller)
//
// Returns:
//   - *Store: Ready archive
//   - error: If schema creation fails
func New(ctx context.Context, db *database.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Insert archives one event. Inserting an event whose raw composite key
// is already present is a no-op, not an error.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - rec: The event to archive
//
// Returns:
//   - error: If the insert fails
func (s *Store) Insert(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO events
			(serial_number, model, code, occurred_at, raw, text, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SerialNumber,
		rec.Model,
		rec.Code,
		rec.OccurredAt.UnixMilli(),
		rec.Raw,
		rec.Text,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("archiving event: %w", err)
	}
	return nil
}

// Recent returns up to limit archived events for a device, newest first.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - serialNumber: Device serial number
//   - limit: Maximum number of rows
//
// Returns:
//   - []Record: Archived events, newest first
//   - error: If the query fails
func (s *Store) Recent(ctx context.Context, serialNumber string, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT serial_number, model, code, occurred_at, raw, text
		 FROM events
		 WHERE serial_number = ?
		 ORDER BY occurred_at DESC
		 LIMIT ?`,
		serialNumber, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var occurred int64
		if err := rows.Scan(&rec.SerialNumber, &rec.Model, &rec.Code, &occurred, &rec.Raw, &rec.Text); err != nil {
			return nil, fmt.Errorf("scanning archive row: %w", err)
		}
		rec.OccurredAt = time.UnixMilli(occurred)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading archive rows: %w", err)
	}

	return records, nil
}

// Count returns the total number of archived events.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting archive rows: %w", err)
	}
	return n, nil
}
