package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/graywater/judo2mqtt/internal/infrastructure/database"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "archive.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := New(context.Background(), db)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

func testRecord(raw string) Record {
	return Record{
		SerialNumber: "1234567",
		Model:        "i-soft plus",
		Code:         71,
		OccurredAt:   time.UnixMilli(1000),
		Raw:          raw,
		Text:         "Achtung Salzmangel!",
	}
}

func TestInsertAndRecent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, testRecord("1000, 71")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	records, err := store.Recent(ctx, "1234567", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Recent() returned %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.Raw != "1000, 71" {
		t.Errorf("Raw = %q, want the composite key", rec.Raw)
	}
	if rec.Code != 71 {
		t.Errorf("Code = %d, want 71", rec.Code)
	}
	if rec.OccurredAt.UnixMilli() != 1000 {
		t.Errorf("OccurredAt = %v, want unix ms 1000", rec.OccurredAt)
	}
}

func TestInsertDuplicateIsNoOp(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.Insert(ctx, testRecord("1000, 71")); err != nil {
			t.Fatalf("Insert() #%d error = %v", i, err)
		}
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d after duplicate inserts, want 1", n)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for _, rec := range []Record{
		{SerialNumber: "s", Model: "i-soft plus", Code: 1, OccurredAt: time.UnixMilli(100), Raw: "100, 1", Text: "a"},
		{SerialNumber: "s", Model: "i-soft plus", Code: 2, OccurredAt: time.UnixMilli(300), Raw: "300, 2", Text: "b"},
		{SerialNumber: "s", Model: "i-soft plus", Code: 3, OccurredAt: time.UnixMilli(200), Raw: "200, 3", Text: "c"},
	} {
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	records, err := store.Recent(ctx, "s", 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Recent() returned %d records, want 2 (limit)", len(records))
	}
	if records[0].Code != 2 || records[1].Code != 3 {
		t.Errorf("Recent() order = [%d %d], want newest first [2 3]", records[0].Code, records[1].Code)
	}
}

func TestRecentUnknownSerial(t *testing.T) {
	store := testStore(t)

	records, err := store.Recent(context.Background(), "unknown", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Recent() returned %d records for unknown serial, want 0", len(records))
	}
}
