package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t testing.TB) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func record(path string, size int64, mod time.Time) FileRecord {
	name := filepath.Base(path)
	parent := filepath.ToSlash(filepath.Dir(path))
	if parent == "." {
		parent = ""
	}
	section := ""
	if i := indexSlash(path); i > 0 {
		section = path[:i]
	}
	return FileRecord{
		Path:        path,
		Name:        name,
		ParentDir:   parent,
		Extension:   filepath.Ext(name),
		Section:     section,
		Size:        size,
		ModTime:     mod,
		Fingerprint: fmt.Sprintf("hash-%s-%d", path, size),
	}
}

func indexSlash(s string) int {
	for i := range len(s) {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func seed(t *testing.T, db *Database, recs ...FileRecord) {
	t.Helper()
	changes := make([]Change, len(recs))
	for i, r := range recs {
		changes[i] = Change{Kind: ChangeNew, Record: r, At: baseTime}
	}
	if err := db.ApplyBatch(context.Background(), changes); err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}
}

func TestNewDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	// Reopening runs the schema and migrations again without error.
	db2, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	db2.Close()
}

func TestApplyBatchAndGetFile(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	seed(t, db, record("notes/a.md", 10, baseTime))

	got, err := db.GetFile(ctx, "notes/a.md")
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if got.Name != "a.md" || got.Section != "notes" || got.ParentDir != "notes" {
		t.Errorf("Unexpected record: %+v", got)
	}
	if !got.ModTime.Equal(baseTime) {
		t.Errorf("Expected mod time %v, got %v", baseTime, got.ModTime)
	}
	if got.Status != StatusActive {
		t.Errorf("Expected active, got %s", got.Status)
	}
	if !got.FirstSeen.Equal(baseTime) || !got.LastSeen.Equal(baseTime) {
		t.Errorf("Expected first/last seen %v, got %v/%v", baseTime, got.FirstSeen, got.LastSeen)
	}

	_, err = db.GetFile(ctx, "missing.md")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestEpochModTimeRoundTrips(t *testing.T) {
	db := setupTestDB(t)
	epoch := time.Unix(0, 0).UTC()

	seed(t, db, record("old/epoch.md", 3, epoch))

	got, err := db.GetFile(context.Background(), "old/epoch.md")
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if got.ModTime.IsZero() || !got.ModTime.Equal(epoch) {
		t.Errorf("Expected mod time %v, got %v", epoch, got.ModTime)
	}

	if toNanos(time.Time{}) == toNanos(epoch) {
		t.Error("zero time and the Unix epoch must encode differently")
	}
	if !fromNanos(toNanos(time.Time{})).IsZero() {
		t.Error("zero time did not round-trip")
	}
}

func TestMarkDeletedAndReactivate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seed(t, db, record("a.md", 1, baseTime))

	later := baseTime.Add(time.Hour)
	err := db.ApplyBatch(ctx, []Change{{Kind: ChangeDeleted, Record: FileRecord{Path: "a.md"}, At: later}})
	if err != nil {
		t.Fatalf("ApplyBatch delete failed: %v", err)
	}

	got, err := db.GetFile(ctx, "a.md")
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if got.Status != StatusDeleted || got.DeletedAt == nil || !got.DeletedAt.Equal(later) {
		t.Errorf("Expected deleted at %v, got %+v", later, got)
	}

	// Reappearing keeps first_seen and clears deleted_at.
	rec := record("a.md", 2, later)
	rec.FirstSeen = got.FirstSeen
	err = db.ApplyBatch(ctx, []Change{{Kind: ChangeNew, Record: rec, At: later.Add(time.Hour)}})
	if err != nil {
		t.Fatalf("ApplyBatch reactivate failed: %v", err)
	}
	got, _ = db.GetFile(ctx, "a.md")
	if got.Status != StatusActive || got.DeletedAt != nil {
		t.Errorf("Expected reactivated record, got %+v", got)
	}
	if !got.FirstSeen.Equal(baseTime) {
		t.Errorf("Expected first seen preserved, got %v", got.FirstSeen)
	}
}

func TestApplyBatchAtomic(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	ctxCanceled, cancel := context.WithCancel(ctx)
	cancel()

	err := db.ApplyBatch(ctxCanceled, []Change{
		{Kind: ChangeNew, Record: record("a.md", 1, baseTime), At: baseTime},
		{Kind: ChangeNew, Record: record("b.md", 1, baseTime), At: baseTime},
	})
	if err == nil {
		t.Fatal("Expected error with canceled context")
	}

	snap, err := db.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap) != 0 {
		t.Errorf("Expected no records after failed batch, got %d", len(snap))
	}
}

func TestSnapshot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seed(t, db, record("a.md", 1, baseTime), record("r/b.pdf", 2, baseTime))

	snap, err := db.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(snap))
	}
	if snap["r/b.pdf"].Size != 2 {
		t.Errorf("Expected size 2, got %d", snap["r/b.pdf"].Size)
	}
}

func TestGetFilesByPaths(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db, record("a.md", 1, baseTime), record("b.md", 2, baseTime))

	got, err := db.GetFilesByPaths(context.Background(), []string{"a.md", "nope.md", "b.md"})
	if err != nil {
		t.Fatalf("GetFilesByPaths failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 records, got %d", len(got))
	}
	if _, ok := got["nope.md"]; ok {
		t.Error("Unknown path must be absent")
	}
}

func TestGetFilesByPathsManyChunks(t *testing.T) {
	db := setupTestDB(t)

	var recs []FileRecord
	var paths []string
	for i := range 1200 {
		p := fmt.Sprintf("bulk/f%04d.txt", i)
		recs = append(recs, record(p, int64(i), baseTime))
		paths = append(paths, p)
	}
	seed(t, db, recs...)

	got, err := db.GetFilesByPaths(context.Background(), paths)
	if err != nil {
		t.Fatalf("GetFilesByPaths failed: %v", err)
	}
	if len(got) != 1200 {
		t.Errorf("Expected 1200 records, got %d", len(got))
	}
}

func TestMetadataAndIndexRuns(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	last, err := db.GetLastIndexTime(ctx, "full")
	if err != nil || !last.IsZero() {
		t.Fatalf("Expected zero time before any run, got %v, %v", last, err)
	}

	if err := db.RecordIndexRun(ctx, "full", baseTime, `{"new":3}`); err != nil {
		t.Fatalf("RecordIndexRun failed: %v", err)
	}

	last, err = db.GetLastIndexTime(ctx, "full")
	if err != nil || !last.Equal(baseTime) {
		t.Errorf("Expected %v, got %v (%v)", baseTime, last, err)
	}
	anyRun, _ := db.GetLastIndexTime(ctx, "")
	if !anyRun.Equal(baseTime) {
		t.Errorf("Expected last index %v, got %v", baseTime, anyRun)
	}
	incr, _ := db.GetLastIndexTime(ctx, "incremental")
	if !incr.IsZero() {
		t.Errorf("Expected no incremental run, got %v", incr)
	}

	stats, err := db.GetLastRunStats(ctx)
	if err != nil || stats != `{"new":3}` {
		t.Errorf("Expected stats JSON, got %q (%v)", stats, err)
	}

	if _, err := db.GetMetadata(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
