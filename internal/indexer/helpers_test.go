package indexer

import (
	"context"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"corpus-manager/internal/database"
)

var fixtureTime = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

// writeFile creates root/rel with content and a fixed mtime.
func writeFile(t *testing.T, root, rel, content string, mtime time.Time) string {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	if err := os.Chtimes(abs, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", rel, err)
	}
	return abs
}

func testScanConfig(root string) ScanConfig {
	return ScanConfig{
		Root:         root,
		SkipHidden:   true,
		SkipPatterns: []string{"~$*", "*.tmp", "Thumbs.db"},
		Extensions:   []string{".md", ".docx", ".xlsx", ".pdf", ".txt"},
	}
}

// memStore is an in-memory Store that can fail a number of commits.
type memStore struct {
	mu       sync.Mutex
	records  map[string]database.FileRecord
	batches  [][]database.Change
	failNext int
	failAll  bool
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]database.FileRecord)}
}

func (m *memStore) Snapshot(ctx context.Context) (map[string]database.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.records), nil
}

func (m *memStore) ApplyBatch(ctx context.Context, changes []database.Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errors.New("disk I/O error")
	}
	if m.failNext > 0 {
		m.failNext--
		return errors.New("database is locked")
	}
	for _, c := range changes {
		if c.Kind == database.ChangeDeleted {
			rec := m.records[c.Record.Path]
			rec.Status = database.StatusDeleted
			at := c.At
			rec.DeletedAt = &at
			m.records[c.Record.Path] = rec
			continue
		}
		rec := c.Record
		rec.Status = database.StatusActive
		rec.DeletedAt = nil
		m.records[rec.Path] = rec
	}
	m.batches = append(m.batches, append([]database.Change(nil), changes...))
	return nil
}

func (m *memStore) RecordIndexRun(ctx context.Context, mode string, finished time.Time, statsJSON string) error {
	return nil
}

func newTestDetector(t *testing.T, store Store, root string, opts DetectorOptions) *Detector {
	t.Helper()
	scanner, err := NewScanner(testScanConfig(root))
	if err != nil {
		t.Fatalf("NewScanner failed: %v", err)
	}
	pool := NewHashPool(NewHasher(fastRetry()), 4)
	return NewDetector(store, scanner, pool, opts)
}

func checkStats(t *testing.T, got RunStats, newN, updated, unchanged, deleted int) {
	t.Helper()
	if got.New != newN || got.Updated != updated || got.Unchanged != unchanged || got.Deleted != deleted {
		t.Errorf("stats = new:%d updated:%d unchanged:%d deleted:%d, want new:%d updated:%d unchanged:%d deleted:%d",
			got.New, got.Updated, got.Unchanged, got.Deleted, newN, updated, unchanged, deleted)
	}
	if got.Total != got.New+got.Updated+got.Unchanged {
		t.Errorf("total = %d, want %d", got.Total, got.New+got.Updated+got.Unchanged)
	}
}

func removeFile(t *testing.T, root, rel string) {
	t.Helper()
	if err := os.Remove(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
		t.Fatalf("remove %s: %v", rel, err)
	}
}
