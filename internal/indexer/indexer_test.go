package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"corpus-manager/internal/database"
)

func newTestIndexer(t *testing.T, root string) (*Indexer, *database.Database) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	db, err := database.New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("database.New failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	idx, err := New(db, Config{
		Scan:         testScanConfig(root),
		HashWorkers:  4,
		RetryBackoff: time.Millisecond,
		LockPath:     dbPath + ".index.lock",
	})
	if err != nil {
		t.Fatalf("indexer.New failed: %v", err)
	}
	t.Cleanup(idx.Stop)
	return idx, db
}

func activePaths(t *testing.T, db *database.Database) []string {
	t.Helper()
	page, err := db.QueryFiles(context.Background(), database.FileQuery{})
	if err != nil {
		t.Fatalf("QueryFiles failed: %v", err)
	}
	var out []string
	for _, r := range page.Items {
		out = append(out, r.Path)
	}
	slices.Sort(out)
	return out
}

func scenarioTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "notes/a.md", "# alpha", fixtureTime)
	writeFile(t, root, "reports/b.xlsx", "sheet-v1", fixtureTime)
	writeFile(t, root, "reports/c.pdf", "%PDF-1.7", fixtureTime)
	return root
}

func TestFullRunIdempotent(t *testing.T) {
	root := scenarioTree(t)
	idx, _ := newTestIndexer(t, root)
	ctx := context.Background()

	first, err := idx.RunFull(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	checkStats(t, first, 3, 0, 0, 0)
	if first.Total != 3 {
		t.Errorf("total = %d, want 3", first.Total)
	}

	second, err := idx.RunFull(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	checkStats(t, second, 0, 0, 3, 0)
}

func TestScenarioBFullRun(t *testing.T) {
	root := scenarioTree(t)
	idx, db := newTestIndexer(t, root)
	ctx := context.Background()

	if _, err := idx.RunFull(ctx, RunOptions{}); err != nil {
		t.Fatalf("initial run failed: %v", err)
	}

	removeFile(t, root, "notes/a.md")
	writeFile(t, root, "reports/b.xlsx", "sheet-v2 with more rows", fixtureTime.Add(time.Minute))

	stats, err := idx.RunFull(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	checkStats(t, stats, 0, 1, 1, 1)
	if stats.Total != 2 {
		t.Errorf("total = %d, want 2", stats.Total)
	}

	rec, err := db.GetFile(ctx, "notes/a.md")
	if err != nil {
		t.Fatalf("soft-deleted record should remain: %v", err)
	}
	if rec.Status != database.StatusDeleted {
		t.Errorf("a.md status = %s, want deleted", rec.Status)
	}
}

func TestScenarioBIncrementalRun(t *testing.T) {
	root := scenarioTree(t)
	idx, db := newTestIndexer(t, root)
	ctx := context.Background()

	if _, err := idx.RunFull(ctx, RunOptions{}); err != nil {
		t.Fatalf("initial run failed: %v", err)
	}

	removeFile(t, root, "notes/a.md")
	writeFile(t, root, "reports/b.xlsx", "sheet-v2 with more rows", fixtureTime.Add(time.Minute))

	stats, err := idx.RunIncremental(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("incremental run failed: %v", err)
	}
	checkStats(t, stats, 0, 1, 1, 0)

	rec, _ := db.GetFile(ctx, "notes/a.md")
	if rec.Status != database.StatusActive {
		t.Errorf("incremental run must not delete a.md")
	}
}

func TestHashStabilityAndVerify(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.txt", "abcdef", fixtureTime)
	idx, _ := newTestIndexer(t, root)
	ctx := context.Background()

	if _, err := idx.RunFull(ctx, RunOptions{}); err != nil {
		t.Fatalf("initial run failed: %v", err)
	}

	// Same size, same mtime, one byte different.
	writeFile(t, root, "doc.txt", "abcdeX", fixtureTime)

	stats, err := idx.RunFull(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	checkStats(t, stats, 0, 0, 1, 0)
	if stats.Hashed != 0 {
		t.Errorf("Hashed = %d, want 0 when size and mtime match", stats.Hashed)
	}

	stats, err = idx.RunFull(ctx, RunOptions{Verify: true})
	if err != nil {
		t.Fatalf("verify run failed: %v", err)
	}
	checkStats(t, stats, 0, 1, 0, 0)
	if stats.Hashed != 1 {
		t.Errorf("Hashed = %d, want 1 on a verify run", stats.Hashed)
	}
}

func TestEpochModTimeIsNotRehashed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "old.md", "from 1970", time.Unix(0, 0))
	idx, _ := newTestIndexer(t, root)
	ctx := context.Background()

	if _, err := idx.RunFull(ctx, RunOptions{}); err != nil {
		t.Fatalf("initial run failed: %v", err)
	}
	stats, err := idx.RunFull(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	checkStats(t, stats, 0, 0, 1, 0)
	if stats.Hashed != 0 {
		t.Errorf("Hashed = %d, want 0 for an unchanged epoch mtime", stats.Hashed)
	}
}

func TestIncrementalMatchesFullOnAdditions(t *testing.T) {
	root := scenarioTree(t)
	incr, incrDB := newTestIndexer(t, root)
	full, fullDB := newTestIndexer(t, root)
	ctx := context.Background()

	for _, idx := range []*Indexer{incr, full} {
		if _, err := idx.RunFull(ctx, RunOptions{}); err != nil {
			t.Fatalf("initial run failed: %v", err)
		}
	}

	for i := range 5 {
		writeFile(t, root, fmt.Sprintf("added/new%d.md", i), "n", fixtureTime)
	}

	incrStats, err := incr.RunIncremental(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("incremental failed: %v", err)
	}
	fullStats, err := full.RunFull(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("full failed: %v", err)
	}

	if incrStats.New != 5 || fullStats.New != 5 {
		t.Errorf("new counts = %d (incremental) / %d (full), want 5", incrStats.New, fullStats.New)
	}
	if !slices.Equal(activePaths(t, incrDB), activePaths(t, fullDB)) {
		t.Errorf("active sets differ: %v vs %v", activePaths(t, incrDB), activePaths(t, fullDB))
	}
}

func TestIncrementalSubpath(t *testing.T) {
	root := scenarioTree(t)
	idx, _ := newTestIndexer(t, root)
	ctx := context.Background()

	writeFile(t, root, "notes/extra.md", "x", fixtureTime)
	writeFile(t, root, "reports/extra.md", "x", fixtureTime)

	stats, err := idx.RunIncremental(ctx, RunOptions{}, "notes")
	if err != nil {
		t.Fatalf("incremental failed: %v", err)
	}
	checkStats(t, stats, 2, 0, 0, 0)

	if _, err := idx.RunIncremental(ctx, RunOptions{}, "../elsewhere"); err == nil {
		t.Error("expected error for subpath outside root")
	}
}

func TestIncrementalSubpathMatchesFullExclusions(t *testing.T) {
	root := scenarioTree(t)
	idx, db := newTestIndexer(t, root)
	ctx := context.Background()

	writeFile(t, root, "notes/.git/x.md", "x", fixtureTime)
	writeFile(t, root, "notes/~$lock.md", "lock", fixtureTime)

	stats, err := idx.RunIncremental(ctx, RunOptions{}, "notes/.git", "notes/~$lock.md", "notes")
	if err != nil {
		t.Fatalf("incremental failed: %v", err)
	}
	checkStats(t, stats, 1, 0, 0, 0)
	if got := activePaths(t, db); !slices.Equal(got, []string{"notes/a.md"}) {
		t.Errorf("active = %v, want [notes/a.md]", got)
	}

	stats, err = idx.RunFull(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("full failed: %v", err)
	}
	checkStats(t, stats, 2, 0, 1, 0)
}

func TestRunRejectedWhileLocked(t *testing.T) {
	root := scenarioTree(t)
	idx, _ := newTestIndexer(t, root)

	release, err := idx.lock.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire failed: %v", err)
	}

	if _, err := idx.RunFull(context.Background(), RunOptions{}); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("RunFull error = %v, want ErrRunInProgress", err)
	}
	if _, err := idx.RunIncremental(context.Background(), RunOptions{}); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("RunIncremental error = %v, want ErrRunInProgress", err)
	}
	if err := idx.Trigger(ModeFull, RunOptions{}); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Trigger error = %v, want ErrRunInProgress", err)
	}

	release()
	if _, err := idx.RunFull(context.Background(), RunOptions{}); err != nil {
		t.Errorf("run after release failed: %v", err)
	}
}

func TestRunLockAcrossInstances(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "corpus.db.index.lock")
	a := NewRunLock(lockPath)
	b := NewRunLock(lockPath)

	releaseA, err := a.TryAcquire()
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if _, err := b.TryAcquire(); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("second lock error = %v, want ErrRunInProgress", err)
	}

	releaseA()
	releaseA() // second call is a no-op

	releaseB, err := b.TryAcquire()
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	releaseB()
}

func TestTriggerAndHealth(t *testing.T) {
	root := scenarioTree(t)
	idx, db := newTestIndexer(t, root)

	if idx.IsReady() {
		t.Error("indexer should not be ready before a run")
	}

	done := make(chan RunStats, 1)
	idx.SetOnIndexComplete(func(s RunStats) { done <- s })

	if err := idx.Trigger(ModeFull, RunOptions{}); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	select {
	case s := <-done:
		if s.New != 3 {
			t.Errorf("triggered run new = %d, want 3", s.New)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("triggered run did not complete")
	}

	// the callback fires before the lock is released
	idx.wg.Wait()

	health := idx.GetHealthStatus()
	if !health.Ready || health.Indexing || health.LastRun == nil || health.LastIndexed.IsZero() {
		t.Errorf("unexpected health: %+v", health)
	}

	last, err := db.GetLastIndexTime(context.Background(), "full")
	if err != nil || last.IsZero() {
		t.Errorf("run not recorded in metadata: %v %v", last, err)
	}

	if err := idx.Trigger("sideways", RunOptions{}); err == nil {
		t.Error("expected error for unknown mode")
	}
}
