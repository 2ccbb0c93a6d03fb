package indexer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"corpus-manager/internal/database"
	"corpus-manager/internal/logging"
	"corpus-manager/internal/metrics"
)

// Mode selects between a full run, which can detect deletions, and an
// incremental run, which cannot.
type Mode string

const (
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
)

const (
	DefaultBatchSize        = 500
	DefaultMaxBatchAttempts = 3
	defaultRetryBackoff     = 100 * time.Millisecond
)

// Store is the part of the index store the detector needs.
type Store interface {
	Snapshot(ctx context.Context) (map[string]database.FileRecord, error)
	ApplyBatch(ctx context.Context, changes []database.Change) error
}

// RunStats are the aggregate counts of one run. Total counts the active
// records the run observed: New + Updated + Unchanged. Hashed counts the
// files actually read; the rest were matched on size and mtime.
type RunStats struct {
	Mode       Mode          `json:"mode"`
	New        int           `json:"new"`
	Updated    int           `json:"updated"`
	Unchanged  int           `json:"unchanged"`
	Deleted    int           `json:"deleted"`
	Total      int           `json:"total"`
	ScanErrors int           `json:"scanErrors"`
	ReadErrors int           `json:"readErrors"`
	Hashed     int           `json:"hashed"`
	Duration   time.Duration `json:"duration"`
	Canceled   bool          `json:"canceled,omitempty"`
}

func (s *RunStats) add(kind database.ChangeKind, n int) {
	switch kind {
	case database.ChangeNew:
		s.New += n
	case database.ChangeUpdated:
		s.Updated += n
	case database.ChangeUnchanged:
		s.Unchanged += n
	case database.ChangeDeleted:
		s.Deleted += n
	}
	s.Total = s.New + s.Updated + s.Unchanged
}

// DetectorOptions tune batching and retries.
type DetectorOptions struct {
	BatchSize        int
	MaxBatchAttempts int

	// RetryBackoff is the wait before the second attempt; it doubles after that
	RetryBackoff time.Duration
}

func (o DetectorOptions) withDefaults() DetectorOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxBatchAttempts <= 0 {
		o.MaxBatchAttempts = DefaultMaxBatchAttempts
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = defaultRetryBackoff
	}
	return o
}

// Detector reconciles scan candidates against the stored snapshot.
type Detector struct {
	store   Store
	scanner *Scanner
	pool    *HashPool
	opts    DetectorOptions
	now     func() time.Time

	// progress is called after every committed batch
	progress func(RunStats)
}

// NewDetector wires a detector. It holds no per-run state.
func NewDetector(store Store, scanner *Scanner, pool *HashPool, opts DetectorOptions) *Detector {
	return &Detector{
		store:   store,
		scanner: scanner,
		pool:    pool,
		opts:    opts.withDefaults(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// runState is the bookkeeping of one detection pass.
type runState struct {
	mode       Mode
	verify     bool
	prior      map[string]database.FileRecord
	observed   map[string]bool
	readFailed map[string]bool
	failedDirs []string
	batch      []Candidate
	batchNum   int
	stats      RunStats
}

// Run performs one detection pass. Subpaths restrict an incremental run and
// must already be cleaned by Scanner.CleanSubpath.
//
// Cancellation is honored between batches: the batch in flight commits, the
// run stops, and the partial stats are returned with context.Canceled.
func (d *Detector) Run(ctx context.Context, mode Mode, verify bool, subpaths []string) (RunStats, error) {
	start := time.Now()
	hashedBefore := d.pool.Hashed()
	st := &runState{
		mode:       mode,
		verify:     verify,
		observed:   make(map[string]bool),
		readFailed: make(map[string]bool),
		stats:      RunStats{Mode: mode},
	}
	finish := func(err error) (RunStats, error) {
		st.stats.Duration = time.Since(start)
		st.stats.Hashed = int(d.pool.Hashed() - hashedBefore)
		var storeErr *StoreError
		if errors.As(err, &storeErr) {
			storeErr.Stats = st.stats
		}
		return st.stats, err
	}

	if mode == ModeFull && len(subpaths) > 0 {
		return finish(fmt.Errorf("%w: a full run cannot be restricted to subpaths", ErrInvalidRun))
	}

	prior, err := d.store.Snapshot(ctx)
	if err != nil {
		return finish(fmt.Errorf("load snapshot: %w", err))
	}
	st.prior = prior

	// Batches already started commit even if ctx is canceled meanwhile.
	writeCtx := context.WithoutCancel(ctx)

	for c, scanErr := range d.scanner.Scan(ctx, subpaths...) {
		if scanErr != nil {
			if ctx.Err() != nil && errors.Is(scanErr, ctx.Err()) {
				break
			}
			d.recordScanError(st, scanErr)
			continue
		}
		if st.observed[c.Path] {
			continue
		}
		st.observed[c.Path] = true
		st.batch = append(st.batch, c)

		if len(st.batch) >= d.opts.BatchSize {
			if err := d.flush(writeCtx, st); err != nil {
				return finish(err)
			}
			if ctx.Err() != nil {
				break
			}
		}
	}

	if err := ctx.Err(); err != nil {
		st.stats.Canceled = true
		logging.Warn("Index run canceled after %d batches", st.batchNum)
		return finish(err)
	}

	if err := d.flush(writeCtx, st); err != nil {
		return finish(err)
	}

	if mode == ModeFull {
		if err := d.applyDeletions(writeCtx, st); err != nil {
			return finish(err)
		}
	}

	return finish(nil)
}

func (d *Detector) recordScanError(st *runState, err error) {
	st.stats.ScanErrors++
	metrics.IndexerErrors.WithLabelValues("scan").Inc()

	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		if scanErr.IsDir {
			st.failedDirs = append(st.failedDirs, scanErr.Path)
		} else {
			st.readFailed[scanErr.Path] = true
		}
	}
	logging.Warn("Skipping unreadable entry: %v", err)
}

// flush classifies the pending batch and commits it.
func (d *Detector) flush(ctx context.Context, st *runState) error {
	if len(st.batch) == 0 {
		return nil
	}
	batch := st.batch
	st.batch = nil
	st.batchNum++

	var toHash []Candidate
	for _, c := range batch {
		if d.needsHash(st, c) {
			toHash = append(toHash, c)
		}
	}
	hashes := d.pool.HashAll(ctx, toHash)

	now := d.now()
	changes := make([]database.Change, 0, len(batch))
	for _, c := range batch {
		change, ok := d.classify(st, c, hashes, now)
		if ok {
			changes = append(changes, change)
		}
	}

	if err := d.commit(ctx, st, changes); err != nil {
		return err
	}
	if d.progress != nil {
		d.progress(st.stats)
	}
	return nil
}

func (d *Detector) needsHash(st *runState, c Candidate) bool {
	prev, ok := st.prior[c.Path]
	if !ok || prev.Status != database.StatusActive || st.verify {
		return true
	}
	return prev.Size != c.Size || !prev.ModTime.Equal(c.ModTime)
}

// classify decides the change for one candidate. It reports false when the
// candidate is skipped for this run.
func (d *Detector) classify(st *runState, c Candidate, hashes map[string]hashResult, now time.Time) (database.Change, bool) {
	prev, known := st.prior[c.Path]

	rec := database.FileRecord{
		Path:      c.Path,
		Name:      c.Name,
		ParentDir: c.ParentDir,
		Extension: c.Extension,
		Section:   c.Section,
		Size:      c.Size,
		ModTime:   c.ModTime,
		FirstSeen: now,
		LastSeen:  now,
	}
	if known {
		rec.FirstSeen = prev.FirstSeen
	}

	h, hashed := hashes[c.Path]
	if !hashed {
		rec.Fingerprint = prev.Fingerprint
		return database.Change{Kind: database.ChangeUnchanged, Record: rec, At: now}, true
	}
	if h.err != nil {
		st.stats.ReadErrors++
		st.readFailed[c.Path] = true
		metrics.IndexerErrors.WithLabelValues("read").Inc()
		logging.Warn("Skipping %s for this run: %v", c.Path, h.err)
		return database.Change{}, false
	}
	rec.Fingerprint = h.digest

	kind := database.ChangeUpdated
	switch {
	case !known || prev.Status != database.StatusActive:
		kind = database.ChangeNew
	case prev.Fingerprint == h.digest:
		kind = database.ChangeUnchanged
	}
	return database.Change{Kind: kind, Record: rec, At: now}, true
}

// commit applies changes atomically, retrying with exponential backoff.
func (d *Detector) commit(ctx context.Context, st *runState, changes []database.Change) error {
	if len(changes) == 0 {
		return nil
	}

	backoff := d.opts.RetryBackoff
	var err error
	for attempt := 1; attempt <= d.opts.MaxBatchAttempts; attempt++ {
		if err = d.store.ApplyBatch(ctx, changes); err == nil {
			break
		}
		metrics.IndexerErrors.WithLabelValues("store").Inc()
		if attempt == d.opts.MaxBatchAttempts {
			return &StoreError{Batch: st.batchNum, Attempts: attempt, Err: err}
		}
		metrics.IndexerBatchRetries.Inc()
		logging.Warn("Batch %d commit failed (attempt %d/%d), retrying in %v: %v",
			st.batchNum, attempt, d.opts.MaxBatchAttempts, backoff, err)
		time.Sleep(backoff)
		backoff *= 2
	}

	for _, c := range changes {
		st.stats.add(c.Kind, 1)
		metrics.IndexerChangesTotal.WithLabelValues(string(c.Kind)).Inc()
	}
	return nil
}

// applyDeletions soft-deletes active records the full run did not observe.
// Records that failed to stat or read, or lie under an unreadable directory,
// are kept.
func (d *Detector) applyDeletions(ctx context.Context, st *runState) error {
	var gone []string
	for p, rec := range st.prior {
		if rec.Status != database.StatusActive || st.observed[p] {
			continue
		}
		if st.readFailed[p] || underAny(p, st.failedDirs) {
			continue
		}
		gone = append(gone, p)
	}
	slices.Sort(gone)

	now := d.now()
	for start := 0; start < len(gone); start += d.opts.BatchSize {
		end := min(start+d.opts.BatchSize, len(gone))
		changes := make([]database.Change, 0, end-start)
		for _, p := range gone[start:end] {
			changes = append(changes, database.Change{
				Kind:   database.ChangeDeleted,
				Record: database.FileRecord{Path: p},
				At:     now,
			})
		}
		st.batchNum++
		if err := d.commit(ctx, st, changes); err != nil {
			return err
		}
	}
	return nil
}

// underAny reports whether p is dir or lies inside one of dirs. The empty
// dir is the root.
func underAny(p string, dirs []string) bool {
	for _, dir := range dirs {
		if dir == "" || p == dir || strings.HasPrefix(p, dir+"/") {
			return true
		}
	}
	return false
}
