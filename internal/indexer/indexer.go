package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"corpus-manager/internal/filesystem"
	"corpus-manager/internal/logging"
	"corpus-manager/internal/metrics"
)

// RunStore is the store an Indexer writes to.
type RunStore interface {
	Store
	RecordIndexRun(ctx context.Context, mode string, finished time.Time, statsJSON string) error
}

// Config is everything an Indexer needs, supplied once at construction.
type Config struct {
	Scan ScanConfig

	HashWorkers      int
	BatchSize        int
	MaxBatchAttempts int
	RetryBackoff     time.Duration

	// LockPath is the cross-process run lock file; empty disables it
	LockPath string

	// Interval schedules periodic full runs after Start; 0 disables them
	Interval time.Duration
}

// RunOptions are per-run switches.
type RunOptions struct {
	// Verify forces re-fingerprinting of every candidate
	Verify bool
}

// Indexer orchestrates runs: it owns the run lock, tracks progress, and
// records finished runs in the store.
type Indexer struct {
	store    RunStore
	scanner  *Scanner
	detector *Detector
	lock     *RunLock
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	isIndexing    bool
	lastIndexTime time.Time
	lastRun       *RunStats
	lastErr       error
	completedRuns int
	startTime     time.Time

	indexProgress atomic.Value

	onIndexComplete func(RunStats)
}

// IndexProgress is the live state of the current run.
type IndexProgress struct {
	Mode       Mode      `json:"mode,omitempty"`
	IsIndexing bool      `json:"isIndexing"`
	Processed  int       `json:"processed"`
	New        int       `json:"new"`
	Updated    int       `json:"updated"`
	Deleted    int       `json:"deleted"`
	StartedAt  time.Time `json:"startedAt,omitzero"`
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready         bool           `json:"ready"`
	Indexing      bool           `json:"indexing"`
	StartTime     time.Time      `json:"startTime"`
	Uptime        string         `json:"uptime"`
	LastIndexed   time.Time      `json:"lastIndexed,omitzero"`
	LastRun       *RunStats      `json:"lastRun,omitempty"`
	LastError     string         `json:"lastError,omitempty"`
	IndexProgress *IndexProgress `json:"indexProgress,omitempty"`
}

// New validates cfg and builds an Indexer.
func New(store RunStore, cfg Config) (*Indexer, error) {
	scanner, err := NewScanner(cfg.Scan)
	if err != nil {
		return nil, err
	}

	retry := filesystem.DefaultRetryConfig()
	pool := NewHashPool(NewHasher(retry), cfg.HashWorkers)
	detector := NewDetector(store, scanner, pool, DetectorOptions{
		BatchSize:        cfg.BatchSize,
		MaxBatchAttempts: cfg.MaxBatchAttempts,
		RetryBackoff:     cfg.RetryBackoff,
	})

	ctx, cancel := context.WithCancel(context.Background())
	idx := &Indexer{
		store:     store,
		scanner:   scanner,
		detector:  detector,
		lock:      NewRunLock(cfg.LockPath),
		interval:  cfg.Interval,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	idx.indexProgress.Store(IndexProgress{})
	detector.progress = idx.updateProgress

	logging.Debug("Indexer configured: root=%s, hash workers=%d, batch=%d",
		scanner.Root(), pool.Workers(), detector.opts.BatchSize)
	return idx, nil
}

// Root returns the absolute corpus root.
func (idx *Indexer) Root() string {
	return idx.scanner.Root()
}

// SetOnIndexComplete sets a callback invoked after every successful run.
func (idx *Indexer) SetOnIndexComplete(callback func(RunStats)) {
	idx.onIndexComplete = callback
}

// RunFull indexes the whole tree and soft-deletes records no longer present.
func (idx *Indexer) RunFull(ctx context.Context, opts RunOptions) (RunStats, error) {
	release, err := idx.lock.TryAcquire()
	if err != nil {
		return RunStats{Mode: ModeFull}, err
	}
	defer release()
	return idx.runLocked(ctx, ModeFull, opts, nil)
}

// RunIncremental indexes the tree, or only the given subpaths, without
// detecting deletions.
func (idx *Indexer) RunIncremental(ctx context.Context, opts RunOptions, subpaths ...string) (RunStats, error) {
	cleaned, err := idx.cleanSubpaths(subpaths)
	if err != nil {
		return RunStats{Mode: ModeIncremental}, err
	}

	release, err := idx.lock.TryAcquire()
	if err != nil {
		return RunStats{Mode: ModeIncremental}, err
	}
	defer release()
	return idx.runLocked(ctx, ModeIncremental, opts, cleaned)
}

// Trigger starts a run in the background. Invalid arguments and rejection by
// the run lock are reported synchronously; the run itself is bound to the
// Indexer's lifetime. Subpaths are only accepted for incremental runs.
func (idx *Indexer) Trigger(mode Mode, opts RunOptions, subpaths ...string) error {
	if mode != ModeFull && mode != ModeIncremental {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRun, mode)
	}
	if mode == ModeFull && len(subpaths) > 0 {
		return fmt.Errorf("%w: a full run cannot be restricted to subpaths", ErrInvalidRun)
	}
	cleaned, err := idx.cleanSubpaths(subpaths)
	if err != nil {
		return err
	}

	release, err := idx.lock.TryAcquire()
	if err != nil {
		return err
	}

	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		defer release()
		if _, err := idx.runLocked(idx.ctx, mode, opts, cleaned); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("Triggered %s index failed: %v", mode, err)
		}
	}()
	return nil
}

func (idx *Indexer) cleanSubpaths(subpaths []string) ([]string, error) {
	var cleaned []string
	for _, sub := range subpaths {
		c, err := idx.scanner.CleanSubpath(sub)
		if err != nil {
			return nil, err
		}
		if c == "" {
			// the root covers every other subpath
			return nil, nil
		}
		cleaned = append(cleaned, c)
	}
	return cleaned, nil
}

// runLocked performs a run; the caller holds the run lock.
func (idx *Indexer) runLocked(ctx context.Context, mode Mode, opts RunOptions, subpaths []string) (RunStats, error) {
	startTime := time.Now()
	idx.setIndexing(true)
	defer idx.setIndexing(false)

	metrics.IndexerIsRunning.Set(1)
	defer metrics.IndexerIsRunning.Set(0)

	idx.indexProgress.Store(IndexProgress{Mode: mode, IsIndexing: true, StartedAt: startTime})
	logging.Info("Starting %s index of %s (verify=%v)", mode, idx.scanner.Root(), opts.Verify)

	stats, err := idx.detector.Run(ctx, mode, opts.Verify, subpaths)

	outcome := "success"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "canceled"
	case err != nil:
		outcome = "error"
	}
	metrics.IndexerRunsTotal.WithLabelValues(string(mode), outcome).Inc()
	metrics.IndexerLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.IndexerLastRunDuration.Set(stats.Duration.Seconds())

	idx.indexProgress.Store(IndexProgress{
		Mode:      mode,
		Processed: stats.Total,
		New:       stats.New,
		Updated:   stats.Updated,
		Deleted:   stats.Deleted,
	})

	idx.mu.Lock()
	idx.lastRun = &stats
	idx.lastErr = err
	idx.mu.Unlock()

	if err != nil {
		logging.Error("%s index stopped after %v: %v (new=%d updated=%d unchanged=%d deleted=%d)",
			mode, stats.Duration, err, stats.New, stats.Updated, stats.Unchanged, stats.Deleted)
		return stats, err
	}

	finished := time.Now().UTC()
	statsJSON, _ := json.Marshal(stats)
	if err := idx.store.RecordIndexRun(context.WithoutCancel(ctx), string(mode), finished, string(statsJSON)); err != nil {
		logging.Warn("Failed to record index run: %v", err)
	}

	idx.mu.Lock()
	idx.lastIndexTime = finished
	idx.completedRuns++
	idx.mu.Unlock()

	logging.Info("%s index complete in %v: new=%d updated=%d unchanged=%d deleted=%d total=%d hashed=%d (scan errors=%d, read errors=%d)",
		mode, stats.Duration, stats.New, stats.Updated, stats.Unchanged, stats.Deleted, stats.Total,
		stats.Hashed, stats.ScanErrors, stats.ReadErrors)

	if idx.onIndexComplete != nil {
		idx.onIndexComplete(stats)
	}
	return stats, nil
}

func (idx *Indexer) setIndexing(v bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.isIndexing = v
}

func (idx *Indexer) updateProgress(stats RunStats) {
	prev := idx.GetProgress()
	idx.indexProgress.Store(IndexProgress{
		Mode:       prev.Mode,
		IsIndexing: true,
		Processed:  stats.Total + stats.Deleted,
		New:        stats.New,
		Updated:    stats.Updated,
		Deleted:    stats.Deleted,
		StartedAt:  prev.StartedAt,
	})
}

// Start runs an initial full index in the background and, when an interval
// is configured, schedules periodic full runs.
func (idx *Indexer) Start() {
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		logging.Info("Starting initial index in background...")
		if _, err := idx.RunFull(idx.ctx, RunOptions{}); err != nil {
			if errors.Is(err, ErrRunInProgress) {
				logging.Info("Initial index skipped: %v", err)
				return
			}
			logging.Error("Initial index error: %v", err)
		}
	}()

	if idx.interval > 0 {
		idx.wg.Add(1)
		go idx.periodicIndex()
	}
}

// Stop cancels any run in progress and waits for background runs to return.
func (idx *Indexer) Stop() {
	idx.cancel()
	idx.wg.Wait()
}

func (idx *Indexer) periodicIndex() {
	defer idx.wg.Done()

	ticker := time.NewTicker(idx.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.Debug("Periodic re-index triggered")
			_, err := idx.RunFull(idx.ctx, RunOptions{})
			switch {
			case errors.Is(err, ErrRunInProgress):
				logging.Debug("Periodic re-index skipped, run already active")
			case err != nil && !errors.Is(err, context.Canceled):
				logging.Error("periodic re-index failed: %v", err)
			}
		case <-idx.ctx.Done():
			return
		}
	}
}

// IsIndexing returns whether a run is in progress in this process.
func (idx *Indexer) IsIndexing() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.isIndexing
}

// IsReady reports whether at least one run completed since startup.
func (idx *Indexer) IsReady() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.completedRuns > 0
}

// LastIndexTime returns when the last successful run finished.
func (idx *Indexer) LastIndexTime() time.Time {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.lastIndexTime
}

// LastRun returns the stats of the last finished run, or nil.
func (idx *Indexer) LastRun() *RunStats {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.lastRun == nil {
		return nil
	}
	s := *idx.lastRun
	return &s
}

// GetProgress returns the current indexing progress.
func (idx *Indexer) GetProgress() IndexProgress {
	if progress, ok := idx.indexProgress.Load().(IndexProgress); ok {
		return progress
	}
	return IndexProgress{}
}

// GetHealthStatus returns detailed health information.
func (idx *Indexer) GetHealthStatus() HealthStatus {
	progress := idx.GetProgress()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	status := HealthStatus{
		Ready:       idx.completedRuns > 0,
		Indexing:    idx.isIndexing,
		StartTime:   idx.startTime,
		Uptime:      time.Since(idx.startTime).Round(time.Second).String(),
		LastIndexed: idx.lastIndexTime,
	}
	if idx.lastRun != nil {
		s := *idx.lastRun
		status.LastRun = &s
	}
	if idx.lastErr != nil {
		status.LastError = idx.lastErr.Error()
	}
	if idx.isIndexing {
		status.IndexProgress = &progress
	}
	return status
}
