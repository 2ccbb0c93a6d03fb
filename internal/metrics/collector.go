package metrics

import (
	"context"
	"sync"
	"time"

	"corpus-manager/internal/logging"
)

// StatsProvider supplies corpus totals for the gauges.
type StatsProvider interface {
	GetStats(ctx context.Context) (Stats, error)
}

// ConnectionReporter refreshes database connection gauges.
type ConnectionReporter interface {
	UpdateDBMetrics()
}

// Stats holds the corpus totals exported as gauges.
type Stats struct {
	ActiveFiles  int64
	DeletedFiles int64
	TotalBytes   int64
	ByExtension  map[string]int64
	Sections     int
	Tags         int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	connections   ConnectionReporter
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup

	// collectMu serializes passes; lastExtensions holds the extensions seen
	// on the previous pass so vanished ones are zeroed
	collectMu      sync.Mutex
	lastExtensions map[string]bool
}

// NewCollector creates a new metrics collector. connections may be nil.
func NewCollector(provider StatsProvider, connections ConnectionReporter, interval time.Duration) *Collector {
	return &Collector{
		statsProvider:  provider,
		connections:    connections,
		interval:       interval,
		stopChan:       make(chan struct{}),
		lastExtensions: make(map[string]bool),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	c.wg.Add(1)
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
}

func (c *Collector) collectLoop() {
	defer c.wg.Done()

	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

// Refresh runs one collection pass immediately, for example after an index
// run changed the corpus.
func (c *Collector) Refresh() {
	c.collect()
}

func (c *Collector) collect() {
	c.collectMu.Lock()
	defer c.collectMu.Unlock()

	if c.connections != nil {
		c.connections.UpdateDBMetrics()
	}
	if c.statsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := c.statsProvider.GetStats(ctx)
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	CorpusFilesTotal.WithLabelValues("active").Set(float64(stats.ActiveFiles))
	CorpusFilesTotal.WithLabelValues("deleted").Set(float64(stats.DeletedFiles))
	CorpusBytesTotal.Set(float64(stats.TotalBytes))
	CorpusSectionsTotal.Set(float64(stats.Sections))
	CorpusTagsTotal.Set(float64(stats.Tags))

	seen := make(map[string]bool, len(stats.ByExtension))
	for ext, n := range stats.ByExtension {
		label := ext
		if label == "" {
			label = "none"
		}
		CorpusFilesByExtension.WithLabelValues(label).Set(float64(n))
		seen[label] = true
	}
	for label := range c.lastExtensions {
		if !seen[label] {
			CorpusFilesByExtension.WithLabelValues(label).Set(0)
		}
	}
	c.lastExtensions = seen

	logging.Debug("Metrics collected: active=%d, deleted=%d, bytes=%d, sections=%d, tags=%d",
		stats.ActiveFiles, stats.DeletedFiles, stats.TotalBytes, stats.Sections, stats.Tags)
}
