// Package metrics provides Prometheus instrumentation for the corpus manager.
//
// All metrics are registered with promauto at package init and prefixed with
// "corpus_manager_". Categories:
//
//   - HTTP: request counts, durations and in-flight requests
//   - Database: query counts and durations, transaction outcomes, rows affected
//   - Indexer: runs by mode and outcome, classifications by kind, per-file
//     errors, batch retries, hashing time, run lock rejections
//   - Query and consolidation: query outcomes, job counts by format and
//     status, artifact render time
//   - Corpus: file, byte, extension, section and tag gauges, refreshed by
//     Collector from a StatsProvider
//   - Filesystem: stale-handle retry metrics, recorded through the
//     filesystem.Observer returned by NewFilesystemObserver
//
// Call InitializeMetrics once at startup so every label combination is
// present from the first scrape.
package metrics
