package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpus_manager_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corpus_manager_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "corpus_manager_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpus_manager_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corpus_manager_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corpus_manager_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds by outcome",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"outcome"},
	)

	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corpus_manager_db_rows_affected",
			Help:    "Rows affected per write operation",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 5000},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "corpus_manager_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Indexer metrics
var (
	IndexerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpus_manager_indexer_runs_total",
			Help: "Total number of indexing runs by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	IndexerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "corpus_manager_indexer_last_run_timestamp",
			Help: "Unix timestamp of the last finished indexing run",
		},
	)

	IndexerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "corpus_manager_indexer_last_run_duration_seconds",
			Help: "Duration of the last indexing run in seconds",
		},
	)

	IndexerChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpus_manager_indexer_changes_total",
			Help: "Files classified by the change detector",
		},
		[]string{"kind"}, // new, updated, unchanged, deleted
	)

	IndexerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpus_manager_indexer_errors_total",
			Help: "Per-file and per-batch indexing errors",
		},
		[]string{"type"}, // scan, read, store
	)

	IndexerBatchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "corpus_manager_indexer_batch_retries_total",
			Help: "Batch commits retried after a store failure",
		},
	)

	IndexerHashDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corpus_manager_indexer_hash_duration_seconds",
			Help:    "Time to fingerprint one file",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	IndexerFilesHashed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "corpus_manager_indexer_files_hashed_total",
			Help: "Files whose content was read to compute a fingerprint",
		},
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "corpus_manager_indexer_running",
			Help: "Whether an indexing run is active (1 = running, 0 = idle)",
		},
	)

	IndexerLockRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "corpus_manager_indexer_lock_rejections_total",
			Help: "Run requests rejected because another run held the lock",
		},
	)
)

// Query and consolidation metrics
var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpus_manager_queries_total",
			Help: "Search queries by outcome",
		},
		[]string{"status"}, // ok, invalid, error
	)

	QueryResultSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corpus_manager_query_total_matches",
			Help:    "Total matching records per search query",
			Buckets: []float64{0, 1, 10, 25, 100, 500, 1000, 10000, 100000},
		},
	)

	ConsolidationJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpus_manager_consolidation_jobs_total",
			Help: "Consolidation jobs by format and final status",
		},
		[]string{"format", "status"},
	)

	ConsolidationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corpus_manager_consolidation_duration_seconds",
			Help:    "Time to render and write one consolidation artifact",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"format"},
	)

	ConsolidationFiles = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corpus_manager_consolidation_files",
			Help:    "Records per consolidation artifact",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000},
		},
	)
)

// Corpus gauges, refreshed by Collector
var (
	CorpusFilesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "corpus_manager_files",
			Help: "Indexed files by status",
		},
		[]string{"status"},
	)

	CorpusBytesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "corpus_manager_bytes",
			Help: "Total size of active indexed files",
		},
	)

	CorpusFilesByExtension = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "corpus_manager_files_by_extension",
			Help: "Active indexed files per extension",
		},
		[]string{"extension"},
	)

	CorpusSectionsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "corpus_manager_sections",
			Help: "Number of distinct top-level sections",
		},
	)

	CorpusTagsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "corpus_manager_tags",
			Help: "Number of distinct tags",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corpus_manager_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpus_manager_filesystem_operation_errors_total",
			Help: "Filesystem operation errors",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpus_manager_filesystem_retry_attempts_total",
			Help: "Retries after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpus_manager_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpus_manager_filesystem_retry_failures_total",
			Help: "Operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corpus_manager_filesystem_retry_duration_seconds",
			Help:    "Total time spent in a retried filesystem operation",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpus_manager_filesystem_stale_errors_total",
			Help: "Stale file handle errors observed",
		},
		[]string{"operation", "volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "corpus_manager_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
