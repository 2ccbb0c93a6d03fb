package metrics

// InitializeMetrics pre-populates expected label combinations so every
// metric is exported from the first scrape.
func InitializeMetrics() {
	for _, mode := range []string{"full", "incremental"} {
		for _, outcome := range []string{"success", "failed", "canceled", "rejected"} {
			IndexerRunsTotal.WithLabelValues(mode, outcome)
		}
	}

	for _, kind := range []string{"new", "updated", "unchanged", "deleted"} {
		IndexerChangesTotal.WithLabelValues(kind)
	}

	for _, typ := range []string{"scan", "read", "store"} {
		IndexerErrors.WithLabelValues(typ)
	}

	for _, status := range []string{"ok", "invalid", "error"} {
		QueriesTotal.WithLabelValues(status)
	}

	for _, format := range []string{"markdown", "json", "text"} {
		ConsolidationDuration.WithLabelValues(format)
		for _, status := range []string{"completed", "failed"} {
			ConsolidationJobsTotal.WithLabelValues(format, status)
		}
	}

	for _, status := range []string{"active", "deleted"} {
		CorpusFilesTotal.WithLabelValues(status)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	volumes := []string{"corpus", "exports", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"stat", "open", "readdir"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
