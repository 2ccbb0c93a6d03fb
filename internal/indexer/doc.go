// Package indexer keeps the corpus index in step with the directory tree.
//
// A run walks the corpus root (Scanner), compares every eligible file
// against the stored snapshot (Detector) and writes the result in atomic
// batches. Files whose size and modification time match the stored record
// are never read; everything else is fingerprinted with SHA-256 on a bounded
// worker pool (HashPool).
//
// Two run modes exist:
//   - Full: enumerates the whole tree and soft-deletes records that are gone
//   - Incremental: optionally limited to subpaths, never deletes
//
// Only one run may be active per database. RunLock enforces this inside the
// process and, through an advisory lock file, across processes; a second
// request fails with ErrRunInProgress instead of waiting.
//
// Per-file problems (ScanError, ReadError) are logged and counted without
// stopping the run. A batch that cannot be committed is retried with
// backoff and then aborts the run with a StoreError.
package indexer
