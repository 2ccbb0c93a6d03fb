// Package database is the SQLite index store for the corpus manager.
//
// It holds:
//   - file records keyed by corpus-relative path, soft-deleted rather than
//     purged when they disappear from the tree
//   - consolidation jobs and their immutable criteria snapshots
//   - tags attached to file paths
//   - run metadata (last index times, last run stats)
//
// The database runs in WAL mode. Writes are grouped into batches
// (BeginBatch/EndBatch, ApplyBatch) that commit atomically; reads that need
// a consistent view (QueryFiles, CalculateStats) run inside one read
// transaction so they never observe half of a batch.
package database
