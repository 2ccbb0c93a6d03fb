// Package consolidate exports a selection of indexed records into a single
// markdown, json or text artifact and records the export as a job.
//
// Exports work from stored metadata only; a file removed from disk after
// indexing is still exported. Artifacts are written through a temp file and
// renamed into place, so a failed write never leaves a partial artifact.
package consolidate
