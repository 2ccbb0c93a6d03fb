// Package handlers provides the HTTP API of the corpus manager.
//
// It includes handlers for:
//   - File queries, single-file lookup, and directory browsing
//   - Triggering index runs and reading their progress
//   - Consolidation jobs: creation, listing, download and HTML preview
//   - Tags and corpus statistics
//   - Health, liveness, readiness and version probes
//
// Core errors map onto status codes in one place: unknown files and jobs are
// 404, invalid parameters 400, and a run requested while another is active
// is 409.
package handlers
