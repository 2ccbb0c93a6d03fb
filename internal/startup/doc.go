// Package startup holds build information and the lifecycle logging of the
// server.
//
// [Prepare] prints the banner, logs the effective configuration and checks
// the directories the server depends on: the corpus root must exist, the
// database directory must be writable, and the output directory is created
// when missing.
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// The remaining helpers keep startup and shutdown output consistent:
//   - [LogDatabaseInit]: Database initialization timing
//   - [LogIndexerInit]: Indexer interval and worker count
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated]: Graceful shutdown start
//   - [LogShutdownComplete]: Shutdown completion
package startup
