// Package main provides the entry point for corpus-manager.
//
// corpus-manager maintains a SQLite index of a directory tree of documents
// and exposes it through a command line and an HTTP API.
//
// # Commands
//
//	corpus-manager init [--root DIR] [--force]
//	corpus-manager index [--incremental] [--verify] [subpath...]
//	corpus-manager search [filters] [--sort KEY] [--dir asc|desc] [--offset N] [--limit N] [--json]
//	corpus-manager consolidate --name NAME [--format markdown|json|text] (--file PATH... | filters)
//	corpus-manager jobs [id]
//	corpus-manager stats
//	corpus-manager tag add|rm PATH TAG...
//	corpus-manager tag ls [PATH] [--tag TAG]
//	corpus-manager serve [--host HOST] [--port PORT]
//
// Filters are --name-contains, --ext, --section, --path, --after, --before,
// --min-size, --max-size and --deleted; every given filter must hold.
//
// # Configuration
//
// Settings are read from a YAML file (--config, default ~/.kcm/config.yaml).
// A missing file means defaults. These environment variables override the
// file:
//
//	KCM_CORPUS_ROOT     corpus.root_path
//	KCM_DATABASE_PATH   database.path
//	KCM_OUTPUT_DIR      consolidation.output_dir
//	KCM_PORT            server.port
//	KCM_LOG_LEVEL       log_level
//
// serve also honors KCM_MEMORY_LIMIT and KCM_MEMORY_RATIO to set the Go
// soft memory limit inside containers.
//
// # Server Lifecycle
//
//  1. Memory limit and configuration are applied
//  2. The corpus root, database directory and output directory are checked
//  3. The database is opened and migrated
//  4. The indexer starts an initial full run in the background, then runs
//     periodically when server.index_interval is set
//  5. The API server and, when enabled, the metrics server start listening
//  6. SIGINT or SIGTERM shuts down HTTP, cancels any index run at the next
//     batch boundary and closes the database
//
// Only one index run may be active per database. The lock spans processes,
// so "corpus-manager index" fails fast while a server run is in progress.
package main
