/*
Package workers sizes worker pools from GOMAXPROCS.

Go sets GOMAXPROCS from the container CPU limit, while runtime.NumCPU reports
the host count, so pool sizes derived here respect cgroup limits.

	// hashing: read from disk, digest in memory
	n := workers.Count(1.5, 16)

	// an explicit configuration value wins, still capped
	n := workers.Resolve(cfg.Indexer.HashWorkers, 1.5, 32)

Multipliers: 1.0 for CPU-bound work, 2.0 for I/O-bound work, 1.5 for mixed.
*/
package workers
