package workers

import (
	"runtime"
)

// Count returns the number of workers for a task with the given
// CPU multiplier, based on GOMAXPROCS so container CPU limits are respected.
// The result is at least 1 and at most limit (0 means no limit).
func Count(multiplier float64, limit int) int {
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// Resolve returns configured when it is positive, capped at limit.
// Otherwise it falls back to Count(multiplier, limit).
func Resolve(configured int, multiplier float64, limit int) int {
	if configured > 0 {
		if limit > 0 && configured > limit {
			return limit
		}
		return configured
	}
	return Count(multiplier, limit)
}
