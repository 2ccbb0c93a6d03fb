// Package memory sets the Go soft memory limit from the container limit, so
// fingerprinting a large corpus in a constrained container triggers garbage
// collection before the kernel OOM killer does.
package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"corpus-manager/internal/logging"

	"github.com/dustin/go-humanize"
)

// Environment variables read by ConfigureFromEnv. GOMEMLIMIT, when set,
// takes precedence over both.
const (
	EnvMemoryLimit = "KCM_MEMORY_LIMIT"
	EnvMemoryRatio = "KCM_MEMORY_RATIO"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest covers SQLite's page cache, goroutine stacks and OS buffers.
const DefaultMemoryRatio = 0.9

// Source names where the limit came from.
const (
	SourceNone        = "none"
	SourceGoMemLimit  = "GOMEMLIMIT"
	SourceMemoryLimit = EnvMemoryLimit
)

// ConfigResult holds the result of memory configuration
type ConfigResult struct {
	Configured bool
	Source     string

	// ContainerLimit is the configured container limit in bytes, 0 if unset
	ContainerLimit int64

	// GoMemLimit is the soft limit in effect, 0 if unset
	GoMemLimit int64

	Ratio float64
}

// ConfigureFromEnv applies GOMEMLIMIT from KCM_MEMORY_LIMIT (bytes or a
// unit string such as "512MiB") scaled by KCM_MEMORY_RATIO. Call it before
// the first large allocation.
func ConfigureFromEnv() ConfigResult {
	if v := os.Getenv("GOMEMLIMIT"); v != "" {
		result := ConfigResult{Source: SourceGoMemLimit}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		return result
	}

	raw := os.Getenv(EnvMemoryLimit)
	if raw == "" {
		logging.Debug("%s not set, leaving the Go memory limit alone", EnvMemoryLimit)
		return ConfigResult{Source: SourceNone}
	}

	parsed, err := humanize.ParseBytes(raw)
	if err != nil || parsed == 0 || parsed > math.MaxInt64 {
		logging.Warn("Ignoring %s %q: not a positive byte size", EnvMemoryLimit, raw)
		return ConfigResult{Source: SourceNone}
	}
	containerLimit := int64(parsed)

	ratio := parseRatio(os.Getenv(EnvMemoryRatio))
	goMemLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s container limit)",
		humanize.IBytes(uint64(goMemLimit)), ratio*100, humanize.IBytes(uint64(containerLimit)))

	return ConfigResult{
		Configured:     true,
		Source:         SourceMemoryLimit,
		ContainerLimit: containerLimit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

func parseRatio(s string) float64 {
	if s == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(s, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		logging.Warn("Ignoring %s %q: want a value in (0, 1], using %.2f", EnvMemoryRatio, s, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}
