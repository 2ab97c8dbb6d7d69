package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"plex-faces/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest is left to the exiftool processes and the SQLite page cache.
const DefaultMemoryRatio = 0.5

// Source names where the memory limit came from.
type Source string

const (
	SourceNone       Source = "none"
	SourceGOMEMLIMIT Source = "GOMEMLIMIT"
	SourceContainer  Source = "MEMORY_LIMIT"
)

// ConfigResult describes the memory limit in effect after configuration.
type ConfigResult struct {
	Source         Source
	ContainerLimit int64 // bytes, 0 if not set
	GoMemLimit     int64 // bytes, 0 if not set
	Ratio          float64
}

// Configured reports whether a Go memory limit is in effect.
func (r ConfigResult) Configured() bool {
	return r.Source != SourceNone
}

// ConfigureFromEnv sets the Go memory limit from MEMORY_LIMIT and
// MEMORY_RATIO unless GOMEMLIMIT is already set. Call it before the photo
// records are loaded.
func ConfigureFromEnv() ConfigResult {
	return configure(os.Getenv)
}

func configure(getenv func(string) string) ConfigResult {
	if env := getenv("GOMEMLIMIT"); env != "" {
		// The runtime parsed it at startup
		limit := debug.SetMemoryLimit(-1)
		if limit <= 0 || limit == math.MaxInt64 {
			logging.Warn("GOMEMLIMIT %q is set but no limit is in effect", env)
			return ConfigResult{Source: SourceNone}
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return ConfigResult{Source: SourceGOMEMLIMIT, GoMemLimit: limit}
	}

	raw := getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, leaving GOMEMLIMIT unset")
		return ConfigResult{Source: SourceNone}
	}

	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("Invalid MEMORY_LIMIT %q, leaving GOMEMLIMIT unset", raw)
		return ConfigResult{Source: SourceNone}
	}

	ratio := parseRatio(getenv("MEMORY_RATIO"))
	goMemLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		formatBytes(goMemLimit), ratio*100, formatBytes(containerLimit))

	return ConfigResult{
		Source:         SourceContainer,
		ContainerLimit: containerLimit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

func parseRatio(raw string) float64 {
	if raw == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		logging.Warn("Invalid MEMORY_RATIO %q (want 0.0-1.0), using %.2f", raw, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

// formatBytes formats bytes into human-readable string
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
