package workers

import (
	"os"
	"runtime"
	"strconv"
)

// OverrideEnv names the environment variable that fixes the extractor count.
const OverrideEnv = "PLEX_FACES_WORKERS"

// MaxExtractors caps the exiftool pool when it is sized automatically.
const MaxExtractors = 16

// Count scales GOMAXPROCS, which follows container CPU limits, by
// multiplier. The result is at least 1 and at most limit (0 = no cap).
func Count(multiplier float64, limit int) int {
	n := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	return clamp(n, limit)
}

// Extractors returns the number of exiftool processes, one per CPU. A
// positive PLEX_FACES_WORKERS wins over the CPU count; limit caps both.
func Extractors(limit int) int {
	if n, ok := override(); ok {
		return clamp(n, limit)
	}
	return Count(1.0, limit)
}

// StatChecks returns how many photo stats may run at once. Stats mostly wait
// on the filesystem, so two per CPU.
func StatChecks(limit int) int {
	return Count(2.0, limit)
}

func override() (int, bool) {
	raw := os.Getenv(OverrideEnv)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func clamp(n, limit int) int {
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}
