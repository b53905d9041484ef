package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that pins the worker count.
const EnvOverride = "ANALYSIS_WORKERS"

// Count returns multiplier workers per available CPU, at least 1 and at most
// limit (0 for no limit). GOMAXPROCS is used rather than NumCPU so container
// CPU limits are respected. A positive ANALYSIS_WORKERS value wins over the
// computed count but is still capped by limit.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForAnalysis returns the number of files analysed in parallel. Each ffmpeg
// decode already runs several threads, so this is half a worker per CPU.
func ForAnalysis(limit int) int {
	return Count(0.5, limit)
}
