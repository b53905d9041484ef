package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"varatio/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. Analysis runs ffmpeg and ffprobe as child processes that live in the
// same cgroup, so most of the limit is left to them.
const DefaultMemoryRatio = 0.4

// Result describes what Configure did.
type Result struct {
	Configured     bool
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT" or "none"
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets the Go memory limit from the process environment.
// Call it early in main.
//
//   - GOMEMLIMIT, if set, wins and is only reported
//   - MEMORY_LIMIT is the container limit in bytes (Kubernetes Downward API)
//   - MEMORY_RATIO overrides DefaultMemoryRatio, in (0, 1]
func ConfigureFromEnv() Result {
	return Configure(os.Getenv, debug.SetMemoryLimit)
}

// Configure is ConfigureFromEnv with injectable environment lookup and limit
// setter.
func Configure(getenv func(string) string, setLimit func(int64) int64) Result {
	if v := getenv("GOMEMLIMIT"); v != "" {
		res := Result{Source: "GOMEMLIMIT"}
		if limit := setLimit(-1); limit > 0 && limit < math.MaxInt64 {
			res.Configured = true
			res.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		return res
	}

	raw := getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, leaving GOMEMLIMIT unset")
		return Result{Source: "none"}
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		logging.Warn("Ignoring invalid MEMORY_LIMIT %q", raw)
		return Result{Source: "none"}
	}

	ratio := DefaultMemoryRatio
	if s := getenv("MEMORY_RATIO"); s != "" {
		r, err := strconv.ParseFloat(s, 64)
		if err == nil && r > 0 && r <= 1 {
			ratio = r
		} else {
			logging.Warn("MEMORY_RATIO %q must be in (0, 1], using %.2f", s, DefaultMemoryRatio)
		}
	}

	goLimit := int64(float64(limit) * ratio)
	setLimit(goLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s container limit)",
		formatBytes(goLimit), ratio*100, formatBytes(limit))

	return Result{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: limit,
		GoMemLimit:     goLimit,
		Ratio:          ratio,
	}
}

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
