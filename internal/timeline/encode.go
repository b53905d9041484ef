package timeline

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"varatio/internal/filesystem"
	"varatio/internal/metrics"
	"varatio/internal/ratio"
)

// Format selects how segment start times are written.
type Format int

const (
	// FormatClock writes zero-padded HH:MM:SS.mmm start times (v2).
	FormatClock Format = iota
	// FormatSeconds writes start times as seconds with six decimals (v1).
	FormatSeconds
)

// Version returns the header version number written for f.
func (f Format) Version() int {
	if f == FormatSeconds {
		return 1
	}
	return 2
}

// ParseFormat maps "clock" or "seconds" to a Format.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clock", "v2", "":
		return FormatClock, true
	case "seconds", "v1":
		return FormatSeconds, true
	default:
		return FormatClock, false
	}
}

// ErrNotVariable is returned when asked to persist a uniform result.
var ErrNotVariable = errors.New("result has no variable aspect ratios")

// Encode renders a variable result as sidecar text.
func Encode(res *ratio.Result, sourceFile string, f Format) ([]byte, error) {
	if !res.HasVariableRatios() {
		return nil, ErrNotVariable
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[VARatio v%d]\n", f.Version())
	fmt.Fprintf(&b, "FrameWidth: %d\n", res.FrameWidth)
	fmt.Fprintf(&b, "FrameHeight: %d\n", res.FrameHeight)
	fmt.Fprintf(&b, "SourceFile: %s\n", filepath.Base(sourceFile))

	for i, seg := range res.Segments {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d\n", i+1)
		b.WriteString(formatStart(seg.Start, f))
		b.WriteString("\n")
		b.WriteString(seg.Label)
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

func formatStart(sec float64, f Format) string {
	if f == FormatSeconds {
		return strconv.FormatFloat(sec, 'f', 6, 64)
	}
	return ClockString(sec)
}

// ClockString renders seconds as HH:MM:SS.mmm, rounded to the millisecond.
func ClockString(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int64(math.Round(sec * 1000))
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}

// WriteFile encodes res and atomically writes it to the sidecar of mediaPath.
// It returns the sidecar path.
func WriteFile(res *ratio.Result, mediaPath string, f Format) (string, error) {
	data, err := Encode(res, mediaPath, f)
	if err != nil {
		return "", err
	}

	path := SidecarPath(mediaPath)
	if err := filesystem.WriteFileAtomic(path, data, 0o644); err != nil {
		metrics.SidecarWritesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to write sidecar %s: %w", path, err)
	}
	metrics.SidecarWritesTotal.WithLabelValues("success").Inc()
	return path, nil
}
