package cropfilter

import (
	"fmt"
	"math"
	"strings"

	"varatio/internal/metrics"
	"varatio/internal/timeline"
)

// epsilon shifts every switch slightly earlier so a boundary that lands on a
// frame timestamp does not switch one frame late.
const epsilon = 0.0005

// Geometry returns the center crop of a frameWidth x frameHeight picture for
// the given aspect ratio. The height is even and never exceeds frameHeight.
// ok is false when no positive height can be expressed.
func Geometry(frameWidth, frameHeight int, aspectRatio float64) (height, y int, ok bool) {
	if frameWidth <= 0 || frameHeight <= 0 || !(aspectRatio > 0) {
		return 0, 0, false
	}

	want := math.Min(float64(frameWidth)/aspectRatio, float64(frameHeight))
	height = int(math.Round(want/2)) * 2
	if height > frameHeight {
		height = frameHeight - frameHeight%2
	}
	if height <= 0 {
		return 0, 0, false
	}

	y = (frameHeight - height) / 2
	if y < 0 {
		y = 0
	}
	return height, y, true
}

// Build turns a timeline into a comma-joined list of time-gated crop filters.
// Each segment is active until the next one starts; the last one stays active
// to the end. An empty string means no segment could be expressed and the
// caller must not stream with it.
func Build(tl timeline.Timeline) string {
	terms := make([]string, 0, len(tl.Segments))

	for i, seg := range tl.Segments {
		height, y, ok := Geometry(tl.FrameWidth, tl.FrameHeight, seg.AspectRatio)
		if !ok {
			continue
		}

		start := formatTime(seg.Start - epsilon)
		var enable string
		if i+1 < len(tl.Segments) {
			enable = fmt.Sprintf("between(t,%s,%s)", start, formatTime(tl.Segments[i+1].Start-epsilon))
		} else {
			enable = fmt.Sprintf("gte(t,%s)", start)
		}
		terms = append(terms, fmt.Sprintf("crop=%d:%d:0:%d:enable='%s'", tl.FrameWidth, height, y, enable))
	}

	if len(terms) == 0 {
		metrics.CropFiltersBuilt.WithLabelValues("empty").Inc()
		return ""
	}
	metrics.CropFiltersBuilt.WithLabelValues("ok").Inc()
	return strings.Join(terms, ",")
}

func formatTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%.4f", sec)
}
