package ratio

import "math"

// Params are the tunables of segment construction.
type Params struct {
	// Tolerance is the largest ratio difference treated as the same ratio.
	Tolerance float64
	// MinDuration is the shortest segment, in seconds, allowed in a result.
	MinDuration float64
}

// DefaultParams returns the stock tolerance (0.05) and minimum duration (1s).
func DefaultParams() Params {
	return Params{Tolerance: 0.05, MinDuration: 1}
}

func within(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

// snap rounds a boundary to the millisecond, the resolution of the clock
// sidecar format.
func snap(t float64) float64 {
	return math.Round(t*1000) / 1000
}

func newSegment(start, end, r float64) Segment {
	return Segment{Start: start, End: end, Ratio: r, Label: Label(r)}
}

// BuildSegments walks time-sorted samples and opens a new segment wherever
// the ratio moves more than tolerance away from the current segment's ratio.
// The first segment starts at 0 and the last one ends at duration. Boundaries
// are rounded to the millisecond so they survive a clock-format sidecar. Unknown
// samples must already have been filled; any left are ignored. Samples at or
// beyond duration are ignored.
func BuildSegments(samples []Sample, duration, tolerance float64) []Segment {
	var segs []Segment
	var cur Segment
	open := false

	for _, s := range samples {
		r, ok := s.Ratio.Get()
		if !ok || s.Time >= duration {
			continue
		}
		if !open {
			cur = Segment{Start: 0, Ratio: r}
			open = true
			continue
		}
		if within(r, cur.Ratio, tolerance) {
			continue
		}
		at := snap(s.Time)
		if at >= duration {
			continue
		}
		if at <= cur.Start {
			// A change at the segment's own start time replaces its ratio
			// instead of producing an empty segment.
			cur.Ratio = r
			continue
		}
		segs = append(segs, newSegment(cur.Start, at, cur.Ratio))
		cur = Segment{Start: at, Ratio: r}
	}

	if !open {
		return nil
	}
	return append(segs, newSegment(cur.Start, duration, cur.Ratio))
}

// MergeShort folds every segment shorter than minDuration into its
// predecessor, or into its successor when it is first, until none remain.
// A lone segment is never removed. The input is not modified.
func MergeShort(segs []Segment, minDuration float64) []Segment {
	out := append([]Segment(nil), segs...)

	for {
		i := indexOfShort(out, minDuration)
		if i < 0 || len(out) < 2 {
			return out
		}
		if i > 0 {
			out[i-1] = newSegment(out[i-1].Start, out[i].End, out[i-1].Ratio)
		} else {
			out[1] = newSegment(out[0].Start, out[1].End, out[1].Ratio)
		}
		out = append(out[:i], out[i+1:]...)
	}
}

func indexOfShort(segs []Segment, minDuration float64) int {
	for i, s := range segs {
		if s.Duration() < minDuration {
			return i
		}
	}
	return -1
}

// MergeSimilar joins neighbouring segments whose ratios are within tolerance.
// The earlier segment's ratio is kept. The input is not modified.
func MergeSimilar(segs []Segment, tolerance float64) []Segment {
	if len(segs) == 0 {
		return nil
	}
	out := []Segment{segs[0]}
	for _, s := range segs[1:] {
		last := &out[len(out)-1]
		if within(s.Ratio, last.Ratio, tolerance) {
			*last = newSegment(last.Start, s.End, last.Ratio)
			continue
		}
		out = append(out, s)
	}
	return out
}

// Merge alternates MergeShort and MergeSimilar until neither changes the
// list, so the result has no short segments and no adjacent pair within
// tolerance. Running Merge on its own output is a no-op.
func Merge(segs []Segment, p Params) []Segment {
	out := MergeShort(segs, p.MinDuration)
	for {
		next := MergeShort(MergeSimilar(out, p.Tolerance), p.MinDuration)
		if len(next) == len(out) {
			return next
		}
		out = next
	}
}

// Build runs the full classification pipeline over time-sorted samples:
// unknown filling, segment construction and merging.
func Build(samples []Sample, duration float64, p Params) ([]Segment, error) {
	filled, err := FillUnknown(samples)
	if err != nil {
		return nil, err
	}
	return Merge(BuildSegments(filled, duration, p.Tolerance), p), nil
}
