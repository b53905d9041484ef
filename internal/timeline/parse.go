package timeline

import (
	"bufio"
	"bytes"
	"errors"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrNoTimeline is returned when a sidecar lacks frame dimensions or has no
// valid segment.
var ErrNoTimeline = errors.New("no timeline available")

var (
	ordinalLine = regexp.MustCompile(`^\d+$`)
	clockLine   = regexp.MustCompile(`^(\d+):([0-5]?\d):([0-5]?\d(?:\.\d+)?)$`)
	keyLine     = regexp.MustCompile(`(?i)^(FrameWidth|FrameHeight)\s*:\s*(.*)$`)
)

// Parse reads sidecar text. Blank lines only separate blocks. A segment block
// is an ordinal line followed by a start-time line and a ratio line; blocks
// with an unreadable time or ratio are skipped.
func Parse(data []byte) (*Timeline, error) {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	var tl Timeline
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := keyLine.FindStringSubmatch(line); m != nil {
			v, err := strconv.Atoi(strings.TrimSpace(m[2]))
			if err != nil {
				continue
			}
			if strings.EqualFold(m[1], "FrameWidth") {
				tl.FrameWidth = v
			} else {
				tl.FrameHeight = v
			}
			continue
		}

		if !ordinalLine.MatchString(line) || i+2 >= len(lines) {
			continue
		}
		start, okStart := ParseStart(lines[i+1])
		r, okRatio := ParseRatio(lines[i+2])
		if !okStart || !okRatio {
			continue
		}
		tl.Segments = append(tl.Segments, Segment{Start: start, AspectRatio: r, Label: lines[i+2]})
		i += 2
	}

	if tl.FrameWidth <= 0 || tl.FrameHeight <= 0 || len(tl.Segments) == 0 {
		return nil, ErrNoTimeline
	}

	sort.SliceStable(tl.Segments, func(a, b int) bool {
		return tl.Segments[a].Start < tl.Segments[b].Start
	})
	return &tl, nil
}

// ParseStart accepts either a non-negative number of seconds or a clock
// string HH:MM:SS(.fff).
func ParseStart(s string) (float64, bool) {
	if m := clockLine.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		sec, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return 0, false
		}
		return float64(h)*3600 + float64(mins)*60 + sec, true
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ParseRatio accepts a positive number or "N:D" notation.
func ParseRatio(s string) (float64, bool) {
	if num, den, ok := strings.Cut(s, ":"); ok {
		n, errN := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, errD := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if errN != nil || errD != nil || d == 0 {
			return 0, false
		}
		return positive(n / d)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return positive(v)
}

func positive(v float64) (float64, bool) {
	if v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v) {
		return v, true
	}
	return 0, false
}
