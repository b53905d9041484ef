package sampler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"varatio/internal/logging"
	"varatio/internal/metrics"
	"varatio/internal/probe"
	"varatio/internal/procexec"
	"varatio/internal/ratio"
)

// ErrNoSamples is returned when the crop-detect pass produced no usable output.
var ErrNoSamples = errors.New("crop detection produced no samples")

// Classification thresholds.
const (
	minCropSide       = 32   // narrower or shorter crops are near-black frames
	minHeightFraction = 0.15 // shorter crops are text cards
	boxedFraction     = 0.95 // both sides below this means windowboxed
	minAreaFraction   = 0.40 // smaller crops are not trusted
)

// progressInterval is the video time between progress lines, in seconds.
const progressInterval = 30.0

// Crop is one rectangle reported by the crop-detect filter.
type Crop struct {
	Time   float64
	Width  int
	Height int
	X      int
	Y      int
}

// Class is the outcome of classifying a Crop.
type Class int

const (
	// Dropped crops are discarded entirely.
	Dropped Class = iota
	// Unknown crops produce a sample with no ratio.
	Unknown
	// Valid crops produce a sample with a measured ratio.
	Valid
)

func (c Class) String() string {
	switch c {
	case Valid:
		return "valid"
	case Unknown:
		return "unknown"
	default:
		return "dropped"
	}
}

// cropdetect lines look like
// [Parsed_cropdetect_0 @ 0x...] x1:0 x2:1919 y1:140 y2:939 w:1920 h:800 x:0 y:140 pts:1234 t:12.345 limit:0.0627 crop=1920:800:0:140
var cropLine = regexp.MustCompile(`\bt:\s*(-?\d+(?:\.\d+)?)\b.*?crop=(\d+):(\d+):(\d+):(\d+)`)

// ParseCropdetect extracts every crop rectangle from ffmpeg's diagnostic
// output in emission order.
func ParseCropdetect(stderr string) []Crop {
	var crops []Crop
	for _, line := range strings.Split(stderr, "\n") {
		if !strings.Contains(line, "crop=") {
			continue
		}
		m := cropLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		t, err := strconv.ParseFloat(m[1], 64)
		if err != nil || t < 0 {
			continue
		}
		w, _ := strconv.Atoi(m[2])
		h, _ := strconv.Atoi(m[3])
		x, _ := strconv.Atoi(m[4])
		y, _ := strconv.Atoi(m[5])
		crops = append(crops, Crop{Time: t, Width: w, Height: h, X: x, Y: y})
	}
	return crops
}

// Classify decides how a crop measured on a frameWidth x frameHeight source
// contributes to the timeline. The returned ratio is rounded to two decimals
// and only meaningful for Valid.
func Classify(c Crop, frameWidth, frameHeight int) (Class, float64) {
	if c.Width < minCropSide || c.Height < minCropSide {
		return Dropped, 0
	}
	fw, fh := float64(frameWidth), float64(frameHeight)
	w, h := float64(c.Width), float64(c.Height)

	if h < fh*minHeightFraction {
		return Unknown, 0
	}
	if w < fw*boxedFraction && h < fh*boxedFraction {
		return Unknown, 0
	}
	if w*h < fw*fh*minAreaFraction {
		return Unknown, 0
	}
	return Valid, math.Round(w/h*100) / 100
}

// Args returns the ffmpeg arguments for a crop-detect pass over path.
// blackThreshold is the 0-255 black level.
func Args(path string, blackThreshold int) []string {
	limit := float64(clampByte(blackThreshold)) / 255
	return []string{
		"-hide_banner",
		"-nostats",
		"-skip_frame", "noref",
		"-i", path,
		"-map", "0:v:0",
		"-vf", fmt.Sprintf("cropdetect=limit=%.4f:round=2:reset=1", limit),
		"-an", "-sn", "-dn",
		"-f", "null",
		"-",
	}
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// Sample runs the crop-detect pass and returns time-sorted samples.
// Dropped crops are omitted and Unknown crops carry ratio.Unknown.
func Sample(ctx context.Context, r procexec.Runner, ffmpegPath, path string, info *probe.VideoInfo, blackThreshold int) ([]ratio.Sample, error) {
	out, err := r.Run(ctx, ffmpegPath, Args(path, blackThreshold), procexec.Stderr)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoSamples, path)
	}

	crops := ParseCropdetect(out)
	samples := make([]ratio.Sample, 0, len(crops))
	counts := map[Class]int{}
	nextReport := progressInterval

	for _, c := range crops {
		if c.Time >= nextReport {
			logging.Debug("Crop detection for %s at %.0fs of %.0fs (%d samples)",
				path, c.Time, info.Duration, len(samples))
			for nextReport <= c.Time {
				nextReport += progressInterval
			}
		}

		class, value := Classify(c, info.Width, info.Height)
		counts[class]++
		switch class {
		case Valid:
			samples = append(samples, ratio.Sample{Time: c.Time, Ratio: ratio.Known(value)})
		case Unknown:
			samples = append(samples, ratio.Sample{Time: c.Time, Ratio: ratio.Unknown})
		}
	}

	for _, class := range []Class{Valid, Unknown, Dropped} {
		metrics.SamplesTotal.WithLabelValues(class.String()).Add(float64(counts[class]))
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSamples, path)
	}

	// Timestamps restart at segment boundaries in some containers.
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time < samples[j].Time
	})

	logging.Debug("Crop detection for %s: %d valid, %d unknown, %d dropped",
		path, counts[Valid], counts[Unknown], counts[Dropped])
	return samples, nil
}
