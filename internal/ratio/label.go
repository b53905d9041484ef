package ratio

import (
	"fmt"
	"math"
)

// labelTolerance is the maximum distance from a standard ratio for its name
// to be used.
const labelTolerance = 0.08

type standard struct {
	label string
	value float64
}

// Common theatrical and broadcast ratios.
var standards = []standard{
	{"4:3", 4.0 / 3.0},
	{"1.37:1", 1.37},
	{"1.43:1", 1.43},
	{"3:2", 1.5},
	{"1.66:1", 1.66},
	{"16:9", 16.0 / 9.0},
	{"1.85:1", 1.85},
	{"1.90:1", 1.90},
	{"2.00:1", 2.00},
	{"2.20:1", 2.20},
	{"2.35:1", 2.35},
	{"2.39:1", 2.39},
	{"2.55:1", 2.55},
	{"2.76:1", 2.76},
}

// Label maps a ratio to the name of the nearest standard ratio within ±0.08,
// or to "R.RR:1" when none is close enough.
func Label(r float64) string {
	best := -1
	bestDist := math.MaxFloat64
	for i, s := range standards {
		if d := math.Abs(r - s.value); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 && bestDist <= labelTolerance {
		return standards[best].label
	}
	return fmt.Sprintf("%.2f:1", r)
}
