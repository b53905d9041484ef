package ratio

// Value is a measured aspect ratio or the Unknown marker for frames whose
// crop could not be trusted (title cards, double-boxed or tiny crops).
type Value struct {
	ratio float64
	known bool
}

// Unknown is the Value of an unclassifiable sample.
var Unknown = Value{}

// Known wraps a measured ratio.
func Known(r float64) Value {
	return Value{ratio: r, known: true}
}

// Get returns the ratio and whether it is known.
func (v Value) Get() (float64, bool) {
	return v.ratio, v.known
}

// IsKnown reports whether v carries a measured ratio.
func (v Value) IsKnown() bool {
	return v.known
}

// Sample is one timestamped crop measurement.
type Sample struct {
	Time  float64
	Ratio Value
}

// Segment is a half-open time range [Start, End) with a single aspect ratio.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Ratio float64 `json:"ratio"`
	Label string  `json:"label"`
}

// Duration returns End - Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Result is the outcome of analysing one file: segments tile [0, duration].
type Result struct {
	Segments    []Segment `json:"segments"`
	FrameWidth  int       `json:"frameWidth"`
	FrameHeight int       `json:"frameHeight"`
}

// HasVariableRatios reports whether the file has more than one segment and is
// therefore worth persisting.
func (r *Result) HasVariableRatios() bool {
	return r != nil && len(r.Segments) > 1
}
