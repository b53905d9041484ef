package ratio

import (
	"errors"
	"math"
	"testing"
)

func known(at, r float64) Sample {
	return Sample{Time: at, Ratio: Known(r)}
}

func unknownAt(at float64) Sample {
	return Sample{Time: at, Ratio: Unknown}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func checkTiling(t *testing.T, segs []Segment, duration float64) {
	t.Helper()
	if len(segs) == 0 {
		t.Fatal("no segments")
	}
	if segs[0].Start != 0 {
		t.Errorf("first segment starts at %v, want 0", segs[0].Start)
	}
	if !approx(segs[len(segs)-1].End, duration) {
		t.Errorf("last segment ends at %v, want %v", segs[len(segs)-1].End, duration)
	}
	for i := range segs {
		if segs[i].Start >= segs[i].End {
			t.Errorf("segment %d is empty or inverted: %+v", i, segs[i])
		}
		if i > 0 && segs[i-1].End != segs[i].Start {
			t.Errorf("gap between segment %d and %d: %v != %v", i-1, i, segs[i-1].End, segs[i].Start)
		}
	}
}

func TestValueVariant(t *testing.T) {
	if Unknown.IsKnown() {
		t.Error("Unknown must not be known")
	}
	r, ok := Known(2.39).Get()
	if !ok || r != 2.39 {
		t.Errorf("Known(2.39).Get() = (%v, %v)", r, ok)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		ratio    float64
		expected string
	}{
		{1.33, "4:3"},
		{1.78, "16:9"},
		{1.77, "16:9"},
		{1.85, "1.85:1"},
		{1.90, "1.90:1"},
		{2.39, "2.39:1"},
		{2.40, "2.39:1"},
		{2.35, "2.35:1"},
		{2.76, "2.76:1"},
		{3.60, "3.60:1"},
		{1.0, "1.00:1"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := Label(tt.ratio); got != tt.expected {
				t.Errorf("Label(%v) = %q, want %q", tt.ratio, got, tt.expected)
			}
		})
	}
}

func TestDominantRatio(t *testing.T) {
	tests := []struct {
		name     string
		samples  []Sample
		expected float64
	}{
		{
			name:     "single group mean",
			samples:  []Sample{known(0, 2.38), known(1, 2.40), unknownAt(2)},
			expected: 2.39,
		},
		{
			name:     "largest group wins",
			samples:  []Sample{known(0, 1.85), known(1, 2.39), known(2, 2.39), known(3, 2.40)},
			expected: (2.39 + 2.39 + 2.40) / 3,
		},
		{
			name:     "tie goes to first label seen",
			samples:  []Sample{known(0, 2.39), known(1, 1.85), known(2, 2.39), known(3, 1.85)},
			expected: 2.39,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DominantRatio(tt.samples)
			if err != nil {
				t.Fatalf("DominantRatio() error = %v", err)
			}
			if !approx(got, tt.expected) {
				t.Errorf("DominantRatio() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDominantRatioNoSignal(t *testing.T) {
	_, err := DominantRatio([]Sample{unknownAt(0), unknownAt(1)})
	if !errors.Is(err, ErrNoSignal) {
		t.Errorf("expected ErrNoSignal, got %v", err)
	}
	if _, err := FillUnknown(nil); !errors.Is(err, ErrNoSignal) {
		t.Errorf("expected ErrNoSignal for empty input, got %v", err)
	}
}

func TestFillUnknownDoesNotMutateInput(t *testing.T) {
	in := []Sample{known(0, 2.39), unknownAt(1)}
	out, err := FillUnknown(in)
	if err != nil {
		t.Fatal(err)
	}
	if in[1].Ratio.IsKnown() {
		t.Error("input sample was modified")
	}
	if r, ok := out[1].Ratio.Get(); !ok || r != 2.39 {
		t.Errorf("filled ratio = (%v, %v), want 2.39", r, ok)
	}
}

func TestBuildSegmentsSingleRatio(t *testing.T) {
	var samples []Sample
	for i := 0; i < 50; i++ {
		samples = append(samples, known(float64(i)*2+0.5, 2.39))
	}

	segs := BuildSegments(samples, 100, 0.05)
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1: %+v", len(segs), segs)
	}
	checkTiling(t, segs, 100)
}

func TestBuildSegmentsAlternatingWithinTolerance(t *testing.T) {
	for _, tol := range []float64{0.01, 0.05, 0.1, 0.2} {
		r1 := 2.0
		r2 := r1 + tol*0.9
		var samples []Sample
		for i := 0; i < 40; i++ {
			r := r1
			if i%2 == 1 {
				r = r2
			}
			samples = append(samples, known(float64(i), r))
		}

		segs := Merge(BuildSegments(samples, 40, tol), Params{Tolerance: tol, MinDuration: 1})
		if len(segs) != 1 {
			t.Errorf("tolerance %v: got %d segments, want 1", tol, len(segs))
		}
	}
}

func TestBuildSegmentsEdgeCases(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if segs := BuildSegments(nil, 10, 0.05); segs != nil {
			t.Errorf("expected nil, got %+v", segs)
		}
	})

	t.Run("change at segment start replaces ratio", func(t *testing.T) {
		segs := BuildSegments([]Sample{known(0, 2.39), known(0, 1.85), known(5, 1.85)}, 10, 0.05)
		if len(segs) != 1 || segs[0].Ratio != 1.85 {
			t.Errorf("got %+v, want one 1.85 segment", segs)
		}
	})

	t.Run("samples past duration ignored", func(t *testing.T) {
		segs := BuildSegments([]Sample{known(0, 2.39), known(12, 1.85)}, 10, 0.05)
		if len(segs) != 1 {
			t.Errorf("got %+v, want one segment", segs)
		}
		checkTiling(t, segs, 10)
	})

	t.Run("boundaries snap to the millisecond", func(t *testing.T) {
		segs := BuildSegments([]Sample{known(0, 2.39), known(10.427083, 1.85)}, 60, 0.05)
		if len(segs) != 2 {
			t.Fatalf("got %d segments, want 2", len(segs))
		}
		if segs[1].Start != 10.427 || segs[0].End != 10.427 {
			t.Errorf("boundary = %v/%v, want 10.427", segs[0].End, segs[1].Start)
		}
		checkTiling(t, segs, 60)
	})

	t.Run("change snapping onto duration ignored", func(t *testing.T) {
		segs := BuildSegments([]Sample{known(0, 2.39), known(9.9998, 1.85)}, 10, 0.05)
		if len(segs) != 1 {
			t.Errorf("got %+v, want one segment", segs)
		}
		checkTiling(t, segs, 10)
	})

	t.Run("last segment closes at duration", func(t *testing.T) {
		segs := BuildSegments([]Sample{known(1, 2.39), known(20, 1.85), known(30, 1.85)}, 90, 0.05)
		if len(segs) != 2 {
			t.Fatalf("got %d segments, want 2", len(segs))
		}
		checkTiling(t, segs, 90)
		if segs[1].Start != 20 {
			t.Errorf("boundary at %v, want 20", segs[1].Start)
		}
	})
}

func TestBuildWorkedExample(t *testing.T) {
	samples := []Sample{
		known(0, 2.39),
		known(10, 2.39),
		unknownAt(10.2),
		known(10.4, 1.85),
		known(40, 1.85),
	}

	segs, err := Build(samples, 50, Params{Tolerance: 0.05, MinDuration: 1})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []Segment{
		{Start: 0, End: 10.4, Ratio: 2.39, Label: "2.39:1"},
		{Start: 10.4, End: 50, Ratio: 1.85, Label: "1.85:1"},
	}
	if len(segs) != len(want) {
		t.Fatalf("got %d segments, want %d: %+v", len(segs), len(want), segs)
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, segs[i], want[i])
		}
	}
}

func TestMergeShort(t *testing.T) {
	tests := []struct {
		name     string
		in       []Segment
		expected []Segment
	}{
		{
			name: "middle short merges backwards",
			in: []Segment{
				newSegment(0, 10, 2.39),
				newSegment(10, 10.5, 1.85),
				newSegment(10.5, 30, 1.78),
			},
			expected: []Segment{
				newSegment(0, 10.5, 2.39),
				newSegment(10.5, 30, 1.78),
			},
		},
		{
			name: "leading short merges forwards",
			in: []Segment{
				newSegment(0, 0.4, 1.33),
				newSegment(0.4, 30, 2.39),
			},
			expected: []Segment{
				newSegment(0, 30, 2.39),
			},
		},
		{
			name:     "lone short segment kept",
			in:       []Segment{newSegment(0, 0.5, 2.39)},
			expected: []Segment{newSegment(0, 0.5, 2.39)},
		},
		{
			name: "cascade of shorts",
			in: []Segment{
				newSegment(0, 0.2, 1.33),
				newSegment(0.2, 0.4, 1.85),
				newSegment(0.4, 0.6, 2.39),
				newSegment(0.6, 20, 1.78),
			},
			expected: []Segment{
				newSegment(0, 20, 1.78),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeShort(tt.in, 1)
			if len(got) != len(tt.expected) {
				t.Fatalf("got %+v, want %+v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("segment %d = %+v, want %+v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestMergeShortDoesNotMutateInput(t *testing.T) {
	in := []Segment{newSegment(0, 10, 2.39), newSegment(10, 10.5, 1.85), newSegment(10.5, 30, 1.78)}
	_ = MergeShort(in, 1)
	if in[0].End != 10 || len(in) != 3 || in[1].Ratio != 1.85 {
		t.Errorf("input modified: %+v", in)
	}
}

func TestMergeSimilar(t *testing.T) {
	in := []Segment{
		newSegment(0, 10, 2.39),
		newSegment(10, 20, 2.35),
		newSegment(20, 30, 1.85),
		newSegment(30, 40, 1.87),
	}
	got := MergeSimilar(in, 0.05)
	want := []Segment{newSegment(0, 20, 2.39), newSegment(20, 40, 1.85)}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMergeReachesJointFixpoint(t *testing.T) {
	// Removing the short 1.33 segment makes the two 2.39 segments adjacent.
	in := []Segment{
		newSegment(0, 20, 2.39),
		newSegment(20, 20.3, 1.33),
		newSegment(20.3, 40, 2.40),
		newSegment(40, 60, 1.85),
	}
	got := Merge(in, Params{Tolerance: 0.05, MinDuration: 1})
	if len(got) != 2 {
		t.Fatalf("got %d segments, want 2: %+v", len(got), got)
	}
	checkTiling(t, got, 60)
	if got[0].Ratio != 2.39 || got[1].Ratio != 1.85 {
		t.Errorf("unexpected ratios: %+v", got)
	}
}

func TestMergeIdempotent(t *testing.T) {
	p := Params{Tolerance: 0.05, MinDuration: 2}
	in := []Segment{
		newSegment(0, 1, 1.33),
		newSegment(1, 15, 2.39),
		newSegment(15, 15.5, 1.85),
		newSegment(15.5, 30, 1.78),
		newSegment(30, 31, 1.80),
		newSegment(31, 60, 2.39),
	}

	once := Merge(in, p)
	twice := Merge(once, p)

	if len(once) != len(twice) {
		t.Fatalf("second merge changed length: %d -> %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("segment %d changed: %+v -> %+v", i, once[i], twice[i])
		}
	}
	checkTiling(t, once, 60)
	for i, s := range once {
		if len(once) > 1 && s.Duration() < p.MinDuration {
			t.Errorf("segment %d shorter than minimum: %+v", i, s)
		}
		if i > 0 && within(once[i-1].Ratio, s.Ratio, p.Tolerance) {
			t.Errorf("segments %d and %d within tolerance", i-1, i)
		}
	}
}

func TestResultHasVariableRatios(t *testing.T) {
	var nilResult *Result
	if nilResult.HasVariableRatios() {
		t.Error("nil result should not be variable")
	}
	one := &Result{Segments: []Segment{newSegment(0, 10, 2.39)}}
	if one.HasVariableRatios() {
		t.Error("single segment should not be variable")
	}
	two := &Result{Segments: []Segment{newSegment(0, 5, 2.39), newSegment(5, 10, 1.85)}}
	if !two.HasVariableRatios() {
		t.Error("two segments should be variable")
	}
}
