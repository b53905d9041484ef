package ratio

import "errors"

// ErrNoSignal is returned when no sample carries a known ratio.
var ErrNoSignal = errors.New("no classifiable samples")

// DominantRatio groups known samples by Label and returns the mean raw ratio
// of the largest group. Ties go to the label seen first.
func DominantRatio(samples []Sample) (float64, error) {
	type group struct {
		sum   float64
		count int
	}
	groups := make(map[string]*group)
	var order []string

	for _, s := range samples {
		r, ok := s.Ratio.Get()
		if !ok {
			continue
		}
		l := Label(r)
		g, exists := groups[l]
		if !exists {
			g = &group{}
			groups[l] = g
			order = append(order, l)
		}
		g.sum += r
		g.count++
	}

	if len(order) == 0 {
		return 0, ErrNoSignal
	}

	best := groups[order[0]]
	for _, l := range order[1:] {
		if g := groups[l]; g.count > best.count {
			best = g
		}
	}
	return best.sum / float64(best.count), nil
}

// FillUnknown returns a copy of samples with every Unknown replaced by the
// dominant ratio.
func FillUnknown(samples []Sample) ([]Sample, error) {
	dominant, err := DominantRatio(samples)
	if err != nil {
		return nil, err
	}

	filled := make([]Sample, len(samples))
	for i, s := range samples {
		if !s.Ratio.IsKnown() {
			s.Ratio = Known(dominant)
		}
		filled[i] = s
	}
	return filled, nil
}
