package timing

// fixedEfficiencySource replays values in order and then repeats the last one.
type fixedEfficiencySource struct {
	values []float64
	next   int
}

func newFixedEfficiencySource(values ...float64) *fixedEfficiencySource {
	return &fixedEfficiencySource{values: values}
}

func (s *fixedEfficiencySource) Float64() float64 {
	if len(s.values) == 0 {
		return 0
	}
	if s.next >= len(s.values) {
		return s.values[len(s.values)-1]
	}
	v := s.values[s.next]
	s.next++
	return v
}
