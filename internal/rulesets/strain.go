package rulesets

import (
	"math"
	"sort"
)

const (
	sectionLength   = 400.0 // ms
	peakDecayWeight = 0.9
)

// StrainSkill accumulates a decaying strain over a stream of timed values
// and reduces the per-section peaks into a single difficulty number.
type StrainSkill struct {
	DecayBase  float64
	Multiplier float64

	current     float64
	sectionEnd  float64
	sectionPeak float64
	peaks       []float64
	started     bool
}

func (s *StrainSkill) decay(ms float64) float64 {
	return math.Pow(s.DecayBase, ms/1000)
}

// Process feeds one object: its start time and the raw difficulty value
// the owning skill evaluated for it.
func (s *StrainSkill) Process(startTime, deltaTime, value float64) {
	s.current *= s.decay(deltaTime)
	s.current += value * s.Multiplier

	if !s.started {
		s.sectionEnd = math.Ceil(startTime/sectionLength) * sectionLength
		s.started = true
	}
	for startTime > s.sectionEnd {
		s.peaks = append(s.peaks, s.sectionPeak)
		s.sectionPeak = 0
		s.sectionEnd += sectionLength
	}
	s.sectionPeak = math.Max(s.current, s.sectionPeak)
}

// DifficultyValue folds the section peaks, highest first, under a
// geometrically decaying weight.
func (s *StrainSkill) DifficultyValue() float64 {
	peaks := append([]float64(nil), s.peaks...)
	peaks = append(peaks, s.sectionPeak)
	sort.Sort(sort.Reverse(sort.Float64Slice(peaks)))

	difficulty, weight := 0.0, 1.0
	for _, p := range peaks {
		difficulty += p * weight
		weight *= peakDecayWeight
	}
	return difficulty
}

// StarScale turns a folded strain difficulty into a star-style rating.
func StarScale(difficulty float64) float64 {
	return math.Sqrt(difficulty) * 0.0675
}
