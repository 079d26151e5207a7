// Package metrics summarizes the scores produced across a sweep.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of candidate scores.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize computes a Summary over the finite values in scores.
// NaN and infinite values are ignored. Returns the zero Summary for no input.
func Summarize(scores []float64) Summary {
	finite := make([]float64, 0, len(scores))
	for _, s := range scores {
		if !math.IsNaN(s) && !math.IsInf(s, 0) {
			finite = append(finite, s)
		}
	}
	if len(finite) == 0 {
		return Summary{}
	}

	s := Summary{
		Count: len(finite),
		Mean:  stat.Mean(finite, nil),
		Min:   floats.Min(finite),
		Max:   floats.Max(finite),
	}
	if len(finite) > 1 {
		s.StdDev = stat.PopStdDev(finite, nil)
	}
	return s
}

// Spread is the distance between the best and worst score.
func (s Summary) Spread() float64 {
	return s.Max - s.Min
}
