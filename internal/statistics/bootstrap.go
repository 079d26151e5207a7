package statistics

import (
	"bytes"
	"encoding/json"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ConfidenceInterval holds the result of a bootstrap confidence interval
// computation. Metric names the statistic when it is a named scorer.
type ConfidenceInterval struct {
	Metric          string  `json:"metric,omitempty"`
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
}

// JSONFloat encodes NaN and infinite values as JSON null, which
// encoding/json otherwise refuses to marshal. null decodes back to NaN.
type JSONFloat float64

func (f JSONFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *JSONFloat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = JSONFloat(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = JSONFloat(v)
	return nil
}

func (ci ConfidenceInterval) MarshalJSON() ([]byte, error) {
	type plain ConfidenceInterval
	return json.Marshal(struct {
		plain
		Lower JSONFloat `json:"lower"`
		Upper JSONFloat `json:"upper"`
		Mean  JSONFloat `json:"mean"`
	}{plain(ci), JSONFloat(ci.Lower), JSONFloat(ci.Upper), JSONFloat(ci.Mean)})
}

func (ci *ConfidenceInterval) UnmarshalJSON(data []byte) error {
	type plain ConfidenceInterval
	aux := struct {
		*plain
		Lower JSONFloat `json:"lower"`
		Upper JSONFloat `json:"upper"`
		Mean  JSONFloat `json:"mean"`
	}{plain: (*plain)(ci)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ci.Lower, ci.Upper, ci.Mean = float64(aux.Lower), float64(aux.Upper), float64(aux.Mean)
	return nil
}

// DefaultBootstrapIterations is the number of bootstrap resamples.
const DefaultBootstrapIterations = 2000

// DefaultConfidenceLevel is used when a caller passes a level outside (0, 1).
const DefaultConfidenceLevel = 0.95

// ResampleCI computes a percentile bootstrap interval for any statistic over
// n records. statistic receives the indices of one resample, drawn with
// replacement; Mean is the statistic over all records in order. Resamples
// whose statistic is NaN are dropped. The same seed always produces the same
// interval.
func ResampleCI(n int, statistic func(indices []int) (float64, error), confidenceLevel float64, seed int64) (ConfidenceInterval, error) {
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		confidenceLevel = DefaultConfidenceLevel
	}

	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	point, err := statistic(all)
	if err != nil {
		return ConfidenceInterval{}, err
	}
	if n < 2 {
		return ConfidenceInterval{Lower: point, Upper: point, Mean: point, ConfidenceLevel: confidenceLevel}, nil
	}

	rng := rand.New(rand.NewSource(seed))
	iters := DefaultBootstrapIterations

	stats := make([]float64, 0, iters)
	sample := make([]int, n)
	for range iters {
		for j := range sample {
			sample[j] = rng.Intn(n)
		}
		v, err := statistic(sample)
		if err != nil {
			return ConfidenceInterval{}, err
		}
		if !math.IsNaN(v) {
			stats = append(stats, v)
		}
	}

	ci := ConfidenceInterval{
		Lower:           math.NaN(),
		Upper:           math.NaN(),
		Mean:            point,
		ConfidenceLevel: confidenceLevel,
		NumBootstraps:   iters,
	}
	if len(stats) == 0 {
		return ci, nil
	}
	sort.Float64s(stats)
	alpha := 1.0 - confidenceLevel
	ci.Lower = stat.Quantile(alpha/2, stat.Empirical, stats, nil)
	ci.Upper = stat.Quantile(1-alpha/2, stat.Empirical, stats, nil)
	return ci, nil
}

// BootstrapCIWithSeed resamples values with replacement and returns the
// percentile interval of the resampled means.
// Returns a degenerate interval when fewer than 2 values exist.
func BootstrapCIWithSeed(values []float64, confidenceLevel float64, seed int64) ConfidenceInterval {
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		confidenceLevel = DefaultConfidenceLevel
	}

	n := len(values)
	if n < 2 {
		m := 0.0
		if n == 1 {
			m = values[0]
		}
		return ConfidenceInterval{Lower: m, Upper: m, Mean: m, ConfidenceLevel: confidenceLevel}
	}

	sample := make([]float64, n)
	ci, _ := ResampleCI(n, func(indices []int) (float64, error) {
		for j, i := range indices {
			sample[j] = values[i]
		}
		return stat.Mean(sample, nil), nil
	}, confidenceLevel, seed)
	return ci
}

// NormalizedGain computes Hake's normalized gain of a score over a reference:
//
//	g = (score - reference) / (1 - reference)
//
// Returns 0 when the reference is already at the ceiling or the scores are equal,
// and 1 when score reached the ceiling.
func NormalizedGain(reference, score float64) float64 {
	if reference >= 1.0 {
		return 0.0
	}
	if score >= 1.0 {
		return 1.0
	}
	if math.Abs(score-reference) < 1e-12 {
		return 0.0
	}
	return (score - reference) / (1.0 - reference)
}
