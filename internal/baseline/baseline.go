// Package baseline compares a selected model against a trivial predictor.
package baseline

import (
	"context"
	"fmt"

	"github.com/microsoft/sweep/internal/dataset"
	"github.com/microsoft/sweep/internal/learners"
	"github.com/microsoft/sweep/internal/models"
	"github.com/microsoft/sweep/internal/selection"
	"github.com/microsoft/sweep/internal/statistics"
)

// Comparison pairs a selected model's score with the baseline's score.
type Comparison struct {
	Selected float64
	Baseline float64
	// Improvement is Selected - Baseline.
	Improvement float64
	// NormalizedGain is the share of the remaining headroom above the
	// baseline that the selected model captured.
	NormalizedGain float64
	Verdict        models.Verdict
}

// Compare judges a search result against a baseline score. The result is
// meaningful only when the selected score is strictly greater.
func Compare(selected, baseline float64) Comparison {
	c := Comparison{
		Selected:       selected,
		Baseline:       baseline,
		Improvement:    selected - baseline,
		NormalizedGain: statistics.NormalizedGain(baseline, selected),
		Verdict:        models.VerdictSuspect,
	}
	if selected > baseline {
		c.Verdict = models.VerdictMeaningful
	}
	return c
}

// Suspect reports whether the selected model failed to beat the baseline.
func (c Comparison) Suspect() bool {
	return c.Verdict != models.VerdictMeaningful
}

// Outcome converts the comparison into its reported form.
func (c Comparison) Outcome(family string) models.BaselineOutcome {
	return models.BaselineOutcome{
		Family:          family,
		ValidationScore: c.Baseline,
		Improvement:     c.Improvement,
		NormalizedGain:  c.NormalizedGain,
		Verdict:         c.Verdict,
	}
}

// Evaluate fits the baseline family on training and scores it on eval.
func Evaluate(ctx context.Context, f selection.Fitter, family string, s selection.Scorer, training, eval *dataset.Dataset) (learners.Model, float64, error) {
	if family == "" {
		family = models.DefaultBaselineFamily
	}
	m, err := f.Fit(ctx, models.NewCandidateConfig(family), training)
	if err != nil {
		return nil, 0, fmt.Errorf("fitting baseline %s: %w", family, err)
	}
	score, err := s.Score(m, eval)
	if err != nil {
		return nil, 0, fmt.Errorf("scoring baseline %s: %w", family, err)
	}
	return m, score, nil
}
