package reporting

import (
	"testing"

	"github.com/microsoft/sweep/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestInterpretScore(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  string
	}{
		{"excellent high", 0.95, "Excellent (>90%)"},
		{"excellent boundary", 0.91, "Excellent (>90%)"},
		{"good high", 0.90, "Good (75-90%)"},
		{"good low", 0.75, "Good (75-90%)"},
		{"fair", 0.68, "Fair (60-75%)"},
		{"poor", 0.59, "Poor (<60%)"},
		{"poor zero", 0.0, "Poor (<60%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InterpretScore(tt.score))
		})
	}
}

func TestInterpretGain(t *testing.T) {
	tests := []struct {
		name string
		gain float64
		want string
	}{
		{"none", 0, "No gain over the baseline."},
		{"negative", -0.2, "No gain over the baseline."},
		{"marginal", 0.05, "Marginal gain: 5%"},
		{"moderate", 0.25, "Moderate gain: 25%"},
		{"strong", 0.44, "Strong gain: 44%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, InterpretGain(tt.gain), tt.want)
		})
	}
}

func TestInterpretSpread(t *testing.T) {
	assert.Equal(t, "Only one candidate was evaluated.", InterpretSpread(0, 1))
	assert.Contains(t, InterpretSpread(0.005, 5), "barely matters")
	assert.Contains(t, InterpretSpread(0.04, 5), "span 4.0 points")
}

func TestFormatSummaryReport(t *testing.T) {
	report := FormatSummaryReport(newTestOutcome())

	assert.Contains(t, report, "=== Interpretation ===")
	assert.Contains(t, report, "Best:          decision_tree(max_depth=3)")
	assert.Contains(t, report, "Validation:    0.7900 (Good (75-90%))")
	assert.Contains(t, report, "95% CI [0.7400, 0.8200]")
	assert.Contains(t, report, "Baseline:      0.6800 (most_frequent)")
	assert.Contains(t, report, "The selected model beats the baseline.")
	assert.Contains(t, report, "Moderate gain: 34%")
	assert.NotContains(t, report, "Per-Search")
}

func TestFormatSummaryReport_SuspectAndSearches(t *testing.T) {
	outcome := newTestOutcome()
	outcome.Baseline.Verdict = models.VerdictSuspect
	outcome.Baseline.NormalizedGain = 0
	outcome.Test = nil
	forest := models.CandidateOutcome{Index: 3, Search: "forest", Candidate: models.NewCandidateConfig("random_forest"), Score: 0.70}
	outcome.Searches = append(outcome.Searches, models.SearchOutcome{Name: "forest", Family: "random_forest", Candidates: 1, Best: forest})

	report := FormatSummaryReport(outcome)
	assert.Contains(t, report, "SUSPECT")
	assert.Contains(t, report, "No gain over the baseline.")
	assert.NotContains(t, report, "Test:")
	assert.Contains(t, report, "✓ tree-depth: best decision_tree(max_depth=3) (0.7900) of 3 candidates")
	assert.Contains(t, report, "  forest: best random_forest() (0.7000) of 1 candidates")
}
