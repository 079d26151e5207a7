package models

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/microsoft/sweep/internal/statistics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepOutcome_SaveLoad(t *testing.T) {
	best := CandidateOutcome{
		Index:     7,
		Search:    "random_forest",
		Candidate: NewCandidateConfig("random_forest", Param{Name: "n_estimators", Value: 20}, Param{Name: "max_depth", Value: 3}),
		Score:     0.82,
	}
	o := &SweepOutcome{
		RunID:     "sweep-001",
		SweepName: "mobile-plans",
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Best:      best,
		Baseline: BaselineOutcome{
			Family:          "most_frequent",
			ValidationScore: 0.68,
			Verdict:         VerdictMeaningful,
		},
	}

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, o.Save(path))

	loaded, err := LoadSweepOutcome(path)
	require.NoError(t, err)
	assert.Equal(t, "sweep-001", loaded.RunID)
	assert.Equal(t, 0.82, loaded.Best.Score)
	assert.Equal(t, "random_forest(n_estimators=20, max_depth=3)", loaded.Best.Candidate.String())
	assert.False(t, loaded.Suspect())
}

func TestSweepOutcome_Suspect(t *testing.T) {
	o := &SweepOutcome{Baseline: BaselineOutcome{Verdict: VerdictSuspect}}
	assert.True(t, o.Suspect())
}

func TestSweepOutcome_SaveNonFiniteScores(t *testing.T) {
	broken := CandidateOutcome{Index: 1, Search: "trees", Candidate: NewCandidateConfig("decision_tree"), Score: math.NaN()}
	best := CandidateOutcome{Index: 0, Search: "stumps", Candidate: NewCandidateConfig("decision_tree"), Score: 0.7}
	o := &SweepOutcome{
		RunID:       "sweep-nan",
		SweepName:   "mobile-plans",
		Best:        best,
		Searches:    []SearchOutcome{{Name: "trees", Family: "decision_tree", Candidates: 1, Best: broken}},
		Leaderboard: []CandidateOutcome{best, broken},
		Candidates:  []CandidateOutcome{best, broken},
		Baseline: BaselineOutcome{
			Family:          "most_frequent",
			ValidationScore: math.NaN(),
			Improvement:     math.NaN(),
			NormalizedGain:  math.Inf(1),
			Verdict:         VerdictMeaningful,
		},
		Test: &TestOutcome{Score: math.Inf(-1), CI: statistics.ConfidenceInterval{Lower: math.NaN(), Upper: math.NaN(), Mean: math.Inf(-1), ConfidenceLevel: 0.95}},
	}

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, o.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"score": null`)
	assert.Contains(t, string(raw), `"validation_score": null`)

	loaded, err := LoadSweepOutcome(path)
	require.NoError(t, err)
	assert.Equal(t, 0.7, loaded.Best.Score)
	assert.True(t, math.IsNaN(loaded.Searches[0].Best.Score))
	assert.True(t, math.IsNaN(loaded.Candidates[1].Score))
	assert.Equal(t, "trees", loaded.Candidates[1].Search)
	assert.True(t, math.IsNaN(loaded.Baseline.ValidationScore))
	assert.True(t, math.IsNaN(loaded.Baseline.NormalizedGain))
	assert.Equal(t, VerdictMeaningful, loaded.Baseline.Verdict)
	require.NotNil(t, loaded.Test)
	assert.True(t, math.IsNaN(loaded.Test.Score))
	assert.True(t, math.IsNaN(loaded.Test.CI.Lower))
	assert.Equal(t, 0.95, loaded.Test.CI.ConfidenceLevel)
}
