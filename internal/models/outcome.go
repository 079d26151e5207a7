package models

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/microsoft/sweep/internal/metrics"
	"github.com/microsoft/sweep/internal/statistics"
)

// Verdict says whether a selected model beat the trivial baseline.
type Verdict string

const (
	// VerdictMeaningful means the selected model strictly beat the baseline.
	VerdictMeaningful Verdict = "meaningful"
	// VerdictSuspect means the selected model did not beat the baseline.
	// It is a warning, not a failure of the search.
	VerdictSuspect Verdict = "suspect"
)

// SweepOutcome represents the complete result of one sweep run.
type SweepOutcome struct {
	RunID       string             `json:"run_id"`
	SweepName   string             `json:"sweep_name"`
	Timestamp   time.Time          `json:"timestamp"`
	Setup       OutcomeSetup       `json:"config"`
	Best        CandidateOutcome   `json:"best"`
	Searches    []SearchOutcome    `json:"searches"`
	Leaderboard []CandidateOutcome `json:"leaderboard"`
	Candidates  []CandidateOutcome `json:"candidates"`
	Baseline    BaselineOutcome    `json:"baseline"`
	Test        *TestOutcome       `json:"test,omitempty"`
	Digest      OutcomeDigest      `json:"summary"`
	Cached      bool               `json:"cached,omitempty"`
}

type OutcomeSetup struct {
	DataSource     string   `json:"data_source"`
	Label          string   `json:"label"`
	Features       []string `json:"features"`
	Seed           int64    `json:"seed"`
	TrainRows      int      `json:"train_rows"`
	ValidationRows int      `json:"validation_rows"`
	TestRows       int      `json:"test_rows"`
	SkippedRows    int      `json:"skipped_rows,omitempty"`
	Scorer         string   `json:"scorer"`
	Workers        int      `json:"workers"`
}

// CandidateOutcome is the validation score of one enumerated candidate.
type CandidateOutcome struct {
	Index      int             `json:"index"`
	Search     string          `json:"search"`
	Candidate  CandidateConfig `json:"candidate"`
	Score      float64         `json:"score"`
	DurationMs int64           `json:"duration_ms"`
}

// SearchOutcome is the best candidate within one search block. Rank is the
// 1-based place of Best among all candidates of the run.
type SearchOutcome struct {
	Name       string           `json:"name"`
	Family     string           `json:"family"`
	Candidates int              `json:"candidates"`
	Best       CandidateOutcome `json:"best"`
	Rank       int              `json:"rank,omitempty"`
}

// BaselineOutcome compares the selected model against a trivial predictor.
type BaselineOutcome struct {
	Family          string   `json:"family"`
	ValidationScore float64  `json:"validation_score"`
	TestScore       *float64 `json:"test_score,omitempty"`
	Improvement     float64  `json:"improvement"`
	NormalizedGain  float64  `json:"normalized_gain"`
	Verdict         Verdict  `json:"verdict"`
}

// TestOutcome is the held-out evaluation of the selected model.
type TestOutcome struct {
	Score float64                       `json:"score"`
	CI    statistics.ConfidenceInterval `json:"ci"`
}

type OutcomeDigest struct {
	Evaluated  int             `json:"evaluated"`
	Scores     metrics.Summary `json:"scores"`
	DurationMs int64           `json:"duration_ms"`
}

// Scores from a custom scorer may be NaN or infinite. The outcome types
// write them as null so Save and the result cache never fail on them.

func (c CandidateOutcome) MarshalJSON() ([]byte, error) {
	type plain CandidateOutcome
	return json.Marshal(struct {
		plain
		Score statistics.JSONFloat `json:"score"`
	}{plain(c), statistics.JSONFloat(c.Score)})
}

func (c *CandidateOutcome) UnmarshalJSON(data []byte) error {
	type plain CandidateOutcome
	aux := struct {
		*plain
		Score statistics.JSONFloat `json:"score"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Score = float64(aux.Score)
	return nil
}

func (b BaselineOutcome) MarshalJSON() ([]byte, error) {
	type plain BaselineOutcome
	return json.Marshal(struct {
		plain
		ValidationScore statistics.JSONFloat `json:"validation_score"`
		Improvement     statistics.JSONFloat `json:"improvement"`
		NormalizedGain  statistics.JSONFloat `json:"normalized_gain"`
	}{plain(b), statistics.JSONFloat(b.ValidationScore), statistics.JSONFloat(b.Improvement), statistics.JSONFloat(b.NormalizedGain)})
}

func (b *BaselineOutcome) UnmarshalJSON(data []byte) error {
	type plain BaselineOutcome
	aux := struct {
		*plain
		ValidationScore statistics.JSONFloat `json:"validation_score"`
		Improvement     statistics.JSONFloat `json:"improvement"`
		NormalizedGain  statistics.JSONFloat `json:"normalized_gain"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.ValidationScore = float64(aux.ValidationScore)
	b.Improvement = float64(aux.Improvement)
	b.NormalizedGain = float64(aux.NormalizedGain)
	return nil
}

func (t TestOutcome) MarshalJSON() ([]byte, error) {
	type plain TestOutcome
	return json.Marshal(struct {
		plain
		Score statistics.JSONFloat `json:"score"`
	}{plain(t), statistics.JSONFloat(t.Score)})
}

func (t *TestOutcome) UnmarshalJSON(data []byte) error {
	type plain TestOutcome
	aux := struct {
		*plain
		Score statistics.JSONFloat `json:"score"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.Score = float64(aux.Score)
	return nil
}

// Suspect reports whether the outcome failed the baseline check.
func (o *SweepOutcome) Suspect() bool {
	return o.Baseline.Verdict == VerdictSuspect
}

// Save writes the outcome as indented JSON.
func (o *SweepOutcome) Save(path string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling outcome: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing outcome: %w", err)
	}
	return nil
}

// LoadSweepOutcome reads an outcome previously written by Save.
func LoadSweepOutcome(path string) (*SweepOutcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var o SweepOutcome
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &o, nil
}
