package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/microsoft/sweep/internal/models"
	"github.com/microsoft/sweep/internal/validation"
	"github.com/spf13/cobra"
)

var compareOutputFormat string

func newCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <result1.json> <result2.json> [result3.json ...]",
		Short: "Compare multiple sweep result files",
		Long: `Compare results from multiple sweep runs side by side.

Loads two or more result JSON files (written with "sweep run -o") and prints
the best validation score, baseline, verdict and test score of each run along
with per-search best-score deltas. Deltas are last file minus first file.`,
		Args: cobra.MinimumNArgs(2),
		RunE: compareCommandE,
	}

	cmd.Flags().StringVarP(&compareOutputFormat, "format", "f", "table", "Output format: table or json")

	return cmd
}

// searchComparison holds the best score of one search across result files.
type searchComparison struct {
	Name       string    `json:"name"`
	Family     string    `json:"family"`
	Best       []string  `json:"best"`
	Scores     []float64 `json:"scores"`
	ScoreDelta float64   `json:"score_delta"`
}

// comparisonReport is the full comparison output.
type comparisonReport struct {
	Files          []string           `json:"files"`
	Sweeps         []string           `json:"sweeps"`
	BestCandidates []string           `json:"best_candidates"`
	BestScores     []float64          `json:"best_scores"`
	BaselineScores []float64          `json:"baseline_scores"`
	Verdicts       []models.Verdict   `json:"verdicts"`
	TestScores     []float64          `json:"test_scores"`
	BestDelta      float64            `json:"best_score_delta"`
	BaselineDelta  float64            `json:"baseline_score_delta"`
	TestDelta      float64            `json:"test_score_delta"`
	SearchDeltas   []searchComparison `json:"search_deltas"`
	DurationsMs    []int64            `json:"durations_ms"`
	DurationDeltaM int64              `json:"duration_delta_ms"`
}

func compareCommandE(cmd *cobra.Command, args []string) error {
	if compareOutputFormat != "table" && compareOutputFormat != "json" {
		return fmt.Errorf("unsupported format %q: must be table or json", compareOutputFormat)
	}

	outcomes := make([]*models.SweepOutcome, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		if errs := validation.ValidateOutcomeBytes(data); len(errs) > 0 {
			return fmt.Errorf("%s is not a sweep result file:\n  %s", path, strings.Join(errs, "\n  "))
		}
		o, err := models.LoadSweepOutcome(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		outcomes = append(outcomes, o)
	}

	report := buildComparisonReport(args, outcomes)

	if compareOutputFormat == "json" {
		return printComparisonJSON(cmd.OutOrStdout(), report)
	}
	printComparisonTable(cmd.OutOrStdout(), report)
	return nil
}

// nanToNull keeps missing values out of the JSON report, which cannot encode NaN.
func nanToNull(vs []float64) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		if math.IsNaN(v) {
			out[i] = nil
		} else {
			out[i] = v
		}
	}
	return out
}

func buildComparisonReport(files []string, outcomes []*models.SweepOutcome) *comparisonReport {
	report := &comparisonReport{
		Files: files,
	}

	for _, o := range outcomes {
		report.Sweeps = append(report.Sweeps, o.SweepName)
		report.BestCandidates = append(report.BestCandidates, o.Best.Candidate.String())
		report.BestScores = append(report.BestScores, o.Best.Score)
		report.BaselineScores = append(report.BaselineScores, o.Baseline.ValidationScore)
		report.Verdicts = append(report.Verdicts, o.Baseline.Verdict)
		testScore := math.NaN()
		if o.Test != nil {
			testScore = o.Test.Score
		}
		report.TestScores = append(report.TestScores, testScore)
		report.DurationsMs = append(report.DurationsMs, o.Digest.DurationMs)
	}

	n := len(outcomes)
	report.BestDelta = report.BestScores[n-1] - report.BestScores[0]
	report.BaselineDelta = report.BaselineScores[n-1] - report.BaselineScores[0]
	report.TestDelta = report.TestScores[n-1] - report.TestScores[0]
	report.DurationDeltaM = report.DurationsMs[n-1] - report.DurationsMs[0]

	// Searches keyed by name, in first-seen order
	type searchKey struct {
		name   string
		family string
	}
	allSearches := make([]searchKey, 0)
	seen := make(map[string]bool)
	for _, o := range outcomes {
		for _, s := range o.Searches {
			if !seen[s.Name] {
				seen[s.Name] = true
				allSearches = append(allSearches, searchKey{name: s.Name, family: s.Family})
			}
		}
	}

	for _, sk := range allSearches {
		sc := searchComparison{
			Name:   sk.name,
			Family: sk.family,
		}
		for _, o := range outcomes {
			found := false
			for _, s := range o.Searches {
				if s.Name == sk.name {
					found = true
					sc.Best = append(sc.Best, s.Best.Candidate.String())
					sc.Scores = append(sc.Scores, s.Best.Score)
					break
				}
			}
			if !found {
				sc.Best = append(sc.Best, "n/a")
				sc.Scores = append(sc.Scores, math.NaN())
			}
		}
		sc.ScoreDelta = sc.Scores[n-1] - sc.Scores[0]
		report.SearchDeltas = append(report.SearchDeltas, sc)
	}

	return report
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

func formatDelta(v float64) string {
	switch {
	case math.IsNaN(v):
		return " n/a"
	case v > 0:
		return fmt.Sprintf("↑%+.4f", v)
	case v < 0:
		return fmt.Sprintf("↓%+.4f", v)
	default:
		return fmt.Sprintf(" %+.4f", v)
	}
}

func printComparisonTable(w io.Writer, r *comparisonReport) {
	p := func(format string, a ...any) {
		fmt.Fprintf(w, format, a...) //nolint:errcheck
	}

	p("%s\n", strings.Repeat("=", 70))
	p(" COMPARISON REPORT\n")
	p("%s\n\n", strings.Repeat("=", 70))

	for i, f := range r.Files {
		p("  [%d] %s  (sweep: %s, best: %s)\n", i+1, f, r.Sweeps[i], r.BestCandidates[i])
	}
	p("\n")

	p("%s\n", strings.Repeat("-", 70))
	p(" AGGREGATE\n")
	p("%s\n", strings.Repeat("-", 70))

	p("  %s", padRight("Metric", 20))
	for i := range r.Files {
		p("  %s", padRight(fmt.Sprintf("[%d]", i+1), 10))
	}
	p("  Delta\n")

	row := func(name string, values []float64, delta float64) {
		p("  %s", padRight(name, 20))
		for _, v := range values {
			p("  %s", padRight(formatScore(v), 10))
		}
		p("  %s\n", formatDelta(delta))
	}
	row("Best Score", r.BestScores, r.BestDelta)
	row("Baseline Score", r.BaselineScores, r.BaselineDelta)
	row("Test Score", r.TestScores, r.TestDelta)

	p("  %s", padRight("Verdict", 20))
	for _, v := range r.Verdicts {
		p("  %s", padRight(string(v), 10))
	}
	p("\n")

	p("  %s", padRight("Duration (ms)", 20))
	for _, d := range r.DurationsMs {
		p("  %s", padRight(fmt.Sprintf("%d", d), 10))
	}
	p("  %+d\n\n", r.DurationDeltaM)

	if len(r.SearchDeltas) == 0 {
		return
	}

	p("%s\n", strings.Repeat("-", 70))
	p(" PER-SEARCH BEST\n")
	p("%s\n", strings.Repeat("-", 70))

	p("  %s", padRight("Search", 25))
	for i := range r.Files {
		p("  %s", padRight(fmt.Sprintf("[%d] Score", i+1), 10))
	}
	p("  Delta\n")

	for _, sc := range r.SearchDeltas {
		p("  %s", padRight(truncateName(sc.Name, 25), 25))
		for _, v := range sc.Scores {
			p("  %s", padRight(formatScore(v), 10))
		}
		p("  %s\n", formatDelta(sc.ScoreDelta))
	}
	p("\n")
}

func printComparisonJSON(w io.Writer, r *comparisonReport) error {
	// encoding/json rejects NaN, so missing scores become null
	type searchJSON struct {
		Name       string   `json:"name"`
		Family     string   `json:"family"`
		Best       []string `json:"best"`
		Scores     []any    `json:"scores"`
		ScoreDelta any      `json:"score_delta"`
	}
	searches := make([]searchJSON, 0, len(r.SearchDeltas))
	for _, sc := range r.SearchDeltas {
		searches = append(searches, searchJSON{
			Name:       sc.Name,
			Family:     sc.Family,
			Best:       sc.Best,
			Scores:     nanToNull(sc.Scores),
			ScoreDelta: nanToNull([]float64{sc.ScoreDelta})[0],
		})
	}

	out := struct {
		*comparisonReport
		BestScores     []any        `json:"best_scores"`
		BaselineScores []any        `json:"baseline_scores"`
		TestScores     []any        `json:"test_scores"`
		BestDelta      any          `json:"best_score_delta"`
		BaselineDelta  any          `json:"baseline_score_delta"`
		TestDelta      any          `json:"test_score_delta"`
		SearchDeltas   []searchJSON `json:"search_deltas"`
	}{
		comparisonReport: r,
		BestScores:       nanToNull(r.BestScores),
		BaselineScores:   nanToNull(r.BaselineScores),
		TestScores:       nanToNull(r.TestScores),
		BestDelta:        nanToNull([]float64{r.BestDelta})[0],
		BaselineDelta:    nanToNull([]float64{r.BaselineDelta})[0],
		TestDelta:        nanToNull([]float64{r.TestDelta})[0],
		SearchDeltas:     searches,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal comparison report: %w", err)
	}
	fmt.Fprintln(w, string(data)) //nolint:errcheck
	return nil
}
