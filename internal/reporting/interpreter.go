package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/microsoft/sweep/internal/models"
)

// InterpretScore returns a plain-language label for a numeric score (0–1).
func InterpretScore(score float64) string {
	pct := score * 100
	switch {
	case pct > 90:
		return "Excellent (>90%)"
	case pct >= 75:
		return "Good (75-90%)"
	case pct >= 60:
		return "Fair (60-75%)"
	default:
		return "Poor (<60%)"
	}
}

// InterpretGain explains the normalized gain over the baseline.
func InterpretGain(gain float64) string {
	pct := gain * 100
	switch {
	case pct <= 0:
		return "No gain over the baseline."
	case pct < 10:
		return fmt.Sprintf("Marginal gain: %.0f%% of the remaining headroom above the baseline was captured.", pct)
	case pct < 40:
		return fmt.Sprintf("Moderate gain: %.0f%% of the remaining headroom above the baseline was captured.", pct)
	default:
		return fmt.Sprintf("Strong gain: %.0f%% of the remaining headroom above the baseline was captured.", pct)
	}
}

// InterpretSpread explains how much the hyperparameters mattered.
func InterpretSpread(spread float64, evaluated int) string {
	if evaluated < 2 {
		return "Only one candidate was evaluated."
	}
	pts := spread * 100
	if pts < 1 {
		return fmt.Sprintf("Candidates scored within %.1f points of each other; the choice of hyperparameters barely matters.", pts)
	}
	return fmt.Sprintf("Candidate scores span %.1f points; the choice of hyperparameters matters.", pts)
}

// InterpretVerdict explains the baseline verdict.
func InterpretVerdict(v models.Verdict) string {
	if v == models.VerdictMeaningful {
		return "The selected model beats the baseline."
	}
	return "SUSPECT: the selected model does not beat a constant prediction. Check the features and the label before trusting it."
}

// FormatSummaryReport produces a full plain-language report from a SweepOutcome.
func FormatSummaryReport(outcome *models.SweepOutcome) string {
	var b strings.Builder

	d := outcome.Digest
	duration := time.Duration(d.DurationMs) * time.Millisecond

	b.WriteString("=== Interpretation ===\n\n")

	b.WriteString(fmt.Sprintf("Best:          %s\n", outcome.Best.Candidate))
	b.WriteString(fmt.Sprintf("Validation:    %.4f (%s)\n", outcome.Best.Score, InterpretScore(outcome.Best.Score)))
	if outcome.Test != nil {
		ci := outcome.Test.CI
		b.WriteString(fmt.Sprintf("Test:          %.4f (%s), %.0f%% CI [%.4f, %.4f]\n",
			outcome.Test.Score, InterpretScore(outcome.Test.Score), ci.ConfidenceLevel*100, ci.Lower, ci.Upper))
	}
	b.WriteString(fmt.Sprintf("Baseline:      %.4f (%s)\n", outcome.Baseline.ValidationScore, outcome.Baseline.Family))
	b.WriteString(fmt.Sprintf("Duration:      %v\n", duration))
	b.WriteString(fmt.Sprintf("Candidates:    %d evaluated\n", d.Evaluated))

	b.WriteString("\n")
	b.WriteString(InterpretVerdict(outcome.Baseline.Verdict) + "\n")
	b.WriteString(InterpretGain(outcome.Baseline.NormalizedGain) + "\n")
	b.WriteString(InterpretSpread(d.Scores.Spread(), d.Evaluated) + "\n")

	if len(outcome.Searches) > 1 {
		b.WriteString("\nPer-Search Interpretation:\n")
		for _, s := range outcome.Searches {
			icon := " "
			if s.Best.Index == outcome.Best.Index {
				icon = "✓"
			}
			b.WriteString(fmt.Sprintf("  %s %s: best %s (%.4f) of %d candidates\n", icon, s.Name, s.Best.Candidate, s.Best.Score, s.Candidates))
		}
	}

	return b.String()
}
