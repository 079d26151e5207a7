package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/microsoft/sweep/internal/models"
)

// formatDuration formats a duration in a consistent, human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Millisecond).String()
}

// truncateName shortens a name to maxLen runes, replacing the last rune with "…" if needed.
func truncateName(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen-1]) + "…"
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

// FormatMarkdown formats a SweepOutcome as a markdown report suitable for a
// pull request comment.
func FormatMarkdown(outcome *models.SweepOutcome) string {
	var b strings.Builder

	digest := outcome.Digest
	duration := time.Duration(digest.DurationMs) * time.Millisecond

	b.WriteString(fmt.Sprintf("## 🔎 Sweep Results: %s\n\n", outcome.SweepName))

	verdict := "✅ Meaningful"
	if outcome.Suspect() {
		verdict = "⚠️ Suspect"
	}
	b.WriteString(fmt.Sprintf("**Verdict:** %s | **Best:** `%s` | **Score:** %.4f | **Duration:** %s\n\n",
		verdict, outcome.Best.Candidate, outcome.Best.Score, formatDuration(duration)))

	b.WriteString(fmt.Sprintf("- **Scorer:** %s\n", outcome.Setup.Scorer))
	b.WriteString(fmt.Sprintf("- **Baseline (%s):** %.4f, improvement %+.4f (normalized gain %.1f%%)\n",
		outcome.Baseline.Family, outcome.Baseline.ValidationScore,
		outcome.Baseline.Improvement, outcome.Baseline.NormalizedGain*100))
	if outcome.Test != nil {
		b.WriteString(fmt.Sprintf("- **Test Score:** %.4f (%.0f%% CI %.4f to %.4f)\n",
			outcome.Test.Score, outcome.Test.CI.ConfidenceLevel*100, outcome.Test.CI.Lower, outcome.Test.CI.Upper))
	}
	b.WriteString(fmt.Sprintf("- **Candidates:** %d evaluated, scores %.4f - %.4f (σ=%.4f)\n",
		digest.Evaluated, digest.Scores.Min, digest.Scores.Max, digest.Scores.StdDev))
	b.WriteString(fmt.Sprintf("- **Rows:** %d train / %d validation / %d test\n\n",
		outcome.Setup.TrainRows, outcome.Setup.ValidationRows, outcome.Setup.TestRows))

	if len(outcome.Leaderboard) > 0 {
		b.WriteString("### Leaderboard\n\n")
		b.WriteString("| Rank | Candidate | Search | Score |\n")
		b.WriteString("|------|-----------|--------|-------|\n")
		for i, c := range outcome.Leaderboard {
			b.WriteString(fmt.Sprintf("| %d | `%s` | %s | %.4f |\n", i+1, c.Candidate, c.Search, c.Score))
		}
		b.WriteString("\n")
	}

	if len(outcome.Searches) > 1 {
		b.WriteString("### Searches\n\n")
		b.WriteString("| Search | Family | Candidates | Best | Score | Rank |\n")
		b.WriteString("|--------|--------|------------|------|-------|------|\n")
		for _, s := range outcome.Searches {
			b.WriteString(fmt.Sprintf("| %s | %s | %d | `%s` | %.4f | %d |\n",
				s.Name, s.Family, s.Candidates, s.Best.Candidate, s.Best.Score, s.Rank))
		}
		b.WriteString("\n")
	}

	if outcome.Suspect() {
		b.WriteString("### ⚠️ Baseline Check\n\n")
		b.WriteString(fmt.Sprintf("The selected model does not beat the `%s` baseline on the validation partition. "+
			"The features may carry no signal for this label.\n\n", outcome.Baseline.Family))
	}

	b.WriteString("---\n")
	b.WriteString(fmt.Sprintf("*Data: %s | Label: %s | Seed: %d | Run: %s*\n",
		outcome.Setup.DataSource, outcome.Setup.Label, outcome.Setup.Seed, outcome.RunID))

	return b.String()
}
