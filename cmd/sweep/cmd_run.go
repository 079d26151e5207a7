package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/microsoft/sweep/internal/cache"
	"github.com/microsoft/sweep/internal/models"
	"github.com/microsoft/sweep/internal/orchestration"
	"github.com/microsoft/sweep/internal/projectconfig"
	"github.com/microsoft/sweep/internal/reporting"
	"github.com/microsoft/sweep/internal/spinner"
	"github.com/microsoft/sweep/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	outputPath    string
	junitPath     string
	verbose       bool
	searchFilters []string
	parallel      bool
	workers       int
	seed          int64
	scorerName    string
	interpret     bool
	format        string
	enableCache   bool
	disableCache  bool
	runCacheDir   string
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <sweep.yaml>",
		Short: "Run a model-selection sweep",
		Long: `Run a model-selection sweep from a sweep file.

The sweep file names the data source, the label column, the split ratios and
the searches to enumerate. Every candidate is fit on the training partition
and scored on the validation partition; the best one is then checked against
a most-frequent baseline and, when a test partition exists, on held-out data.

Relative --output and --junit names go to paths.results of the nearest
.sweep.yaml, when there is one.

Exit status is 0 when the selected model beats the baseline, 1 when it does
not, and 2 on any error.`,
		Args: cobra.ExactArgs(1),
		RunE: runCommandE,
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output JSON file for results")
	cmd.Flags().StringVar(&junitPath, "junit", "", "Write a JUnit XML report to this file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output with per-candidate progress")
	cmd.Flags().StringArrayVar(&searchFilters, "search", nil, "Filter searches by name/family glob pattern (can be repeated)")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "Evaluate candidates concurrently")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of concurrent workers (implies --parallel)")
	cmd.Flags().Int64Var(&seed, "seed", models.DefaultSeed, "Split seed (overrides the sweep file)")
	cmd.Flags().StringVar(&scorerName, "scorer", "", "Scorer to use (overrides the sweep file)")
	cmd.Flags().BoolVar(&interpret, "interpret", false, "Print a plain-language interpretation of the results")
	cmd.Flags().StringVar(&format, "format", "default", "Output format: default, markdown")
	cmd.Flags().BoolVar(&enableCache, "cache", false, "Enable result caching (default: false)")
	cmd.Flags().BoolVar(&disableCache, "no-cache", false, "Disable result caching (default)")
	cmd.Flags().StringVar(&runCacheDir, "cache-dir", projectconfig.DefaultCacheDir, "Cache directory for storing results")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	specPath := args[0]
	out := cmd.OutOrStdout()

	if format != "default" && format != "markdown" {
		return fmt.Errorf("unknown output format: %s (supported: default, markdown)", format)
	}

	pc, err := projectconfig.Load(filepath.Dir(specPath))
	if err != nil {
		return err
	}

	spec, err := models.LoadSweepSpecWithFallbacks(specPath, models.Fallbacks{
		Scorer:   pc.Defaults.Scorer,
		Baseline: pc.Defaults.Baseline,
		Seed:     pc.Defaults.Seed,
	})
	if err != nil {
		return fmt.Errorf("failed to load sweep: %w", err)
	}

	// CLI flags override the sweep file and project defaults
	if cmd.Flags().Changed("seed") {
		s := seed
		spec.Split.Seed = &s
	}
	if scorerName != "" {
		spec.Config.Scorer = scorerName
	}
	if parallel || boolValue(pc.Defaults.Parallel) {
		spec.Config.Parallel = true
	}
	if workers > 0 {
		spec.Config.Parallel = true
		spec.Config.Workers = workers
	}
	beVerbose := verbose || boolValue(pc.Defaults.Verbose)

	runnerOpts := []orchestration.RunnerOption{
		orchestration.WithWorkers(pc.Defaults.Workers),
		orchestration.WithSearchFilters(searchFilters...),
	}
	resultCache, err := openCache(cmd, pc)
	if err != nil {
		return err
	}
	if resultCache != nil {
		runnerOpts = append(runnerOpts, orchestration.WithCache(resultCache))
		if beVerbose {
			fmt.Fprintf(out, "Cache enabled: %s\n", resultCache.Dir()) //nolint:errcheck
		}
	}
	runner := orchestration.NewSweepRunner(spec, runnerOpts...)

	runner.OnProgress(debugProgressListener)
	switch {
	case beVerbose:
		runner.OnProgress(verboseProgressListener(out))
	case isTerminal(out):
		tp := &terminalProgress{out: out}
		runner.OnProgress(tp.listen)
		defer tp.stop()
	default:
		runner.OnProgress(simpleProgressListener(out))
	}

	fmt.Fprintf(out, "Running sweep: %s\n", spec.Name)                              //nolint:errcheck
	fmt.Fprintf(out, "Data: %s (label: %s)\n", dataSourceName(spec), spec.Data.Label) //nolint:errcheck
	fmt.Fprintf(out, "Scorer: %s\n", spec.Config.Scorer)                             //nolint:errcheck
	if spec.Config.Parallel {
		fmt.Fprintf(out, "Parallel: %d workers\n", spec.Config.EffectiveWorkers(pc.Defaults.Workers)) //nolint:errcheck
	}
	fmt.Fprintln(out) //nolint:errcheck

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	outcome, err := runner.Run(ctx)
	if err != nil {
		if orchestration.IsSelectionError(err) {
			return fmt.Errorf("model selection failed: %w", err)
		}
		return fmt.Errorf("sweep failed: %w", err)
	}

	switch format {
	case "markdown":
		fmt.Fprint(out, FormatMarkdown(outcome)) //nolint:errcheck
	default:
		printSummary(out, outcome)
		if interpret {
			fmt.Fprintln(out)                                      //nolint:errcheck
			fmt.Fprint(out, reporting.FormatSummaryReport(outcome)) //nolint:errcheck
		}
	}

	if outputPath != "" {
		p := pc.ResultPath(outputPath)
		if err := ensureDir(p); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
		if err := outcome.Save(p); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
		fmt.Fprintf(out, "\nResults saved to: %s\n", p) //nolint:errcheck
	}
	if junitPath != "" {
		p := pc.ResultPath(junitPath)
		if err := ensureDir(p); err != nil {
			return fmt.Errorf("failed to write JUnit report: %w", err)
		}
		if err := reporting.WriteJUnitXML(outcome, p); err != nil {
			return fmt.Errorf("failed to write JUnit report: %w", err)
		}
		fmt.Fprintf(out, "JUnit report saved to: %s\n", p) //nolint:errcheck
	}

	if outcome.Suspect() {
		return &SuspectResultError{
			Message: fmt.Sprintf("selected model %s scored %.4f, which does not beat the %s baseline (%.4f)",
				outcome.Best.Candidate, outcome.Best.Score, outcome.Baseline.Family, outcome.Baseline.ValidationScore),
		}
	}
	return nil
}

// ensureDir creates the parent directory of a result file.
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// openCache returns nil when caching is off. The --cache-dir flag wins over
// the project configuration.
func openCache(cmd *cobra.Command, pc *projectconfig.ProjectConfig) (*cache.Cache, error) {
	useCaching := (enableCache || boolValue(pc.Cache.Enabled)) && !disableCache
	if !useCaching {
		return nil, nil
	}

	dir := pc.Cache.Dir
	if cmd.Flags().Changed("cache-dir") || dir == "" {
		dir = runCacheDir
	}
	absCacheDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving cache directory: %w", err)
	}
	return cache.New(absCacheDir), nil
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

func dataSourceName(spec *models.SweepSpec) string {
	if spec.Data.SQLite != nil {
		return spec.Data.SQLite.Path
	}
	return spec.Data.Path
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalProgress shows a spinner while data loads and a progress bar
// while candidates are evaluated.
type terminalProgress struct {
	out  io.Writer
	spin *spinner.Spinner
	bar  *pb.ProgressBar
}

func (p *terminalProgress) listen(event orchestration.ProgressEvent) {
	switch event.EventType {
	case orchestration.EventDataLoading:
		p.spin = spinner.Start(p.out, "Loading data...")
	case orchestration.EventSweepStart:
		p.stopSpinner()
		p.bar = pb.New(event.Total).SetWriter(p.out)
		p.bar.Start()
	case orchestration.EventCandidateComplete, orchestration.EventCandidateFailed:
		if p.bar != nil {
			p.bar.Increment()
		}
	case orchestration.EventBaselineComplete, orchestration.EventSweepComplete:
		p.finishBar()
	case orchestration.EventSweepCached:
		fmt.Fprintf(p.out, "✓ Using cached result (%d candidates)\n", event.Total) //nolint:errcheck
	}
}

func (p *terminalProgress) stop() {
	p.stopSpinner()
	p.finishBar()
}

func (p *terminalProgress) stopSpinner() {
	if p.spin != nil {
		p.spin.Stop()
		p.spin = nil
	}
}

func (p *terminalProgress) finishBar() {
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}

func verboseProgressListener(out io.Writer) orchestration.ProgressListener {
	return func(event orchestration.ProgressEvent) {
		switch event.EventType {
		case orchestration.EventDataLoading:
			fmt.Fprintln(out, "Loading data...") //nolint:errcheck
		case orchestration.EventSweepStart:
			fmt.Fprintf(out, "Evaluating %d candidate(s)...\n\n", event.Total) //nolint:errcheck
		case orchestration.EventSweepCached:
			fmt.Fprintf(out, "Using cached result (%d candidates)\n\n", event.Total) //nolint:errcheck
		case orchestration.EventCandidateStart:
			fmt.Fprintf(out, "[%d/%d] Fitting %s\n", event.Index+1, event.Total, event.Candidate) //nolint:errcheck
		case orchestration.EventCandidateComplete:
			duration := time.Duration(event.DurationMs) * time.Millisecond
			fmt.Fprintf(out, "[%d/%d] %s score=%.4f (%s)\n", event.Index+1, event.Total, event.Candidate, event.Score, formatDuration(duration)) //nolint:errcheck
		case orchestration.EventCandidateFailed:
			fmt.Fprintf(out, "[%d/%d] %s failed: %v\n", event.Index+1, event.Total, event.Candidate, event.Err) //nolint:errcheck
		case orchestration.EventBaselineComplete:
			fmt.Fprintf(out, "\nBaseline score: %.4f\n", event.Score) //nolint:errcheck
		case orchestration.EventSweepComplete:
			duration := time.Duration(event.DurationMs) * time.Millisecond
			fmt.Fprintf(out, "Sweep completed in %s\n\n", formatDuration(duration)) //nolint:errcheck
		}
	}
}

func simpleProgressListener(out io.Writer) orchestration.ProgressListener {
	return func(event orchestration.ProgressEvent) {
		switch event.EventType {
		case orchestration.EventSweepCached:
			fmt.Fprintf(out, "✓ Using cached result (%d candidates)\n", event.Total) //nolint:errcheck
		case orchestration.EventCandidateComplete:
			fmt.Fprintf(out, "✓ [%d/%d] %s score=%.4f\n", event.Index+1, event.Total, event.Candidate, event.Score) //nolint:errcheck
		case orchestration.EventCandidateFailed:
			fmt.Fprintf(out, "✗ [%d/%d] %s\n", event.Index+1, event.Total, event.Candidate) //nolint:errcheck
		}
	}
}

func debugProgressListener(event orchestration.ProgressEvent) {
	attrs := []any{"index", event.Index, "total", event.Total}
	if event.Candidate.Family() != "" {
		c := event.Candidate.String()
		attrs = utils.AddIf(attrs, "candidate", &c)
	}
	if event.EventType == orchestration.EventCandidateComplete || event.EventType == orchestration.EventBaselineComplete {
		attrs = utils.AddIf(attrs, "score", &event.Score)
	}
	if event.Err != nil {
		msg := event.Err.Error()
		attrs = utils.AddIf(attrs, "error", &msg)
	}
	utils.EventToSlog(string(event.EventType), attrs...)
}

func printSummary(out io.Writer, outcome *models.SweepOutcome) {
	p := func(format string, a ...any) {
		fmt.Fprintf(out, format, a...) //nolint:errcheck
	}

	p("%s\n", strings.Repeat("=", 60))
	p(" SWEEP RESULTS\n")
	p("%s\n\n", strings.Repeat("=", 60))

	best := outcome.Best
	setup := outcome.Setup
	digest := outcome.Digest

	p("Best Candidate:   %s  [#%d]\n", best.Candidate, best.Index+1)
	p("Validation Score: %.4f (%s)\n", best.Score, setup.Scorer)
	p("Baseline:         %.4f (%s)\n", outcome.Baseline.ValidationScore, outcome.Baseline.Family)
	p("Improvement:      %+.4f (normalized gain %.1f%%)\n", outcome.Baseline.Improvement, outcome.Baseline.NormalizedGain*100)
	p("Verdict:          %s\n", outcome.Baseline.Verdict)
	if outcome.Test != nil {
		p("Test Score:       %.4f  CI%.0f=[%.4f, %.4f]\n", outcome.Test.Score, outcome.Test.CI.ConfidenceLevel*100, outcome.Test.CI.Lower, outcome.Test.CI.Upper)
		if outcome.Baseline.TestScore != nil {
			p("Baseline (test):  %.4f\n", *outcome.Baseline.TestScore)
		}
	}
	p("Candidates:       %d evaluated, mean %.4f, range %.4f - %.4f (σ=%.4f)\n",
		digest.Evaluated, digest.Scores.Mean, digest.Scores.Min, digest.Scores.Max, digest.Scores.StdDev)
	p("Rows:             train %d / validation %d / test %d", setup.TrainRows, setup.ValidationRows, setup.TestRows)
	if setup.SkippedRows > 0 {
		p(" (%d skipped)", setup.SkippedRows)
	}
	p("\n")
	p("Duration:         %s", formatDuration(time.Duration(digest.DurationMs)*time.Millisecond))
	if outcome.Cached {
		p(" [cached]")
	}
	p("\n\n")

	const nameWidth = 44
	p("%s\n", strings.Repeat("-", 60))
	p(" LEADERBOARD\n")
	p("%s\n", strings.Repeat("-", 60))
	p("  %s  %s  %s  %s\n", padRight("Rank", 4), padRight("Candidate", nameWidth), padRight("Search", 14), "Score")
	for i, c := range outcome.Leaderboard {
		p("  %s  %s  %s  %.4f\n",
			padRight(fmt.Sprintf("%d", i+1), 4),
			padRight(truncateName(c.Candidate.String(), nameWidth), nameWidth),
			padRight(truncateName(c.Search, 14), 14),
			c.Score)
	}
	p("\n")

	if len(outcome.Searches) > 1 {
		p("%s\n", strings.Repeat("-", 60))
		p(" PER-SEARCH BEST\n")
		p("%s\n", strings.Repeat("-", 60))
		for _, s := range outcome.Searches {
			p("  %s  %s  %.4f  #%d  (%d candidates)\n",
				padRight(truncateName(s.Name, 14), 14),
				padRight(truncateName(s.Best.Candidate.String(), nameWidth), nameWidth),
				s.Best.Score, s.Rank, s.Candidates)
		}
		p("\n")
	}

	if outcome.Suspect() {
		p("⚠ The selected model does not beat the %s baseline. Treat this result as suspect.\n\n", outcome.Baseline.Family)
	}
}
