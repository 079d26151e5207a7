package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/microsoft/sweep/internal/projectconfig"
	"github.com/spf13/cobra"
)

const projectConfigTemplate = `# Sweep project configuration.
# Values here apply when neither the sweep file nor a command-line flag sets them.
paths:
  specs: sweeps/
  results: results/
defaults:
  scorer: accuracy
  baseline: most_frequent
  seed: 12345
  parallel: false
  workers: 4
cache:
  enabled: false
  dir: .sweep-cache
`

const exampleSweepTemplate = `name: example-plans
description: Choose a classifier that predicts the premium plan from usage.
data:
  path: data/plans.csv
  label: is_ultra
  on_parse_error:
    "*": fail
split:
  validation: 0.25
  test: 0.25
  seed: 12345
config:
  scorer: accuracy
  leaderboard: 5
searches:
  - name: trees
    family: decision_tree
    params:
      - name: max_depth
        range: {from: 1, to: 6}
  - name: forests
    family: random_forest
    fixed:
      random_state: 12345
    params:
      - name: n_estimators
        values: [10, 30]
      - name: max_depth
        values: [3, 6]
`

const gitignoreTemplate = `.sweep-cache/
results/*.json
results/*.xml
`

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new sweep project",
		Long: `Initialize a new sweep project.

Creates a .sweep.yaml project configuration, a sweeps/ directory with an
example sweep and example data, a results/ directory and a .gitignore.
Existing files are never overwritten.

If no directory is specified, the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: initCommandE,
	}
}

func initCommandE(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	out := cmd.OutOrStdout()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	specsDir := filepath.Join(dir, projectconfig.DefaultSpecsDir)
	resultsDir := filepath.Join(dir, projectconfig.DefaultResultsDir)
	dataDir := filepath.Join(specsDir, "data")
	for _, d := range []string{specsDir, resultsDir, dataDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}

	files := []struct {
		path    string
		content string
	}{
		{filepath.Join(dir, projectconfig.FileName), projectConfigTemplate},
		{filepath.Join(specsDir, "example.yaml"), exampleSweepTemplate},
		{filepath.Join(dataDir, "plans.csv"), examplePlansCSV()},
		{filepath.Join(dir, ".gitignore"), gitignoreTemplate},
	}

	fmt.Fprintln(out, "Initialized sweep project:") //nolint:errcheck
	for _, f := range files {
		created, err := writeIfMissing(f.path, f.content)
		if err != nil {
			return err
		}
		reportFile(out, f.path, created)
	}

	fmt.Fprintf(out, "\nNext: sweep run %s\n", filepath.Join(specsDir, "example.yaml")) //nolint:errcheck
	return nil
}

// writeIfMissing writes content to path unless the file already exists.
func writeIfMissing(path, content string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close() //nolint:errcheck
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

func reportFile(out io.Writer, path string, created bool) {
	if created {
		fmt.Fprintf(out, "  + %s\n", path) //nolint:errcheck
		return
	}
	fmt.Fprintf(out, "  = %s (exists, skipped)\n", path) //nolint:errcheck
}

// examplePlansCSV generates a small usage table where heavy users are on
// the premium plan.
func examplePlansCSV() string {
	var b strings.Builder
	b.WriteString("calls,minutes,messages,is_ultra\n")
	for i := range 120 {
		calls := 20 + (i*7)%60
		minutes := calls*6 + (i*13)%45
		messages := (i * 11) % 50
		ultra := 0
		if minutes > 330 {
			ultra = 1
		}
		fmt.Fprintf(&b, "%d,%d,%d,%d\n", calls, minutes, messages, ultra)
	}
	return b.String()
}
