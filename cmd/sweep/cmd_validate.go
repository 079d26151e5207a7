package main

import (
	"fmt"
	"io"

	"github.com/microsoft/sweep/internal/grid"
	"github.com/microsoft/sweep/internal/learners"
	"github.com/microsoft/sweep/internal/models"
	"github.com/microsoft/sweep/internal/projectconfig"
	"github.com/microsoft/sweep/internal/validation"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [sweep.yaml ...]",
		Short: "Validate sweep files without running them",
		Long: `Validate one or more sweep files.

Each file is checked against the sweep JSON schema, its data source is
checked for existence, and its searches are enumerated so that invalid
parameter grids and unknown model families are reported before a run.

Without arguments every sweep file in paths.specs of the nearest .sweep.yaml
is validated.`,
		Args: cobra.ArbitraryArgs,
		RunE: validateCommandE,
	}
}

func validateCommandE(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	registry := learners.NewRegistry()

	if len(args) == 0 {
		pc, err := projectconfig.Load(".")
		if err != nil {
			return err
		}
		if args, err = pc.SpecFiles(); err != nil {
			return err
		}
		if len(args) == 0 {
			return fmt.Errorf("no sweep files given and none found in %s", pc.SpecsDir())
		}
	}

	invalid := 0
	for _, path := range args {
		if !validateSweepFile(out, registry, path) {
			invalid++
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d sweep file(s) failed validation", invalid, len(args))
	}
	return nil
}

// validateSweepFile prints the problems found in one sweep file and reports
// whether it is valid.
func validateSweepFile(out io.Writer, registry *learners.Registry, path string) bool {
	p := func(format string, a ...any) {
		fmt.Fprintf(out, format, a...) //nolint:errcheck
	}

	sweepErrs, dataErrs, err := validation.ValidateSweepFile(path)
	if err != nil {
		p("✗ %s: %v\n", path, err)
		return false
	}
	if len(sweepErrs) > 0 || len(dataErrs) > 0 {
		p("✗ %s\n", path)
		for _, e := range sweepErrs {
			p("    schema: %s\n", e)
		}
		for _, e := range dataErrs {
			p("    data: %s\n", e)
		}
		return false
	}

	spec, err := models.LoadSweepSpec(path)
	if err != nil {
		p("✗ %s: %v\n", path, err)
		return false
	}

	var problems []string
	for _, s := range spec.Searches {
		if !registry.Has(s.Family) {
			problems = append(problems, fmt.Sprintf("search %q: unknown model family %q", s.Label(), s.Family))
		}
	}
	if _, err := grid.Enumerate(spec.Searches); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		p("✗ %s\n", path)
		for _, e := range problems {
			p("    %s\n", e)
		}
		return false
	}

	sizes := make([]int, len(spec.Searches))
	total := 0
	for i := range spec.Searches {
		sizes[i] = grid.Size(&spec.Searches[i])
		total += sizes[i]
	}
	p("✓ %s: %d search(es), %d candidate(s)\n", path, len(spec.Searches), total)
	for i := range spec.Searches {
		s := &spec.Searches[i]
		p("    %s (%s): %d\n", s.Label(), s.Family, sizes[i])
	}
	return true
}
