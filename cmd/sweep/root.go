package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sweep - deterministic model selection for tabular classifiers",
		Long: `Sweep is a command-line tool for choosing a classifier by grid search.

It fits every candidate configuration on a training partition, scores it on a
validation partition, keeps the best one (the earliest wins ties) and checks
that it beats a trivial most-frequent baseline.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newCompareCommand())
	cmd.AddCommand(newCacheCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
