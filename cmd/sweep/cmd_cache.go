package main

import (
	"fmt"
	"path/filepath"

	"github.com/microsoft/sweep/internal/cache"
	"github.com/microsoft/sweep/internal/projectconfig"
	"github.com/spf13/cobra"
)

var cacheDir string

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage sweep result cache",
		Long: `Manage the sweep result cache.

The cache stores sweep outcomes to skip repeated runs with the same inputs.
Cached results are keyed by the sweep definition and the contents of its
data source.`,
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the sweep result cache",
		Long: `Clear all cached sweep results.

The next run of every sweep will fit and score its candidates from scratch.
Without --cache-dir the directory comes from .sweep.yaml, if one is found.`,
		Args: cobra.NoArgs,
		RunE: cacheClearE,
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", projectconfig.DefaultCacheDir, "Cache directory to clear")

	return cmd
}

func cacheClearE(cmd *cobra.Command, _ []string) error {
	dir := cacheDir
	if !cmd.Flags().Changed("cache-dir") {
		pc, err := projectconfig.Load(".")
		if err != nil {
			return err
		}
		if pc.Cache.Dir != "" {
			dir = pc.Cache.Dir
		}
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving cache directory: %w", err)
	}

	c := cache.New(absDir)
	if err := c.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", absDir) //nolint:errcheck
	return nil
}
