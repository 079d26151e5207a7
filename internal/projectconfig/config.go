// Package projectconfig provides the ProjectConfig struct and loader for
// .sweep.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/microsoft/sweep/internal/utils"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up by Load.
const FileName = ".sweep.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultSpecsDir   = "sweeps/"
	DefaultResultsDir = "results/"

	DefaultWorkers  = 4
	DefaultCacheDir = ".sweep-cache"
)

// PathsConfig holds directory paths for sweep specs and results. Relative
// paths are relative to the directory holding .sweep.yaml.
type PathsConfig struct {
	Specs   string `yaml:"specs,omitempty"`
	Results string `yaml:"results,omitempty"`
}

// DefaultsConfig holds default execution parameters. Values here apply when
// neither the sweep file nor a command-line flag sets them.
type DefaultsConfig struct {
	Scorer   string `yaml:"scorer,omitempty"`
	Baseline string `yaml:"baseline,omitempty"`
	Seed     *int64 `yaml:"seed,omitempty"`
	Parallel *bool  `yaml:"parallel,omitempty"`
	Workers  int    `yaml:"workers,omitempty"`
	Verbose  *bool  `yaml:"verbose,omitempty"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .sweep.yaml.
type ProjectConfig struct {
	Paths    PathsConfig    `yaml:"paths,omitempty"`
	Defaults DefaultsConfig `yaml:"defaults,omitempty"`
	Cache    CacheConfig    `yaml:"cache,omitempty"`

	// Root is the directory .sweep.yaml was found in, empty when there is none.
	Root string `yaml:"-"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Paths: PathsConfig{
			Specs:   DefaultSpecsDir,
			Results: DefaultResultsDir,
		},
		Defaults: DefaultsConfig{
			Parallel: boolPtr(false),
			Workers:  DefaultWorkers,
			Verbose:  boolPtr(false),
		},
		Cache: CacheConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultCacheDir,
		},
	}
}

// Load finds .sweep.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, root, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if fileCfg.Defaults.Workers < 0 {
		return nil, fmt.Errorf("parsing %s: defaults.workers must be >= 0, got %d", FileName, fileCfg.Defaults.Workers)
	}

	mergeConfig(cfg, &fileCfg)
	cfg.Root = root
	return cfg, nil
}

// SpecsDir is the directory holding the project's sweep files. Without a
// project file it is relative to the working directory.
func (c *ProjectConfig) SpecsDir() string {
	return utils.ResolvePath(c.Paths.Specs, c.Root)
}

// ResultsDir is the directory result files are written to.
func (c *ProjectConfig) ResultsDir() string {
	return utils.ResolvePath(c.Paths.Results, c.Root)
}

// ResultPath places a relative output file name in the results directory.
// Absolute names, and every name when no project file was found, are
// returned unchanged.
func (c *ProjectConfig) ResultPath(name string) string {
	if name == "" || c.Root == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.ResultsDir(), name)
}

// SpecFiles lists the *.yaml and *.yml files in SpecsDir, sorted.
func (c *ProjectConfig) SpecFiles() ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(c.SpecsDir(), pattern))
		if err != nil {
			return nil, fmt.Errorf("listing sweep files: %w", err)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return files, nil
}

// findConfigFile walks up from dir looking for .sweep.yaml (max 10 levels)
// and returns its content and directory.
// Returns os.ErrNotExist if no config file is found.
func findConfigFile(dir string) ([]byte, string, error) {
	// Absolute so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, dir, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, "", os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Paths
	if src.Paths.Specs != "" {
		dst.Paths.Specs = src.Paths.Specs
	}
	if src.Paths.Results != "" {
		dst.Paths.Results = src.Paths.Results
	}

	// Defaults
	if src.Defaults.Scorer != "" {
		dst.Defaults.Scorer = src.Defaults.Scorer
	}
	if src.Defaults.Baseline != "" {
		dst.Defaults.Baseline = src.Defaults.Baseline
	}
	if src.Defaults.Seed != nil {
		dst.Defaults.Seed = src.Defaults.Seed
	}
	if src.Defaults.Parallel != nil {
		dst.Defaults.Parallel = src.Defaults.Parallel
	}
	if src.Defaults.Workers != 0 {
		dst.Defaults.Workers = src.Defaults.Workers
	}
	if src.Defaults.Verbose != nil {
		dst.Defaults.Verbose = src.Defaults.Verbose
	}

	// Cache
	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
}

func boolPtr(b bool) *bool {
	return &b
}
