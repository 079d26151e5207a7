package models

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/microsoft/sweep/internal/utils"
	"gopkg.in/yaml.v3"
)

// Split defaults hold out a quarter of the rows, shared equally between
// validation and test.
const (
	DefaultValidationFraction = 0.125
	DefaultTestFraction       = 0.125
	DefaultSeed               = 12345
	DefaultScorer             = "accuracy"
	DefaultBaselineFamily     = "most_frequent"
	DefaultLeaderboardSize    = 10
)

// SweepSpec is a complete model-selection definition loaded from YAML.
type SweepSpec struct {
	SpecIdentity `yaml:",inline"`
	Version      string       `yaml:"version,omitempty"`
	Data         DataConfig   `yaml:"data"`
	Split        SplitConfig  `yaml:"split,omitempty"`
	Config       Config       `yaml:"config,omitempty"`
	Searches     []SearchSpec `yaml:"searches"`
}

type SpecIdentity struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// DataConfig tells the loader where the records come from and which column is the label.
type DataConfig struct {
	Path     string        `yaml:"path,omitempty" json:"path,omitempty"`
	SQLite   *SQLiteSource `yaml:"sqlite,omitempty" json:"sqlite,omitempty"`
	Label    string        `yaml:"label" json:"label"`
	Features []string      `yaml:"features,omitempty" json:"features,omitempty"`
	Exclude  []string      `yaml:"exclude,omitempty" json:"exclude,omitempty"`

	// OnParseError maps a column name to a recovery policy (fail, skip_row, zero).
	// The key "*" sets the policy for every column not listed.
	OnParseError map[string]string `yaml:"on_parse_error,omitempty" json:"on_parse_error,omitempty"`
}

// SQLiteSource reads records with a query against a SQLite database file.
type SQLiteSource struct {
	Path  string `yaml:"path" json:"path"`
	Query string `yaml:"query" json:"query"`
}

// SplitConfig controls the deterministic train/validation/test partition.
type SplitConfig struct {
	Validation float64  `yaml:"validation,omitempty" json:"validation"`
	Test       *float64 `yaml:"test,omitempty" json:"test"`
	Seed       *int64   `yaml:"seed,omitempty" json:"seed"`
}

// Config controls execution behavior.
type Config struct {
	Scorer          string  `yaml:"scorer,omitempty" json:"scorer"`
	Parallel        bool    `yaml:"parallel,omitempty" json:"parallel"`
	Workers         int     `yaml:"max_workers,omitempty" json:"workers,omitempty"`
	Baseline        string  `yaml:"baseline,omitempty" json:"baseline"`
	ConfidenceLevel float64 `yaml:"confidence_level,omitempty" json:"confidence_level,omitempty"`
	Leaderboard     int     `yaml:"leaderboard,omitempty" json:"leaderboard,omitempty"`
}

// SearchSpec describes the candidates of one model family.
// Params are expanded as a Cartesian product with the first param as the
// outermost loop. Candidates lists explicit parameter sets instead.
type SearchSpec struct {
	Name       string           `yaml:"name,omitempty" json:"name,omitempty"`
	Family     string           `yaml:"family" json:"family"`
	Params     []ParamSpec      `yaml:"params,omitempty" json:"params,omitempty"`
	Fixed      yaml.Node        `yaml:"fixed,omitempty" json:"-"`
	Candidates []map[string]any `yaml:"candidates,omitempty" json:"candidates,omitempty"`
}

// ParamSpec is one axis of a grid: either a list of values or an integer range.
type ParamSpec struct {
	Name   string    `yaml:"name" json:"name"`
	Values []any     `yaml:"values,omitempty" json:"values,omitempty"`
	Range  *IntRange `yaml:"range,omitempty" json:"range,omitempty"`
}

// IntRange is an inclusive integer range [From, To] with a positive Step (default 1).
type IntRange struct {
	From int `yaml:"from" json:"from"`
	To   int `yaml:"to" json:"to"`
	Step int `yaml:"step,omitempty" json:"step,omitempty"`
}

// Label returns the display name of the search.
func (s *SearchSpec) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Family
}

// FixedParams returns the fixed parameters in the order they appear in the file.
func (s *SearchSpec) FixedParams() ([]Param, error) {
	if s.Fixed.Kind == 0 {
		return nil, nil
	}
	if s.Fixed.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("search %q: fixed must be a mapping", s.Label())
	}

	var params []Param
	for i := 0; i+1 < len(s.Fixed.Content); i += 2 {
		var v any
		if err := s.Fixed.Content[i+1].Decode(&v); err != nil {
			return nil, fmt.Errorf("search %q: fixed.%s: %w", s.Label(), s.Fixed.Content[i].Value, err)
		}
		params = append(params, Param{Name: s.Fixed.Content[i].Value, Value: v})
	}
	return params, nil
}

// Fallbacks are project-level defaults. Each applies only when the sweep
// file leaves the field unset, before the built-in defaults.
type Fallbacks struct {
	Scorer   string
	Baseline string
	Seed     *int64
}

// LoadSweepSpec loads a spec from a YAML file, applies defaults and validates it.
// Relative data paths are resolved against the spec's directory.
func LoadSweepSpec(path string) (*SweepSpec, error) {
	return LoadSweepSpecWithFallbacks(path, Fallbacks{})
}

// LoadSweepSpecWithFallbacks is LoadSweepSpec with project-level defaults.
func LoadSweepSpecWithFallbacks(path string, fb Fallbacks) (*SweepSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	spec, err := parseSweepSpec(data, fb)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(path)
	if spec.Data.Path != "" {
		spec.Data.Path = utils.ResolvePath(spec.Data.Path, baseDir)
	}
	if spec.Data.SQLite != nil {
		spec.Data.SQLite.Path = utils.ResolvePath(spec.Data.SQLite.Path, baseDir)
	}
	return spec, nil
}

// ParseSweepSpec decodes YAML bytes, applies defaults and validates the result.
func ParseSweepSpec(data []byte) (*SweepSpec, error) {
	return parseSweepSpec(data, Fallbacks{})
}

func parseSweepSpec(data []byte, fb Fallbacks) (*SweepSpec, error) {
	var spec SweepSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	spec.applyFallbacks(fb)
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (s *SweepSpec) applyFallbacks(fb Fallbacks) {
	if s.Config.Scorer == "" {
		s.Config.Scorer = fb.Scorer
	}
	if s.Config.Baseline == "" {
		s.Config.Baseline = fb.Baseline
	}
	if s.Split.Seed == nil && fb.Seed != nil {
		seed := *fb.Seed
		s.Split.Seed = &seed
	}
}

// ApplyDefaults fills in unset fields.
func (s *SweepSpec) ApplyDefaults() {
	if s.Split.Validation == 0 {
		s.Split.Validation = DefaultValidationFraction
	}
	if s.Split.Test == nil {
		t := DefaultTestFraction
		s.Split.Test = &t
	}
	if s.Split.Seed == nil {
		seed := int64(DefaultSeed)
		s.Split.Seed = &seed
	}
	if s.Config.Scorer == "" {
		s.Config.Scorer = DefaultScorer
	}
	if s.Config.Baseline == "" {
		s.Config.Baseline = DefaultBaselineFamily
	}
	if s.Config.Leaderboard <= 0 {
		s.Config.Leaderboard = DefaultLeaderboardSize
	}
}

// Validate checks that the spec is usable.
func (s *SweepSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if (s.Data.Path == "") == (s.Data.SQLite == nil) {
		return fmt.Errorf("data: exactly one of path or sqlite must be set")
	}
	if s.Data.SQLite != nil && (s.Data.SQLite.Path == "" || s.Data.SQLite.Query == "") {
		return fmt.Errorf("data.sqlite: path and query are required")
	}
	if s.Data.Label == "" {
		return fmt.Errorf("data.label is required")
	}
	if s.Split.Validation <= 0 || s.Split.Validation >= 1 {
		return fmt.Errorf("split.validation must be in (0, 1), got %v", s.Split.Validation)
	}
	if t := *s.Split.Test; t < 0 || s.Split.Validation+t >= 1 {
		return fmt.Errorf("split.test must be >= 0 and leave room for training, got %v", t)
	}
	if s.Config.Workers < 0 {
		return fmt.Errorf("config.max_workers must be >= 0, got %d", s.Config.Workers)
	}
	if len(s.Searches) == 0 {
		return fmt.Errorf("at least one search is required")
	}
	for i, search := range s.Searches {
		if search.Family == "" {
			return fmt.Errorf("searches[%d]: family is required", i)
		}
		for _, p := range search.Params {
			if p.Name == "" {
				return fmt.Errorf("searches[%d]: param name is required", i)
			}
			if (len(p.Values) == 0) == (p.Range == nil) {
				return fmt.Errorf("searches[%d].%s: exactly one of values or range must be set", i, p.Name)
			}
			if p.Range != nil && (p.Range.Step < 0 || p.Range.To < p.Range.From) {
				return fmt.Errorf("searches[%d].%s: invalid range [%d, %d] step %d", i, p.Name, p.Range.From, p.Range.To, p.Range.Step)
			}
		}
		if len(search.Params) > 0 && len(search.Candidates) > 0 {
			return fmt.Errorf("searches[%d]: params and candidates are mutually exclusive", i)
		}
	}
	return nil
}

// EffectiveWorkers returns the worker count: 1 unless the sweep runs in parallel.
func (c Config) EffectiveWorkers(fallback int) int {
	if !c.Parallel {
		return 1
	}
	if c.Workers > 0 {
		return c.Workers
	}
	if fallback > 0 {
		return fallback
	}
	return 1
}
