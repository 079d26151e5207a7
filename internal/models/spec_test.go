package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planSweepYAML = `name: mobile-plans
description: Recommend smart vs ultra
data:
  path: users_behavior.csv
  label: is_ultra
  exclude: [calls]
  on_parse_error:
    messages: skip_row
searches:
  - name: tree-depth
    family: decision_tree
    params:
      - name: max_depth
        range: {from: 1, to: 14}
    fixed:
      random_state: 12345
  - family: random_forest
    params:
      - name: n_estimators
        values: [10, 20, 30]
      - name: max_depth
        range: {from: 1, to: 5}
`

func TestSweepSpec_LoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "sweep.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte(planSweepYAML), 0o644))

	spec, err := LoadSweepSpec(specPath)
	require.NoError(t, err)

	assert.Equal(t, "mobile-plans", spec.Name)
	assert.Equal(t, filepath.Join(dir, "users_behavior.csv"), spec.Data.Path)
	assert.Equal(t, "is_ultra", spec.Data.Label)
	assert.Equal(t, []string{"calls"}, spec.Data.Exclude)
	assert.Equal(t, "skip_row", spec.Data.OnParseError["messages"])
	require.Len(t, spec.Searches, 2)
	assert.Equal(t, "tree-depth", spec.Searches[0].Label())
	assert.Equal(t, "random_forest", spec.Searches[1].Label())
	assert.Equal(t, &IntRange{From: 1, To: 14}, spec.Searches[0].Params[0].Range)

	fixed, err := spec.Searches[0].FixedParams()
	require.NoError(t, err)
	assert.Equal(t, []Param{{Name: "random_state", Value: 12345}}, fixed)
}

func TestSweepSpec_Defaults(t *testing.T) {
	spec, err := ParseSweepSpec([]byte(planSweepYAML))
	require.NoError(t, err)

	assert.Equal(t, DefaultValidationFraction, spec.Split.Validation)
	require.NotNil(t, spec.Split.Test)
	assert.Equal(t, DefaultTestFraction, *spec.Split.Test)
	require.NotNil(t, spec.Split.Seed)
	assert.Equal(t, int64(DefaultSeed), *spec.Split.Seed)
	assert.Equal(t, DefaultScorer, spec.Config.Scorer)
	assert.Equal(t, DefaultBaselineFamily, spec.Config.Baseline)
	assert.Equal(t, DefaultLeaderboardSize, spec.Config.Leaderboard)
}

func TestSweepSpec_Fallbacks(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "sweep.yaml")
	seed := int64(7)

	t.Run("fill unset fields", func(t *testing.T) {
		require.NoError(t, os.WriteFile(specPath, []byte(planSweepYAML), 0o644))
		spec, err := LoadSweepSpecWithFallbacks(specPath, Fallbacks{Scorer: "balanced_accuracy", Seed: &seed})
		require.NoError(t, err)
		assert.Equal(t, "balanced_accuracy", spec.Config.Scorer)
		assert.Equal(t, DefaultBaselineFamily, spec.Config.Baseline)
		assert.Equal(t, int64(7), *spec.Split.Seed)
		assert.NotSame(t, &seed, spec.Split.Seed)
	})

	t.Run("file wins", func(t *testing.T) {
		yaml := planSweepYAML + "split:\n  seed: 99\nconfig:\n  scorer: accuracy\n"
		require.NoError(t, os.WriteFile(specPath, []byte(yaml), 0o644))
		spec, err := LoadSweepSpecWithFallbacks(specPath, Fallbacks{Scorer: "balanced_accuracy", Seed: &seed})
		require.NoError(t, err)
		assert.Equal(t, "accuracy", spec.Config.Scorer)
		assert.Equal(t, int64(99), *spec.Split.Seed)
	})
}

func TestSweepSpec_ExplicitZeroTest(t *testing.T) {
	spec, err := ParseSweepSpec([]byte(planSweepYAML + "split:\n  validation: 0.2\n  test: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.2, spec.Split.Validation)
	assert.Equal(t, 0.0, *spec.Split.Test)
}

func TestSweepSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "data: {path: a.csv, label: y}\nsearches: [{family: decision_tree}]\n",
			wantErr: "name is required",
		},
		{
			name:    "no data source",
			yaml:    "name: x\ndata: {label: y}\nsearches: [{family: decision_tree}]\n",
			wantErr: "exactly one of path or sqlite",
		},
		{
			name:    "both data sources",
			yaml:    "name: x\ndata: {path: a.csv, sqlite: {path: a.db, query: q}, label: y}\nsearches: [{family: decision_tree}]\n",
			wantErr: "exactly one of path or sqlite",
		},
		{
			name:    "missing label",
			yaml:    "name: x\ndata: {path: a.csv}\nsearches: [{family: decision_tree}]\n",
			wantErr: "data.label is required",
		},
		{
			name:    "no searches",
			yaml:    "name: x\ndata: {path: a.csv, label: y}\n",
			wantErr: "at least one search",
		},
		{
			name:    "split leaves no training rows",
			yaml:    "name: x\ndata: {path: a.csv, label: y}\nsplit: {validation: 0.5, test: 0.5}\nsearches: [{family: decision_tree}]\n",
			wantErr: "split.test",
		},
		{
			name:    "param with values and range",
			yaml:    "name: x\ndata: {path: a.csv, label: y}\nsearches: [{family: decision_tree, params: [{name: max_depth, values: [1], range: {from: 1, to: 2}}]}]\n",
			wantErr: "exactly one of values or range",
		},
		{
			name:    "inverted range",
			yaml:    "name: x\ndata: {path: a.csv, label: y}\nsearches: [{family: decision_tree, params: [{name: max_depth, range: {from: 5, to: 2}}]}]\n",
			wantErr: "invalid range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSweepSpec([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_EffectiveWorkers(t *testing.T) {
	assert.Equal(t, 1, Config{Workers: 8}.EffectiveWorkers(4))
	assert.Equal(t, 8, Config{Parallel: true, Workers: 8}.EffectiveWorkers(4))
	assert.Equal(t, 4, Config{Parallel: true}.EffectiveWorkers(4))
	assert.Equal(t, 1, Config{Parallel: true}.EffectiveWorkers(0))
}
