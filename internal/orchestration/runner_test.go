package orchestration

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/microsoft/sweep/internal/cache"
	"github.com/microsoft/sweep/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// planRows labels subscribers with 100 or more minutes as ultra. calls is noise.
func planRows() [][3]int {
	rows := make([][3]int, 200)
	for i := range rows {
		ultra := 0
		if i >= 100 {
			ultra = 1
		}
		rows[i] = [3]int{i % 7, i, ultra}
	}
	return rows
}

func writeCSV(t *testing.T, dir, name string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("calls,minutes,is_ultra\n")
	for _, r := range planRows() {
		fmt.Fprintf(&b, "%d,%d,%d\n", r[0], r[1], r[2])
	}
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(b.String()), 0o644))
	return p
}

func writeSQLite(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	db, err := sql.Open("sqlite", p)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE users (calls INTEGER, minutes INTEGER, is_ultra INTEGER)`)
	require.NoError(t, err)
	for _, r := range planRows() {
		_, err = db.Exec(`INSERT INTO users VALUES (?, ?, ?)`, r[0], r[1], r[2])
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())
	return p
}

func loadSpec(t *testing.T, yaml string) *models.SweepSpec {
	t.Helper()
	spec, err := models.ParseSweepSpec([]byte(yaml))
	require.NoError(t, err)
	return spec
}

func treeSweep(dataPath string) string {
	return fmt.Sprintf(`
name: plans
data:
  path: %s
  label: is_ultra
searches:
  - name: trees
    family: decision_tree
    params:
      - name: max_depth
        range: {from: 1, to: 3}
`, dataPath)
}

func TestSweepRunner_CSV(t *testing.T) {
	dir := t.TempDir()
	spec := loadSpec(t, treeSweep(writeCSV(t, dir, "users.csv")))

	outcome, err := NewSweepRunner(spec).Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, outcome.RunID)
	assert.Equal(t, "plans", outcome.SweepName)
	assert.Equal(t, []string{"calls", "minutes"}, outcome.Setup.Features)
	assert.Equal(t, 200, outcome.Setup.TrainRows+outcome.Setup.ValidationRows+outcome.Setup.TestRows)
	assert.Equal(t, 25, outcome.Setup.ValidationRows)
	assert.Equal(t, 25, outcome.Setup.TestRows)
	assert.Equal(t, "accuracy", outcome.Setup.Scorer)
	assert.Equal(t, 1, outcome.Setup.Workers)

	// Deeper trees cannot improve on a pure stump, so the first candidate wins.
	require.Len(t, outcome.Candidates, 3)
	assert.Equal(t, 0, outcome.Best.Index)
	v, _ := outcome.Best.Candidate.Param("max_depth")
	assert.Equal(t, 1, v)
	assert.Equal(t, outcome.Candidates[0].Score, outcome.Candidates[2].Score)
	assert.GreaterOrEqual(t, outcome.Best.Score, 0.9)

	assert.Equal(t, models.DefaultBaselineFamily, outcome.Baseline.Family)
	assert.Equal(t, models.VerdictMeaningful, outcome.Baseline.Verdict)
	assert.Greater(t, outcome.Baseline.Improvement, 0.0)
	require.NotNil(t, outcome.Baseline.TestScore)

	require.NotNil(t, outcome.Test)
	assert.LessOrEqual(t, outcome.Test.CI.Lower, outcome.Test.Score)
	assert.GreaterOrEqual(t, outcome.Test.CI.Upper, outcome.Test.Score)

	require.Len(t, outcome.Searches, 1)
	assert.Equal(t, "trees", outcome.Searches[0].Name)
	assert.Equal(t, 3, outcome.Searches[0].Candidates)
	assert.Equal(t, outcome.Best, outcome.Searches[0].Best)

	require.NotEmpty(t, outcome.Leaderboard)
	assert.Equal(t, outcome.Best, outcome.Leaderboard[0])
	assert.Equal(t, 3, outcome.Digest.Evaluated)
	assert.Equal(t, 3, outcome.Digest.Scores.Count)
}

func TestSweepRunner_Deterministic(t *testing.T) {
	dir := t.TempDir()
	spec := loadSpec(t, treeSweep(writeCSV(t, dir, "users.csv")))

	first, err := NewSweepRunner(spec).Run(context.Background())
	require.NoError(t, err)
	second, err := NewSweepRunner(spec).Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Best.Index, second.Best.Index)
	assert.Equal(t, first.Best.Score, second.Best.Score)
	assert.Equal(t, first.Baseline.ValidationScore, second.Baseline.ValidationScore)
	assert.Equal(t, first.Test.Score, second.Test.Score)
}

func TestSweepRunner_SQLite(t *testing.T) {
	dir := t.TempDir()
	db := writeSQLite(t, dir, "users.db")
	spec := loadSpec(t, fmt.Sprintf(`
name: plans-sqlite
data:
  sqlite:
    path: %s
    query: SELECT calls, minutes, is_ultra FROM users ORDER BY rowid
  label: is_ultra
  exclude: [calls]
split:
  test: 0
searches:
  - family: decision_tree
    params:
      - name: max_depth
        values: [1, 2]
`, db))

	outcome, err := NewSweepRunner(spec).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sqlite:"+db, outcome.Setup.DataSource)
	assert.Equal(t, []string{"minutes"}, outcome.Setup.Features)
	assert.Equal(t, 0, outcome.Setup.TestRows)
	assert.Nil(t, outcome.Test)
	assert.Nil(t, outcome.Baseline.TestScore)
	assert.Equal(t, "decision_tree", outcome.Searches[0].Name)
}

func TestSweepRunner_MultipleSearches(t *testing.T) {
	dir := t.TempDir()
	spec := loadSpec(t, fmt.Sprintf(`
name: plans
data:
  path: %s
  label: is_ultra
config:
  parallel: true
  max_workers: 3
  leaderboard: 4
searches:
  - name: trees
    family: decision_tree
    params:
      - name: max_depth
        values: [1, 2]
  - name: forest
    family: random_forest
    params:
      - name: n_estimators
        values: [3, 5]
      - name: max_depth
        values: [1, 2]
    fixed:
      random_state: 7
`, writeCSV(t, dir, "users.csv")))

	outcome, err := NewSweepRunner(spec).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.Setup.Workers)
	require.Len(t, outcome.Candidates, 6)
	for i, c := range outcome.Candidates {
		assert.Equal(t, i, c.Index)
	}
	assert.Equal(t, "trees", outcome.Candidates[1].Search)
	assert.Equal(t, "forest", outcome.Candidates[2].Search)

	require.Len(t, outcome.Searches, 2)
	assert.Equal(t, 2, outcome.Searches[0].Candidates)
	assert.Equal(t, 4, outcome.Searches[1].Candidates)
	assert.Equal(t, "random_forest", outcome.Searches[1].Family)

	// Each search ranks its best against every candidate of the run.
	for _, so := range outcome.Searches {
		want := 1
		for _, c := range outcome.Candidates {
			if c.Score > so.Best.Score || (c.Score == so.Best.Score && c.Index < so.Best.Index) {
				want++
			}
		}
		assert.Equal(t, want, so.Rank, so.Name)
		if so.Best.Index == outcome.Best.Index {
			assert.Equal(t, 1, so.Rank)
		}
	}

	require.Len(t, outcome.Leaderboard, 4)
	assert.Equal(t, outcome.Best, outcome.Leaderboard[0])
	for i := 1; i < len(outcome.Leaderboard); i++ {
		assert.GreaterOrEqual(t, outcome.Leaderboard[i-1].Score, outcome.Leaderboard[i].Score)
	}
}

func TestSweepRunner_SearchFilters(t *testing.T) {
	dir := t.TempDir()
	spec := loadSpec(t, fmt.Sprintf(`
name: plans
data:
  path: %s
  label: is_ultra
searches:
  - name: trees
    family: decision_tree
  - name: forest
    family: random_forest
    fixed:
      n_estimators: 3
`, writeCSV(t, dir, "users.csv")))

	outcome, err := NewSweepRunner(spec, WithSearchFilters("forest")).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, outcome.Searches, 1)
	assert.Equal(t, "forest", outcome.Searches[0].Name)
	assert.Len(t, spec.Searches, 2, "filtering must not modify the spec")

	_, err = NewSweepRunner(spec, WithSearchFilters("nothing*")).Run(context.Background())
	require.ErrorIs(t, err, models.ErrEmptyCandidateSet)
}

func TestSweepRunner_InvalidConfiguration(t *testing.T) {
	dir := t.TempDir()
	spec := loadSpec(t, fmt.Sprintf(`
name: plans
data:
  path: %s
  label: is_ultra
searches:
  - family: decision_tree
    params:
      - name: max_depth
        values: [2, 0]
`, writeCSV(t, dir, "users.csv")))

	_, err := NewSweepRunner(spec).Run(context.Background())
	require.ErrorIs(t, err, models.ErrInvalidConfiguration)
	assert.True(t, IsSelectionError(err))

	var ice *models.InvalidConfigurationError
	require.ErrorAs(t, err, &ice)
	v, _ := ice.Candidate.Param("max_depth")
	assert.Equal(t, 0, v)
}

func TestSweepRunner_UnknownFamily(t *testing.T) {
	dir := t.TempDir()
	spec := loadSpec(t, fmt.Sprintf(`
name: plans
data:
  path: %s
  label: is_ultra
searches:
  - family: logistic_regression
`, writeCSV(t, dir, "users.csv")))

	_, err := NewSweepRunner(spec).Run(context.Background())
	require.ErrorIs(t, err, models.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "unknown model family")
}

func TestSweepRunner_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeCSV(t, dir, "users.csv")

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing file",
			yaml:    treeSweep(filepath.Join(dir, "missing.csv")),
			wantErr: "csv: open",
		},
		{
			name: "missing label",
			yaml: fmt.Sprintf(`
name: plans
data:
  path: %s
  label: is_smart
searches:
  - family: decision_tree
`, csvPath),
			wantErr: `label column "is_smart" not found`,
		},
		{
			name: "bad recovery policy",
			yaml: fmt.Sprintf(`
name: plans
data:
  path: %s
  label: is_ultra
  on_parse_error:
    minutes: guess
searches:
  - family: decision_tree
`, csvPath),
			wantErr: "unknown recovery policy",
		},
		{
			name: "unknown scorer",
			yaml: fmt.Sprintf(`
name: plans
data:
  path: %s
  label: is_ultra
config:
  scorer: f1
searches:
  - family: decision_tree
`, csvPath),
			wantErr: `unknown scorer "f1"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSweepRunner(loadSpec(t, tt.yaml)).Run(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.False(t, IsSelectionError(err))
		})
	}
}

func TestSweepRunner_Cache(t *testing.T) {
	dir := t.TempDir()
	spec := loadSpec(t, treeSweep(writeCSV(t, dir, "users.csv")))
	c := cache.New(filepath.Join(dir, "cache"))

	first, err := NewSweepRunner(spec, WithCache(c)).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, first.Cached)

	var events []EventType
	runner := NewSweepRunner(spec, WithCache(c))
	runner.OnProgress(func(e ProgressEvent) { events = append(events, e.EventType) })
	second, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, first.Best.Index, second.Best.Index)
	assert.Equal(t, first.Best.Score, second.Best.Score)
	assert.True(t, first.Best.Candidate.Equal(second.Best.Candidate))
	assert.Equal(t, []EventType{EventSweepCached}, events)
}

func TestSweepRunner_Progress(t *testing.T) {
	dir := t.TempDir()
	spec := loadSpec(t, treeSweep(writeCSV(t, dir, "users.csv")))

	var (
		mu     sync.Mutex
		events []ProgressEvent
	)
	runner := NewSweepRunner(spec)
	runner.OnProgress(func(e ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})
	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, EventDataLoading, events[0].EventType)
	assert.Equal(t, EventSweepComplete, events[len(events)-1].EventType)

	counts := map[EventType]int{}
	for _, e := range events {
		counts[e.EventType]++
		if e.EventType == EventSweepStart {
			assert.Equal(t, 3, e.Total)
		}
	}
	assert.Equal(t, 3, counts[EventCandidateStart])
	assert.Equal(t, 3, counts[EventCandidateComplete])
	assert.Equal(t, 1, counts[EventBaselineComplete])
	assert.Zero(t, counts[EventCandidateFailed])
}

func TestSweepRunner_Canceled(t *testing.T) {
	dir := t.TempDir()
	spec := loadSpec(t, treeSweep(writeCSV(t, dir, "users.csv")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSweepRunner(spec).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSearchOutcomes_NonFiniteScores(t *testing.T) {
	searches := []models.SearchSpec{
		{Name: "trees", Family: "decision_tree"},
		{Name: "forests", Family: "random_forest"},
	}
	tree := models.NewCandidateConfig("decision_tree")
	forest := models.NewCandidateConfig("random_forest")
	candidates := []models.CandidateOutcome{
		{Index: 0, Search: "trees", Candidate: tree, Score: 0.6},
		{Index: 1, Search: "trees", Candidate: tree, Score: 0.6},
		{Index: 2, Search: "forests", Candidate: forest, Score: math.NaN()},
		{Index: 3, Search: "forests", Candidate: forest, Score: math.NaN()},
	}

	out := searchOutcomes(searches, candidates)
	require.Len(t, out, 2)
	assert.Equal(t, 0, out[0].Best.Index)
	assert.Equal(t, 2, out[1].Best.Index)
	assert.Equal(t, 2, out[1].Candidates)
	assert.True(t, math.IsNaN(out[1].Best.Score))

	candidates[3].Score = 0.4
	out = searchOutcomes(searches, candidates)
	assert.Equal(t, 3, out[1].Best.Index)

	// The whole outcome must still serialize.
	o := &models.SweepOutcome{RunID: "r", SweepName: "plans", Searches: searchOutcomes(searches, candidates[:3]), Candidates: candidates[:3]}
	require.NoError(t, o.Save(filepath.Join(t.TempDir(), "out.json")))
}

func TestSweepRunner_TestIntervalUsesScorer(t *testing.T) {
	// Three smart subscribers for every ultra one.
	var b strings.Builder
	b.WriteString("calls,minutes,is_ultra\n")
	for i := range 200 {
		ultra := 0
		if i%4 == 0 {
			ultra = 1
		}
		fmt.Fprintf(&b, "%d,%d,%d\n", i%7, i, ultra)
	}
	dir := t.TempDir()
	p := filepath.Join(dir, "users.csv")
	require.NoError(t, os.WriteFile(p, []byte(b.String()), 0o644))

	spec := loadSpec(t, fmt.Sprintf(`
name: plans
data:
  path: %s
  label: is_ultra
split:
  validation: 0.25
  test: 0.25
config:
  scorer: balanced_accuracy
searches:
  - family: most_frequent
`, p))

	outcome, err := NewSweepRunner(spec).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, outcome.Test)

	// Always predicting the majority recalls one class fully and the other
	// not at all, whatever the class balance.
	ci := outcome.Test.CI
	assert.Equal(t, "balanced_accuracy", ci.Metric)
	assert.InDelta(t, 0.5, outcome.Test.Score, 1e-12)
	assert.Equal(t, outcome.Test.Score, ci.Mean)
	assert.LessOrEqual(t, ci.Lower, outcome.Test.Score)
	assert.GreaterOrEqual(t, ci.Upper, outcome.Test.Score)
}
