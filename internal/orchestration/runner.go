package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microsoft/sweep/internal/baseline"
	"github.com/microsoft/sweep/internal/cache"
	"github.com/microsoft/sweep/internal/dataset"
	"github.com/microsoft/sweep/internal/grid"
	"github.com/microsoft/sweep/internal/leaderboard"
	"github.com/microsoft/sweep/internal/learners"
	"github.com/microsoft/sweep/internal/metrics"
	"github.com/microsoft/sweep/internal/models"
	"github.com/microsoft/sweep/internal/scoring"
	"github.com/microsoft/sweep/internal/selection"
	"github.com/microsoft/sweep/internal/statistics"
)

// SweepRunner orchestrates one sweep: load, split, enumerate, select,
// compare against the baseline and check the winner on the test partition.
type SweepRunner struct {
	spec     *models.SweepSpec
	registry *learners.Registry
	workers  int

	// Search filtering
	searchFilters []string

	// Result caching
	cache *cache.Cache

	// Progress tracking
	progressMu sync.Mutex
	listeners  []ProgressListener
}

// RunnerOption configures a SweepRunner.
type RunnerOption func(*SweepRunner)

// WithCache enables result caching.
func WithCache(c *cache.Cache) RunnerOption {
	return func(r *SweepRunner) {
		r.cache = c
	}
}

// WithWorkers sets the worker count used when the sweep runs in parallel
// and its spec does not name one.
func WithWorkers(n int) RunnerOption {
	return func(r *SweepRunner) {
		r.workers = n
	}
}

// WithSearchFilters sets glob patterns matched against search names and
// families. Only matching searches are enumerated.
func WithSearchFilters(patterns ...string) RunnerOption {
	return func(r *SweepRunner) {
		r.searchFilters = patterns
	}
}

// WithRegistry replaces the built-in learner registry.
func WithRegistry(reg *learners.Registry) RunnerOption {
	return func(r *SweepRunner) {
		r.registry = reg
	}
}

// NewSweepRunner creates a runner for a loaded, validated spec.
func NewSweepRunner(spec *models.SweepSpec, opts ...RunnerOption) *SweepRunner {
	r := &SweepRunner{
		spec:      spec,
		registry:  learners.NewRegistry(),
		listeners: []ProgressListener{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// OnProgress registers a progress listener.
func (r *SweepRunner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *SweepRunner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Run executes the sweep. A cached outcome is returned unchanged apart from
// its Cached flag.
func (r *SweepRunner) Run(ctx context.Context) (*models.SweepOutcome, error) {
	startTime := time.Now()
	spec, err := r.filteredSpec()
	if err != nil {
		return nil, err
	}

	cacheKey := r.cacheKey(spec)
	if cacheKey != "" {
		if cached, found := r.cache.Get(cacheKey); found {
			cached.Cached = true
			slog.Info("Using cached sweep outcome", "run_id", cached.RunID, "key", cacheKey)
			r.notifyProgress(ProgressEvent{EventType: EventSweepCached, Total: cached.Digest.Evaluated})
			return cached, nil
		}
	}

	scorer, err := scoring.ByName(spec.Config.Scorer)
	if err != nil {
		return nil, err
	}

	r.notifyProgress(ProgressEvent{EventType: EventDataLoading})
	data, stats, err := r.loadDataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	parts, err := dataset.Split(data, dataset.SplitRatios{
		Validation: spec.Split.Validation,
		Test:       *spec.Split.Test,
		Seed:       *spec.Split.Seed,
	})
	if err != nil {
		return nil, err
	}
	trainRows, validRows, testRows := parts.Sizes()
	slog.Debug("Split dataset", "train", trainRows, "validation", validRows, "test", testRows, "seed", *spec.Split.Seed)

	entries, err := grid.Enumerate(spec.Searches)
	if err != nil {
		return nil, fmt.Errorf("enumerating candidates: %w", err)
	}

	workers := spec.Config.EffectiveWorkers(r.workers)
	r.notifyProgress(ProgressEvent{EventType: EventSweepStart, Total: len(entries)})

	selector := selection.New(r.registry, selection.WithWorkers(workers))
	selector.OnProgress(r.forward)
	result, err := selector.SelectBest(ctx, grid.Candidates(entries), parts.Training, parts.Validation, scorer)
	if err != nil {
		return nil, err
	}
	slog.Info("Selected candidate", "candidate", result.Candidate.String(), "score", result.Score, "index", result.Index)

	baseModel, baseScore, err := baseline.Evaluate(ctx, r.registry, spec.Config.Baseline, scorer, parts.Training, parts.Validation)
	if err != nil {
		return nil, err
	}
	cmp := baseline.Compare(result.Score, baseScore)
	baseOutcome := cmp.Outcome(baselineFamily(spec.Config.Baseline))
	if cmp.Suspect() {
		slog.Warn("Selected model does not beat the baseline", "score", result.Score, "baseline", baseScore)
	}
	r.notifyProgress(ProgressEvent{EventType: EventBaselineComplete, Score: baseScore})

	var test *models.TestOutcome
	if parts.Test != nil {
		test, baseOutcome.TestScore, err = r.checkOnTest(result.Model, baseModel, scorer, parts.Test)
		if err != nil {
			return nil, err
		}
	}

	candidates := candidateOutcomes(entries, result.Evaluations)
	board := leaderboard.New()
	for _, c := range candidates {
		board.Add(c)
	}

	outcome := &models.SweepOutcome{
		RunID:     uuid.NewString(),
		SweepName: spec.Name,
		Timestamp: startTime,
		Setup: models.OutcomeSetup{
			DataSource:     dataSource(spec.Data),
			Label:          spec.Data.Label,
			Features:       data.Schema().Features,
			Seed:           *spec.Split.Seed,
			TrainRows:      trainRows,
			ValidationRows: validRows,
			TestRows:       testRows,
			SkippedRows:    stats.Skipped,
			Scorer:         scorer.Name(),
			Workers:        workers,
		},
		Best:        candidates[result.Index],
		Searches:    rankSearches(board, searchOutcomes(spec.Searches, candidates)),
		Leaderboard: board.Top(spec.Config.Leaderboard),
		Candidates:  candidates,
		Baseline:    baseOutcome,
		Test:        test,
		Digest: models.OutcomeDigest{
			Evaluated:  len(candidates),
			Scores:     metrics.Summarize(scores(candidates)),
			DurationMs: time.Since(startTime).Milliseconds(),
		},
	}

	if cacheKey != "" {
		if err := r.cache.Put(cacheKey, outcome); err != nil {
			slog.Warn("Failed to cache sweep outcome", "error", err)
		}
	}

	r.notifyProgress(ProgressEvent{
		EventType:  EventSweepComplete,
		Total:      len(candidates),
		Score:      result.Score,
		DurationMs: outcome.Digest.DurationMs,
	})
	return outcome, nil
}

// filteredSpec returns the spec restricted to the searches matching the
// runner's filters. The runner's own spec is never modified.
func (r *SweepRunner) filteredSpec() (*models.SweepSpec, error) {
	if len(r.searchFilters) == 0 {
		return r.spec, nil
	}
	searches, err := FilterSearches(r.spec.Searches, r.searchFilters)
	if err != nil {
		return nil, err
	}
	if len(searches) == 0 {
		return nil, fmt.Errorf("search filters %v matched no searches: %w", r.searchFilters, models.ErrEmptyCandidateSet)
	}
	slog.Debug("Filtered searches", "matched", len(searches), "total", len(r.spec.Searches))
	spec := *r.spec
	spec.Searches = searches
	return &spec, nil
}

// cacheKey returns "" when caching is off or the key cannot be computed.
func (r *SweepRunner) cacheKey(spec *models.SweepSpec) string {
	if r.cache == nil {
		return ""
	}
	key, err := cache.CacheKey(spec)
	if err != nil {
		slog.Warn("Cache disabled for this run", "error", err)
		return ""
	}
	return key
}

func (r *SweepRunner) loadDataset(ctx context.Context) (*dataset.Dataset, dataset.BuildStats, error) {
	src := r.spec.Data

	policies, err := dataset.ParsePolicies(src.OnParseError)
	if err != nil {
		return nil, dataset.BuildStats{}, err
	}

	var table *dataset.Table
	if src.SQLite != nil {
		table, err = dataset.LoadSQLite(ctx, src.SQLite.Path, src.SQLite.Query)
	} else {
		table, err = dataset.LoadCSV(src.Path)
	}
	if err != nil {
		return nil, dataset.BuildStats{}, err
	}

	d, stats, err := dataset.Build(table, dataset.BuildOptions{
		Label:    src.Label,
		Features: src.Features,
		Exclude:  src.Exclude,
		Recovery: policies,
	})
	if err != nil {
		return nil, stats, err
	}
	slog.Debug("Loaded dataset", "source", dataSource(src), "rows", stats.Rows, "skipped", stats.Skipped, "features", d.NumFeatures())
	return d, stats, nil
}

// checkOnTest scores the selected model and the baseline on the test
// partition and bootstraps an interval for the selected model's score under
// the same scorer.
func (r *SweepRunner) checkOnTest(best, base learners.Model, scorer scoring.Scorer, test *dataset.Dataset) (*models.TestOutcome, *float64, error) {
	score, err := scorer.Score(best, test)
	if err != nil {
		return nil, nil, fmt.Errorf("scoring selected model on test set: %w", err)
	}
	baseScore, err := scorer.Score(base, test)
	if err != nil {
		return nil, nil, fmt.Errorf("scoring baseline on test set: %w", err)
	}
	ci, err := statistics.ResampleCI(test.Len(), func(indices []int) (float64, error) {
		return scorer.Score(best, test.Subset(indices))
	}, r.spec.Config.ConfidenceLevel, *r.spec.Split.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrapping test score: %w", err)
	}
	ci.Metric = scorer.Name()
	slog.Info("Checked selected model on test set", "score", score, "baseline", baseScore, "ci_lower", ci.Lower, "ci_upper", ci.Upper)
	return &models.TestOutcome{Score: score, CI: ci}, &baseScore, nil
}

// forward relays selector events to the runner's listeners.
func (r *SweepRunner) forward(e selection.ProgressEvent) {
	event := ProgressEvent{
		Index:      e.Index,
		Total:      e.Total,
		Candidate:  e.Candidate,
		Score:      e.Score,
		DurationMs: e.Duration.Milliseconds(),
		Err:        e.Err,
	}
	switch e.EventType {
	case selection.EventCandidateStart:
		event.EventType = EventCandidateStart
	case selection.EventCandidateComplete:
		event.EventType = EventCandidateComplete
	case selection.EventCandidateFailed:
		event.EventType = EventCandidateFailed
	default:
		return
	}
	r.notifyProgress(event)
}

func candidateOutcomes(entries []grid.Entry, evals []selection.Evaluation) []models.CandidateOutcome {
	out := make([]models.CandidateOutcome, len(evals))
	for i, e := range evals {
		out[i] = models.CandidateOutcome{
			Index:      e.Index,
			Search:     entries[e.Index].Search,
			Candidate:  e.Candidate,
			Score:      e.Score,
			DurationMs: e.Duration.Milliseconds(),
		}
	}
	return out
}

// searchOutcomes reports the best candidate of each search, first wins on ties.
func searchOutcomes(searches []models.SearchSpec, candidates []models.CandidateOutcome) []models.SearchOutcome {
	out := make([]models.SearchOutcome, 0, len(searches))
	pos := make(map[string]int, len(searches))
	for i := range searches {
		label := searches[i].Label()
		if _, dup := pos[label]; dup {
			continue
		}
		pos[label] = len(out)
		out = append(out, models.SearchOutcome{
			Name:   label,
			Family: searches[i].Family,
			Best:   models.CandidateOutcome{Index: -1},
		})
	}
	// A search whose scores are all NaN reports its first candidate.
	for _, c := range candidates {
		s := &out[pos[c.Search]]
		s.Candidates++
		if s.Best.Index < 0 || c.Score > s.Best.Score || (math.IsNaN(s.Best.Score) && !math.IsNaN(c.Score)) {
			s.Best = c
		}
	}
	return out
}

// rankSearches records where the best candidate of each search places
// among all candidates.
func rankSearches(board *leaderboard.Board, searches []models.SearchOutcome) []models.SearchOutcome {
	for i := range searches {
		searches[i].Rank = board.Rank(searches[i].Best.Index)
	}
	return searches
}

func scores(candidates []models.CandidateOutcome) []float64 {
	out := make([]float64, len(candidates))
	for i, c := range candidates {
		out[i] = c.Score
	}
	return out
}

func dataSource(d models.DataConfig) string {
	if d.SQLite != nil {
		return "sqlite:" + d.SQLite.Path
	}
	return d.Path
}

func baselineFamily(name string) string {
	if name == "" {
		return models.DefaultBaselineFamily
	}
	return name
}

// IsSelectionError reports whether err is one of the selection failures
// rather than an I/O or configuration problem.
func IsSelectionError(err error) bool {
	return errors.Is(err, models.ErrEmptyCandidateSet) ||
		errors.Is(err, models.ErrSchemaMismatch) ||
		errors.Is(err, models.ErrInvalidConfiguration) ||
		errors.Is(err, models.ErrNoCandidateEvaluated)
}
