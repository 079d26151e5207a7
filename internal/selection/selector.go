// Package selection implements best-of-N model selection: every candidate
// is fit on the training partition, scored on the validation partition, and
// the highest score wins. Among equal top scores the earliest candidate wins.
package selection

//go:generate go tool mockgen -source=selector.go -destination=selector_mocks_test.go -package=selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/microsoft/sweep/internal/dataset"
	"github.com/microsoft/sweep/internal/learners"
	"github.com/microsoft/sweep/internal/models"
	"golang.org/x/sync/errgroup"
)

// Fitter trains the model a candidate describes.
type Fitter interface {
	Fit(ctx context.Context, c models.CandidateConfig, training *dataset.Dataset) (learners.Model, error)
}

// Scorer rates a fitted model against the validation partition.
type Scorer interface {
	Score(m learners.Model, validation *dataset.Dataset) (float64, error)
}

// Evaluation is the validation score of one candidate.
type Evaluation struct {
	Index     int
	Candidate models.CandidateConfig
	Score     float64
	Duration  time.Duration
}

// SelectionResult is the outcome of one SelectBest call.
type SelectionResult struct {
	Candidate models.CandidateConfig
	Score     float64
	Model     learners.Model
	// Index is the enumeration index of the winning candidate.
	Index int
	// Evaluations holds every candidate's score in enumeration order.
	Evaluations []Evaluation
}

// Selector runs searches. It holds no state between calls besides its
// configuration and listeners.
type Selector struct {
	fitter  Fitter
	workers int

	listenersMu sync.Mutex
	listeners   []ProgressListener
	notifyMu    sync.Mutex
}

// Option configures a Selector.
type Option func(*Selector)

// WithWorkers evaluates up to n candidates at once. n <= 1 keeps the
// search sequential.
func WithWorkers(n int) Option {
	return func(s *Selector) {
		s.workers = n
	}
}

// New creates a selector that fits candidates with f.
func New(f Fitter, opts ...Option) *Selector {
	s := &Selector{fitter: f, workers: 1}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SelectBest fits and scores every candidate and returns the best one.
//
// It fails with models.ErrEmptyCandidateSet when candidates is empty and
// with models.ErrSchemaMismatch when the partitions disagree on features,
// in both cases before fitting anything. A candidate that cannot be fit
// aborts the whole search with models.ErrInvalidConfiguration, and a score
// that never beats negative infinity yields models.ErrNoCandidateEvaluated.
// No partial result is returned.
func (s *Selector) SelectBest(ctx context.Context, candidates []models.CandidateConfig, training, validation *dataset.Dataset, scorer Scorer) (*SelectionResult, error) {
	if len(candidates) == 0 {
		return nil, models.ErrEmptyCandidateSet
	}
	if ts, vs := training.Schema(), validation.Schema(); !ts.Equal(vs) {
		return nil, &models.SchemaMismatchError{
			Training:        ts.Features,
			Validation:      vs.Features,
			TrainingLabel:   ts.Label,
			ValidationLabel: vs.Label,
		}
	}

	var (
		trail  []Evaluation
		fitted []learners.Model
		err    error
	)
	if s.workers > 1 && len(candidates) > 1 {
		trail, fitted, err = s.evaluateConcurrently(ctx, candidates, training, validation, scorer)
	} else {
		trail, fitted, err = s.evaluateSequentially(ctx, candidates, training, validation, scorer)
	}
	if err != nil {
		return nil, err
	}

	return pickBest(trail, fitted)
}

// pickBest folds over the trail in enumeration order. Only a strictly
// greater score replaces the current best.
func pickBest(trail []Evaluation, fitted []learners.Model) (*SelectionResult, error) {
	best := -1
	bestScore := math.Inf(-1)
	for i, e := range trail {
		if e.Score > bestScore {
			best, bestScore = i, e.Score
		}
	}
	if best < 0 {
		return nil, models.ErrNoCandidateEvaluated
	}

	return &SelectionResult{
		Candidate:   trail[best].Candidate,
		Score:       bestScore,
		Model:       fitted[best],
		Index:       best,
		Evaluations: trail,
	}, nil
}

func (s *Selector) evaluateSequentially(ctx context.Context, candidates []models.CandidateConfig, training, validation *dataset.Dataset, scorer Scorer) ([]Evaluation, []learners.Model, error) {
	trail := make([]Evaluation, len(candidates))
	fitted := make([]learners.Model, len(candidates))
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		ev, m, err := s.evaluate(ctx, i, len(candidates), c, training, validation, scorer)
		if err != nil {
			return nil, nil, err
		}
		trail[i], fitted[i] = ev, m
	}
	return trail, fitted, nil
}

// evaluateConcurrently stores each result at its enumeration index so the
// fold in pickBest sees the same order as the sequential path. On failure
// the candidates that have not started are skipped and the error of the
// earliest failed candidate is returned.
func (s *Selector) evaluateConcurrently(ctx context.Context, candidates []models.CandidateConfig, training, validation *dataset.Dataset, scorer Scorer) ([]Evaluation, []learners.Model, error) {
	trail := make([]Evaluation, len(candidates))
	fitted := make([]learners.Model, len(candidates))
	errs := make([]error, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, c := range candidates {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			ev, m, err := s.evaluate(gctx, i, len(candidates), c, training, validation, scorer)
			if err != nil {
				errs[i] = err
				return err
			}
			trail[i], fitted[i] = ev, m
			return nil
		})
	}
	groupErr := g.Wait()

	for _, err := range errs {
		if err != nil && !isCancellation(err) {
			return nil, nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if groupErr != nil {
		return nil, nil, groupErr
	}
	return trail, fitted, nil
}

func (s *Selector) evaluate(ctx context.Context, i, total int, c models.CandidateConfig, training, validation *dataset.Dataset, scorer Scorer) (Evaluation, learners.Model, error) {
	s.notify(ProgressEvent{EventType: EventCandidateStart, Index: i, Total: total, Candidate: c})
	start := time.Now()

	m, err := s.fitter.Fit(ctx, c, training)
	if err != nil {
		err = fitError(ctx, c, err)
		s.notify(ProgressEvent{EventType: EventCandidateFailed, Index: i, Total: total, Candidate: c, Err: err})
		return Evaluation{}, nil, err
	}

	score, err := scorer.Score(m, validation)
	if err != nil {
		err = fmt.Errorf("scoring %s: %w", c, err)
		s.notify(ProgressEvent{EventType: EventCandidateFailed, Index: i, Total: total, Candidate: c, Err: err})
		return Evaluation{}, nil, err
	}

	ev := Evaluation{Index: i, Candidate: c, Score: score, Duration: time.Since(start)}
	slog.Debug("Scored candidate", "index", i, "candidate", c.String(), "score", score, "duration", ev.Duration)
	s.notify(ProgressEvent{EventType: EventCandidateComplete, Index: i, Total: total, Candidate: c, Score: score, Duration: ev.Duration})
	return ev, m, nil
}

// fitError passes an InvalidConfigurationError through untouched and wraps
// anything else in one. Cancellation is reported as such.
func fitError(ctx context.Context, c models.CandidateConfig, err error) error {
	if ctx.Err() != nil && isCancellation(err) {
		return err
	}
	var ice *models.InvalidConfigurationError
	if errors.As(err, &ice) {
		return err
	}
	return &models.InvalidConfigurationError{Candidate: c, Err: err}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
