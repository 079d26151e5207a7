// Package scoring measures how well a fitted model predicts held-out labels.
package scoring

import (
	"fmt"
	"sort"
	"sync"

	"github.com/microsoft/sweep/internal/dataset"
	"github.com/microsoft/sweep/internal/learners"
)

// Scorer computes a validation score. Higher is better.
type Scorer interface {
	Name() string
	Score(m learners.Model, validation *dataset.Dataset) (float64, error)
}

// Factory builds a scorer.
type Factory func() Scorer

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func init() {
	Register(NameAccuracy, func() Scorer { return Accuracy{} })
	Register(NameBalancedAccuracy, func() Scorer { return BalancedAccuracy{} })
}

// Register makes a scorer available under name.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// ByName returns the scorer registered under name.
func ByName(name string) (Scorer, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown scorer %q (known: %v)", name, namesLocked())
	}
	return f(), nil
}

// Names lists the registered scorers, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Hits reports, per validation record, whether m predicted its label.
func Hits(m learners.Model, d *dataset.Dataset) ([]bool, error) {
	if d.Len() == 0 {
		return nil, fmt.Errorf("scoring: empty validation set")
	}
	preds := learners.PredictAll(m, d)
	hits := make([]bool, len(preds))
	for i, p := range preds {
		hits[i] = p == d.Label(i)
	}
	return hits, nil
}
