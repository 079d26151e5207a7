package learners

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/microsoft/sweep/internal/dataset"
)

// ForestParams control a random forest.
type ForestParams struct {
	Trees     int
	Tree      TreeParams
	Bootstrap bool
	Seed      int64
}

// RandomForest is a bag of decision trees that votes on each prediction.
type RandomForest struct {
	trees   []*DecisionTree
	classes []float64
}

// Predict returns the majority vote. Ties go to the smallest label.
func (f *RandomForest) Predict(row []float64) float64 {
	votes := make([]int, len(f.classes))
	for _, t := range f.trees {
		label := t.Predict(row)
		for c, v := range f.classes {
			if v == label {
				votes[c]++
				break
			}
		}
	}
	return f.classes[majority(votes)]
}

// Size is the number of trees.
func (f *RandomForest) Size() int {
	return len(f.trees)
}

// FitForest grows p.Trees trees, each on a bootstrap sample of d when
// p.Bootstrap is set. Every tree draws its own seed from p.Seed, so the
// forest is reproducible.
func FitForest(ctx context.Context, d *dataset.Dataset, p ForestParams) (*RandomForest, error) {
	if p.Trees < 1 {
		return nil, fmt.Errorf("random_forest: need at least one tree, got %d", p.Trees)
	}
	n := d.Len()
	if n == 0 {
		return nil, fmt.Errorf("random_forest: empty training set")
	}

	ci := indexClasses(d)
	master := rand.New(rand.NewSource(p.Seed))
	f := &RandomForest{classes: ci.classes, trees: make([]*DecisionTree, 0, p.Trees)}

	for range p.Trees {
		rng := rand.New(rand.NewSource(master.Int63()))

		samples := make([]int, n)
		for i := range samples {
			if p.Bootstrap {
				samples[i] = rng.Intn(n)
			} else {
				samples[i] = i
			}
		}

		t, err := fitTreeOn(ctx, d, ci, samples, p.Tree, rng)
		if err != nil {
			return nil, err
		}
		f.trees = append(f.trees, t)
	}
	return f, nil
}
