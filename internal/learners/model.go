// Package learners implements the trainable model families a sweep can
// search over: CART decision trees, random forests and the constant
// most-frequent-label baseline.
package learners

import (
	"slices"

	"github.com/microsoft/sweep/internal/dataset"
)

// Model is a fitted classifier.
type Model interface {
	// Predict returns the predicted label for one row of feature values,
	// ordered like the schema of the training set.
	Predict(row []float64) float64
}

// PredictAll runs m over every record of d.
func PredictAll(m Model, d *dataset.Dataset) []float64 {
	out := make([]float64, d.Len())
	for i := range out {
		out[i] = m.Predict(d.Row(i))
	}
	return out
}

// classIndex maps training labels onto dense class indices.
type classIndex struct {
	classes []float64
	ids     []int
}

func indexClasses(d *dataset.Dataset) classIndex {
	ci := classIndex{classes: d.Classes(), ids: make([]int, d.Len())}
	for i := range ci.ids {
		ci.ids[i], _ = slices.BinarySearch(ci.classes, d.Label(i))
	}
	return ci
}

// majority returns the class with the highest count. Ties go to the
// smallest label.
func majority(counts []int) int {
	best := 0
	for c, n := range counts {
		if n > counts[best] {
			best = c
		}
	}
	return best
}
