package learners

import (
	"fmt"

	"github.com/microsoft/sweep/internal/dataset"
)

// MostFrequent predicts the most frequent training label for every row.
type MostFrequent struct {
	Label float64
}

func (m *MostFrequent) Predict([]float64) float64 {
	return m.Label
}

// FitMostFrequent finds the majority label of d. Ties go to the smallest label.
func FitMostFrequent(d *dataset.Dataset) (*MostFrequent, error) {
	if d.Len() == 0 {
		return nil, fmt.Errorf("most_frequent: empty training set")
	}
	ci := indexClasses(d)
	counts := make([]int, len(ci.classes))
	for _, id := range ci.ids {
		counts[id]++
	}
	return &MostFrequent{Label: ci.classes[majority(counts)]}, nil
}
