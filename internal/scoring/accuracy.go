package scoring

import (
	"github.com/microsoft/sweep/internal/dataset"
	"github.com/microsoft/sweep/internal/learners"
	"gonum.org/v1/gonum/stat"
)

const (
	NameAccuracy         = "accuracy"
	NameBalancedAccuracy = "balanced_accuracy"
)

// Accuracy is the fraction of exact label matches.
type Accuracy struct{}

func (Accuracy) Name() string { return NameAccuracy }

func (Accuracy) Score(m learners.Model, validation *dataset.Dataset) (float64, error) {
	hits, err := Hits(m, validation)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, h := range hits {
		if h {
			n++
		}
	}
	return float64(n) / float64(len(hits)), nil
}

// BalancedAccuracy is the mean recall over the classes present in the
// validation labels. Recalls are averaged in ascending label order so equal
// predictions always produce bit-identical scores.
type BalancedAccuracy struct{}

func (BalancedAccuracy) Name() string { return NameBalancedAccuracy }

func (BalancedAccuracy) Score(m learners.Model, validation *dataset.Dataset) (float64, error) {
	hits, err := Hits(m, validation)
	if err != nil {
		return 0, err
	}

	total := map[float64]int{}
	correct := map[float64]int{}
	for i, h := range hits {
		label := validation.Label(i)
		total[label]++
		if h {
			correct[label]++
		}
	}

	classes := validation.Classes()
	recalls := make([]float64, len(classes))
	for i, label := range classes {
		recalls[i] = float64(correct[label]) / float64(total[label])
	}
	return stat.Mean(recalls, nil), nil
}
