package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// SplitRatios sets the fraction of records held out for validation and
// test. Training receives the remainder.
type SplitRatios struct {
	Validation float64
	Test       float64
	Seed       int64
}

// Partitions are disjoint subsets of one dataset. Test is nil when the
// test fraction leaves no records.
type Partitions struct {
	Training   *Dataset
	Validation *Dataset
	Test       *Dataset
}

// Sizes returns the number of records in each partition.
func (p *Partitions) Sizes() (train, validation, test int) {
	train, validation = p.Training.Len(), p.Validation.Len()
	if p.Test != nil {
		test = p.Test.Len()
	}
	return
}

// Split shuffles record indices with a seeded source and cuts them into
// test, validation and training partitions. The same seed and ratios always
// yield the same partitions, and partition sizes add up to d.Len().
func Split(d *Dataset, r SplitRatios) (*Partitions, error) {
	if r.Validation <= 0 || r.Test < 0 || r.Validation+r.Test >= 1 {
		return nil, fmt.Errorf("split: invalid ratios validation=%v test=%v", r.Validation, r.Test)
	}

	n := d.Len()
	nTest := int(math.Floor(float64(n) * r.Test))
	nValid := int(math.Floor(float64(n) * r.Validation))
	nTrain := n - nTest - nValid
	if nValid == 0 || nTrain == 0 {
		return nil, fmt.Errorf("split: %d records are too few for validation=%v test=%v", n, r.Validation, r.Test)
	}

	perm := rand.New(rand.NewSource(r.Seed)).Perm(n)
	p := &Partitions{
		Validation: d.Subset(perm[nTest : nTest+nValid]),
		Training:   d.Subset(perm[nTest+nValid:]),
	}
	if nTest > 0 {
		p.Test = d.Subset(perm[:nTest])
	}
	return p, nil
}
