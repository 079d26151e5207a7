package learners

import (
	"context"
	"fmt"
	"math/rand"
	"slices"

	"github.com/microsoft/sweep/internal/dataset"
)

// TreeParams control how a decision tree grows.
type TreeParams struct {
	// MaxDepth limits the depth of the tree. Zero means unlimited.
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures is the number of features considered at each split.
	// Zero means all of them.
	MaxFeatures int
}

// DefaultTreeParams mirror the usual CART defaults.
func DefaultTreeParams() TreeParams {
	return TreeParams{MinSamplesSplit: 2, MinSamplesLeaf: 1}
}

type node struct {
	leaf      bool
	label     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

// DecisionTree is a fitted CART classifier using gini impurity.
type DecisionTree struct {
	root  *node
	depth int
}

func (t *DecisionTree) Predict(row []float64) float64 {
	n := t.root
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.label
}

// Depth is the length of the longest root-to-leaf path.
func (t *DecisionTree) Depth() int {
	return t.depth
}

// FitTree grows a tree on d. rng drives feature subsampling and may be nil
// when MaxFeatures considers every feature.
func FitTree(ctx context.Context, d *dataset.Dataset, p TreeParams, rng *rand.Rand) (*DecisionTree, error) {
	all := make([]int, d.Len())
	for i := range all {
		all[i] = i
	}
	return fitTreeOn(ctx, d, indexClasses(d), all, p, rng)
}

func fitTreeOn(ctx context.Context, d *dataset.Dataset, ci classIndex, samples []int, p TreeParams, rng *rand.Rand) (*DecisionTree, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("decision_tree: empty training set")
	}
	if p.MaxFeatures > 0 && p.MaxFeatures < d.NumFeatures() && rng == nil {
		return nil, fmt.Errorf("decision_tree: feature subsampling needs a random source")
	}

	g := &grower{d: d, ci: ci, p: p, rng: rng}
	root, err := g.grow(ctx, samples, 0)
	if err != nil {
		return nil, err
	}
	return &DecisionTree{root: root, depth: g.maxDepth}, nil
}

type grower struct {
	d        *dataset.Dataset
	ci       classIndex
	p        TreeParams
	rng      *rand.Rand
	maxDepth int
}

func (g *grower) counts(samples []int) []int {
	c := make([]int, len(g.ci.classes))
	for _, s := range samples {
		c[g.ci.ids[s]]++
	}
	return c
}

func (g *grower) leaf(counts []int, depth int) *node {
	g.maxDepth = max(g.maxDepth, depth)
	return &node{leaf: true, label: g.ci.classes[majority(counts)]}
}

func (g *grower) grow(ctx context.Context, samples []int, depth int) (*node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := g.counts(samples)
	if gini(counts, len(samples)) == 0 ||
		(g.p.MaxDepth > 0 && depth >= g.p.MaxDepth) ||
		len(samples) < g.p.MinSamplesSplit ||
		len(samples) < 2*g.p.MinSamplesLeaf {
		return g.leaf(counts, depth), nil
	}

	s, ok := g.bestSplit(samples)
	if !ok {
		return g.leaf(counts, depth), nil
	}

	var left, right []int
	for _, i := range samples {
		if g.d.At(i, s.feature) <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	n := &node{feature: s.feature, threshold: s.threshold}
	var err error
	if n.left, err = g.grow(ctx, left, depth+1); err != nil {
		return nil, err
	}
	if n.right, err = g.grow(ctx, right, depth+1); err != nil {
		return nil, err
	}
	return n, nil
}

type split struct {
	feature   int
	threshold float64
	impurity  float64
}

// bestSplit scans every candidate threshold of the considered features and
// keeps the one with the lowest weighted gini. The first one found wins ties.
func (g *grower) bestSplit(samples []int) (split, bool) {
	features := g.features()
	best := split{impurity: 2}
	found := false

	sorted := slices.Clone(samples)
	n := len(sorted)
	nc := len(g.ci.classes)
	for _, f := range features {
		slices.SortStableFunc(sorted, func(a, b int) int {
			va, vb := g.d.At(a, f), g.d.At(b, f)
			switch {
			case va < vb:
				return -1
			case va > vb:
				return 1
			}
			return 0
		})

		left := make([]int, nc)
		right := g.counts(sorted)
		for k := 0; k < n-1; k++ {
			id := g.ci.ids[sorted[k]]
			left[id]++
			right[id]--

			nl, nr := k+1, n-k-1
			if nl < g.p.MinSamplesLeaf || nr < g.p.MinSamplesLeaf {
				continue
			}
			v, next := g.d.At(sorted[k], f), g.d.At(sorted[k+1], f)
			if v == next {
				continue
			}

			imp := (float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)) / float64(n)
			if imp < best.impurity {
				best = split{feature: f, threshold: v + (next-v)/2, impurity: imp}
				found = true
			}
		}
	}
	return best, found
}

// features returns the feature columns to consider at one split.
func (g *grower) features() []int {
	nf := g.d.NumFeatures()
	if g.p.MaxFeatures <= 0 || g.p.MaxFeatures >= nf {
		out := make([]int, nf)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := g.rng.Perm(nf)[:g.p.MaxFeatures]
	slices.Sort(out)
	return out
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		sum += p * p
	}
	return 1 - sum
}
