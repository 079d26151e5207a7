package learners

import (
	"context"
	"math/rand"
	"testing"

	"github.com/microsoft/sweep/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// thresholdData labels x >= 50 as 1 and adds an uninformative second feature.
func thresholdData(t *testing.T) *dataset.Dataset {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	rows := make([][]float64, 100)
	labels := make([]float64, 100)
	for i := range rows {
		rows[i] = []float64{rng.Float64(), float64(i)}
		if i >= 50 {
			labels[i] = 1
		}
	}
	d, err := dataset.New(dataset.Schema{Features: []string{"noise", "minutes"}, Label: "is_ultra"}, rows, labels)
	require.NoError(t, err)
	return d
}

// checkerData needs two levels of splits to separate.
func checkerData(t *testing.T) *dataset.Dataset {
	t.Helper()
	var rows [][]float64
	var labels []float64
	for x := range 10 {
		for y := range 10 {
			rows = append(rows, []float64{float64(x), float64(y)})
			if (x < 5) != (y < 5) {
				labels = append(labels, 1)
			} else {
				labels = append(labels, 0)
			}
		}
	}
	d, err := dataset.New(dataset.Schema{Features: []string{"x", "y"}, Label: "z"}, rows, labels)
	require.NoError(t, err)
	return d
}

func accuracyOf(m Model, d *dataset.Dataset) float64 {
	preds := PredictAll(m, d)
	hits := 0
	for i, p := range preds {
		if p == d.Label(i) {
			hits++
		}
	}
	return float64(hits) / float64(len(preds))
}

func TestFitTree_SingleSplit(t *testing.T) {
	d := thresholdData(t)

	tree, err := FitTree(context.Background(), d, DefaultTreeParams(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, tree.Depth())
	assert.Equal(t, 1.0, accuracyOf(tree, d))
	assert.Equal(t, 0.0, tree.Predict([]float64{0.9, 49.4}))
	assert.Equal(t, 1.0, tree.Predict([]float64{0.1, 49.6}))
}

func TestFitTree_MaxDepth(t *testing.T) {
	d := checkerData(t)

	full, err := FitTree(context.Background(), d, DefaultTreeParams(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, accuracyOf(full, d))

	p := DefaultTreeParams()
	p.MaxDepth = 1
	stump, err := FitTree(context.Background(), d, p, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stump.Depth())
	assert.Less(t, accuracyOf(stump, d), 1.0)
}

func TestFitTree_MinSamplesLeaf(t *testing.T) {
	d := thresholdData(t)

	p := DefaultTreeParams()
	p.MinSamplesLeaf = 60
	tree, err := FitTree(context.Background(), d, p, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Depth())
}

func TestFitTree_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FitTree(ctx, thresholdData(t), DefaultTreeParams(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFitForest(t *testing.T) {
	d := thresholdData(t)

	f, err := FitForest(context.Background(), d, ForestParams{Trees: 15, Tree: DefaultTreeParams(), Bootstrap: true, Seed: 12345})
	require.NoError(t, err)
	assert.Equal(t, 15, f.Size())
	assert.Equal(t, 1.0, accuracyOf(f, d))

	_, err = FitForest(context.Background(), d, ForestParams{Trees: 0})
	assert.Error(t, err)
}

func TestFitForest_Reproducible(t *testing.T) {
	d := checkerData(t)
	p := ForestParams{Trees: 9, Tree: DefaultTreeParams(), Bootstrap: true, Seed: 7}
	p.Tree.MaxFeatures = 1
	p.Tree.MaxDepth = 3

	a, err := FitForest(context.Background(), d, p)
	require.NoError(t, err)
	b, err := FitForest(context.Background(), d, p)
	require.NoError(t, err)
	assert.Equal(t, PredictAll(a, d), PredictAll(b, d))
}

func TestFitMostFrequent(t *testing.T) {
	schema := dataset.Schema{Features: []string{"calls"}, Label: "is_ultra"}

	d, err := dataset.New(schema, [][]float64{{1}, {2}, {3}}, []float64{1, 0, 1})
	require.NoError(t, err)
	m, err := FitMostFrequent(d)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Predict([]float64{100}))

	tied, err := dataset.New(schema, [][]float64{{1}, {2}}, []float64{1, 0})
	require.NoError(t, err)
	m, err = FitMostFrequent(tied)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Label)

	empty, err := dataset.New(schema, nil, nil)
	require.NoError(t, err)
	_, err = FitMostFrequent(empty)
	assert.Error(t, err)
}
