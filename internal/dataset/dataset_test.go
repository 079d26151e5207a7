package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var planSchema = Schema{Features: []string{"minutes", "messages"}, Label: "is_ultra"}

func TestNew_Validation(t *testing.T) {
	_, err := New(Schema{Label: "y"}, nil, nil)
	assert.ErrorContains(t, err, "no features")

	_, err = New(planSchema, [][]float64{{1, 2}}, nil)
	assert.ErrorContains(t, err, "1 rows but 0 labels")

	_, err = New(planSchema, [][]float64{{1}}, []float64{0})
	assert.ErrorContains(t, err, "row 0 has 1 values")

	empty, err := New(planSchema, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.Empty(t, empty.Classes())
}

func TestDataset_SubsetAndClasses(t *testing.T) {
	d, err := New(planSchema, [][]float64{{1, 10}, {2, 20}, {3, 30}}, []float64{1, 0, 1})
	require.NoError(t, err)

	sub := d.Subset([]int{2, 0})
	assert.Equal(t, 2, sub.Len())
	assert.Equal(t, []float64{3, 30}, sub.Row(0))
	assert.Equal(t, []float64{1, 1}, sub.Labels())
	assert.True(t, sub.Schema().Equal(d.Schema()))

	assert.Equal(t, []float64{0, 1}, d.Classes())
	assert.Equal(t, 0, d.Subset(nil).Len())
}

func TestSchema_Equal(t *testing.T) {
	assert.True(t, planSchema.Equal(Schema{Features: []string{"minutes", "messages"}, Label: "is_ultra"}))
	assert.False(t, planSchema.Equal(Schema{Features: []string{"messages", "minutes"}, Label: "is_ultra"}))
	assert.False(t, planSchema.Equal(Schema{Features: []string{"minutes", "messages"}, Label: "plan"}))
}
