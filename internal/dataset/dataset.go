// Package dataset holds labeled numeric records and the loaders and
// splitter that produce them.
package dataset

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Schema is the ordered list of feature names plus the label column.
type Schema struct {
	Features []string `json:"features"`
	Label    string   `json:"label"`
}

// Equal reports whether two schemas have the same label and the same
// features in the same order.
func (s Schema) Equal(other Schema) bool {
	return s.Label == other.Label && slices.Equal(s.Features, other.Features)
}

// Dataset is an ordered sequence of labeled records. The feature matrix has
// one row per record and one column per schema feature.
type Dataset struct {
	schema Schema
	x      *mat.Dense
	y      []float64
}

// New builds a dataset from row-major feature values and labels.
func New(schema Schema, rows [][]float64, labels []float64) (*Dataset, error) {
	if len(schema.Features) == 0 {
		return nil, fmt.Errorf("dataset: schema has no features")
	}
	if len(rows) != len(labels) {
		return nil, fmt.Errorf("dataset: %d rows but %d labels", len(rows), len(labels))
	}

	d := &Dataset{
		schema: Schema{Features: slices.Clone(schema.Features), Label: schema.Label},
		y:      slices.Clone(labels),
	}
	if len(rows) == 0 {
		return d, nil
	}

	cols := len(schema.Features)
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("dataset: row %d has %d values, expected %d", i, len(r), cols)
		}
		data = append(data, r...)
	}
	d.x = mat.NewDense(len(rows), cols, data)
	return d, nil
}

// Schema returns a copy of the dataset schema.
func (d *Dataset) Schema() Schema {
	return Schema{Features: slices.Clone(d.schema.Features), Label: d.schema.Label}
}

// Len is the number of records.
func (d *Dataset) Len() int {
	return len(d.y)
}

// NumFeatures is the number of feature columns.
func (d *Dataset) NumFeatures() int {
	return len(d.schema.Features)
}

// At returns feature j of record i.
func (d *Dataset) At(i, j int) float64 {
	return d.x.At(i, j)
}

// Row returns a copy of the feature values of record i.
func (d *Dataset) Row(i int) []float64 {
	return mat.Row(nil, i, d.x)
}

// Label returns the label of record i.
func (d *Dataset) Label(i int) float64 {
	return d.y[i]
}

// Labels returns a copy of all labels.
func (d *Dataset) Labels() []float64 {
	return slices.Clone(d.y)
}

// Classes returns the distinct label values in ascending order.
func (d *Dataset) Classes() []float64 {
	classes := slices.Clone(d.y)
	slices.Sort(classes)
	return slices.Compact(classes)
}

// Subset returns a new dataset holding the records at the given indices, in order.
func (d *Dataset) Subset(indices []int) *Dataset {
	out := &Dataset{schema: d.Schema(), y: make([]float64, len(indices))}
	if len(indices) == 0 {
		return out
	}

	cols := d.NumFeatures()
	data := make([]float64, 0, len(indices)*cols)
	for k, i := range indices {
		data = append(data, d.x.RawRowView(i)...)
		out.y[k] = d.y[i]
	}
	out.x = mat.NewDense(len(indices), cols, data)
	return out
}
