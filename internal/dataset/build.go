package dataset

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Recovery names what the loader does with a value that is not numeric.
type Recovery string

const (
	// RecoverFail aborts loading with an error naming the row and column.
	RecoverFail Recovery = "fail"
	// RecoverSkipRow drops the whole record and counts it as skipped.
	RecoverSkipRow Recovery = "skip_row"
	// RecoverZero replaces the value with 0.
	RecoverZero Recovery = "zero"
)

// AnyColumn is the policy key that applies to every column not listed explicitly.
const AnyColumn = "*"

// Policies maps column names to recovery policies.
type Policies map[string]Recovery

// ParsePolicies validates a column → policy mapping.
func ParsePolicies(raw map[string]string) (Policies, error) {
	p := make(Policies, len(raw))
	for col, name := range raw {
		r := Recovery(name)
		switch r {
		case RecoverFail, RecoverSkipRow, RecoverZero:
			p[col] = r
		default:
			return nil, fmt.Errorf("column %q: unknown recovery policy %q (want fail, skip_row or zero)", col, name)
		}
	}
	return p, nil
}

// For returns the policy of a column.
func (p Policies) For(column string) Recovery {
	if r, ok := p[column]; ok {
		return r
	}
	if r, ok := p[AnyColumn]; ok {
		return r
	}
	return RecoverFail
}

// BuildOptions select the label and features of a Table.
type BuildOptions struct {
	Label string
	// Features lists the feature columns in order. Empty means every column
	// except the label and Exclude, in header order.
	Features []string
	Exclude  []string
	Recovery Policies
}

// BuildStats describes what the loader did.
type BuildStats struct {
	Rows    int
	Skipped int
}

// Build converts a Table into a Dataset.
func Build(t *Table, opts BuildOptions) (*Dataset, BuildStats, error) {
	var stats BuildStats

	index := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		index[strings.TrimSpace(h)] = i
	}

	labelCol, ok := index[opts.Label]
	if !ok {
		return nil, stats, fmt.Errorf("label column %q not found", opts.Label)
	}

	features := opts.Features
	if len(features) == 0 {
		for _, h := range t.Header {
			h = strings.TrimSpace(h)
			if h != opts.Label && !slices.Contains(opts.Exclude, h) {
				features = append(features, h)
			}
		}
	}
	cols := make([]int, len(features))
	for i, f := range features {
		c, ok := index[f]
		if !ok {
			return nil, stats, fmt.Errorf("feature column %q not found", f)
		}
		if f == opts.Label {
			return nil, stats, fmt.Errorf("label column %q cannot also be a feature", f)
		}
		cols[i] = c
	}

	rows := make([][]float64, 0, len(t.Rows))
	labels := make([]float64, 0, len(t.Rows))

rowLoop:
	for r, raw := range t.Rows {
		if len(raw) != len(t.Header) {
			return nil, stats, fmt.Errorf("row %d has %d columns, expected %d", r+1, len(raw), len(t.Header))
		}

		label, keep, err := parseCell(raw[labelCol], opts.Label, r, opts.Recovery)
		if err != nil {
			return nil, stats, err
		}
		if !keep {
			stats.Skipped++
			continue
		}

		row := make([]float64, len(cols))
		for j, c := range cols {
			v, keep, err := parseCell(raw[c], features[j], r, opts.Recovery)
			if err != nil {
				return nil, stats, err
			}
			if !keep {
				stats.Skipped++
				continue rowLoop
			}
			row[j] = v
		}
		rows = append(rows, row)
		labels = append(labels, label)
	}

	if stats.Skipped > 0 {
		slog.Warn("Skipped rows with unparseable values", "skipped", stats.Skipped, "kept", len(rows))
	}

	d, err := New(Schema{Features: features, Label: opts.Label}, rows, labels)
	if err != nil {
		return nil, stats, err
	}
	stats.Rows = d.Len()
	return d, stats, nil
}

// parseCell parses one value. keep is false when the row must be skipped.
func parseCell(raw, column string, row int, policies Policies) (v float64, keep bool, err error) {
	v, perr := ParseValue(raw)
	if perr == nil {
		return v, true, nil
	}

	switch policies.For(column) {
	case RecoverSkipRow:
		return 0, false, nil
	case RecoverZero:
		return 0, true, nil
	default:
		return 0, false, fmt.Errorf("row %d, column %q: %w", row+1, column, perr)
	}
}

// ParseValue parses a numeric cell. Booleans map to 1 and 0.
func ParseValue(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	switch strings.ToLower(s) {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	if math.IsNaN(v) {
		return 0, fmt.Errorf("missing value")
	}
	return v, nil
}
