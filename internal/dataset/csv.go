package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Table is raw tabular text: a header row and data rows of equal width.
type Table struct {
	Header []string
	Rows   [][]string
}

// LoadCSV reads a CSV file. The first row is treated as headers (column names).
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %s is empty (no header row)", path)
	}

	return &Table{Header: records[0], Rows: records[1:]}, nil
}
