// Package dataset provides tabular loading, column typing, and the upload
// registry for sales datasets. Analyses re-read files through this package
// on every call; a loaded Table is never shared or mutated.
package dataset

import (
	"math"
	"strconv"
	"strings"
)

// ColumnKind classifies a column for analysis purposes.
type ColumnKind int

const (
	// KindCategorical marks columns treated as discrete labels.
	KindCategorical ColumnKind = iota
	// KindNumeric marks columns where every non-empty cell parses as a float.
	KindNumeric
)

// Table is an in-memory tabular dataset. Cells are kept as strings; typed
// access goes through NumericColumn. Rows are padded so every row has
// exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string

	// Latin1 records that the file needed the Latin-1 decoding fallback.
	Latin1 bool

	kinds []ColumnKind
}

// NewTable builds a Table from a header and rows, padding short rows and
// inferring column kinds.
func NewTable(columns []string, rows [][]string) *Table {
	padded := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) >= len(columns) {
			padded[i] = row[:len(columns)]
			continue
		}
		p := make([]string, len(columns))
		copy(p, row)
		padded[i] = p
	}

	t := &Table{Columns: columns, Rows: padded}
	t.inferKinds()
	return t
}

// NumRows returns the number of data rows
func (t *Table) NumRows() int { return len(t.Rows) }

// NumCols returns the number of columns
func (t *Table) NumCols() int { return len(t.Columns) }

// ColumnIndex returns the index of the named column, or -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Kind returns the inferred kind of column i
func (t *Table) Kind(i int) ColumnKind {
	if i < 0 || i >= len(t.kinds) {
		return KindCategorical
	}
	return t.kinds[i]
}

// NumericColumns returns the indices of all numeric columns in column order
func (t *Table) NumericColumns() []int {
	var indices []int
	for i := range t.Columns {
		if t.kinds[i] == KindNumeric {
			indices = append(indices, i)
		}
	}
	return indices
}

// CategoricalColumns returns the indices of all categorical columns in column order
func (t *Table) CategoricalColumns() []int {
	var indices []int
	for i := range t.Columns {
		if t.kinds[i] == KindCategorical {
			indices = append(indices, i)
		}
	}
	return indices
}

// NumericColumn returns column i as floats, with NaN for missing or
// unparseable cells.
func (t *Table) NumericColumn(i int) []float64 {
	values := make([]float64, len(t.Rows))
	for r, row := range t.Rows {
		values[r] = parseCell(row[i])
	}
	return values
}

// Cell returns the raw cell value at (row, col)
func (t *Table) Cell(row, col int) string {
	return t.Rows[row][col]
}

// MissingCells counts empty cells across the whole table
func (t *Table) MissingCells() int {
	missing := 0
	for _, row := range t.Rows {
		for _, cell := range row {
			if isMissing(cell) {
				missing++
			}
		}
	}
	return missing
}

// DistinctValues returns the distinct non-missing values of column i,
// in first-appearance order.
func (t *Table) DistinctValues(i int) []string {
	seen := make(map[string]struct{})
	var values []string
	for _, row := range t.Rows {
		cell := row[i]
		if isMissing(cell) {
			continue
		}
		if _, ok := seen[cell]; ok {
			continue
		}
		seen[cell] = struct{}{}
		values = append(values, cell)
	}
	return values
}

// Head returns the first n rows (or fewer)
func (t *Table) Head(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	head := make([][]string, n)
	for i := 0; i < n; i++ {
		head[i] = append([]string(nil), t.Rows[i]...)
	}
	return head
}

// inferKinds classifies each column. A column is numeric when it has at
// least one non-empty cell and every non-empty cell parses as a float.
func (t *Table) inferKinds() {
	t.kinds = make([]ColumnKind, len(t.Columns))
	for i := range t.Columns {
		kind := KindCategorical
		nonEmpty := 0
		numeric := true
		for _, row := range t.Rows {
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				continue
			}
			nonEmpty++
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric = false
				break
			}
		}
		if numeric && nonEmpty > 0 {
			kind = KindNumeric
		}
		t.kinds[i] = kind
	}
}

// parseCell converts one cell to a float, NaN when missing or invalid
func parseCell(cell string) float64 {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// isMissing reports whether a cell counts as missing
func isMissing(cell string) bool {
	return strings.TrimSpace(cell) == ""
}
