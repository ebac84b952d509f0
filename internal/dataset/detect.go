package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Column detection sentinels. The wrapped message lists the available
// columns so the narrated error can show them.
var (
	// ErrSalesColumnNotFound indicates no column name contains "sales".
	ErrSalesColumnNotFound = errors.New("no sales column found")

	// ErrYearColumnNotFound indicates no establishment-year column.
	ErrYearColumnNotFound = errors.New("no establishment-year column found")
)

// DetectSalesColumn returns the index of the first column whose name
// contains "sales", case-insensitively.
func DetectSalesColumn(t *Table) (int, error) {
	for i, col := range t.Columns {
		if strings.Contains(strings.ToLower(col), "sales") {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w (available columns: %s)",
		ErrSalesColumnNotFound, strings.Join(t.Columns, ", "))
}

// DetectYearColumn returns the index of the first column whose name
// contains both "year" and "establish", case-insensitively. Retail
// datasets name this column things like "Outlet_Establishment_Year".
func DetectYearColumn(t *Table) (int, error) {
	for i, col := range t.Columns {
		lower := strings.ToLower(col)
		if strings.Contains(lower, "year") && strings.Contains(lower, "establish") {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w (available columns: %s)",
		ErrYearColumnNotFound, strings.Join(t.Columns, ", "))
}
