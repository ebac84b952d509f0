package analysis

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"salespulse/internal/dataset"
)

// ErrNoNumericColumns is returned when a table has no numeric columns to summarize.
var ErrNoNumericColumns = errors.New("no numeric columns to analyze")

// ColumnStats holds the summary statistics for one numeric column.
type ColumnStats struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}

// DescribeResult is the per-column statistical summary of a table.
type DescribeResult struct {
	Columns []ColumnStats `json:"columns"`
}

// Describe computes count, mean, std, min, quartiles and max for every
// numeric column. Missing cells are excluded from each column's statistics.
func Describe(t *dataset.Table) (*DescribeResult, error) {
	numeric := t.NumericColumns()
	if len(numeric) == 0 {
		return nil, ErrNoNumericColumns
	}

	result := &DescribeResult{Columns: make([]ColumnStats, 0, len(numeric))}
	for _, idx := range numeric {
		values := Finite(t.NumericColumn(idx))
		sorted := SortedCopy(values)

		stats := ColumnStats{
			Name:  t.Columns[idx],
			Count: len(values),
			Mean:  Mean(values),
			Std:   StdDev(values),
		}
		if len(sorted) > 0 {
			stats.Min = sorted[0]
			stats.P25 = Percentile(sorted, 0.25)
			stats.Median = Percentile(sorted, 0.50)
			stats.P75 = Percentile(sorted, 0.75)
			stats.Max = sorted[len(sorted)-1]
		} else {
			stats.Min = math.NaN()
			stats.P25 = math.NaN()
			stats.Median = math.NaN()
			stats.P75 = math.NaN()
			stats.Max = math.NaN()
		}
		result.Columns = append(result.Columns, stats)
	}
	return result, nil
}

var describeLabels = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

func (s ColumnStats) row(label string) float64 {
	switch label {
	case "count":
		return float64(s.Count)
	case "mean":
		return s.Mean
	case "std":
		return s.Std
	case "min":
		return s.Min
	case "25%":
		return s.P25
	case "50%":
		return s.Median
	case "75%":
		return s.P75
	default:
		return s.Max
	}
}

// Text renders the summary as an aligned table: one row per statistic, one
// column per numeric column, values with six decimal places and NaN rendered
// literally.
func (r *DescribeResult) Text() string {
	labelWidth := 0
	for _, label := range describeLabels {
		if len(label) > labelWidth {
			labelWidth = len(label)
		}
	}

	// Pre-format all cells so each column can be sized to its widest value.
	cells := make([][]string, len(r.Columns))
	widths := make([]int, len(r.Columns))
	for c, col := range r.Columns {
		widths[c] = len(col.Name)
		cells[c] = make([]string, len(describeLabels))
		for i, label := range describeLabels {
			cells[c][i] = formatStat(col.row(label))
			if len(cells[c][i]) > widths[c] {
				widths[c] = len(cells[c][i])
			}
		}
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", labelWidth))
	for c, col := range r.Columns {
		fmt.Fprintf(&b, "  %*s", widths[c], col.Name)
	}
	for i, label := range describeLabels {
		b.WriteByte('\n')
		fmt.Fprintf(&b, "%-*s", labelWidth, label)
		for c := range r.Columns {
			fmt.Fprintf(&b, "  %*s", widths[c], cells[c][i])
		}
	}
	return b.String()
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.6f", v)
}
