package analysis

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"salespulse/internal/config"
	"salespulse/internal/dataset"
)

// ErrNoSalesValues is returned when every cell of the sales column is missing
// or non-numeric.
var ErrNoSalesValues = errors.New("all values in the sales column are missing")

// OutlierRow is one flagged observation, identified by its zero-based row
// index in the loaded file.
type OutlierRow struct {
	Row   int     `json:"row"`
	Value float64 `json:"value"`
}

// OutlierReport is the result of IQR-based anomaly detection on the sales column.
type OutlierReport struct {
	Column     string       `json:"column"`
	Q1         float64      `json:"q1"`
	Q3         float64      `json:"q3"`
	IQR        float64      `json:"iqr"`
	LowerBound float64      `json:"lower_bound"`
	UpperBound float64      `json:"upper_bound"`
	Total      int          `json:"total"`
	Examples   []OutlierRow `json:"examples"`
}

// DetectOutliers flags sales values outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR].
// Rows with a missing sales cell are skipped. The first three flagged rows
// are kept as examples, in file order.
func DetectOutliers(t *dataset.Table) (*OutlierReport, error) {
	salesIdx, err := dataset.DetectSalesColumn(t)
	if err != nil {
		return nil, err
	}

	raw := t.NumericColumn(salesIdx)
	rows := make([]int, 0, len(raw))
	values := make([]float64, 0, len(raw))
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		rows = append(rows, i)
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, ErrNoSalesValues
	}

	sorted := SortedCopy(values)
	q1 := Percentile(sorted, 0.25)
	q3 := Percentile(sorted, 0.75)
	iqr := q3 - q1

	report := &OutlierReport{
		Column:     t.Columns[salesIdx],
		Q1:         q1,
		Q3:         q3,
		IQR:        iqr,
		LowerBound: q1 - config.IQRMultiplier*iqr,
		UpperBound: q3 + config.IQRMultiplier*iqr,
	}

	for i, v := range values {
		if v < report.LowerBound || v > report.UpperBound {
			report.Total++
			if len(report.Examples) < config.OutlierExamples {
				report.Examples = append(report.Examples, OutlierRow{Row: rows[i], Value: v})
			}
		}
	}
	return report, nil
}

// Text renders the anomaly report with bounds, example rows and the business
// interpretation shown to users.
func (r *OutlierReport) Text() string {
	if r.Total == 0 {
		return fmt.Sprintf("No anomalies detected. All sales fall within the range [%.2f, %.2f].",
			r.LowerBound, r.UpperBound)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d anomalous sales outside the range [%.2f, %.2f].\n\n",
		r.Total, r.LowerBound, r.UpperBound)
	b.WriteString("Examples (first 3 rows):\n")
	for _, ex := range r.Examples {
		fmt.Fprintf(&b, "- Row #%d: %.2f\n", ex.Row, ex.Value)
	}
	b.WriteString("\nBusiness interpretation:\n")
	fmt.Fprintf(&b, "- High anomalies (> %.2f): likely bulk orders or data entry errors (an extra zero)\n", r.UpperBound)
	fmt.Fprintf(&b, "- Low anomalies (< %.2f): possible product returns or technical errors\n", r.LowerBound)
	fmt.Fprintf(&b, "Recommendation: review %d flagged records manually before removing them from the dataset.", r.Total)
	return b.String()
}
