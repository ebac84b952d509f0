package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"salespulse/internal/analysis"
	"salespulse/internal/chart"
	apierrors "salespulse/internal/errors"
)

// Report bundles the results of one full analysis run for export.
type Report struct {
	DatasetID    string
	Describe     *analysis.DescribeResult
	Outliers     *analysis.OutlierReport
	Correlations *analysis.CorrelationReport
	Trend        *chart.TrendResult
	ChartPath    string
}

var describeRows = []struct {
	label string
	value func(analysis.ColumnStats) any
}{
	{"count", func(s analysis.ColumnStats) any { return s.Count }},
	{"mean", func(s analysis.ColumnStats) any { return xlsxValue(s.Mean) }},
	{"std", func(s analysis.ColumnStats) any { return xlsxValue(s.Std) }},
	{"min", func(s analysis.ColumnStats) any { return xlsxValue(s.Min) }},
	{"25%", func(s analysis.ColumnStats) any { return xlsxValue(s.P25) }},
	{"50%", func(s analysis.ColumnStats) any { return xlsxValue(s.Median) }},
	{"75%", func(s analysis.ColumnStats) any { return xlsxValue(s.P75) }},
	{"max", func(s analysis.ColumnStats) any { return xlsxValue(s.Max) }},
}

// WriteXLSX builds the report workbook at path: a Summary sheet with the
// per-column statistics, an Outliers sheet, a Correlations sheet and a
// Trend sheet with the rendered chart embedded next to the yearly totals.
func WriteXLSX(report *Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	w := &workbook{f: f}
	w.summarySheet(report)
	w.outliersSheet(report.Outliers)
	w.correlationsSheet(report.Correlations)
	w.trendSheet(report.Trend, report.ChartPath)
	if w.err != nil {
		return fmt.Errorf("building workbook: %w", w.err)
	}

	if idx, err := f.GetSheetIndex("Summary"); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apierrors.NewStorageError("failed to create report directory", err)
	}
	if err := f.SaveAs(path); err != nil {
		return apierrors.NewStorageError("saving workbook", err)
	}
	return nil
}

// workbook wraps an excelize file with a sticky error so sheet builders
// can write rows without checking every call.
type workbook struct {
	f   *excelize.File
	err error
}

func (w *workbook) sheet(name string) {
	if w.err != nil {
		return
	}
	_, w.err = w.f.NewSheet(name)
}

func (w *workbook) row(sheet string, rowNum int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func (w *workbook) colWidth(sheet string, cols int, width float64) {
	if w.err != nil {
		return
	}
	for i := 1; i <= cols; i++ {
		name, err := excelize.ColumnNumberToName(i)
		if err != nil {
			w.err = err
			return
		}
		if err := w.f.SetColWidth(sheet, name, name, width); err != nil {
			w.err = err
			return
		}
	}
}

func (w *workbook) summarySheet(report *Report) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetSheetName("Sheet1", "Summary")
	w.row("Summary", 1, "Dataset", report.DatasetID)
	w.row("Summary", 2, "Generated", time.Now().Format(time.RFC3339))

	if report.Describe == nil {
		return
	}
	header := []any{"Statistic"}
	for _, col := range report.Describe.Columns {
		header = append(header, col.Name)
	}
	w.row("Summary", 4, header...)
	for i, rowDef := range describeRows {
		values := []any{rowDef.label}
		for _, col := range report.Describe.Columns {
			values = append(values, rowDef.value(col))
		}
		w.row("Summary", 5+i, values...)
	}
	w.colWidth("Summary", len(report.Describe.Columns)+1, 16)
}

func (w *workbook) outliersSheet(outliers *analysis.OutlierReport) {
	w.sheet("Outliers")
	if outliers == nil {
		return
	}
	w.row("Outliers", 1, "Sales column", outliers.Column)
	w.row("Outliers", 2, "Q1", xlsxValue(outliers.Q1))
	w.row("Outliers", 3, "Q3", xlsxValue(outliers.Q3))
	w.row("Outliers", 4, "IQR", xlsxValue(outliers.IQR))
	w.row("Outliers", 5, "Lower bound", xlsxValue(outliers.LowerBound))
	w.row("Outliers", 6, "Upper bound", xlsxValue(outliers.UpperBound))
	w.row("Outliers", 7, "Outliers found", outliers.Total)
	if len(outliers.Examples) > 0 {
		w.row("Outliers", 9, "Row", "Value")
		for i, example := range outliers.Examples {
			w.row("Outliers", 10+i, example.Row, xlsxValue(example.Value))
		}
	}
	w.colWidth("Outliers", 2, 16)
}

func (w *workbook) correlationsSheet(correlations *analysis.CorrelationReport) {
	w.sheet("Correlations")
	if correlations == nil {
		return
	}
	w.row("Correlations", 1, "Sales column", correlations.SalesColumn)

	rowNum := 3
	if len(correlations.Top) > 0 {
		w.row("Correlations", rowNum, "Rank", "Column", "r")
		rowNum++
		for i, c := range correlations.Top {
			w.row("Correlations", rowNum, i+1, c.Column, xlsxValue(c.R))
			rowNum++
		}
	} else {
		w.row("Correlations", rowNum, "No correlations above threshold")
		rowNum++
	}

	for _, breakdown := range correlations.Categorical {
		rowNum++
		w.row("Correlations", rowNum, fmt.Sprintf("Mean sales by %s", breakdown.Column))
		rowNum++
		w.row("Correlations", rowNum, "Category", "Mean sales")
		rowNum++
		for _, category := range breakdown.Top {
			w.row("Correlations", rowNum, category.Value, xlsxValue(category.MeanSales))
			rowNum++
		}
	}
	w.colWidth("Correlations", 3, 18)
}

func (w *workbook) trendSheet(trend *chart.TrendResult, chartPath string) {
	w.sheet("Trend")
	if trend == nil {
		return
	}
	w.row("Trend", 1, "Year", "Total sales")
	for i, year := range trend.Years {
		w.row("Trend", 2+i, year.Year, xlsxValue(year.Total))
	}
	w.colWidth("Trend", 2, 16)

	if w.err == nil && chartPath != "" {
		w.err = w.f.AddPicture("Trend", "D2", chartPath, nil)
	}
}
