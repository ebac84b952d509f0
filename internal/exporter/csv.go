package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	apierrors "salespulse/internal/errors"
)

// writeCSV writes headers and records to path, prefixed with a UTF-8 BOM
// so Excel recognizes the encoding.
func writeCSV(path string, headers []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apierrors.NewStorageError("failed to create directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return apierrors.NewStorageError("failed to create file", err)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSummaryCSV flattens the report into section/metric/value rows, one
// finding per line.
func WriteSummaryCSV(report *Report, path string) error {
	return writeCSV(path, []string{"section", "metric", "value"}, summaryRecords(report))
}

func summaryRecords(report *Report) [][]string {
	var out [][]string
	add := func(section, metric, value string) {
		out = append(out, []string{section, metric, value})
	}

	add("dataset", "id", report.DatasetID)
	if report.Trend != nil {
		add("dataset", "records", strconv.Itoa(report.Trend.Records))
	}

	if report.Describe != nil {
		for _, col := range report.Describe.Columns {
			add("describe", col.Name+" count", strconv.Itoa(col.Count))
			add("describe", col.Name+" mean", formatFloat(col.Mean))
			add("describe", col.Name+" std", formatFloat(col.Std))
			add("describe", col.Name+" min", formatFloat(col.Min))
			add("describe", col.Name+" max", formatFloat(col.Max))
		}
	}

	if report.Outliers != nil {
		add("outliers", "column", report.Outliers.Column)
		add("outliers", "lower bound", formatFloat(report.Outliers.LowerBound))
		add("outliers", "upper bound", formatFloat(report.Outliers.UpperBound))
		add("outliers", "total", strconv.Itoa(report.Outliers.Total))
	}

	if report.Correlations != nil {
		for _, c := range report.Correlations.Top {
			add("correlation", c.Column, formatFloat(c.R))
		}
		for _, breakdown := range report.Correlations.Categorical {
			for _, category := range breakdown.Top {
				add("category", breakdown.Column+"="+category.Value, formatFloat(category.MeanSales))
			}
		}
	}

	if report.Trend != nil {
		for _, year := range report.Trend.Years {
			add("trend", year.Year, formatFloat(year.Total))
		}
	}
	return out
}
