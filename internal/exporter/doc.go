// Package exporter turns a finished analysis run into downloadable report
// files.
//
// Two formats are produced:
//
// WriteXLSX builds a multi-sheet Excel workbook: summary statistics,
// detected outliers, correlations with categorical breakdowns, and the
// yearly sales trend with the rendered chart embedded.
//
// WriteSummaryCSV writes a flat section/metric/value CSV with a UTF-8 BOM
// so Excel opens it correctly.
package exporter
