package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"salespulse/internal/analysis"
	"salespulse/internal/chart"
	"salespulse/internal/config"
	"salespulse/internal/dataset"
	"salespulse/internal/operations"
)

func main() {
	filePath := flag.String("file", "", "sales data file to analyze (.csv or .xlsx)")
	name := flag.String("analysis", "report", "analysis to run: describe, outliers, correlations, trend, or report")
	outputDir := flag.String("out", "", "output directory for chart and report files (defaults to data/reports)")
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -file sales.csv [-analysis report] [-out dir]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// Initialize paths
	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	// Use default output directory if not specified
	if *outputDir == "" {
		*outputDir = paths.ReportsDir
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		slog.Error("Failed to create output directory", "error", err)
		os.Exit(1)
	}

	// Load the dataset
	slog.Info("Loading dataset", "path", *filePath)
	table, err := dataset.LoadAny(*filePath)
	if err != nil {
		slog.Error("Failed to load dataset", "error", err,
			"hint", "the file must be a CSV or XLSX with a header row and at least one data row")
		os.Exit(1)
	}
	slog.Info("Loaded dataset", "rows", len(table.Rows), "columns", len(table.Columns))

	switch *name {
	case "describe":
		result, err := analysis.Describe(table)
		if err != nil {
			slog.Error("Describe failed", "error", err)
			os.Exit(1)
		}
		fmt.Println(result.Text())

	case "outliers":
		result, err := analysis.DetectOutliers(table)
		if err != nil {
			slog.Error("Outlier detection failed", "error", err)
			os.Exit(1)
		}
		fmt.Println(result.Text())

	case "correlations":
		result, err := analysis.AnalyzeCorrelations(table)
		if err != nil {
			slog.Error("Correlation analysis failed", "error", err)
			os.Exit(1)
		}
		fmt.Println(result.Text())

	case "trend":
		chartPath := filepath.Join(*outputDir, config.SalesTrendFileName)
		result, err := chart.RenderSalesTrend(table, chartPath)
		if err != nil {
			slog.Error("Trend chart failed", "error", err)
			os.Exit(1)
		}
		fmt.Println(result.Text())
		slog.Info("Chart rendered", "path", chartPath)

	case "report":
		runReport(table, *filePath, *outputDir)

	default:
		slog.Error("Unknown analysis", "analysis", *name,
			"hint", "use describe, outliers, correlations, trend, or report")
		os.Exit(1)
	}
}

// runReport drives the same pipeline the server runs for report jobs,
// with progress going to the log instead of a WebSocket.
func runReport(table *dataset.Table, filePath, outputDir string) {
	state := operations.NewReportState(filepath.Base(filePath), filePath)
	state.Table = table
	state.ChartPath = filepath.Join(outputDir, config.SalesTrendFileName)
	state.ReportDir = outputDir

	pipeline := operations.NewPipeline(logSink{}, slog.Default())

	slog.Info("Building full report...")
	if err := pipeline.Run(context.Background(), "cli", state); err != nil {
		slog.Error("Report failed", "error", err)
		os.Exit(1)
	}

	fmt.Println(state.Describe.Text())
	fmt.Println(state.Outliers.Text())
	fmt.Println(state.Correlations.Text())
	fmt.Println(state.Trend.Text())

	slog.Info("Report generated successfully",
		"workbook", state.ReportPath,
		"summary", state.SummaryPath,
		"chart", state.ChartPath)
}

// logSink reports pipeline step transitions through the standard logger
type logSink struct{}

func (logSink) StepStarted(_, stepID string)   { slog.Info("Step started", "step", stepID) }
func (logSink) StepCompleted(_, stepID string) { slog.Info("Step completed", "step", stepID) }
func (logSink) StepFailed(_, stepID string, err error) {
	slog.Error("Step failed", "step", stepID, "error", err)
}
