package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/tools"

	"salespulse/internal/analysis"
	"salespulse/internal/chart"
	"salespulse/internal/config"
	"salespulse/internal/dataset"
)

// Toolbox builds the five analysis tools. Relative input paths that do not
// exist as given are retried under the uploads directory, so the model can
// refer to an uploaded file by its stored name alone. plot_trend always
// writes to the fixed chart name inside the charts directory.
type Toolbox struct {
	uploadsDir string
	chartsDir  string
}

// NewToolbox creates a toolbox rooted at the given directories. Either may
// be empty, in which case paths resolve against the working directory.
func NewToolbox(uploadsDir, chartsDir string) *Toolbox {
	return &Toolbox{uploadsDir: uploadsDir, chartsDir: chartsDir}
}

// Tools returns the five tools in their registration order.
func (tb *Toolbox) Tools() []tools.Tool {
	return []tools.Tool{
		loadCSVTool{tb},
		describeDataTool{tb},
		plotTrendTool{tb},
		findOutliersTool{tb},
		correlationAnalysisTool{tb},
	}
}

// loadTable resolves the input path and loads the file behind it.
func (tb *Toolbox) loadTable(input string) (*dataset.Table, error) {
	return dataset.LoadAny(tb.resolvePath(input))
}

func (tb *Toolbox) resolvePath(input string) string {
	path := strings.TrimSpace(input)
	if path == "" || filepath.IsAbs(path) || tb.uploadsDir == "" {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	candidate := filepath.Join(tb.uploadsDir, path)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return path
}

// toolError narrates a failure as tool output. The loop never aborts on a
// failed tool, the model sees the message and can react to it.
func toolError(err error) string {
	return "Error: " + err.Error()
}

type loadCSVTool struct{ tb *Toolbox }

func (t loadCSVTool) Name() string { return "load_csv" }

func (t loadCSVTool) Description() string {
	return "Load a CSV file and return a short summary: row and column counts plus the column names. " +
		`Input: the file path, for example "sales_data.csv".`
}

func (t loadCSVTool) Call(_ context.Context, input string) (string, error) {
	table, err := t.tb.loadTable(input)
	if err != nil {
		return toolError(err), nil
	}
	return dataset.Summary(table), nil
}

type describeDataTool struct{ tb *Toolbox }

func (t describeDataTool) Name() string { return "describe_data" }

func (t describeDataTool) Description() string {
	return "Return summary statistics (count, mean, std, min, quartiles, max) for the numeric columns " +
		"of a CSV file. Input: the file path."
}

func (t describeDataTool) Call(_ context.Context, input string) (string, error) {
	table, err := t.tb.loadTable(input)
	if err != nil {
		return toolError(err), nil
	}
	result, err := analysis.Describe(table)
	if err != nil {
		return toolError(err), nil
	}
	return result.Text(), nil
}

type plotTrendTool struct{ tb *Toolbox }

func (t plotTrendTool) Name() string { return "plot_trend" }

func (t plotTrendTool) Description() string {
	return "Plot total sales by store establishment year and save the chart as a PNG image. " +
		"Input: the CSV file path."
}

func (t plotTrendTool) Call(_ context.Context, input string) (string, error) {
	table, err := t.tb.loadTable(input)
	if err != nil {
		return toolError(err), nil
	}
	outPath := filepath.Join(t.tb.chartsDir, config.SalesTrendFileName)
	result, err := chart.RenderSalesTrend(table, outPath)
	if err != nil {
		return toolError(err), nil
	}
	return result.Text(), nil
}

type findOutliersTool struct{ tb *Toolbox }

func (t findOutliersTool) Name() string { return "find_outliers" }

func (t findOutliersTool) Description() string {
	return "Find anomalous sales values (outliers) with the IQR method and return their count, " +
		"examples and a business interpretation. Input: the CSV file path."
}

func (t findOutliersTool) Call(_ context.Context, input string) (string, error) {
	table, err := t.tb.loadTable(input)
	if err != nil {
		return toolError(err), nil
	}
	report, err := analysis.DetectOutliers(table)
	if err != nil {
		return toolError(err), nil
	}
	return report.Text(), nil
}

type correlationAnalysisTool struct{ tb *Toolbox }

func (t correlationAnalysisTool) Name() string { return "correlation_analysis" }

func (t correlationAnalysisTool) Description() string {
	return "Analyze correlations between numeric variables and sales, plus mean sales per categorical " +
		"segment, with a business interpretation. Input: the CSV file path."
}

func (t correlationAnalysisTool) Call(_ context.Context, input string) (string, error) {
	table, err := t.tb.loadTable(input)
	if err != nil {
		return toolError(err), nil
	}
	report, err := analysis.AnalyzeCorrelations(table)
	if err != nil {
		return toolError(err), nil
	}
	return report.Text(), nil
}
