package exporter

import (
	"bytes"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salespulse/internal/analysis"
	"salespulse/internal/chart"
)

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func sampleReport(chartPath string) *Report {
	return &Report{
		DatasetID: "ds-1",
		Describe: &analysis.DescribeResult{
			Columns: []analysis.ColumnStats{
				{
					Name: "Item_Outlet_Sales", Count: 4, Mean: 150.5, Std: 25.25,
					Min: 120, P25: 130, Median: 150, P75: 170.5, Max: 182,
				},
			},
		},
		Outliers: &analysis.OutlierReport{
			Column: "Item_Outlet_Sales", Q1: 130, Q3: 170.5, IQR: 40.5,
			LowerBound: 69.25, UpperBound: 231.25, Total: 1,
			Examples: []analysis.OutlierRow{{Row: 7, Value: 950}},
		},
		Correlations: &analysis.CorrelationReport{
			SalesColumn: "Item_Outlet_Sales",
			HasNumeric:  true,
			Top:         []analysis.Correlation{{Column: "Item_MRP", R: 0.86}},
			Categorical: []analysis.CategoryBreakdown{
				{Column: "Outlet_Type", Top: []analysis.CategoryMean{{Value: "Grocery Store", MeanSales: 140}}},
			},
		},
		Trend: &chart.TrendResult{
			MinYear: "1998", MaxYear: "2004", Records: 4,
			Years: []chart.YearTotal{{Year: "1998", Total: 301}, {Year: "2004", Total: 301.5}},
		},
		ChartPath: chartPath,
	}
}

// TestWriteXLSX verifies the workbook layout and the embedded chart.
func TestWriteXLSX(t *testing.T) {
	dir := t.TempDir()
	chartPath := filepath.Join(dir, "sales_trend.png")
	writeTestPNG(t, chartPath)

	path := filepath.Join(dir, "report_ds-1.xlsx")
	require.NoError(t, WriteXLSX(sampleReport(chartPath), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	t.Run("creates all sheets", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"Summary", "Outliers", "Correlations", "Trend"}, f.GetSheetList())
	})

	t.Run("summary table", func(t *testing.T) {
		cell := func(ref string) string {
			v, err := f.GetCellValue("Summary", ref)
			require.NoError(t, err)
			return v
		}
		assert.Equal(t, "Dataset", cell("A1"))
		assert.Equal(t, "ds-1", cell("B1"))
		assert.Equal(t, "Statistic", cell("A4"))
		assert.Equal(t, "Item_Outlet_Sales", cell("B4"))
		assert.Equal(t, "count", cell("A5"))
		assert.Equal(t, "4", cell("B5"))
		assert.Equal(t, "mean", cell("A6"))
		assert.Equal(t, "150.5", cell("B6"))
		assert.Equal(t, "max", cell("A12"))
		assert.Equal(t, "182", cell("B12"))
	})

	t.Run("outliers sheet", func(t *testing.T) {
		v, err := f.GetCellValue("Outliers", "B7")
		require.NoError(t, err)
		assert.Equal(t, "1", v)
		v, err = f.GetCellValue("Outliers", "A10")
		require.NoError(t, err)
		assert.Equal(t, "7", v)
		v, err = f.GetCellValue("Outliers", "B10")
		require.NoError(t, err)
		assert.Equal(t, "950", v)
	})

	t.Run("correlations sheet", func(t *testing.T) {
		v, err := f.GetCellValue("Correlations", "B4")
		require.NoError(t, err)
		assert.Equal(t, "Item_MRP", v)
		v, err = f.GetCellValue("Correlations", "A6")
		require.NoError(t, err)
		assert.Equal(t, "Mean sales by Outlet_Type", v)
		v, err = f.GetCellValue("Correlations", "A8")
		require.NoError(t, err)
		assert.Equal(t, "Grocery Store", v)
	})

	t.Run("trend sheet", func(t *testing.T) {
		v, err := f.GetCellValue("Trend", "A2")
		require.NoError(t, err)
		assert.Equal(t, "1998", v)
		v, err = f.GetCellValue("Trend", "B3")
		require.NoError(t, err)
		assert.Equal(t, "301.5", v)
	})

	t.Run("embeds chart", func(t *testing.T) {
		pics, err := f.GetPictures("Trend", "D2")
		require.NoError(t, err)
		assert.NotEmpty(t, pics)
	})
}

// TestWriteXLSXWithoutChart checks a report with no chart file still saves.
func TestWriteXLSXWithoutChart(t *testing.T) {
	dir := t.TempDir()
	report := sampleReport("")

	path := filepath.Join(dir, "report.xlsx")
	require.NoError(t, WriteXLSX(report, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	pics, err := f.GetPictures("Trend", "D2")
	require.NoError(t, err)
	assert.Empty(t, pics)
}

// TestWriteXLSXRendersNaN checks non-finite statistics keep a literal name.
func TestWriteXLSXRendersNaN(t *testing.T) {
	dir := t.TempDir()
	report := sampleReport("")
	report.Describe.Columns[0].Std = math.NaN()

	path := filepath.Join(dir, "report.xlsx")
	require.NoError(t, WriteXLSX(report, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("Summary", "B7")
	require.NoError(t, err)
	assert.Equal(t, "NaN", v)
}

// TestWriteXLSXCreatesDirectory checks missing parent directories are created.
func TestWriteXLSXCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reports", "nested", "report.xlsx")

	require.NoError(t, WriteXLSX(sampleReport(""), path))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
