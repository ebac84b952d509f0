package exporter

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readSummaryCSV(t *testing.T, path string) [][]string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "expected UTF-8 BOM prefix")

	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	require.NoError(t, err)
	return records
}

// TestWriteSummaryCSV verifies the flattened section/metric/value layout.
func TestWriteSummaryCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.csv")
	require.NoError(t, WriteSummaryCSV(sampleReport(""), path))

	records := readSummaryCSV(t, path)
	require.NotEmpty(t, records)
	assert.Equal(t, []string{"section", "metric", "value"}, records[0])

	assert.Contains(t, records, []string{"dataset", "id", "ds-1"})
	assert.Contains(t, records, []string{"dataset", "records", "4"})
	assert.Contains(t, records, []string{"describe", "Item_Outlet_Sales mean", "150.50"})
	assert.Contains(t, records, []string{"describe", "Item_Outlet_Sales count", "4"})
	assert.Contains(t, records, []string{"outliers", "total", "1"})
	assert.Contains(t, records, []string{"outliers", "upper bound", "231.25"})
	assert.Contains(t, records, []string{"correlation", "Item_MRP", "0.86"})
	assert.Contains(t, records, []string{"category", "Outlet_Type=Grocery Store", "140.00"})
	assert.Contains(t, records, []string{"trend", "1998", "301.00"})
}

// TestWriteSummaryCSVPartialReport checks nil sections are simply omitted.
func TestWriteSummaryCSVPartialReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.csv")

	report := &Report{DatasetID: "ds-2"}
	require.NoError(t, WriteSummaryCSV(report, path))

	records := readSummaryCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"dataset", "id", "ds-2"}, records[1])
}

// TestFormatFloat pins the two-decimal rendering and non-finite names.
func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "13.40", formatFloat(13.4))
	assert.Equal(t, "0.00", formatFloat(0))
	assert.Equal(t, "-2.50", formatFloat(-2.5))
	assert.Equal(t, "NaN", formatFloat(math.NaN()))
}
