package operations

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/dataset"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) add(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) StepStarted(_, stepID string) { s.add("start:" + stepID) }

func (s *recordingSink) StepCompleted(_, stepID string) { s.add("done:" + stepID) }

func (s *recordingSink) StepFailed(_, stepID string, _ error) { s.add("fail:" + stepID) }

func (s *recordingSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func salesTable() *dataset.Table {
	return dataset.NewTable(
		[]string{"Item_ID", "Outlet_Establishment_Year", "Item_MRP", "Item_Outlet_Sales", "Outlet_Type"},
		[][]string{
			{"A1", "1998", "40", "120", "Grocery Store"},
			{"A2", "1998", "60", "181", "Supermarket Type1"},
			{"A3", "2004", "80", "240", "Supermarket Type1"},
			{"A4", "2004", "100", "301", "Supermarket Type2"},
		},
	)
}

// TestPipelineRun walks a full report build and checks every artifact.
func TestPipelineRun(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	pipeline := NewPipeline(sink, nil)

	state := NewReportState("ds-1", "upload.csv")
	state.Table = salesTable()
	state.ChartPath = filepath.Join(dir, "sales_trend.png")
	state.ReportDir = dir

	require.NoError(t, pipeline.Run(context.Background(), "job-1", state))

	t.Run("populates every result", func(t *testing.T) {
		assert.NotNil(t, state.Describe)
		assert.NotNil(t, state.Outliers)
		assert.NotNil(t, state.Correlations)
		assert.NotNil(t, state.Trend)
	})

	t.Run("writes the report files", func(t *testing.T) {
		assert.Equal(t, filepath.Join(dir, "report_ds-1.xlsx"), state.ReportPath)
		_, err := os.Stat(state.ReportPath)
		assert.NoError(t, err)

		assert.Equal(t, filepath.Join(dir, "summary.csv"), state.SummaryPath)
		_, err = os.Stat(state.SummaryPath)
		assert.NoError(t, err)

		_, err = os.Stat(state.ChartPath)
		assert.NoError(t, err)
	})

	t.Run("records every step as completed", func(t *testing.T) {
		records := state.Records()
		require.Len(t, records, 5)
		for _, record := range records {
			assert.Equal(t, StepStatusCompleted, record.Status, record.ID)
			assert.Empty(t, record.Error)
		}
	})

	t.Run("orders describe first and export last", func(t *testing.T) {
		events := sink.all()
		require.Len(t, events, 10)
		assert.Equal(t, "start:"+StepIDDescribe, events[0])
		assert.Equal(t, "done:"+StepIDDescribe, events[1])
		assert.Equal(t, "start:"+StepIDExport, events[8])
		assert.Equal(t, "done:"+StepIDExport, events[9])

		middle := events[2:8]
		for _, stepID := range []string{StepIDOutliers, StepIDCorrelations, StepIDTrend} {
			assert.Contains(t, middle, "start:"+stepID)
			assert.Contains(t, middle, "done:"+stepID)
		}
	})
}

// TestPipelineValidation checks a missing table fails the first step.
func TestPipelineValidation(t *testing.T) {
	sink := &recordingSink{}
	pipeline := NewPipeline(sink, nil)
	state := NewReportState("ds-1", "upload.csv")

	err := pipeline.Run(context.Background(), "job-1", state)
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepIDDescribe, stepErr.Step)

	events := sink.all()
	assert.Contains(t, events, "fail:"+StepIDDescribe)
	assert.NotContains(t, events, "start:"+StepIDOutliers)

	records := state.Records()
	require.Len(t, records, 1)
	assert.Equal(t, StepStatusFailed, records[0].Status)
	assert.NotEmpty(t, records[0].Error)
}

// TestPipelineStepFailure checks a failing analysis step skips the export.
func TestPipelineStepFailure(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	pipeline := NewPipeline(sink, nil)

	// No year column, so the trend step cannot find anything to plot.
	state := NewReportState("ds-2", "upload.csv")
	state.Table = dataset.NewTable(
		[]string{"Item_ID", "Item_MRP", "Item_Outlet_Sales"},
		[][]string{
			{"A1", "40", "120"},
			{"A2", "60", "181"},
		},
	)
	state.ChartPath = filepath.Join(dir, "sales_trend.png")
	state.ReportDir = dir

	err := pipeline.Run(context.Background(), "job-2", state)
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepIDTrend, stepErr.Step)

	events := sink.all()
	assert.Contains(t, events, "fail:"+StepIDTrend)
	assert.NotContains(t, events, "start:"+StepIDExport)
	assert.Empty(t, state.ReportPath)
}

// TestPipelineCancelledContext checks a cancelled context stops the run.
func TestPipelineCancelledContext(t *testing.T) {
	pipeline := NewPipeline(nil, nil)
	state := NewReportState("ds-3", "upload.csv")
	state.Table = salesTable()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pipeline.Run(ctx, "job-3", state)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
