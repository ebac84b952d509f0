package operations

import (
	"sync"

	"salespulse/internal/analysis"
	"salespulse/internal/chart"
	"salespulse/internal/dataset"
)

// ReportState carries one report job's inputs and accumulated results.
// The concurrent analysis steps write disjoint result fields; the records
// list is the only shared mutable part and is guarded by the mutex.
type ReportState struct {
	DatasetID  string
	SourcePath string

	// ChartPath is where the trend step renders the PNG, ReportDir is
	// where the export step writes the workbook and summary CSV.
	ChartPath string
	ReportDir string

	Table *dataset.Table

	Describe     *analysis.DescribeResult
	Outliers     *analysis.OutlierReport
	Correlations *analysis.CorrelationReport
	Trend        *chart.TrendResult

	// Set by the export step
	ReportPath  string
	SummaryPath string

	mu      sync.Mutex
	records []StepRecord
}

// NewReportState creates the state for one report run
func NewReportState(datasetID, sourcePath string) *ReportState {
	return &ReportState{
		DatasetID:  datasetID,
		SourcePath: sourcePath,
	}
}

// Record appends a finished step record
func (s *ReportState) Record(record StepRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

// Records returns a copy of the recorded steps
func (s *ReportState) Records() []StepRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StepRecord, len(s.records))
	copy(out, s.records)
	return out
}
