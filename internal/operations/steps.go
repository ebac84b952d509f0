package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"salespulse/internal/analysis"
	"salespulse/internal/chart"
	"salespulse/internal/exporter"
)

type describeStep struct{}

func (describeStep) ID() string   { return StepIDDescribe }
func (describeStep) Name() string { return "Summary statistics" }

func (describeStep) Validate(state *ReportState) error {
	if state.Table == nil {
		return NewStepError(StepIDDescribe, "requires a loaded dataset", nil)
	}
	return nil
}

func (describeStep) Execute(_ context.Context, state *ReportState) error {
	result, err := analysis.Describe(state.Table)
	if err != nil {
		return err
	}
	state.Describe = result
	return nil
}

type outliersStep struct{}

func (outliersStep) ID() string   { return StepIDOutliers }
func (outliersStep) Name() string { return "Outlier detection" }

func (outliersStep) Validate(state *ReportState) error {
	if state.Table == nil {
		return NewStepError(StepIDOutliers, "requires a loaded dataset", nil)
	}
	return nil
}

func (outliersStep) Execute(_ context.Context, state *ReportState) error {
	report, err := analysis.DetectOutliers(state.Table)
	if err != nil {
		return err
	}
	state.Outliers = report
	return nil
}

type correlationsStep struct{}

func (correlationsStep) ID() string   { return StepIDCorrelations }
func (correlationsStep) Name() string { return "Correlation analysis" }

func (correlationsStep) Validate(state *ReportState) error {
	if state.Table == nil {
		return NewStepError(StepIDCorrelations, "requires a loaded dataset", nil)
	}
	return nil
}

func (correlationsStep) Execute(_ context.Context, state *ReportState) error {
	report, err := analysis.AnalyzeCorrelations(state.Table)
	if err != nil {
		return err
	}
	state.Correlations = report
	return nil
}

type trendStep struct{}

func (trendStep) ID() string   { return StepIDTrend }
func (trendStep) Name() string { return "Sales trend chart" }

func (trendStep) Validate(state *ReportState) error {
	if state.Table == nil {
		return NewStepError(StepIDTrend, "requires a loaded dataset", nil)
	}
	if state.ChartPath == "" {
		return NewStepError(StepIDTrend, "requires a chart output path", nil)
	}
	return nil
}

func (trendStep) Execute(_ context.Context, state *ReportState) error {
	result, err := chart.RenderSalesTrend(state.Table, state.ChartPath)
	if err != nil {
		return err
	}
	state.Trend = result
	return nil
}

type exportStep struct{}

func (exportStep) ID() string   { return StepIDExport }
func (exportStep) Name() string { return "Report export" }

func (exportStep) Validate(state *ReportState) error {
	if state.ReportDir == "" {
		return NewStepError(StepIDExport, "requires a report output directory", nil)
	}
	if state.Describe == nil || state.Outliers == nil || state.Correlations == nil || state.Trend == nil {
		return NewStepError(StepIDExport, "requires all analysis results", nil)
	}
	return nil
}

func (exportStep) Execute(_ context.Context, state *ReportState) error {
	report := &exporter.Report{
		DatasetID:    state.DatasetID,
		Describe:     state.Describe,
		Outliers:     state.Outliers,
		Correlations: state.Correlations,
		Trend:        state.Trend,
		ChartPath:    state.ChartPath,
	}

	xlsxPath := filepath.Join(state.ReportDir, fmt.Sprintf("report_%s.xlsx", state.DatasetID))
	if err := exporter.WriteXLSX(report, xlsxPath); err != nil {
		return err
	}
	state.ReportPath = xlsxPath

	csvPath := filepath.Join(state.ReportDir, "summary.csv")
	if err := exporter.WriteSummaryCSV(report, csvPath); err != nil {
		return err
	}
	state.SummaryPath = csvPath
	return nil
}

// Pipeline is the fixed step graph of a report job: describe first, the
// three independent analyses concurrently, then the export.
type Pipeline struct {
	sink   ProgressSink
	logger *slog.Logger
}

// NewPipeline creates a pipeline reporting transitions to the given sink
func NewPipeline(sink ProgressSink, logger *slog.Logger) *Pipeline {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{sink: sink, logger: logger.With(slog.String("component", "pipeline"))}
}

// Run executes the pipeline for one job. The first failing step aborts the
// run, concurrent siblings are cancelled through the errgroup context.
func (p *Pipeline) Run(ctx context.Context, jobID string, state *ReportState) error {
	if err := p.runStep(ctx, jobID, describeStep{}, state); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, step := range []Step{outliersStep{}, correlationsStep{}, trendStep{}} {
		g.Go(func() error {
			return p.runStep(gctx, jobID, step, state)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return p.runStep(ctx, jobID, exportStep{}, state)
}

func (p *Pipeline) runStep(ctx context.Context, jobID string, step Step, state *ReportState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record := StepRecord{
		ID:        step.ID(),
		Name:      step.Name(),
		Status:    StepStatusActive,
		StartedAt: time.Now(),
	}
	p.sink.StepStarted(jobID, step.ID())
	p.logger.Info("step started",
		slog.String("job_id", jobID),
		slog.String("step", step.ID()))

	err := step.Validate(state)
	if err == nil {
		err = step.Execute(ctx, state)
	}
	record.CompletedAt = time.Now()

	if err != nil {
		record.Status = StepStatusFailed
		record.Error = err.Error()
		state.Record(record)
		p.sink.StepFailed(jobID, step.ID(), err)
		p.logger.Error("step failed",
			slog.String("job_id", jobID),
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			return err
		}
		return NewStepError(step.ID(), "failed", err)
	}

	record.Status = StepStatusCompleted
	state.Record(record)
	p.sink.StepCompleted(jobID, step.ID())
	p.logger.Info("step completed",
		slog.String("job_id", jobID),
		slog.String("step", step.ID()),
		slog.Duration("duration", record.CompletedAt.Sub(record.StartedAt)))
	return nil
}
