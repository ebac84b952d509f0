package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"salespulse/internal/config"
	"salespulse/internal/dataset"
	"salespulse/internal/infrastructure"
	"salespulse/internal/operations"
)

// ErrReportNotReady indicates a download request for a job that has not
// completed yet.
var ErrReportNotReady = errors.New("report is not finished")

// ReportService starts full-report jobs and answers status questions
type ReportService struct {
	queue  *operations.JobQueue
	store  *dataset.Store
	logger *slog.Logger
}

// NewReportService creates a report service using the default logger
func NewReportService(queue *operations.JobQueue, store *dataset.Store) *ReportService {
	return NewReportServiceWithLogger(queue, store, slog.Default())
}

// NewReportServiceWithLogger creates a report service with a specific logger
func NewReportServiceWithLogger(queue *operations.JobQueue, store *dataset.Store, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		queue:  queue,
		store:  store,
		logger: logger.With(slog.String("component", "report_service")),
	}
}

// StartReport enqueues a full report build for one dataset
func (rs *ReportService) StartReport(ctx context.Context, datasetID string) (*operations.Job, error) {
	if _, err := rs.store.Get(datasetID); err != nil {
		return nil, err
	}

	job, err := rs.queue.Enqueue(ctx, &operations.Job{
		ID:        uuid.New().String(),
		DatasetID: datasetID,
	})
	if err != nil {
		return nil, err
	}

	rs.logger.InfoContext(ctx, "report job enqueued",
		slog.String("job_id", job.ID),
		slog.String("dataset_id", datasetID))
	return job, nil
}

// Status returns the current snapshot of one report job
func (rs *ReportService) Status(ctx context.Context, jobID string) (*operations.Job, error) {
	return rs.queue.GetJob(ctx, jobID)
}

// List returns recent report jobs matching the filter, newest first
func (rs *ReportService) List(ctx context.Context, filter operations.JobFilter) ([]*operations.Job, error) {
	return rs.queue.ListJobs(ctx, filter)
}

// Artifact returns the path of the finished workbook for download
func (rs *ReportService) Artifact(ctx context.Context, jobID string) (string, error) {
	job, err := rs.queue.GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.Status != operations.JobStatusCompleted || job.ReportPath == "" {
		return "", fmt.Errorf("%w: job is %s", ErrReportNotReady, job.Status)
	}
	return job.ReportPath, nil
}

// NewReportRunner builds the worker function the job queue executes for
// each report job: load the dataset, run the pipeline, record the
// artifact paths on the job.
func NewReportRunner(store *dataset.Store, paths *config.Paths, sink operations.ProgressSink, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) operations.RunnerFunc {
	pipeline := operations.NewPipeline(sink, logger)

	return func(ctx context.Context, job *operations.Job) (err error) {
		start := time.Now()
		if metrics != nil {
			metrics.ReportActiveJobs.Add(ctx, 1)
		}
		defer func() {
			if metrics != nil {
				metrics.ReportActiveJobs.Add(ctx, -1)
			}
			infrastructure.RecordReportJob(ctx, metrics, time.Since(start), err)
		}()

		record, err := store.Get(job.DatasetID)
		if err != nil {
			return err
		}

		table, err := dataset.LoadAny(record.StoredPath)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", record.OriginalName, err)
		}

		state := operations.NewReportState(record.ID, record.StoredPath)
		state.Table = table
		state.ChartPath = paths.SalesTrendPNG
		state.ReportDir = paths.ReportsDir

		if err := pipeline.Run(ctx, job.ID, state); err != nil {
			return err
		}

		job.ReportPath = state.ReportPath
		job.SummaryPath = state.SummaryPath
		job.Message = "Report ready"
		return nil
	}
}

// ProgressBroadcaster is the slice of the WebSocket hub the report
// pipeline reports step transitions through.
type ProgressBroadcaster interface {
	BroadcastProgress(step string, progress int, message string)
	BroadcastError(code, message string)
}

// Coarse completion percentages per pipeline step. The three concurrent
// analyses land between describe and export, so clients see the bar move
// even when steps finish out of order.
var stepCompletedProgress = map[string]int{
	operations.StepIDDescribe:     25,
	operations.StepIDOutliers:     45,
	operations.StepIDCorrelations: 60,
	operations.StepIDTrend:        75,
	operations.StepIDExport:       100,
}

// HubSink forwards pipeline step transitions to WebSocket clients and,
// when Progress is wired, mirrors them into the tracked job.
type HubSink struct {
	Hub      ProgressBroadcaster
	Progress func(jobID string, progress int, message string)
}

// StepStarted implements operations.ProgressSink
func (s *HubSink) StepStarted(jobID, stepID string) {
	s.send(jobID, stepID, progressFor(stepID)-5, stepID+" started")
}

// StepCompleted implements operations.ProgressSink
func (s *HubSink) StepCompleted(jobID, stepID string) {
	s.send(jobID, stepID, progressFor(stepID), stepID+" completed")
}

// StepFailed implements operations.ProgressSink
func (s *HubSink) StepFailed(jobID, stepID string, err error) {
	if s.Hub != nil {
		s.Hub.BroadcastError("report_step_failed", fmt.Sprintf("%s: %s", stepID, err.Error()))
	}
	if s.Progress != nil {
		s.Progress(jobID, progressFor(stepID)-5, stepID+" failed")
	}
}

func (s *HubSink) send(jobID, stepID string, progress int, message string) {
	if s.Hub != nil {
		s.Hub.BroadcastProgress(stepID, progress, message)
	}
	if s.Progress != nil {
		s.Progress(jobID, progress, message)
	}
}

func progressFor(stepID string) int {
	if p, ok := stepCompletedProgress[stepID]; ok {
		return p
	}
	return 50
}
