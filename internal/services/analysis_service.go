package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"salespulse/internal/analysis"
	"salespulse/internal/chart"
	"salespulse/internal/config"
	"salespulse/internal/dataset"
	"salespulse/internal/infrastructure"
)

// StatusBroadcaster is the slice of the WebSocket hub the analysis service
// uses to tell connected clients about runs.
type StatusBroadcaster interface {
	BroadcastStatus(status, message string)
	BroadcastError(code, message string)
}

// DescribeResponse carries the describe result and its rendered text
type DescribeResponse struct {
	Result *analysis.DescribeResult `json:"result"`
	Text   string                   `json:"text"`
}

// OutliersResponse carries the outlier report and its rendered text
type OutliersResponse struct {
	Result *analysis.OutlierReport `json:"result"`
	Text   string                  `json:"text"`
}

// CorrelationsResponse carries the correlation report and its rendered text
type CorrelationsResponse struct {
	Result *analysis.CorrelationReport `json:"result"`
	Text   string                      `json:"text"`
}

// TrendResponse carries the trend result, its rendered text and the URL the
// browser fetches the chart from
type TrendResponse struct {
	Result   *chart.TrendResult `json:"result"`
	Text     string             `json:"text"`
	ChartURL string             `json:"chart_url"`
}

// AnalysisService runs the individual analyses directly, without the agent.
// These are the button paths in the UI.
type AnalysisService struct {
	store   *dataset.Store
	paths   *config.Paths
	hub     StatusBroadcaster
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewAnalysisService creates an analysis service using the default logger
func NewAnalysisService(store *dataset.Store, paths *config.Paths, hub StatusBroadcaster) *AnalysisService {
	return NewAnalysisServiceWithLogger(store, paths, hub, nil, slog.Default())
}

// NewAnalysisServiceWithLogger creates an analysis service with explicit
// observability dependencies. Hub and metrics may be nil.
func NewAnalysisServiceWithLogger(store *dataset.Store, paths *config.Paths, hub StatusBroadcaster, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		store:   store,
		paths:   paths,
		hub:     hub,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "analysis_service")),
	}
}

// RunDescribe computes summary statistics for every numeric column
func (as *AnalysisService) RunDescribe(ctx context.Context, datasetID string) (*DescribeResponse, error) {
	var resp *DescribeResponse
	err := as.run(ctx, "describe", datasetID, func(t *dataset.Table) error {
		result, err := analysis.Describe(t)
		if err != nil {
			return err
		}
		resp = &DescribeResponse{Result: result, Text: result.Text()}
		return nil
	})
	return resp, err
}

// RunOutliers flags sales rows outside the IQR bounds
func (as *AnalysisService) RunOutliers(ctx context.Context, datasetID string) (*OutliersResponse, error) {
	var resp *OutliersResponse
	err := as.run(ctx, "outliers", datasetID, func(t *dataset.Table) error {
		result, err := analysis.DetectOutliers(t)
		if err != nil {
			return err
		}
		resp = &OutliersResponse{Result: result, Text: result.Text()}
		return nil
	})
	return resp, err
}

// RunCorrelations reports the strongest sales correlations and category means
func (as *AnalysisService) RunCorrelations(ctx context.Context, datasetID string) (*CorrelationsResponse, error) {
	var resp *CorrelationsResponse
	err := as.run(ctx, "correlations", datasetID, func(t *dataset.Table) error {
		result, err := analysis.AnalyzeCorrelations(t)
		if err != nil {
			return err
		}
		resp = &CorrelationsResponse{Result: result, Text: result.Text()}
		return nil
	})
	return resp, err
}

// RenderTrend renders the sales-by-establishment-year bar chart to the
// well-known chart path and returns its URL
func (as *AnalysisService) RenderTrend(ctx context.Context, datasetID string) (*TrendResponse, error) {
	var resp *TrendResponse
	err := as.run(ctx, "trend", datasetID, func(t *dataset.Table) error {
		result, err := chart.RenderSalesTrend(t, as.paths.SalesTrendPNG)
		if err != nil {
			return err
		}
		resp = &TrendResponse{
			Result:   result,
			Text:     result.Text(),
			ChartURL: "/charts/" + config.SalesTrendFileName,
		}
		return nil
	})
	return resp, err
}

// run is the shared frame around one analysis: resolve the dataset, load
// its table, execute, and report status, metrics and logs.
func (as *AnalysisService) run(ctx context.Context, kind, datasetID string, fn func(*dataset.Table) error) error {
	start := time.Now()

	record, err := as.store.Get(datasetID)
	if err != nil {
		infrastructure.RecordAnalysisRun(ctx, as.metrics, kind, time.Since(start), err)
		return err
	}

	as.notifyStatus("running", kind, record.OriginalName)
	as.logger.InfoContext(ctx, "analysis started",
		slog.String("analysis", kind),
		slog.String("dataset_id", datasetID))

	table, err := dataset.LoadAny(record.StoredPath)
	if err == nil {
		err = fn(table)
	}

	infrastructure.RecordAnalysisRun(ctx, as.metrics, kind, time.Since(start), err)
	if err != nil {
		as.notifyError(kind, err)
		as.logger.ErrorContext(ctx, "analysis failed",
			slog.String("analysis", kind),
			slog.String("dataset_id", datasetID),
			slog.String("error", err.Error()))
		return err
	}

	as.notifyStatus("completed", kind, record.OriginalName)
	as.logger.InfoContext(ctx, "analysis completed",
		slog.String("analysis", kind),
		slog.String("dataset_id", datasetID),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (as *AnalysisService) notifyStatus(status, kind, name string) {
	if as.hub == nil {
		return
	}
	as.hub.BroadcastStatus(status, fmt.Sprintf("%s: %s", kind, name))
}

func (as *AnalysisService) notifyError(kind string, err error) {
	if as.hub == nil {
		return
	}
	as.hub.BroadcastError("analysis_failed", fmt.Sprintf("%s: %s", kind, err.Error()))
}
