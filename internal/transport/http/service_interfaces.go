package http

import (
	"context"
	"io"

	"salespulse/internal/dataset"
	"salespulse/internal/operations"
	"salespulse/internal/services"
)

// DatasetServiceInterface defines the interface for dataset storage operations
type DatasetServiceInterface interface {
	Upload(ctx context.Context, originalName string, src io.Reader) (*services.UploadResult, error)
	Get(ctx context.Context, id string) (*dataset.Dataset, error)
	List(ctx context.Context) ([]*dataset.Dataset, error)
	Preview(ctx context.Context, id string) (*services.Preview, error)
	Delete(ctx context.Context, id string) (*dataset.Dataset, error)
}

// AnalysisServiceInterface defines the interface for the direct analysis paths
type AnalysisServiceInterface interface {
	RunDescribe(ctx context.Context, datasetID string) (*services.DescribeResponse, error)
	RunOutliers(ctx context.Context, datasetID string) (*services.OutliersResponse, error)
	RunCorrelations(ctx context.Context, datasetID string) (*services.CorrelationsResponse, error)
	RenderTrend(ctx context.Context, datasetID string) (*services.TrendResponse, error)
}

// ChatServiceInterface defines the interface for the agent-backed chat
type ChatServiceInterface interface {
	Chat(ctx context.Context, datasetID, message string) (*services.ChatResponse, error)
}

// ReportServiceInterface defines the interface for asynchronous report jobs
type ReportServiceInterface interface {
	StartReport(ctx context.Context, datasetID string) (*operations.Job, error)
	Status(ctx context.Context, jobID string) (*operations.Job, error)
	List(ctx context.Context, filter operations.JobFilter) ([]*operations.Job, error)
	Artifact(ctx context.Context, jobID string) (string, error)
}

// HealthServiceInterface defines the interface for health probes
type HealthServiceInterface interface {
	Liveness(ctx context.Context) *services.HealthStatus
	Readiness(ctx context.Context) *services.HealthStatus
}
