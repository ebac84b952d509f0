package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/dataset"
	"salespulse/internal/operations"
	"salespulse/internal/services"
)

type fakeReportService struct {
	job           *operations.Job
	artifact      string
	startErr      error
	statusErr     error
	artifactErr   error
	lastDatasetID string
	lastJobID     string
	lastFilter    operations.JobFilter
}

func (f *fakeReportService) StartReport(ctx context.Context, datasetID string) (*operations.Job, error) {
	f.lastDatasetID = datasetID
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.job, nil
}

func (f *fakeReportService) Status(ctx context.Context, jobID string) (*operations.Job, error) {
	f.lastJobID = jobID
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.job, nil
}

func (f *fakeReportService) List(ctx context.Context, filter operations.JobFilter) ([]*operations.Job, error) {
	f.lastFilter = filter
	if f.job == nil {
		return nil, nil
	}
	return []*operations.Job{f.job}, nil
}

func (f *fakeReportService) Artifact(ctx context.Context, jobID string) (string, error) {
	f.lastJobID = jobID
	if f.artifactErr != nil {
		return "", f.artifactErr
	}
	return f.artifact, nil
}

func pendingJob(datasetID string) *operations.Job {
	return &operations.Job{
		ID:        uuid.New().String(),
		DatasetID: datasetID,
		Status:    operations.JobStatusPending,
		CreatedAt: time.Now(),
	}
}

// newReportServer serves the jobID routes at the root and the dataset
// scoped start route the way DatasetHandler mounts it.
func newReportServer(t *testing.T, svc ReportServiceInterface) *httptest.Server {
	t.Helper()
	h := NewReportHandler(svc, testLogger(), testErrorHandler())
	r := chi.NewRouter()
	r.Mount("/reports", h.Routes())
	r.Route("/datasets/{datasetID}", func(r chi.Router) {
		r.Post("/reports", h.Start)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestReportHandlerStart(t *testing.T) {
	datasetID := uuid.New().String()
	svc := &fakeReportService{job: pendingJob(datasetID)}
	srv := newReportServer(t, svc)

	res, err := http.Post(srv.URL+"/datasets/"+datasetID+"/reports", "application/json", nil)
	require.NoError(t, err)

	require.Equal(t, http.StatusAccepted, res.StatusCode)
	body := decodeBody(t, res)
	assert.Equal(t, "success", body["status"])

	data := body["data"].(map[string]interface{})
	assert.Equal(t, svc.job.ID, data["id"])
	assert.Equal(t, datasetID, data["dataset_id"])
	assert.Equal(t, string(operations.JobStatusPending), data["status"])
	assert.Equal(t, datasetID, svc.lastDatasetID)
}

func TestReportHandlerStartErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unknown dataset", dataset.ErrDatasetNotFound, http.StatusNotFound, "DATASET_NOT_FOUND"},
		{"queue full", operations.ErrQueueFull, http.StatusServiceUnavailable, "QUEUE_FULL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeReportService{startErr: tt.err}
			srv := newReportServer(t, svc)

			res, err := http.Post(srv.URL+"/datasets/"+uuid.New().String()+"/reports", "application/json", nil)
			require.NoError(t, err)

			require.Equal(t, tt.wantStatus, res.StatusCode)
			body := decodeBody(t, res)
			assert.Equal(t, tt.wantCode, body["error_code"])
		})
	}
}

func TestReportHandlerList(t *testing.T) {
	datasetID := uuid.New().String()
	job := pendingJob(datasetID)
	job.Status = operations.JobStatusCompleted
	svc := &fakeReportService{job: job}
	srv := newReportServer(t, svc)

	res, err := http.Get(srv.URL + "/reports?dataset_id=" + datasetID + "&status=completed&limit=10")
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody(t, res)
	assert.Equal(t, float64(1), body["count"])

	assert.Equal(t, datasetID, svc.lastFilter.DatasetID)
	assert.Equal(t, operations.JobStatusCompleted, svc.lastFilter.Status)
	assert.Equal(t, 10, svc.lastFilter.Limit)
}

func TestReportHandlerListBadFilters(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"dataset id not a uuid", "?dataset_id=sales.csv"},
		{"unknown status", "?status=done"},
		{"limit out of range", "?limit=10000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeReportService{}
			srv := newReportServer(t, svc)

			res, err := http.Get(srv.URL + "/reports" + tt.query)
			require.NoError(t, err)

			require.Equal(t, http.StatusBadRequest, res.StatusCode)
			assert.Equal(t, "VALIDATION_FAILED", decodeBody(t, res)["error_code"])
		})
	}
}

func TestReportHandlerStatus(t *testing.T) {
	job := pendingJob(uuid.New().String())
	job.Status = operations.JobStatusRunning
	job.Progress = 45
	svc := &fakeReportService{job: job}
	srv := newReportServer(t, svc)

	res, err := http.Get(srv.URL + "/reports/" + job.ID)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	data := decodeBody(t, res)["data"].(map[string]interface{})
	assert.Equal(t, string(operations.JobStatusRunning), data["status"])
	assert.Equal(t, float64(45), data["progress"])
	assert.Equal(t, job.ID, svc.lastJobID)
}

func TestReportHandlerStatusUnknownJob(t *testing.T) {
	svc := &fakeReportService{statusErr: operations.ErrJobNotFound}
	srv := newReportServer(t, svc)

	res, err := http.Get(srv.URL + "/reports/" + uuid.New().String())
	require.NoError(t, err)

	require.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "JOB_NOT_FOUND", decodeBody(t, res)["error_code"])
}

func TestReportHandlerMalformedJobID(t *testing.T) {
	svc := &fakeReportService{}
	srv := newReportServer(t, svc)

	res, err := http.Get(srv.URL + "/reports/latest")
	require.NoError(t, err)

	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", decodeBody(t, res)["error_code"])
	assert.Empty(t, svc.lastJobID, "service should not be called")
}

func TestReportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales_report.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("workbook-bytes"), 0o644))

	svc := &fakeReportService{artifact: path}
	srv := newReportServer(t, svc)

	res, err := http.Get(srv.URL + "/reports/" + uuid.New().String() + "/download")
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Disposition"), "sales_report.xlsx")
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		res.Header.Get("Content-Type"))

	payload, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "workbook-bytes", string(payload))
}

func TestReportHandlerDownloadErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unknown job", operations.ErrJobNotFound, http.StatusNotFound, "JOB_NOT_FOUND"},
		{"still running", services.ErrReportNotReady, http.StatusConflict, "REPORT_NOT_READY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeReportService{artifactErr: tt.err}
			srv := newReportServer(t, svc)

			res, err := http.Get(srv.URL + "/reports/" + uuid.New().String() + "/download")
			require.NoError(t, err)

			require.Equal(t, tt.wantStatus, res.StatusCode)
			assert.Equal(t, tt.wantCode, decodeBody(t, res)["error_code"])
		})
	}
}
