package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"salespulse/internal/dataset"
	apierrors "salespulse/internal/errors"
	"salespulse/internal/middleware"
	"salespulse/internal/operations"
	"salespulse/internal/services"
)

// ReportHandler handles asynchronous report job requests
type ReportHandler struct {
	service      ReportServiceInterface
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportHandler creates a report handler
func NewReportHandler(service ReportServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		service:      service,
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "report_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the /api/reports subtree. Report starts live under the
// dataset routes, see DatasetHandler.
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.List)

	r.Route("/{jobID}", func(r chi.Router) {
		r.Use(h.JobCtx)
		r.Get("/", h.Status)
		r.Get("/download", h.Download)
	})

	return r
}

// List handles GET /api/reports with optional dataset_id, status and
// limit query filters
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := h.query.ValidateUUID(w, r, "dataset_id")
	if !ok {
		return
	}
	status, ok := h.query.ValidateEnum(w, r, "status", []string{
		string(operations.JobStatusPending),
		string(operations.JobStatusRunning),
		string(operations.JobStatusCompleted),
		string(operations.JobStatusFailed),
	}, "")
	if !ok {
		return
	}
	limit, ok := h.query.ValidateInt(w, r, "limit", 1, 500, 100)
	if !ok {
		return
	}

	jobs, err := h.service.List(r.Context(), operations.JobFilter{
		DatasetID: datasetID,
		Status:    operations.JobStatus(status),
		Limit:     limit,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   jobs,
		"count":  len(jobs),
	})
}

// JobCtx validates the jobID URL parameter
func (h *ReportHandler) JobCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := uuid.Parse(chi.URLParam(r, "jobID")); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("jobID", "Job id must be a UUID"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start handles POST /api/datasets/{datasetID}/reports
func (h *ReportHandler) Start(w http.ResponseWriter, r *http.Request) {
	datasetID := datasetIDFromRequest(r)

	job, err := h.service.StartReport(r.Context(), datasetID)
	if err != nil {
		switch {
		case errors.Is(err, dataset.ErrDatasetNotFound):
			h.errorHandler.HandleError(w, r, apierrors.ErrDatasetNotFound)
		case errors.Is(err, operations.ErrQueueFull):
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusServiceUnavailable,
				"QUEUE_FULL",
				"The report queue is full, try again shortly",
			))
		default:
			h.errorHandler.HandleError(w, r, err)
		}
		return
	}

	h.logger.InfoContext(r.Context(), "report job accepted",
		slog.String("job_id", job.ID),
		slog.String("dataset_id", datasetID))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   job,
	})
}

// Status handles GET /api/reports/{jobID}
func (h *ReportHandler) Status(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.Status(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, operations.ErrJobNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.ErrJobNotFound)
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   job,
	})
}

// Download handles GET /api/reports/{jobID}/download
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	path, err := h.service.Artifact(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		switch {
		case errors.Is(err, operations.ErrJobNotFound):
			h.errorHandler.HandleError(w, r, apierrors.ErrJobNotFound)
		case errors.Is(err, services.ErrReportNotReady):
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusConflict,
				"REPORT_NOT_READY",
				err.Error(),
			))
		default:
			h.errorHandler.HandleError(w, r, err)
		}
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
}
