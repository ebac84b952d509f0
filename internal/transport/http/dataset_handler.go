package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"salespulse/internal/dataset"
	apierrors "salespulse/internal/errors"
	"salespulse/internal/middleware"
	"salespulse/internal/services"
)

// multipartOverhead is extra body allowance for multipart boundaries and
// form fields beyond the file itself.
const multipartOverhead = 1 << 20

type datasetCtxKey struct{}

// DatasetHandler handles dataset upload and lifecycle requests
type DatasetHandler struct {
	service        DatasetServiceInterface
	analysis       *AnalysisHandler
	reports        *ReportHandler
	maxUploadBytes int64
	uploadGuard    func(http.Handler) http.Handler
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewDatasetHandler creates a dataset handler. The analysis and report
// handlers serve the dataset-scoped subroutes.
func NewDatasetHandler(service DatasetServiceInterface, analysis *AnalysisHandler, reports *ReportHandler, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:        service,
		analysis:       analysis,
		reports:        reports,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "dataset_handler")),
		errorHandler:   errorHandler,
	}
}

// SetUploadGuard installs a middleware that wraps only the upload route,
// typically the per-client rate limiter. Must be called before Routes.
func (h *DatasetHandler) SetUploadGuard(guard func(http.Handler) http.Handler) {
	h.uploadGuard = guard
}

// Routes returns the full /api/datasets subtree
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	if h.uploadGuard != nil {
		r.With(h.uploadGuard).Post("/", h.Upload)
	} else {
		r.Post("/", h.Upload)
	}
	r.Get("/", h.List)

	r.Route("/{datasetID}", func(r chi.Router) {
		r.Use(h.DatasetCtx)
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Get("/preview", h.Preview)
		if h.analysis != nil {
			r.Mount("/analysis", h.analysis.Routes())
		}
		if h.reports != nil {
			r.Post("/reports", h.reports.Start)
		}
	})

	return r
}

// DatasetCtx validates the datasetID URL parameter and loads the record
// into the request context, so unknown ids 404 before any handler runs.
func (h *DatasetHandler) DatasetCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "datasetID")
		if _, err := uuid.Parse(id); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("datasetID", "Dataset id must be a UUID"))
			return
		}

		record, err := h.service.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, dataset.ErrDatasetNotFound) {
				h.errorHandler.HandleError(w, r, apierrors.ErrDatasetNotFound)
				return
			}
			h.errorHandler.HandleError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), datasetCtxKey{}, record)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// datasetFromContext returns the record DatasetCtx stored, or nil
func datasetFromContext(ctx context.Context) *dataset.Dataset {
	record, _ := ctx.Value(datasetCtxKey{}).(*dataset.Dataset)
	return record
}

// datasetIDFromRequest prefers the context record over the raw URL
// parameter, so mounted subrouters work with and without DatasetCtx
func datasetIDFromRequest(r *http.Request) string {
	if record := datasetFromContext(r.Context()); record != nil {
		return record.ID
	}
	return chi.URLParam(r, "datasetID")
}

// Upload handles POST /api/datasets
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", `A multipart file field named "file" is required`))
		return
	}
	defer file.Close()

	h.logger.InfoContext(r.Context(), "dataset upload received",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size))

	result, err := h.service.Upload(r.Context(), header.Filename, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, uploadProblem(err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
	})
}

// uploadProblem maps upload failures to API errors
func uploadProblem(err error) error {
	switch {
	case errors.Is(err, services.ErrUnsupportedExtension):
		return apierrors.ErrValidation("file", err.Error())
	case errors.Is(err, services.ErrFileTooLarge):
		return apierrors.ErrPayloadTooLarge
	case errors.Is(err, dataset.ErrEmptyFile),
		errors.Is(err, dataset.ErrBadEncoding),
		errors.Is(err, dataset.ErrInvalidPath):
		return apierrors.DatasetError(err)
	default:
		return err
	}
}

// List handles GET /api/datasets
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.service.List(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   datasets,
		"count":  len(datasets),
	})
}

// Get handles GET /api/datasets/{datasetID}
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   datasetFromContext(r.Context()),
	})
}

// Preview handles GET /api/datasets/{datasetID}/preview
func (h *DatasetHandler) Preview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.service.Preview(r.Context(), datasetIDFromRequest(r))
	if err != nil {
		if errors.Is(err, dataset.ErrDatasetNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.ErrDatasetNotFound)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("preview", err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   preview,
	})
}

// Delete handles DELETE /api/datasets/{datasetID}
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.Delete(r.Context(), datasetIDFromRequest(r))
	if err != nil {
		if errors.Is(err, dataset.ErrDatasetNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.ErrDatasetNotFound)
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset deleted",
		slog.String("dataset_id", removed.ID))

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   removed,
	})
}
