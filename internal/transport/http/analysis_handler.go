package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"salespulse/internal/analysis"
	"salespulse/internal/chart"
	"salespulse/internal/dataset"
	apierrors "salespulse/internal/errors"
)

// AnalysisHandler handles the direct analysis endpoints, mounted under
// /api/datasets/{datasetID}/analysis
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates an analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the analysis routes relative to one dataset
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/describe", h.Describe)
	r.Post("/outliers", h.Outliers)
	r.Post("/correlations", h.Correlations)
	r.Post("/trend", h.Trend)

	return r
}

// Describe handles POST .../analysis/describe
func (h *AnalysisHandler) Describe(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.RunDescribe(r.Context(), datasetIDFromRequest(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, analysisProblem(err))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   resp,
	})
}

// Outliers handles POST .../analysis/outliers
func (h *AnalysisHandler) Outliers(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.RunOutliers(r.Context(), datasetIDFromRequest(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, analysisProblem(err))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   resp,
	})
}

// Correlations handles POST .../analysis/correlations
func (h *AnalysisHandler) Correlations(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.RunCorrelations(r.Context(), datasetIDFromRequest(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, analysisProblem(err))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   resp,
	})
}

// Trend handles POST .../analysis/trend
func (h *AnalysisHandler) Trend(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.RenderTrend(r.Context(), datasetIDFromRequest(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, analysisProblem(err))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   resp,
	})
}

// analysisProblem maps analysis failures to API errors. Data-shape
// problems carry the narrated text at 422 so the UI can show it verbatim.
func analysisProblem(err error) error {
	switch {
	case errors.Is(err, dataset.ErrDatasetNotFound):
		return apierrors.ErrDatasetNotFound
	case errors.Is(err, analysis.ErrNoNumericColumns),
		errors.Is(err, analysis.ErrNoSalesValues),
		errors.Is(err, dataset.ErrSalesColumnNotFound),
		errors.Is(err, dataset.ErrYearColumnNotFound),
		errors.Is(err, dataset.ErrEmptyFile),
		errors.Is(err, dataset.ErrBadEncoding),
		errors.Is(err, chart.ErrNoTrendData):
		return apierrors.DatasetError(err)
	default:
		return apierrors.AnalysisError(err)
	}
}
