package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"salespulse/internal/dataset"
	apierrors "salespulse/internal/errors"
	"salespulse/internal/middleware"
	"salespulse/internal/services"
)

// ChatHandler handles the agent-backed chat endpoint
type ChatHandler struct {
	service      ChatServiceInterface
	validate     *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewChatHandler creates a chat handler
func NewChatHandler(service ChatServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ChatHandler {
	return &ChatHandler{
		service:      service,
		validate:     middleware.NewValidator(),
		logger:       logger.With(slog.String("component", "chat_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the chat routes
func (h *ChatHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/", h.Chat)
	return r
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req services.ChatRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, validationProblem(err))
		return
	}

	h.logger.InfoContext(r.Context(), "chat request",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("dataset_id", req.DatasetID),
		slog.Int("message_len", len(req.Message)))

	resp, err := h.service.Chat(r.Context(), req.DatasetID, req.Message)
	if err != nil {
		h.errorHandler.HandleError(w, r, chatProblem(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   resp,
	})
}

// chatProblem maps chat failures to API errors. Typed errors from the
// agent pass through, anything else is treated as a model-side failure.
func chatProblem(err error) error {
	var appErr *apierrors.AppError
	switch {
	case errors.Is(err, dataset.ErrDatasetNotFound):
		return apierrors.ErrDatasetNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	case errors.As(err, &appErr):
		return err
	default:
		return apierrors.ModelError(err)
	}
}

// validationProblem converts validator output to a field-level API error
func validationProblem(err error) error {
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return apierrors.InvalidRequestWithError(err)
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make([]apierrors.ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, apierrors.ValidationError{
				Field:   fe.Field(),
				Message: middleware.FormatFieldError(fe),
			})
		}
		return apierrors.NewValidationErrors(details)
	}

	return apierrors.InvalidRequestWithError(err)
}
