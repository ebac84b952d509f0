package errors

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(includeStack bool) *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), includeStack)
}

func handle(t *testing.T, h *ErrorHandler, err error) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	h.HandleError(rec, req, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHandleErrorAPIError(t *testing.T) {
	rec, body := handle(t, newHandler(false), ErrDatasetNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, TypeDatasetNotFound, body["type"])
	assert.Equal(t, "Dataset not found", body["detail"])
	assert.Equal(t, "/api/test", body["instance"])
}

func TestHandleErrorAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"model", NewModelError("ollama is down", errors.New("connection refused")), http.StatusServiceUnavailable, TypeModelUnavailable},
		{"parsing", NewParsingError("bad header row", nil), http.StatusUnprocessableEntity, TypeDatasetInvalid},
		{"analysis", NewAnalysisError("no numeric columns", nil), http.StatusInternalServerError, TypeAnalysisFailed},
		{"not found", NewNotFoundError("dataset"), http.StatusNotFound, TypeNotFound},
		{"storage", NewStorageError("disk full", nil), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := handle(t, newHandler(false), tt.err)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantType, body["type"])
		})
	}
}

func TestHandleErrorWrappedAppError(t *testing.T) {
	// A typed error buried under plain wrapping still maps by type.
	wrapped := &wrapError{NewModelError("model gone", nil)}
	rec, body := handle(t, newHandler(false), wrapped)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, TypeModelUnavailable, body["type"])
}

type wrapError struct{ inner error }

func (w *wrapError) Error() string { return "wrapped: " + w.inner.Error() }
func (w *wrapError) Unwrap() error { return w.inner }

func TestHandleErrorTimeout(t *testing.T) {
	rec, body := handle(t, newHandler(false), context.DeadlineExceeded)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, TypeTimeout, body["type"])
}

func TestHandleErrorFallbacks(t *testing.T) {
	t.Run("not found text", func(t *testing.T) {
		rec, body := handle(t, newHandler(false), errors.New("chart file not found"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, TypeNotFound, body["type"])
	})

	t.Run("unknown error", func(t *testing.T) {
		rec, body := handle(t, newHandler(false), errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, TypeInternal, body["type"])
		// Internal detail stays generic in production
		assert.NotContains(t, body["detail"], "boom")
	})
}

func TestHandleErrorStack(t *testing.T) {
	_, body := handle(t, newHandler(true), errors.New("boom"))
	assert.Contains(t, body, "stack")

	_, body = handle(t, newHandler(false), errors.New("boom"))
	assert.NotContains(t, body, "stack")
}

func TestHandlePanic(t *testing.T) {
	h := newHandler(false)
	rec := httptest.NewRecorder()
	h.HandlePanic(rec, httptest.NewRequest(http.MethodGet, "/api/test", nil), "kaboom")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "An unexpected error occurred", body["detail"])
}
