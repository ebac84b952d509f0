package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/agent"
	"salespulse/internal/dataset"
	"salespulse/internal/services"
)

type fakeChatService struct {
	lastDatasetID string
	lastMessage   string
	err           error
}

func (f *fakeChatService) Chat(ctx context.Context, datasetID, message string) (*services.ChatResponse, error) {
	f.lastDatasetID = datasetID
	f.lastMessage = message
	if f.err != nil {
		return nil, f.err
	}
	return &services.ChatResponse{
		DatasetID: datasetID,
		Reply:     "Total sales come to 1,204,530 across 8,523 rows.",
		Steps: []agent.Step{
			{Tool: "describe_dataset", Input: `{"file_path":"sales.csv"}`, Output: "Summary statistics"},
		},
		Iterations: 2,
	}, nil
}

func newChatServer(t *testing.T, svc ChatServiceInterface) *httptest.Server {
	t.Helper()
	h := NewChatHandler(svc, testLogger(), testErrorHandler())
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postChat(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	res, err := http.Post(srv.URL+"/", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return res
}

func TestChatHandlerSuccess(t *testing.T) {
	svc := &fakeChatService{}
	srv := newChatServer(t, svc)

	id := uuid.New().String()
	res := postChat(t, srv, `{"dataset_id":"`+id+`","message":"what are total sales?"}`)

	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody(t, res)
	assert.Equal(t, "success", body["status"])

	data := body["data"].(map[string]interface{})
	assert.Equal(t, id, data["dataset_id"])
	assert.Contains(t, data["reply"], "1,204,530")
	assert.Equal(t, float64(2), data["iterations"])

	steps := data["steps"].([]interface{})
	require.Len(t, steps, 1)
	assert.Equal(t, "describe_dataset", steps[0].(map[string]interface{})["tool"])

	assert.Equal(t, id, svc.lastDatasetID)
	assert.Equal(t, "what are total sales?", svc.lastMessage)
}

func TestChatHandlerMalformedJSON(t *testing.T) {
	svc := &fakeChatService{}
	srv := newChatServer(t, svc)

	res := postChat(t, srv, `{"dataset_id": `)

	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	body := decodeBody(t, res)
	assert.Equal(t, "INVALID_REQUEST", body["error_code"])
	assert.Empty(t, svc.lastDatasetID, "service should not be called")
}

func TestChatHandlerValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing message", `{"dataset_id":"` + uuid.New().String() + `"}`},
		{"missing dataset id", `{"message":"hello"}`},
		{"dataset id not a uuid", `{"dataset_id":"sales.csv","message":"hello"}`},
		{"message too long", `{"dataset_id":"` + uuid.New().String() + `","message":"` + strings.Repeat("a", 4001) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeChatService{}
			srv := newChatServer(t, svc)

			res := postChat(t, srv, tt.body)

			require.Equal(t, http.StatusBadRequest, res.StatusCode)
			body := decodeBody(t, res)
			assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
			assert.Empty(t, svc.lastDatasetID, "service should not be called")
		})
	}
}

func TestChatHandlerDatasetNotFound(t *testing.T) {
	svc := &fakeChatService{err: dataset.ErrDatasetNotFound}
	srv := newChatServer(t, svc)

	res := postChat(t, srv, `{"dataset_id":"`+uuid.New().String()+`","message":"hello"}`)

	require.Equal(t, http.StatusNotFound, res.StatusCode)
	body := decodeBody(t, res)
	assert.Equal(t, "DATASET_NOT_FOUND", body["error_code"])
}

func TestChatHandlerModelFailure(t *testing.T) {
	svc := &fakeChatService{err: errors.New("ollama: connection refused")}
	srv := newChatServer(t, svc)

	res := postChat(t, srv, `{"dataset_id":"`+uuid.New().String()+`","message":"hello"}`)

	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	body := decodeBody(t, res)
	assert.Equal(t, "MODEL_UNAVAILABLE", body["error_code"])
	assert.Contains(t, body["details"], "connection refused")
}
