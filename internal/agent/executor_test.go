package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	"salespulse/internal/config"
)

type panickyTool struct{}

func (panickyTool) Name() string        { return "plot_trend" }
func (panickyTool) Description() string { return "renders the chart" }

func (panickyTool) Call(context.Context, string) (string, error) { panic("nil canvas") }

// fakeModel replays canned responses and records the message history of
// every generation call.
type fakeModel struct {
	responses []*llms.ContentResponse
	calls     [][]llms.MessageContent
	err       error
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	snapshot := make([]llms.MessageContent, len(messages))
	copy(snapshot, messages)
	f.calls = append(f.calls, snapshot)

	if f.err != nil {
		return nil, f.err
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

func toolCallResponse(id, name, arguments string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:           id,
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: name, Arguments: arguments},
		}},
	}}}
}

func newTestExecutor(t *testing.T, model ContentGenerator) *Executor {
	t.Helper()
	dir := t.TempDir()
	writeSampleCSV(t, dir)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewExecutor(model, NewToolbox(dir, dir).Tools(), config.Default().Ollama, logger)
}

func ask(question string) []llms.MessageContent {
	return []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, question)}
}

// TestExecutorRun tests the agent loop round trips
func TestExecutorRun(t *testing.T) {
	t.Run("Direct answer without tools", func(t *testing.T) {
		model := &fakeModel{responses: []*llms.ContentResponse{textResponse("Hello, upload a CSV to begin.")}}
		exec := newTestExecutor(t, model)

		result, err := exec.Run(context.Background(), ask("hi"))
		require.NoError(t, err)
		assert.Equal(t, "Hello, upload a CSV to begin.", result.Final)
		assert.Equal(t, 1, result.Iterations)
		assert.Empty(t, result.Steps)
		// human question plus the assistant reply
		assert.Len(t, result.Messages, 2)
	})

	t.Run("Tool call round trip", func(t *testing.T) {
		model := &fakeModel{responses: []*llms.ContentResponse{
			toolCallResponse("call_1", "load_csv", `{"query": "sales_data.csv"}`),
			textResponse("The file has 4 rows."),
		}}
		exec := newTestExecutor(t, model)

		result, err := exec.Run(context.Background(), ask("how many rows?"))
		require.NoError(t, err)
		assert.Equal(t, "The file has 4 rows.", result.Final)
		assert.Equal(t, 2, result.Iterations)

		require.Len(t, result.Steps, 1)
		assert.Equal(t, "load_csv", result.Steps[0].Tool)
		assert.Equal(t, "sales_data.csv", result.Steps[0].Input)
		assert.Contains(t, result.Steps[0].Output, "Loaded 4 rows")

		// human, assistant tool call, tool result, assistant answer
		require.Len(t, result.Messages, 4)
		assert.Equal(t, llms.ChatMessageTypeAI, result.Messages[1].Role)
		assert.Equal(t, llms.ChatMessageTypeTool, result.Messages[2].Role)

		toolPart, ok := result.Messages[2].Parts[0].(llms.ToolCallResponse)
		require.True(t, ok)
		assert.Equal(t, "call_1", toolPart.ToolCallID)
		assert.Equal(t, "load_csv", toolPart.Name)

		// The second generation call must see the tool output
		require.Len(t, model.calls, 2)
		assert.Len(t, model.calls[1], 3)
	})

	t.Run("Unknown tool becomes tool output", func(t *testing.T) {
		model := &fakeModel{responses: []*llms.ContentResponse{
			toolCallResponse("call_1", "drop_tables", `{"query": "x"}`),
			textResponse("Sorry, I cannot do that."),
		}}
		exec := newTestExecutor(t, model)

		result, err := exec.Run(context.Background(), ask("break things"))
		require.NoError(t, err)
		require.Len(t, result.Steps, 1)
		assert.Equal(t, `Error: unknown tool "drop_tables"`, result.Steps[0].Output)
		assert.Equal(t, "Sorry, I cannot do that.", result.Final)
	})

	t.Run("Tool failure becomes tool output", func(t *testing.T) {
		model := &fakeModel{responses: []*llms.ContentResponse{
			toolCallResponse("call_1", "load_csv", `{"query": "missing.csv"}`),
			textResponse("That file does not exist."),
		}}
		exec := newTestExecutor(t, model)

		result, err := exec.Run(context.Background(), ask("load missing.csv"))
		require.NoError(t, err)
		require.Len(t, result.Steps, 1)
		assert.Contains(t, result.Steps[0].Output, "Error: file not found")
	})

	t.Run("Tool panic becomes tool output", func(t *testing.T) {
		model := &fakeModel{responses: []*llms.ContentResponse{
			toolCallResponse("call_1", "plot_trend", `{"query": "sales_data.csv"}`),
			textResponse("The chart step crashed."),
		}}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		exec := NewExecutor(model, []tools.Tool{panickyTool{}}, config.Default().Ollama, logger)

		result, err := exec.Run(context.Background(), ask("plot the trend"))
		require.NoError(t, err)
		require.Len(t, result.Steps, 1)
		assert.Equal(t, "Error: tool panicked: nil canvas", result.Steps[0].Output)
		assert.Equal(t, "The chart step crashed.", result.Final)
	})

	t.Run("Iteration guard", func(t *testing.T) {
		// The canned response is repeated forever, so the guard has to stop the loop
		model := &fakeModel{responses: []*llms.ContentResponse{
			toolCallResponse("call_1", "load_csv", `{"query": "sales_data.csv"}`),
		}}
		exec := newTestExecutor(t, model)
		exec.maxIterations = 3

		result, err := exec.Run(context.Background(), ask("loop forever"))
		require.NoError(t, err)
		assert.Equal(t, 3, result.Iterations)
		assert.Len(t, result.Steps, 3)
		assert.Contains(t, result.Final, "Stopped after 3 tool-calling rounds")
	})

	t.Run("Model failure carries the pull hint", func(t *testing.T) {
		model := &fakeModel{err: errors.New("connection refused")}
		exec := newTestExecutor(t, model)

		_, err := exec.Run(context.Background(), ask("hi"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ollama pull llama3.1:8b")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("Input history is not mutated", func(t *testing.T) {
		model := &fakeModel{responses: []*llms.ContentResponse{textResponse("ok")}}
		exec := newTestExecutor(t, model)

		history := ask("hi")
		_, err := exec.Run(context.Background(), history)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})
}

// TestParseToolInput tests argument extraction from model output
func TestParseToolInput(t *testing.T) {
	assert.Equal(t, "sales.csv", parseToolInput(`{"query": "sales.csv"}`))
	assert.Equal(t, "sales.csv", parseToolInput(`"sales.csv"`))
	assert.Equal(t, "sales.csv", parseToolInput("  sales.csv  "))
	assert.Equal(t, `{"other": "x"}`, parseToolInput(`{"other": "x"}`))
}
