package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"salespulse/internal/agent"
	"salespulse/internal/config"
	"salespulse/internal/dataset"
)

type fakeRunner struct {
	history []llms.MessageContent
	result  *agent.RunResult
	err     error
	calls   int
}

func (f *fakeRunner) Run(_ context.Context, history []llms.MessageContent) (*agent.RunResult, error) {
	f.calls++
	f.history = history
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.Messages = append(append([]llms.MessageContent{}, history...),
		llms.TextParts(llms.ChatMessageTypeAI, res.Final))
	return &res, nil
}

func messageText(t *testing.T, msg llms.MessageContent) string {
	t.Helper()
	require.NotEmpty(t, msg.Parts)
	text, ok := msg.Parts[0].(llms.TextContent)
	require.True(t, ok, "expected a text part")
	return text.Text
}

func newChatFixture(t *testing.T) (*ChatService, *fakeRunner, *dataset.Dataset) {
	t.Helper()

	store := dataset.NewStore()
	record := &dataset.Dataset{
		ID:           uuid.New().String(),
		OriginalName: "sales.csv",
		StoredPath:   filepath.Join(t.TempDir(), "f3a1_sales.csv"),
		UploadedAt:   time.Now(),
	}
	store.Put(record)

	runner := &fakeRunner{result: &agent.RunResult{
		Final: "Mean sales are about 1200.",
		Steps: []agent.Step{
			{Tool: "describe_data", Input: "f3a1_sales.csv", Output: "count 3 ..."},
		},
		Iterations: 2,
	}}

	return NewChatServiceWithLogger(store, runner, nil, testLogger()), runner, record
}

func TestChatServiceChat(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds system and user messages", func(t *testing.T) {
		svc, runner, record := newChatFixture(t)

		resp, err := svc.Chat(ctx, record.ID, "What is the average sales figure?")
		require.NoError(t, err)

		assert.Equal(t, record.ID, resp.DatasetID)
		assert.Equal(t, "Mean sales are about 1200.", resp.Reply)
		assert.Equal(t, 2, resp.Iterations)
		require.Len(t, resp.Steps, 1)
		assert.Equal(t, "describe_data", resp.Steps[0].Tool)

		require.Len(t, runner.history, 2)
		assert.Equal(t, llms.ChatMessageTypeSystem, runner.history[0].Role)
		system := messageText(t, runner.history[0])
		assert.Contains(t, system, "sales.csv")
		assert.Contains(t, system, "f3a1_sales.csv")

		assert.Equal(t, llms.ChatMessageTypeHuman, runner.history[1].Role)
		assert.Equal(t, "What is the average sales figure?", messageText(t, runner.history[1]))
	})

	t.Run("unknown dataset never reaches the model", func(t *testing.T) {
		svc, runner, _ := newChatFixture(t)

		_, err := svc.Chat(ctx, uuid.New().String(), "hello")
		assert.ErrorIs(t, err, dataset.ErrDatasetNotFound)
		assert.Zero(t, runner.calls)
	})

	t.Run("runner errors propagate", func(t *testing.T) {
		svc, runner, record := newChatFixture(t)
		runner.err = errors.New("connection refused")

		_, err := svc.Chat(ctx, record.ID, "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("remembers earlier turns", func(t *testing.T) {
		svc, runner, record := newChatFixture(t)

		_, err := svc.Chat(ctx, record.ID, "What is the average?")
		require.NoError(t, err)
		_, err = svc.Chat(ctx, record.ID, "And the maximum?")
		require.NoError(t, err)

		// system, first question, first answer, second question
		require.Len(t, runner.history, 4)
		assert.Equal(t, llms.ChatMessageTypeSystem, runner.history[0].Role)
		assert.Equal(t, "What is the average?", messageText(t, runner.history[1]))
		assert.Equal(t, llms.ChatMessageTypeAI, runner.history[2].Role)
		assert.Equal(t, "And the maximum?", messageText(t, runner.history[3]))
	})

	t.Run("failed runs leave the conversation untouched", func(t *testing.T) {
		svc, runner, record := newChatFixture(t)

		_, err := svc.Chat(ctx, record.ID, "first")
		require.NoError(t, err)

		runner.err = errors.New("connection refused")
		_, err = svc.Chat(ctx, record.ID, "second")
		require.Error(t, err)

		runner.err = nil
		_, err = svc.Chat(ctx, record.ID, "third")
		require.NoError(t, err)
		require.Len(t, runner.history, 4)
		assert.Equal(t, "third", messageText(t, runner.history[3]))
	})

	t.Run("caps the stored conversation", func(t *testing.T) {
		svc, runner, record := newChatFixture(t)

		turns := config.MaxChatHistoryMessages/2 + 5
		for i := 0; i < turns; i++ {
			_, err := svc.Chat(ctx, record.ID, "again")
			require.NoError(t, err)
		}

		_, err := svc.Chat(ctx, record.ID, "final")
		require.NoError(t, err)

		// system + capped history + the new question
		assert.Len(t, runner.history, config.MaxChatHistoryMessages+2)
		assert.Equal(t, llms.ChatMessageTypeHuman, runner.history[1].Role)
	})

	t.Run("forget starts the conversation over", func(t *testing.T) {
		svc, runner, record := newChatFixture(t)

		_, err := svc.Chat(ctx, record.ID, "first")
		require.NoError(t, err)

		svc.Forget(record.ID)

		_, err = svc.Chat(ctx, record.ID, "fresh start")
		require.NoError(t, err)
		require.Len(t, runner.history, 2)
		assert.Equal(t, "fresh start", messageText(t, runner.history[1]))
	})
}
