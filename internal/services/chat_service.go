package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"

	"salespulse/internal/agent"
	"salespulse/internal/config"
	"salespulse/internal/dataset"
	"salespulse/internal/infrastructure"
)

// AgentRunner is the slice of the agent executor the chat service needs
type AgentRunner interface {
	Run(ctx context.Context, history []llms.MessageContent) (*agent.RunResult, error)
}

// ChatRequest is one user turn against a dataset
type ChatRequest struct {
	DatasetID string `json:"dataset_id" validate:"required,uuid4"`
	Message   string `json:"message" validate:"required,max=4000"`
}

// ChatResponse is the assistant's reply plus the tool trace that produced it
type ChatResponse struct {
	DatasetID  string       `json:"dataset_id"`
	Reply      string       `json:"reply"`
	Steps      []agent.Step `json:"steps"`
	Iterations int          `json:"iterations"`
}

// ChatService runs free-form questions through the tool-calling agent.
// It keeps the conversation per dataset so follow-up questions see the
// earlier turns and their tool results.
type ChatService struct {
	store   *dataset.Store
	runner  AgentRunner
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger

	mu      sync.Mutex
	history map[string][]llms.MessageContent
}

// NewChatService creates a chat service using the default logger
func NewChatService(store *dataset.Store, runner AgentRunner) *ChatService {
	return NewChatServiceWithLogger(store, runner, nil, slog.Default())
}

// NewChatServiceWithLogger creates a chat service with explicit
// observability dependencies. Metrics may be nil.
func NewChatServiceWithLogger(store *dataset.Store, runner AgentRunner, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		store:   store,
		runner:  runner,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "chat_service")),
		history: make(map[string][]llms.MessageContent),
	}
}

// Chat resolves the dataset, prepends a system message naming its file to
// the saved conversation, and runs the agent loop until the model answers.
// The extended history is kept for the next turn against the same dataset.
func (cs *ChatService) Chat(ctx context.Context, datasetID, message string) (*ChatResponse, error) {
	record, err := cs.store.Get(datasetID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	prior := cs.snapshot(datasetID)
	history := make([]llms.MessageContent, 0, len(prior)+2)
	history = append(history, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt(record)))
	history = append(history, prior...)
	history = append(history, llms.TextParts(llms.ChatMessageTypeHuman, message))

	result, err := cs.runner.Run(ctx, history)
	if err != nil {
		cs.logger.ErrorContext(ctx, "chat failed",
			slog.String("dataset_id", datasetID),
			slog.String("error", err.Error()))
		return nil, err
	}
	cs.remember(datasetID, result.Messages)

	infrastructure.RecordAgentRun(ctx, cs.metrics, result.Iterations, len(result.Steps))
	cs.logger.InfoContext(ctx, "chat completed",
		slog.String("dataset_id", datasetID),
		slog.Int("iterations", result.Iterations),
		slog.Int("tool_calls", len(result.Steps)),
		slog.Duration("duration", time.Since(start)))

	return &ChatResponse{
		DatasetID:  datasetID,
		Reply:      result.Final,
		Steps:      result.Steps,
		Iterations: result.Iterations,
	}, nil
}

// Forget drops the stored conversation for a dataset. Called when the
// dataset itself is deleted.
func (cs *ChatService) Forget(datasetID string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.history, datasetID)
}

// snapshot returns a copy of the saved conversation so the caller can
// extend it without holding the lock across the model call.
func (cs *ChatService) snapshot(datasetID string) []llms.MessageContent {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	saved := cs.history[datasetID]
	out := make([]llms.MessageContent, len(saved))
	copy(out, saved)
	return out
}

// remember stores the extended conversation without its system message,
// which is rebuilt from the dataset record on every turn.
func (cs *ChatService) remember(datasetID string, messages []llms.MessageContent) {
	if len(messages) == 0 {
		return
	}
	if messages[0].Role == llms.ChatMessageTypeSystem {
		messages = messages[1:]
	}
	messages = trimHistory(messages, config.MaxChatHistoryMessages)

	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.history[datasetID] = messages
}

// trimHistory drops the oldest messages once the conversation exceeds max,
// then advances to the next user turn so the kept slice never starts with
// an orphaned assistant or tool message.
func trimHistory(messages []llms.MessageContent, max int) []llms.MessageContent {
	if len(messages) > max {
		messages = messages[len(messages)-max:]
	}
	for i, msg := range messages {
		if msg.Role == llms.ChatMessageTypeHuman {
			return messages[i:]
		}
	}
	return nil
}

// systemPrompt tells the model which file the tools operate on. Tools
// resolve bare file names against the uploads directory, so the stored
// name is enough.
func systemPrompt(record *dataset.Dataset) string {
	return fmt.Sprintf("You are SalesPulse, an assistant that analyzes retail sales data with tools. "+
		"The user's dataset %q is stored as %q. Pass that stored name as the file path whenever a tool "+
		"asks for one. Base every answer on tool output and keep answers short and concrete.",
		record.OriginalName, filepath.Base(record.StoredPath))
}
