package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	"salespulse/internal/config"
)

// ContentGenerator is the slice of the langchaingo model interface the
// executor needs. *ollama.LLM satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Step records one executed tool call, in execution order.
type Step struct {
	Tool   string `json:"tool"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// RunResult is the outcome of one agent run.
type RunResult struct {
	Final      string                `json:"final"`
	Steps      []Step                `json:"steps"`
	Iterations int                   `json:"iterations"`
	Messages   []llms.MessageContent `json:"-"`
}

// Executor drives the agent loop: generate a reply, execute its tool calls,
// feed the outputs back, repeat until the model answers without tools.
type Executor struct {
	llm           ContentGenerator
	tools         map[string]tools.Tool
	definitions   []llms.Tool
	cfg           config.OllamaConfig
	logger        *slog.Logger
	maxIterations int
}

// NewExecutor binds the given tools to the model.
func NewExecutor(llm ContentGenerator, toolset []tools.Tool, cfg config.OllamaConfig, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]tools.Tool, len(toolset))
	for _, t := range toolset {
		byName[t.Name()] = t
	}
	return &Executor{
		llm:           llm,
		tools:         byName,
		definitions:   toolDefinitions(toolset),
		cfg:           cfg,
		logger:        logger,
		maxIterations: config.MaxAgentIterations,
	}
}

// Run executes the loop over the given message history and returns the
// result together with the extended history. The input slice is not mutated.
func (e *Executor) Run(ctx context.Context, history []llms.MessageContent) (*RunResult, error) {
	msgs := make([]llms.MessageContent, len(history))
	copy(msgs, history)

	result := &RunResult{}
	for iteration := 1; iteration <= e.maxIterations; iteration++ {
		result.Iterations = iteration

		resp, err := e.llm.GenerateContent(ctx, msgs,
			llms.WithTemperature(e.cfg.Temperature),
			llms.WithMaxTokens(e.cfg.NumPredict),
			llms.WithTools(e.definitions),
		)
		if err != nil {
			return nil, describeModelError(err, e.cfg)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("model returned an empty response")
		}
		choice := resp.Choices[0]

		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			assistant.Parts = append(assistant.Parts, llms.TextContent{Text: choice.Content})
		}
		for _, tc := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, tc)
		}
		msgs = append(msgs, assistant)

		if len(choice.ToolCalls) == 0 {
			result.Final = choice.Content
			result.Messages = msgs
			return result, nil
		}

		for _, tc := range choice.ToolCalls {
			name, input, output := e.executeToolCall(ctx, tc)
			result.Steps = append(result.Steps, Step{Tool: name, Input: input, Output: output})
			msgs = append(msgs, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       name,
					Content:    output,
				}},
			})
		}
	}

	result.Final = fmt.Sprintf("Stopped after %d tool-calling rounds without a final answer. "+
		"The tool results gathered so far are part of the conversation.", e.maxIterations)
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeAI, result.Final))
	result.Messages = msgs
	return result, nil
}

func (e *Executor) executeToolCall(ctx context.Context, tc llms.ToolCall) (name, input, output string) {
	if tc.FunctionCall == nil {
		return "", "", "Error: malformed tool call without a function"
	}
	name = tc.FunctionCall.Name
	input = parseToolInput(tc.FunctionCall.Arguments)

	tool, ok := e.tools[name]
	if !ok {
		e.logger.WarnContext(ctx, "model requested unknown tool", "tool", name)
		return name, input, fmt.Sprintf("Error: unknown tool %q", name)
	}

	out, err := e.runTool(ctx, tool, input)
	if err != nil {
		out = "Error: " + err.Error()
	}
	e.logger.DebugContext(ctx, "tool executed",
		"tool", name,
		"input", input,
		"output_bytes", len(out),
	)
	return name, input, out
}

// runTool invokes the tool with panic recovery, so a crashing tool becomes
// an error result the model can see instead of taking the request down.
func (e *Executor) runTool(ctx context.Context, tool tools.Tool, input string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return tool.Call(ctx, input)
}

// parseToolInput extracts the query argument from the JSON the model sends.
// Anything unparsable is passed through verbatim so a model that answers
// with a bare path still works.
func parseToolInput(arguments string) string {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err == nil && args.Query != "" {
		return args.Query
	}
	var bare string
	if err := json.Unmarshal([]byte(arguments), &bare); err == nil && bare != "" {
		return bare
	}
	return strings.TrimSpace(arguments)
}

// toolDefinitions renders the tool list in the function-call schema the
// model is prompted with. Every tool takes the single string argument query.
func toolDefinitions(toolset []tools.Tool) []llms.Tool {
	defs := make([]llms.Tool, 0, len(toolset))
	for _, t := range toolset {
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{
							"type":        "string",
							"description": "Path to the CSV file",
						},
					},
					"required": []string{"query"},
				},
			},
		})
	}
	return defs
}
