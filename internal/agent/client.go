package agent

import (
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms/ollama"

	"salespulse/internal/config"
	apierrors "salespulse/internal/errors"
)

// NewClient builds the Ollama chat client from configuration. The returned
// client satisfies ContentGenerator.
func NewClient(cfg config.OllamaConfig) (*ollama.LLM, error) {
	client, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
		ollama.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, describeModelError(err, cfg)
	}
	return client, nil
}

// describeModelError rewraps a client or generation failure with the
// actionable hint users need most often.
func describeModelError(err error, cfg config.OllamaConfig) error {
	msg := fmt.Sprintf("model %q at %s is unavailable (make sure Ollama is running and the model is pulled: ollama pull %s)",
		cfg.Model, cfg.BaseURL, cfg.Model)
	return apierrors.NewModelError(msg, err)
}
