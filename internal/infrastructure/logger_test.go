package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/config"
)

// TestInitializeLogger tests logger creation from configuration
func TestInitializeLogger(t *testing.T) {
	t.Run("Console JSON logger", func(t *testing.T) {
		ResetLoggerForTesting()
		defer ResetLoggerForTesting()

		logger, err := InitializeLogger(config.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "console",
		})
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.Same(t, logger, GetLogger())
	})

	t.Run("File output creates log file", func(t *testing.T) {
		ResetLoggerForTesting()
		defer ResetLoggerForTesting()

		logPath := filepath.Join(t.TempDir(), "nested", "app.log")
		logger, err := InitializeLogger(config.LoggingConfig{
			Level:    "debug",
			Format:   "json",
			Output:   "file",
			FilePath: logPath,
		})
		require.NoError(t, err)

		logger.Info("hello", slog.String("k", "v"))
		require.NoError(t, CloseLogFile())

		data, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"hello"`)
	})

	t.Run("Initialization happens once", func(t *testing.T) {
		ResetLoggerForTesting()
		defer ResetLoggerForTesting()

		first, err := InitializeLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "console"})
		require.NoError(t, err)
		second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Format: "text", Output: "console"})
		require.NoError(t, err)
		assert.Same(t, first, second)
	})
}

// TestTraceHandler tests trace ID injection from context
func TestTraceHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := &traceHandler{Handler: slog.NewJSONHandler(&buf, nil)}
	logger := slog.New(handler)

	ctx := WithTraceID(context.Background(), "trace-123")
	logger.InfoContext(ctx, "with trace")
	logger.Info("without trace")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "trace-123", first["trace_id"])

	var second map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &second))
	_, present := second["trace_id"]
	assert.False(t, present)
}

// TestTraceIDContext tests trace ID context helpers
func TestTraceIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	ctx = EnsureTraceID(ctx)
	id := GetTraceID(ctx)
	assert.NotEmpty(t, id)

	// EnsureTraceID keeps an existing ID
	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)))

	ctx = WithTraceID(ctx, "explicit")
	assert.Equal(t, "explicit", GetTraceID(ctx))
}

// TestParseLogLevel tests level string parsing
func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("unknown"))
}

// TestLoggerFromContext tests context-aware logger retrieval
func TestLoggerFromContext(t *testing.T) {
	ctx := WithTraceID(context.Background(), "ctx-trace")
	logger := LoggerFromContext(ctx)
	assert.NotNil(t, logger)

	// Without a trace ID the global logger comes back unchanged
	assert.NotNil(t, LoggerFromContext(context.Background()))
}
