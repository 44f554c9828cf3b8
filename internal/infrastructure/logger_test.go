package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
)

// readLogLines closes the log file and returns its JSON records.
func readLogLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func fileLogger(t *testing.T, level string) (*slog.Logger, string) {
	t.Helper()
	ResetLoggerForTesting()
	prev := slog.Default()
	t.Cleanup(func() {
		ResetLoggerForTesting()
		slog.SetDefault(prev)
	})

	path := filepath.Join(t.TempDir(), "logs", "archive.log")
	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    level,
		Format:   "json",
		Output:   "file",
		FilePath: path,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	return logger, path
}

func TestInitializeLoggerWritesJSONFile(t *testing.T) {
	logger, path := fileLogger(t, "info")

	logger.Info("Snapshot reloaded", slog.Int("records", 42))

	lines := readLogLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, "Snapshot reloaded", lines[0]["msg"])
	assert.Equal(t, float64(42), lines[0]["records"])
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.NotContains(t, lines[0], "source", "source is development only")
	assert.Same(t, logger, slog.Default())
}

func TestInitializeLoggerRunsOnce(t *testing.T) {
	first, _ := fileLogger(t, "info")

	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "console"})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestInitializeLoggerBadFilePath(t *testing.T) {
	ResetLoggerForTesting()
	t.Cleanup(ResetLoggerForTesting)

	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := InitializeLogger(config.LoggingConfig{Output: "file", FilePath: filepath.Join(blocker, "archive.log")})
	assert.Error(t, err)
}

func TestTraceIDInjection(t *testing.T) {
	logger, path := fileLogger(t, "debug")

	ctx := WithTraceID(context.Background(), "cli-run-123")
	logger.InfoContext(ctx, "Extraction written")
	logger.Info("no context")

	lines := readLogLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "cli-run-123", lines[0]["trace_id"])
	assert.NotContains(t, lines[1], "trace_id")
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level   string
		wantMin slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"chatty", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.wantMin, parseLogLevel(tt.level))

			logger, path := fileLogger(t, tt.level)
			logger.Debug("debug line")
			logger.Info("info line")
			logger.Warn("warn line")
			logger.Error("error line")

			for _, line := range readLogLines(t, path) {
				var lvl slog.Level
				require.NoError(t, lvl.UnmarshalText([]byte(line["level"].(string))))
				assert.GreaterOrEqual(t, lvl, tt.wantMin)
			}
		})
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	h := &traceHandler{Handler: slog.NewTextHandler(&buf, nil)}

	slog.New(h).InfoContext(WithTraceID(context.Background(), "abc"), "Student searched", "matched_rows", 2)

	out := buf.String()
	assert.Contains(t, out, `msg="Student searched"`)
	assert.Contains(t, out, "matched_rows=2")
	assert.Contains(t, out, "trace_id=abc")
}

func TestTraceIDHelpers(t *testing.T) {
	ctx := ContextWithTraceID(context.Background())
	traceID := GetTraceID(ctx)
	assert.NotEmpty(t, traceID)

	assert.Equal(t, traceID, GetTraceID(EnsureTraceID(ctx)), "existing ID kept")
	assert.NotEmpty(t, GetTraceID(EnsureTraceID(context.Background())))
	assert.NotEqual(t, GenerateTraceID(), GenerateTraceID())
}

func TestLoggerHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	WithComponent(logger, "ingest").Info("Extractions loaded")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ingest", entry["component"])

	buf.Reset()
	WithError(logger, os.ErrNotExist).Warn("File watcher unavailable")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry["error"], "file does not exist")

	assert.Same(t, logger, WithError(logger, nil))
}
