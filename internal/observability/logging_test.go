package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, buf *os.File) *Logger {
	t.Helper()
	return NewLogger(LogConfig{Level: "debug", Format: "json", Output: buf})
}

func TestLoggerRedactsSecrets(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	logger := newTestLogger(t, w)

	logger.Info(context.Background(), "fetched token", "api_key", "sk-ant-"+strings.Repeat("a", 96))
	require.NoError(t, w.Close())

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "[REDACTED]", record["api_key"])
}

func TestLoggerAttachesCorrelationID(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	logger := newTestLogger(t, w)

	ctx := WithCorrelationID(context.Background(), "corr-123")
	logger.Info(ctx, "event started")
	require.NoError(t, w.Close())

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "corr-123", record["correlation_id"])
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "abc")
	require.Equal(t, "abc", CorrelationID(ctx))
	require.Equal(t, "", CorrelationID(context.Background()))
}

func TestLogLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "warn": slog.LevelWarn, "error": slog.LevelError, "bogus": slog.LevelInfo}
	for level, want := range cases {
		require.Equal(t, want, LogLevelFromString(level))
	}
}
