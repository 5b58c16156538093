package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel, format string) (*TalkyLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewLogger(&LoggerConfig{Level: level, Format: format, Output: buf}), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var records []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		record := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		records = append(records, record)
	}
	return records
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(LevelWarn, "json")
	ctx := context.Background()

	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, nil, "warn")
	logger.Error(ctx, errors.New("boom"), "error")

	records := decodeLines(t, buf)
	require.Len(t, records, 2)
	assert.Equal(t, "warn", records[0]["msg"])
	assert.Equal(t, "WARN", records[0]["level"])
	assert.Equal(t, "error", records[1]["msg"])
	assert.Equal(t, "boom", records[1]["error"])
}

func TestLoggerFieldsAndComponent(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug, "json")

	scoped := logger.WithComponent("server").With("base_dir", "/srv")
	scoped.Info(context.Background(), "started", "port", 3000, "dangling")

	records := decodeLines(t, buf)
	require.Len(t, records, 1)
	assert.Equal(t, "server", records[0]["component"])
	assert.Equal(t, "/srv", records[0]["base_dir"])
	assert.Equal(t, float64(3000), records[0]["port"])
	assert.NotContains(t, records[0], "dangling")
}

func TestLoggerWithDoesNotMutateParent(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo, "json")

	_ = logger.With("child", true)
	logger.Info(context.Background(), "parent")

	records := decodeLines(t, buf)
	require.Len(t, records, 1)
	assert.NotContains(t, records[0], "child")
}

func TestLoggerTextFormat(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo, "text")
	logger.Info(context.Background(), "hello", "key", "value")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "key=value")
}

func TestPerfLogger(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo, "json")
	ctx := context.Background()

	logger.StartOperation("GET /").End(ctx, "status", 200)
	StartOperation(logger, "GET /x").EndWithError(ctx, errors.New("nope"))

	records := decodeLines(t, buf)
	require.Len(t, records, 2)
	assert.Equal(t, "Operation completed", records[0]["msg"])
	assert.Equal(t, "GET /", records[0]["operation"])
	assert.Equal(t, float64(200), records[0]["status"])
	assert.Contains(t, records[0], "duration_ms")
	assert.Equal(t, "Operation failed", records[1]["msg"])
	assert.Equal(t, "nope", records[1]["error"])
}

func TestStdLogger(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo, "json")
	scoped := logger.WithComponent("http").(*TalkyLogger)

	scoped.StdLogger().Print("tls handshake error")

	records := decodeLines(t, buf)
	require.Len(t, records, 1)
	assert.Equal(t, "ERROR", records[0]["level"])
	assert.Equal(t, "http", records[0]["component"])
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Error(context.Background(), errors.New("x"), "discarded")
	})
}
