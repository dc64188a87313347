package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newBufferedSlog(t *testing.T) (ServiceLogger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: LevelTrace})
	return NewSlogServiceLogger(slog.New(handler)), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestSlogServiceLoggerLevels(t *testing.T) {
	logger, buf := newBufferedSlog(t)

	logger.Trace("t", nil)
	logger.Debug("d", LogFields{"k": "v"})
	logger.Info("i", nil)
	logger.Warn("w", LogFields{"field": "cloudEvents_source"})
	logger.Error("e", errors.New("boom"), nil)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 5)
	assert.Equal(t, "DEBUG-4", lines[0]["level"])
	assert.Equal(t, "DEBUG", lines[1]["level"])
	assert.Equal(t, "v", lines[1]["k"])
	assert.Equal(t, "INFO", lines[2]["level"])
	assert.Equal(t, "WARN", lines[3]["level"])
	assert.Equal(t, "cloudEvents_source", lines[3]["field"])
	assert.Equal(t, "ERROR", lines[4]["level"])
	assert.Equal(t, "boom", lines[4]["error"])
}

func TestSlogServiceLoggerWith(t *testing.T) {
	logger, buf := newBufferedSlog(t)

	assert.Same(t, logger, logger.With(nil))

	child := logger.With(LogFields{"subscription": "orders"})
	child.Info("child", nil)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "orders", lines[0]["subscription"])
}

func TestSlogServiceLoggerErrorWithoutErr(t *testing.T) {
	logger, buf := newBufferedSlog(t)
	logger.Error("no error", nil, nil)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["error"]
	assert.False(t, ok)
}

func TestZapServiceLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapServiceLogger(zap.New(core))

	logger.Trace("t", nil)
	logger.Debug("d", nil)
	logger.Info("i", LogFields{"k": 1})
	logger.Warn("w", nil)
	logger.With(LogFields{"child": "yes"}).Error("e", errors.New("boom"), nil)

	entries := logs.AllUntimed()
	require.Len(t, entries, 5)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
	assert.EqualValues(t, 1, entries[2].ContextMap()["k"])
	assert.Equal(t, zapcore.WarnLevel, entries[3].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[4].Level)
	assert.Equal(t, "yes", entries[4].ContextMap()["child"])
	assert.Equal(t, "boom", entries[4].ContextMap()["error"])
}

func TestConstructorsPanicOnNil(t *testing.T) {
	assert.Panics(t, func() { NewSlogServiceLogger(nil) })
	assert.Panics(t, func() { NewZapServiceLogger(nil) })
	assert.Panics(t, func() { NewWatermillAdapter(nil) })
}

func TestWatermillAdapterDelegates(t *testing.T) {
	logger, buf := newBufferedSlog(t)
	adapter := NewWatermillAdapter(logger)

	adapter.Trace("trace", nil)
	adapter.Debug("dbg", watermill.LogFields{"k": "v"})
	adapter.Info("info", nil)
	adapter.Error("err", errors.New("boom"), nil)
	adapter.With(watermill.LogFields{"child": "yes"}).Info("child_info", nil)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 5)
	assert.Equal(t, "trace", lines[0]["msg"])
	assert.Equal(t, "v", lines[1]["k"])
	assert.Equal(t, "boom", lines[3]["error"])
	assert.Equal(t, "yes", lines[4]["child"])
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"trace":   LevelTrace,
		"TRACE":   LevelTrace,
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
