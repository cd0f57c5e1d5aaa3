package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	// Initially empty.
	assert.Equal(t, "", SessionID(ctx))
	assert.Equal(t, "", GraphID(ctx))
	assert.Equal(t, "", RequestID(ctx))

	// Set values.
	ctx = WithSessionID(ctx, "sess-123")
	ctx = WithGraphID(ctx, "graph-1")
	ctx = WithRequestID(ctx, "req-42")

	// Round-trip.
	assert.Equal(t, "sess-123", SessionID(ctx))
	assert.Equal(t, "graph-1", GraphID(ctx))
	assert.Equal(t, "req-42", RequestID(ctx))
}

func TestLogWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := context.Background()
	ctx = WithSessionID(ctx, "sess-abc")
	ctx = WithGraphID(ctx, "graph-x")
	ctx = WithRequestID(ctx, "req-7")

	enriched := LogWith(ctx, logger)
	enriched.Info("test message")

	output := buf.String()
	assert.Contains(t, output, "session_id=sess-abc")
	assert.Contains(t, output, "graph_id=graph-x")
	assert.Contains(t, output, "request_id=req-7")
	assert.Contains(t, output, "test message")
}

func TestLogWithMissingKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Only the session ID is set; graph and request IDs must not appear.
	ctx := WithSessionID(context.Background(), "sess-only")

	enriched := LogWith(ctx, logger)
	enriched.Info("partial context")

	output := buf.String()
	assert.Contains(t, output, "session_id=sess-only")
	assert.NotContains(t, output, "graph_id")
	assert.NotContains(t, output, "request_id")
}

func TestLogWithEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// No correlation IDs, no extra attrs.
	enriched := LogWith(context.Background(), logger)
	enriched.Info("no context")

	output := buf.String()
	assert.NotContains(t, output, "session_id")
	assert.NotContains(t, output, "graph_id")
	assert.NotContains(t, output, "request_id")
	assert.Contains(t, output, "no context")
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner))

	ctx := WithRequestID(WithGraphID(WithSessionID(context.Background(), "sess-auto"), "graph-auto"), "req-auto")
	logger.InfoContext(ctx, "auto inject")

	output := buf.String()
	assert.Contains(t, output, `"session_id":"sess-auto"`)
	assert.Contains(t, output, `"graph_id":"graph-auto"`)
	assert.Contains(t, output, `"request_id":"req-auto"`)
	assert.Contains(t, output, "auto inject")
}

func TestCorrelationHandlerEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner))

	logger.InfoContext(context.Background(), "bare log")

	output := buf.String()
	assert.NotContains(t, output, "session_id")
	assert.NotContains(t, output, "graph_id")
	assert.NotContains(t, output, "request_id")
	assert.Contains(t, output, "bare log")
}

func TestCorrelationHandlerPartialContext(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner))

	ctx := WithSessionID(context.Background(), "sess-only")
	logger.InfoContext(ctx, "partial")

	output := buf.String()
	assert.Contains(t, output, `"session_id":"sess-only"`)
	assert.NotContains(t, output, "graph_id")
	assert.NotContains(t, output, "request_id")
}

func TestCorrelationHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	handler := NewCorrelationHandler(inner)
	logger := slog.New(handler.WithAttrs([]slog.Attr{slog.String("component", "resolver")}))

	ctx := WithSessionID(context.Background(), "sess-attr")
	logger.InfoContext(ctx, "with attrs")

	output := buf.String()
	assert.Contains(t, output, `"session_id":"sess-attr"`)
	assert.Contains(t, output, `"component":"resolver"`)
}

func TestCorrelationHandlerWithGroup(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	handler := NewCorrelationHandler(inner)
	logger := slog.New(handler.WithGroup("resolver"))

	ctx := WithSessionID(context.Background(), "sess-grp")
	logger.InfoContext(ctx, "grouped", "key", "val")

	output := buf.String()
	assert.Contains(t, output, "sess-grp")
	assert.Contains(t, output, "grouped")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "json")

	logger.DebugContext(WithSessionID(context.Background(), "sess-json"), "resolved")

	output := buf.String()
	assert.Contains(t, output, `"session_id":"sess-json"`)
	assert.Contains(t, output, `"level":"DEBUG"`)

	buf.Reset()
	text := NewLogger(&buf, "warn", "text")
	text.Info("dropped")
	assert.Empty(t, buf.String())
}
