package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextValuesAccumulate(t *testing.T) {
	ctx := WithBuildID(t.Context(), "build-1")
	ctx = WithMode(ctx, "production")
	ctx = WithStage(ctx, "link")

	lc := GetContext(ctx)
	require.Equal(t, "build-1", lc.BuildID)
	require.Equal(t, "production", lc.Mode)
	require.Equal(t, "link", lc.Stage)

	// A later stage replaces the earlier one without touching other fields.
	ctx = WithStage(ctx, "emit")
	lc = GetContext(ctx)
	require.Equal(t, "emit", lc.Stage)
	require.Equal(t, "build-1", lc.BuildID)
}

func TestLoggerFallsBackToDefault(t *testing.T) {
	require.Same(t, slog.Default(), Logger(t.Context()))
}

func TestInfoContextWritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithLogger(t.Context(), logger)
	ctx = WithBuildID(ctx, "b-42")
	ctx = WithStage(ctx, "walk")

	InfoContext(ctx, "walking", slog.Int("count", 3))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "walking", rec["msg"])
	require.Equal(t, "b-42", rec["build_id"])
	require.Equal(t, "walk", rec["stage"])
	require.InDelta(t, 3, rec["count"], 0)
	require.NotContains(t, rec, "mode")
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := WithLogger(t.Context(), logger)

	DebugContext(ctx, "debug")
	InfoContext(ctx, "info")
	require.Empty(t, buf.String())

	WarnContext(ctx, "warn")
	ErrorContext(ctx, "error")
	require.Contains(t, buf.String(), "level=WARN msg=warn")
	require.Contains(t, buf.String(), "level=ERROR msg=error")
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(t.Context(), slog.New(slog.NewTextHandler(&buf, nil)))
	ctx = WithBuildID(ctx, "b-7")

	ContextLogger(ctx).Info("hello")
	require.Contains(t, buf.String(), "build_id=b-7")
}
