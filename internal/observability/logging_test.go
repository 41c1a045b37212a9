package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestContextAttributesAccumulate(t *testing.T) {
	ctx := WithBuildID(t.Context(), "b-1")
	ctx = WithProject(ctx, "core")
	ctx = WithTask(ctx, "compile:core:base")

	lc := GetContext(ctx)
	assert.Equal(t, LogContext{BuildID: "b-1", Project: "core", Task: "compile:core:base"}, lc)
	assert.Len(t, Attrs(ctx), 3)
	assert.Empty(t, Attrs(t.Context()))
}

func TestInfoContextWritesAttributes(t *testing.T) {
	buf := captureLogs(t)
	ctx := WithStage(WithBuildID(t.Context(), "b-2"), "docs")

	InfoContext(ctx, "Generated", slog.Int("modules", 3))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Generated", line["msg"])
	assert.Equal(t, "b-2", line["build_id"])
	assert.Equal(t, "docs", line["stage"])
	assert.EqualValues(t, 3, line["modules"])
}

func TestLevels(t *testing.T) {
	buf := captureLogs(t)
	ctx := WithTask(t.Context(), "assemble:api")

	DebugContext(ctx, "d")
	WarnContext(ctx, "w")
	ErrorContext(ctx, "e")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[1]), `"level":"WARN"`)
	assert.Contains(t, string(lines[2]), `"task":"assemble:api"`)
}
