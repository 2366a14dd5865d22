package logger

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

func newBufferLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf, Level: level, Format: FormatJSON})
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_WritesFields(t *testing.T) {
	l, buf := newBufferLogger(LevelInfo)

	l.With(Component("grant")).Info("achievement granted",
		UserID("u1"),
		AchievementID("week_streak"),
		Err(errors.New("boom")),
	)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "achievement granted", lines[0]["message"])
	assert.Equal(t, "grant", lines[0]["component"])
	assert.Equal(t, "u1", lines[0]["user_id"])
	assert.Equal(t, "week_streak", lines[0]["achievement_id"])
	assert.Equal(t, "boom", lines[0]["error"])
}

func TestLogger_LevelFilter(t *testing.T) {
	l, buf := newBufferLogger(LevelWarn)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
	assert.False(t, l.Enabled(LevelInfo))
	assert.True(t, l.Enabled(LevelError))
}

func TestLogger_FatalExits(t *testing.T) {
	l, buf := newBufferLogger(LevelInfo)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatal("stop")

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "stop")
}

func TestContextPropagation(t *testing.T) {
	l, buf := newBufferLogger(LevelInfo)
	ctx := WithContext(context.Background(), l.With(CorrelationID("c-1")))

	FromContext(ctx).Info("hello")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "c-1", lines[0]["correlation_id"])
	assert.NotNil(t, FromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
	assert.Equal(t, "ERROR", LevelError.String())
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().With(UserID("u")).Error("nothing")
	})
}
