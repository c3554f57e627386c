package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLoggerCapturesEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	Infof("[Worker] 已接收任务: %d", 3)
	Warnw("candidate source degraded", "source", "text")
	Error("批处理失败", errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "[Worker] 已接收任务: 3", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "text", entries[1].ContextMap()["source"])
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
}

func TestInitFallsBackToInfoLevel(t *testing.T) {
	Init("nonsense", "json", "")
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	assert.False(t, sugar.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, sugar.Desugar().Core().Enabled(zapcore.InfoLevel))
}
