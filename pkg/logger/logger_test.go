package logger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.name))
		})
	}
}

func TestHelpersWriteStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Replace(zap.New(core))
	defer restore()

	LogPhase("partial-eval", "file", "a.yaml")
	LogPass("reindex-qubits", "fixups", 2)
	LogCompilerComplete("a.yaml", time.Now())

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "Phase started", entries[0].Message)
	assert.Equal(t, "partial-eval", entries[0].ContextMap()["phase"])
	assert.Equal(t, "a.yaml", entries[0].ContextMap()["file"])
	assert.Equal(t, int64(2), entries[1].ContextMap()["fixups"])
	assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
}

func TestLevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	restore := Replace(zap.New(core))
	defer restore()

	Debug("hidden")
	Info("hidden")
	Warn("shown")
	Error("shown too")

	assert.Equal(t, 2, logs.Len())
}

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{
		Level:   LevelDebug,
		Format:  "json",
		LogFile: filepath.Join(dir, "logs", "qirc.log"),
	})
	require.NoError(t, err)
	restore := Replace(l)
	defer restore()

	Info("hello")
	Sync()

	assert.FileExists(t, filepath.Join(dir, "logs", "qirc.log"))
}

func TestNamedAndWithCarryContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Replace(zap.New(core))
	defer restore()

	Named("compile").With("source", "a.yaml").Debugw("Loaded program tree")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "compile", entries[0].LoggerName)
	assert.Equal(t, "a.yaml", entries[0].ContextMap()["source"])
}

func TestDevConfig(t *testing.T) {
	cfg := DevConfig()
	assert.Equal(t, LevelDebug, cfg.Level)
	assert.True(t, cfg.AddSource)
}
