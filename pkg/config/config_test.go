package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/qirc/pkg/eval"
	"github.com/GriffinCanCode/qirc/pkg/ir"
	"github.com/GriffinCanCode/qirc/pkg/logger"
	"github.com/GriffinCanCode/qirc/pkg/passes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	opts := cfg.EvalOptions()
	assert.Equal(t, ir.Adaptive, opts.Capabilities)
	assert.Equal(t, eval.DefaultMaxCallDepth, opts.MaxCallDepth)
	assert.Equal(t, passes.DefaultPipeline(), cfg.Pipeline())
	assert.Equal(t, logger.LevelInfo, cfg.Logger().Level)
	assert.Equal(t, "console", cfg.Logger().Format)
}

func TestParseKeepsExplicitValues(t *testing.T) {
	cfg, err := Parse([]byte(`
target:
  capabilities: [forward-branching, integer-computations]
evaluation:
  max_call_depth: 12
passes:
  reindex_qubits: false
log:
  level: debug
  format: json
  file: /tmp/qirc.log
`))
	require.NoError(t, err)

	opts := cfg.EvalOptions()
	assert.Equal(t, ir.ForwardBranching|ir.IntegerComputations, opts.Capabilities)
	assert.Equal(t, 12, opts.MaxCallDepth)
	assert.Equal(t, passes.Pipeline{RemapBlocks: true, ReindexQubits: false}, cfg.Pipeline())
	assert.Equal(t, logger.Config{Level: logger.LevelDebug, Format: "json", LogFile: "/tmp/qirc.log"}, cfg.Logger())
}

func TestParseCapabilities(t *testing.T) {
	tests := []struct {
		names []string
		want  ir.Capabilities
	}{
		{[]string{"base"}, ir.Base},
		{[]string{"adaptive"}, ir.Adaptive},
		{[]string{"Floating-Point-Computations"}, ir.FloatingPointComputations},
		{[]string{"base", "forward-branching"}, ir.ForwardBranching},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			caps, err := TargetConfig{Capabilities: tt.names}.ParseCapabilities()
			require.NoError(t, err)
			assert.Equal(t, tt.want, caps)
		})
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{"capability", "target:\n  capabilities: [teleportation]\n", `unknown target capability "teleportation"`},
		{"depth", "evaluation:\n  max_call_depth: -1\n", "must not be negative"},
		{"format", "log:\n  format: xml\n", `unknown log format "xml"`},
		{"unknown field", "passes:\n  inline: true\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qirc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target:\n  capabilities: [base]\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ir.Base, cfg.EvalOptions().Capabilities)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
