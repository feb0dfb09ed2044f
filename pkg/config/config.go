// Package config - Compiler settings file
// Design: One YAML document maps onto nested structs; WithDefaults fills
// unset fields on a copy so a partial file is always usable.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/GriffinCanCode/qirc/pkg/eval"
	"github.com/GriffinCanCode/qirc/pkg/ir"
	"github.com/GriffinCanCode/qirc/pkg/logger"
	"github.com/GriffinCanCode/qirc/pkg/partialeval"
	"github.com/GriffinCanCode/qirc/pkg/passes"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

// Config is the root of a qirc settings file.
type Config struct {
	Target     TargetConfig     `yaml:"target"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Passes     PassesConfig     `yaml:"passes"`
	Log        LogConfig        `yaml:"log"`
}

type TargetConfig struct {
	// Runtime features the target supports. Options: "base", "adaptive",
	// "forward-branching", "integer-computations",
	// "floating-point-computations".
	Capabilities []string `yaml:"capabilities"`
}

type EvaluationConfig struct {
	// Calls nested deeper than this abort compilation.
	MaxCallDepth int `yaml:"max_call_depth"`
}

type PassesConfig struct {
	RemapBlocks   *bool `yaml:"remap_blocks"`
	ReindexQubits *bool `yaml:"reindex_qubits"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
	File   string `yaml:"file"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() Config {
	return Config{}.WithDefaults()
}

// Load reads and parses the settings file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "load %s", path)
	}
	return cfg, nil
}

// Parse decodes a settings document and fills in defaults.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	cfg = cfg.WithDefaults()
	if _, err := cfg.Target.ParseCapabilities(); err != nil {
		return Config{}, err
	}
	if cfg.Evaluation.MaxCallDepth < 0 {
		return Config{}, errors.Errorf("evaluation.max_call_depth must not be negative, got %d", cfg.Evaluation.MaxCallDepth)
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return Config{}, errors.Errorf("unknown log format %q", cfg.Log.Format)
	}
	return cfg, nil
}

// WithDefaults returns a copy of the Config with any missing fields set to
// their default values.
func (c Config) WithDefaults() Config {
	cpy := c
	cpy.Target = cpy.Target.WithDefaults()
	cpy.Evaluation = cpy.Evaluation.WithDefaults()
	cpy.Passes = cpy.Passes.WithDefaults()
	cpy.Log = cpy.Log.WithDefaults()
	return cpy
}

func (c TargetConfig) WithDefaults() TargetConfig {
	cpy := c
	if len(cpy.Capabilities) == 0 {
		cpy.Capabilities = []string{"adaptive"}
	}
	return cpy
}

func (c EvaluationConfig) WithDefaults() EvaluationConfig {
	cpy := c
	if cpy.MaxCallDepth == 0 {
		cpy.MaxCallDepth = eval.DefaultMaxCallDepth
	}
	return cpy
}

func (c PassesConfig) WithDefaults() PassesConfig {
	enabled := func(b *bool) *bool {
		if b != nil {
			return b
		}
		t := true
		return &t
	}
	return PassesConfig{
		RemapBlocks:   enabled(c.RemapBlocks),
		ReindexQubits: enabled(c.ReindexQubits),
	}
}

func (c LogConfig) WithDefaults() LogConfig {
	cpy := c
	if cpy.Level == "" {
		cpy.Level = defaultLogLevel
	}
	if cpy.Format == "" {
		cpy.Format = defaultLogFormat
	}
	return cpy
}

// ParseCapabilities combines the named runtime features.
func (c TargetConfig) ParseCapabilities() (ir.Capabilities, error) {
	caps := ir.Base
	for _, name := range c.Capabilities {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "base":
		case "adaptive":
			caps |= ir.Adaptive
		case "forward-branching":
			caps |= ir.ForwardBranching
		case "integer-computations":
			caps |= ir.IntegerComputations
		case "floating-point-computations":
			caps |= ir.FloatingPointComputations
		default:
			return 0, errors.Errorf("unknown target capability %q", name)
		}
	}
	return caps, nil
}

// EvalOptions returns the evaluator settings. Capabilities are assumed to
// have been validated by Parse.
func (c Config) EvalOptions() partialeval.Options {
	caps, _ := c.Target.ParseCapabilities()
	return partialeval.Options{
		Capabilities: caps,
		MaxCallDepth: c.Evaluation.MaxCallDepth,
	}
}

// Pipeline returns the passes to run after evaluation.
func (c Config) Pipeline() passes.Pipeline {
	p := c.Passes.WithDefaults()
	return passes.Pipeline{
		RemapBlocks:   *p.RemapBlocks,
		ReindexQubits: *p.ReindexQubits,
	}
}

// Logger returns the logger settings.
func (c Config) Logger() logger.Config {
	return logger.Config{
		Level:   logger.ParseLevel(c.Log.Level),
		Format:  c.Log.Format,
		LogFile: c.Log.File,
	}
}
