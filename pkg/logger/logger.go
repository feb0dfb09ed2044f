// Package logger provides standardized logging utilities for the qirc compiler
package logger

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Global logger instance
var defaultLogger = zap.NewNop().Sugar()

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a level name to a LogLevel. Unknown names map to info.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(name) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config holds logger configuration
type Config struct {
	Level     LogLevel
	Format    string // "console" or "json"
	AddSource bool
	LogFile   string // empty means stderr
}

// New builds a logger from cfg. Install it with Replace.
func New(cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(toZapLevel(cfg.Level))
	zc.DisableCaller = !cfg.AddSource
	zc.DisableStacktrace = true
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, errors.Wrap(err, "create log directory")
		}
		zc.OutputPaths = []string{cfg.LogFile}
	} else {
		zc.OutputPaths = []string{"stderr"}
	}

	l, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "create logger")
	}
	return l, nil
}

// DevConfig returns the configuration for development (debug level, console
// format, caller info)
func DevConfig() Config {
	return Config{
		Level:     LevelDebug,
		Format:    "console",
		AddSource: true,
	}
}

func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Replace swaps the global logger and returns a function restoring the
// previous one
func Replace(l *zap.Logger) func() {
	prev := defaultLogger
	defaultLogger = l.Sugar()
	return func() { defaultLogger = prev }
}

// Sync flushes buffered log entries
func Sync() {
	_ = defaultLogger.Sync()
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	defaultLogger.Debugw(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	defaultLogger.Infow(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	defaultLogger.Warnw(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	defaultLogger.Errorw(msg, args...)
}

// With returns a new logger with the given attributes
func With(args ...any) *zap.SugaredLogger {
	return defaultLogger.With(args...)
}

// Named returns a new logger scoped under name
func Named(name string) *zap.SugaredLogger {
	return defaultLogger.Named(name)
}

// Compiler-specific logging helpers

// LogPhase logs the start of a compilation phase
func LogPhase(phase string, args ...any) {
	Debug("Phase started", append([]any{"phase", phase}, args...)...)
}

// LogPhaseComplete logs the completion of a compilation phase
func LogPhaseComplete(phase string, start time.Time, args ...any) {
	Debug("Phase complete", append([]any{"phase", phase, "elapsed", time.Since(start)}, args...)...)
}

// LogPass logs the result of an IR pass
func LogPass(pass string, args ...any) {
	Debug("Pass applied", append([]any{"pass", pass}, args...)...)
}

// LogError logs an error with context
func LogError(context string, err error, args ...any) {
	Error(context, append([]any{"error", err}, args...)...)
}

// LogCompilerStart logs compiler initialization
func LogCompilerStart(version string, args ...any) {
	Info("qirc starting", append([]any{"version", version}, args...)...)
}

// LogCompilerComplete logs a finished compilation
func LogCompilerComplete(source string, start time.Time, args ...any) {
	Info("Compilation complete", append([]any{"source", source, "elapsed", time.Since(start)}, args...)...)
}
