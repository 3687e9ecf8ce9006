// Package logger provides the structured logger used across the engine.
package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Fields are structured key/value pairs attached to a log entry
type Fields map[string]interface{}

// Logger is the logging interface services and adapters depend on
type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
	WithFields(fields Fields) Logger
	WithError(err error) Logger
}

// NewZap builds a zap logger. format "json" selects the production encoder,
// anything else the human-readable development encoder.
func NewZap(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type zapLogger struct {
	l *zap.Logger
}

// New wraps an existing *zap.Logger
func New(l *zap.Logger) Logger {
	return &zapLogger{l: l}
}

// NewTestLogger writes to the test's output
func NewTestLogger(t testing.TB) Logger {
	return &zapLogger{l: zaptest.NewLogger(t)}
}

// NewNoOp discards everything
func NewNoOp() Logger {
	return &zapLogger{l: zap.NewNop()}
}

func (z *zapLogger) Debug(msg string, fields Fields) { z.l.Debug(msg, toZap(fields)...) }
func (z *zapLogger) Info(msg string, fields Fields)  { z.l.Info(msg, toZap(fields)...) }
func (z *zapLogger) Warn(msg string, fields Fields)  { z.l.Warn(msg, toZap(fields)...) }
func (z *zapLogger) Error(msg string, fields Fields) { z.l.Error(msg, toZap(fields)...) }

func (z *zapLogger) WithFields(fields Fields) Logger {
	return &zapLogger{l: z.l.With(toZap(fields)...)}
}

func (z *zapLogger) WithError(err error) Logger {
	return &zapLogger{l: z.l.With(zap.Error(err))}
}

func toZap(fields Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
