// Package logger provides a small leveled, structured logger used throughout
// the module. It wraps zap the way the rest of the stack wraps third-party
// libraries behind a narrow interface: callers depend on LoggerInterface, not
// on zap directly.
package logger

import (
	"context"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a logging severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
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

// LoggerInterface is the contract every component in this module logs
// through. Key-value pairs follow the zap SugaredLogger convention:
// alternating key, value, key, value...
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, kv ...interface{})
	Info(ctx context.Context, msg string, kv ...interface{})
	Warn(ctx context.Context, msg string, kv ...interface{})
	Error(ctx context.Context, msg string, kv ...interface{})
	With(kv ...interface{}) LoggerInterface
}

// Logger is the concrete zap-backed implementation.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New creates a Logger writing to w at the given level. name tags every
// record with a "service" field. extraFields are static key-value pairs
// attached to every record (e.g. environment).
func New(w io.Writer, level Level, name string, extraFields map[string]interface{}) *Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(w),
		level.zapLevel(),
	)

	zl := zap.New(core)
	sugar := zl.Sugar().With("service", name)
	for k, v := range extraFields {
		sugar = sugar.With(k, v)
	}

	return &Logger{sugar: sugar}
}

func withTrace(ctx context.Context, kv []interface{}) []interface{} {
	if ctx == nil {
		return kv
	}
	if traceID, ok := ctx.Value(traceIDKey{}).(string); ok && traceID != "" {
		return append(kv, "traceId", traceID)
	}
	return kv
}

type traceIDKey struct{}

// WithTraceID returns a context carrying a trace ID for log correlation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

func (l *Logger) Debug(ctx context.Context, msg string, kv ...interface{}) {
	l.sugar.Debugw(msg, withTrace(ctx, kv)...)
}

func (l *Logger) Info(ctx context.Context, msg string, kv ...interface{}) {
	l.sugar.Infow(msg, withTrace(ctx, kv)...)
}

func (l *Logger) Warn(ctx context.Context, msg string, kv ...interface{}) {
	l.sugar.Warnw(msg, withTrace(ctx, kv)...)
}

func (l *Logger) Error(ctx context.Context, msg string, kv ...interface{}) {
	l.sugar.Errorw(msg, withTrace(ctx, kv)...)
}

// With returns a derived logger with extra static fields attached.
func (l *Logger) With(kv ...interface{}) LoggerInterface {
	return &Logger{sugar: l.sugar.With(kv...)}
}

// Noop returns a logger that discards everything, useful for tests.
func Noop() LoggerInterface {
	return New(io.Discard, LevelError, "noop", nil)
}
