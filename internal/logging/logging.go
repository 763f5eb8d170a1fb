// Package logging is the process-wide logger. Components log through the
// package-level helpers with a "[component]" prefix in the message.
package logging

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu       sync.RWMutex
	disabled = false
	level    = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar    = newLogger(false)
)

func newLogger(development bool) *zap.SugaredLogger {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Sampling = nil
	}
	cfg.Level = level
	cfg.DisableStacktrace = true
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// Configure sets the minimum level ("debug", "info", "warn", "error").
// Development mode switches to zap's human friendly encoder.
func Configure(lvl string, development bool) error {
	var l zapcore.Level
	if lvl == "" {
		lvl = "info"
	}
	if err := l.Set(lvl); err != nil {
		return err
	}
	level.SetLevel(l)

	mu.Lock()
	defer mu.Unlock()
	_ = sugar.Sync()
	sugar = newLogger(development)
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = sugar.Sync()
}

// Disable turns off all logging
func Disable() {
	mu.Lock()
	disabled = true
	mu.Unlock()
}

// Enable turns logging back on
func Enable() {
	mu.Lock()
	disabled = false
	mu.Unlock()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	if disabled {
		return nil
	}
	return sugar
}

// Infof logs a formatted info message
func Infof(format string, v ...any) {
	if l := current(); l != nil {
		l.Infof(format, v...)
	}
}

// Errorf logs a formatted error message
func Errorf(format string, v ...any) {
	if l := current(); l != nil {
		l.Errorf(format, v...)
	}
}

// Warnf logs a formatted warning message
func Warnf(format string, v ...any) {
	if l := current(); l != nil {
		l.Warnf(format, v...)
	}
}

// Debugf logs a formatted debug message
func Debugf(format string, v ...any) {
	if l := current(); l != nil {
		l.Debugf(format, v...)
	}
}

type ctxKey struct{}

// Logger carries structured fields attached with With.
type Logger struct {
	fields []any
}

// WithContext returns the Logger stored in ctx, or an empty one.
func WithContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return Logger{}
}

// NewContext stores l in ctx.
func NewContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// With returns a copy of l with extra key/value pairs.
func (l Logger) With(kv ...any) Logger {
	fields := make([]any, 0, len(l.fields)+len(kv))
	fields = append(fields, l.fields...)
	fields = append(fields, kv...)
	return Logger{fields: fields}
}

// Infof logs a formatted info message
func (l Logger) Infof(format string, v ...any) {
	if s := current(); s != nil {
		s.With(l.fields...).Infof(format, v...)
	}
}

// Warnf logs a formatted warning message
func (l Logger) Warnf(format string, v ...any) {
	if s := current(); s != nil {
		s.With(l.fields...).Warnf(format, v...)
	}
}

// Errorf logs a formatted error message
func (l Logger) Errorf(format string, v ...any) {
	if s := current(); s != nil {
		s.With(l.fields...).Errorf(format, v...)
	}
}
