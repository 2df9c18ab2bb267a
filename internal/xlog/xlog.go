// Package xlog is the engine's structured logger: a small key-value
// wrapper over zap, matching the teacher's key-value logging idiom
// (msg, "k", v, "k", v, ...) without depending on its unfetchable internal
// logging packages.
package xlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a cheaply cloneable handle exposing leveled, key-value logging.
// With returns a derived Logger carrying additional fields, the way the
// teacher's compat logger layers context.
type Logger struct {
	z *zap.SugaredLogger
}

// New builds a Logger at the given level, writing JSON lines to the
// process's standard error. level accepts zap's level names
// ("debug", "info", "warn", "error").
func New(level string) Logger {
	lvl := zapcore.InfoLevel
	_ = lvl.UnmarshalText([]byte(level))

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := cfg.Build()
	if err != nil {
		z = zap.NewNop()
	}
	return Logger{z: z.Sugar()}
}

// Nop returns a Logger that discards everything, for tests that don't
// care about log output.
func Nop() Logger { return Logger{z: zap.NewNop().Sugar()} }

// With returns a derived Logger that prefixes every subsequent call with
// the given key-value pairs.
func (l Logger) With(kv ...interface{}) Logger {
	return Logger{z: l.z.With(kv...)}
}

func (l Logger) Debug(msg string, kv ...interface{}) { l.z.Debugw(msg, kv...) }
func (l Logger) Info(msg string, kv ...interface{})  { l.z.Infow(msg, kv...) }
func (l Logger) Warn(msg string, kv ...interface{})  { l.z.Warnw(msg, kv...) }
func (l Logger) Error(msg string, kv ...interface{}) { l.z.Errorw(msg, kv...) }

// Sync flushes any buffered log entries, called once before process exit.
func (l Logger) Sync() error { return l.z.Sync() }
