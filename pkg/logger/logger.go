package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Leveled logger used across the service, backed by zap.
// - JSON lines on stdout
// - Debug/Info/Warn/Error/Fatal variants and Init(level)

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base  = zap.New(newCore(zapcore.AddSync(os.Stdout)), zap.AddCaller(), zap.AddCallerSkip(1))
	sugar = base.Sugar()
)

func newCore(ws zapcore.WriteSyncer) zapcore.Core {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), ws, level)
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "warn", "warning":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	case "fatal":
		level.SetLevel(zapcore.FatalLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

// ReplaceCore routes output through core and returns a func restoring the
// previous logger. The core should honour Level() for filtering.
func ReplaceCore(core zapcore.Core) (restore func()) {
	mu.Lock()
	defer mu.Unlock()
	prevBase, prevSugar := base, sugar
	base = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	sugar = base.Sugar()
	return func() {
		mu.Lock()
		defer mu.Unlock()
		base, sugar = prevBase, prevSugar
	}
}

// Level exposes the atomic level so replacement cores can share it.
func Level() zap.AtomicLevel { return level }

func s() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debugf(format string, v ...interface{}) { s().Debugf(format, v...) }
func Infof(format string, v ...interface{})  { s().Infof(format, v...) }
func Warnf(format string, v ...interface{})  { s().Warnf(format, v...) }
func Errorf(format string, v ...interface{}) { s().Errorf(format, v...) }

// Fatalf logs and exits the process.
func Fatalf(format string, v ...interface{}) { s().Fatalf(format, v...) }

// Println kept for brief messages (maps to Info)
func Println(v ...interface{}) { s().Infoln(v...) }

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { s().Debug(v) }
func Info(v string)  { s().Info(v) }
func Warn(v string)  { s().Warn(v) }
func Error(v string) { s().Error(v) }

// With returns a structured logger carrying the given key/value pairs.
func With(kv ...interface{}) *zap.SugaredLogger { return s().With(kv...) }

// Sync flushes buffered output.
func Sync() error { return s().Sync() }

// LevelString returns the current level as text.
func LevelString() string {
	switch level.Level() {
	case zapcore.DebugLevel:
		return "debug"
	case zapcore.WarnLevel:
		return "warn"
	case zapcore.ErrorLevel:
		return "error"
	case zapcore.FatalLevel:
		return "fatal"
	}
	return "info"
}
