package flog

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	level  = zap.NewAtomicLevelAt(zap.InfoLevel)
	logger atomic.Pointer[zap.SugaredLogger]
)

func init() {
	logger.Store(newLogger("console", os.Stderr))
}

// Setup replaces the process logger. level is one of debug, info, warn, error;
// format is console or json.
func Setup(lvl, format string) error {
	l, err := zapcore.ParseLevel(strings.ToLower(lvl))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", lvl, err)
	}
	if format != "console" && format != "json" {
		return fmt.Errorf("invalid log format %q", format)
	}
	level.SetLevel(l)
	old := logger.Swap(newLogger(format, os.Stderr))
	_ = old.Sync()
	return nil
}

func newLogger(format string, w zapcore.WriteSyncer) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(w), level)
	return zap.New(core).Sugar()
}

func Sync() {
	_ = logger.Load().Sync()
}

func Debugf(format string, args ...any) { logger.Load().Debugf(format, args...) }
func Infof(format string, args ...any)  { logger.Load().Infof(format, args...) }
func Warnf(format string, args ...any)  { logger.Load().Warnf(format, args...) }
func Errorf(format string, args ...any) { logger.Load().Errorf(format, args...) }

// Fatalf logs and exits the process with status 1.
func Fatalf(format string, args ...any) { logger.Load().Fatalf(format, args...) }
