// Package log provides the zap-backed logger shared by the hooks packages.
//
// The package keeps a single process-wide logger that defaults to a no-op
// logger, so library code can log unconditionally without forcing output on
// applications that never configure logging. Applications and the hooks CLI
// install a real logger with SetLogger:
//
//	log.SetLogger(log.New(log.LevelDebug, log.Options{}))
//	defer log.L().Sync()
package log

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum severity a logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel converts a level name to a Level. Unknown names map to LevelInfo
// and report false.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// Options tweak the logger built by New.
type Options struct {
	// Development switches to the human-readable console encoder.
	Development bool
	// OutputPaths defaults to stderr.
	OutputPaths []string
}

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// New builds a zap logger at the given level.
func New(level Level, opts Options) *zap.Logger {
	encoding := "json"
	encoderConfig := zap.NewProductionEncoderConfig()
	if opts.Development {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	outputs := opts.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(toZapLevel(level)),
		Development:      opts.Development,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}

	l, err := config.Build()
	if err != nil {
		// Only reachable with unopenable output paths.
		return zap.NewNop()
	}
	return l
}

// SetLogger replaces the shared logger and returns the previous one so tests
// can restore it. Passing nil installs a no-op logger.
func SetLogger(l *zap.Logger) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	prev := logger
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
	return prev
}

// L returns the shared logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Named returns the shared logger scoped to a component name.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zap.DebugLevel
	case LevelInfo:
		return zap.InfoLevel
	case LevelWarn:
		return zap.WarnLevel
	case LevelError:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
