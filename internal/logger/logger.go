// Package logger provides a process-wide leveled logger that writes to a file.
//
// A terminal UI owns stdout, so log output always goes to the configured file.
// Calls made before Init are dropped.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel controls which messages are written.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
)

// String returns the lower-case name of the level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel converts a level name to a LogLevel. Unknown names map to LevelWarning.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warning", "warn":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelWarning
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

var (
	mu      sync.RWMutex
	sugared *zap.SugaredLogger
	base    *zap.Logger
	file    *os.File
)

// Init opens the log file and installs the global logger.
func Init(path string, level LogLevel) error {
	mu.Lock()
	defer mu.Unlock()
	return initLocked(path, level)
}

// Reinit closes the current log file and opens a new one with the given settings.
func Reinit(path string, level LogLevel) error {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	return initLocked(path, level)
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func initLocked(path string, level LogLevel) error {
	if path == "" {
		return fmt.Errorf("init logger: empty log file path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("init logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("init logger: open %s: %w", path, err)
	}

	encoderCfg := zapcore.EncoderConfig{
		MessageKey:  "message",
		LevelKey:    "level",
		TimeKey:     "ts",
		EncodeLevel: zapcore.CapitalLevelEncoder,
		EncodeTime:  zapcore.ISO8601TimeEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(f),
		zap.NewAtomicLevelAt(level.zapLevel()),
	)

	file = f
	base = zap.New(core)
	sugared = base.Sugar()
	return nil
}

func closeLocked() {
	if base != nil {
		_ = base.Sync()
	}
	if file != nil {
		_ = file.Close()
	}
	base = nil
	sugared = nil
	file = nil
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugared
}

// Debug logs a debug message.
func Debug(format string, args ...any) {
	if l := current(); l != nil {
		l.Debugf(format, args...)
	}
}

// Info logs an informational message.
func Info(format string, args ...any) {
	if l := current(); l != nil {
		l.Infof(format, args...)
	}
}

// Warning logs a warning message.
func Warning(format string, args ...any) {
	if l := current(); l != nil {
		l.Warnf(format, args...)
	}
}

// Error logs an error message.
func Error(format string, args ...any) {
	if l := current(); l != nil {
		l.Errorf(format, args...)
	}
}

// ErrorWithErr logs an error message followed by the error value.
func ErrorWithErr(err error, format string, args ...any) {
	if l := current(); l != nil {
		l.Errorf("%s error=%v", fmt.Sprintf(format, args...), err)
	}
}
