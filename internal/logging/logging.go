package logging

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel is a message severity. Values line up with zapcore levels.
type LogLevel int8

const (
	LevelDebug = LogLevel(zapcore.DebugLevel)
	LevelInfo  = LogLevel(zapcore.InfoLevel)
	LevelWarn  = LogLevel(zapcore.WarnLevel)
	LevelError = LogLevel(zapcore.ErrorLevel)
)

var levelNames = map[LogLevel]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

var (
	threshold = zap.NewAtomicLevelAt(zapcore.Level(levelFromEnv(os.Getenv)))
	sugar     atomic.Pointer[zap.SugaredLogger]
)

func init() {
	sugar.Store(newDefaultLogger().Sugar())
}

// levelFromEnv reads DEBUG (any true boolean wins) and then LOG_LEVEL.
func levelFromEnv(getenv func(string) string) LogLevel {
	if on, err := strconv.ParseBool(strings.TrimSpace(getenv("DEBUG"))); err == nil && on {
		return LevelDebug
	}
	level, _ := ParseLevel(getenv("LOG_LEVEL"))
	return level
}

// ParseLevel maps a level name to a LogLevel, accepting "warning" as an
// alias. Unknown names yield LevelInfo and false.
func ParseLevel(name string) (LogLevel, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		return LevelWarn, true
	}
	for level, n := range levelNames {
		if n == name {
			return level, true
		}
	}
	return LevelInfo, false
}

// SetLevel changes the threshold for all subsequent messages.
func SetLevel(level LogLevel) {
	threshold.SetLevel(zapcore.Level(level))
}

// GetLevel returns the current threshold.
func GetLevel() LogLevel {
	return LogLevel(threshold.Level())
}

// SetLogger routes output to l. The threshold is still applied here, so l
// should accept debug entries.
func SetLogger(l *zap.Logger) {
	sugar.Store(l.Sugar())
}

// Sync flushes buffered entries.
func Sync() {
	_ = sugar.Load().Sync()
}

func newDefaultLogger() *zap.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderCfg.CallerKey = ""

	return zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		zapcore.DebugLevel,
	))
}

func logf(level LogLevel, format string, args []interface{}) {
	if !threshold.Enabled(zapcore.Level(level)) {
		return
	}
	s := sugar.Load()
	switch level {
	case LevelDebug:
		s.Debugf(format, args...)
	case LevelInfo:
		s.Infof(format, args...)
	case LevelWarn:
		s.Warnf(format, args...)
	default:
		s.Errorf(format, args...)
	}
}

// Debug is for per-photo detail. Enable with DEBUG=1 or LOG_LEVEL=debug.
func Debug(format string, args ...interface{}) { logf(LevelDebug, format, args) }

func Info(format string, args ...interface{}) { logf(LevelInfo, format, args) }

func Warn(format string, args ...interface{}) { logf(LevelWarn, format, args) }

func Error(format string, args ...interface{}) { logf(LevelError, format, args) }

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", l)
}
