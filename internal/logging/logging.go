package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// LogLevel represents the severity of a log message
type LogLevel int32

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	currentLevel atomic.Int32
	colorize     atomic.Bool
	logger       = log.New(os.Stderr, "", log.LstdFlags)
)

var (
	debugTag = color.New(color.FgHiBlack).SprintFunc()
	infoTag  = color.New(color.FgCyan).SprintFunc()
	warnTag  = color.New(color.FgYellow).SprintFunc()
	errorTag = color.New(color.FgRed, color.Bold).SprintFunc()
)

func init() {
	currentLevel.Store(int32(LevelInfo))
	colorize.Store(isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
}

// ParseLevel converts a level name into a LogLevel. Unknown names map to
// LevelInfo and ok is false.
func ParseLevel(name string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "trace":
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

// SetLevel sets the minimum level that is written.
func SetLevel(level LogLevel) {
	currentLevel.Store(int32(level))
}

// SetOutput redirects log output. Color tags are disabled unless w is a terminal.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
	if f, ok := w.(*os.File); ok {
		colorize.Store(isatty.IsTerminal(f.Fd()))
		return
	}
	colorize.Store(false)
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func emit(level LogLevel, tag string, paint func(a ...interface{}) string, format string, args []interface{}) {
	if GetLevel() > level {
		return
	}
	if colorize.Load() {
		tag = paint(tag)
	}
	logger.Printf(tag+" "+format, args...)
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	emit(LevelDebug, "[DEBUG]", debugTag, format, args)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	emit(LevelInfo, "[INFO]", infoTag, format, args)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	emit(LevelWarn, "[WARN]", warnTag, format, args)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	emit(LevelError, "[ERROR]", errorTag, format, args)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	logger.Fatalf("[FATAL] "+format, args...)
}

// Printf writes a message regardless of level
func Printf(format string, args ...interface{}) {
	logger.Printf(format, args...)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
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
		return fmt.Sprintf("unknown(%d)", l)
	}
}
