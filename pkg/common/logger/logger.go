package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Level is the minimum severity a message needs to be emitted.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

// Logger wraps the standard logger with level filtering.
type Logger struct {
	*log.Logger
	level Level
}

var std = &Logger{Logger: log.New(os.Stdout, "", log.LstdFlags), level: InfoLevel}

// Initialize configures the process-wide logger from a level string
// ("debug", "info", "warn", "error"). Debug mode adds source locations.
func Initialize(level string) {
	std.level = ParseLevel(level)
	if std.level == DebugLevel {
		std.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	} else {
		std.SetFlags(log.Ldate | log.Ltime)
	}
}

// ParseLevel maps a level name to a Level, defaulting to InfoLevel.
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return DebugLevel
	case "warn", "WARN", "warning", "WARNING":
		return WarnLevel
	case "error", "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func (l *Logger) log(level Level, format string, v ...interface{}) {
	if level < l.level {
		return
	}
	l.SetPrefix(fmt.Sprintf("[%s] ", levelNames[level]))
	_ = l.Output(3, fmt.Sprintf(format, v...))
}

// Package-level helpers
func Debug(format string, v ...interface{}) { std.log(DebugLevel, format, v...) }
func Info(format string, v ...interface{})  { std.log(InfoLevel, format, v...) }
func Warn(format string, v ...interface{})  { std.log(WarnLevel, format, v...) }
func Error(format string, v ...interface{}) { std.log(ErrorLevel, format, v...) }
