// internal/logger/logger.go

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

type Mode int

const (
	MINIMAL Mode = iota
	NORMAL
	FULL
)

var (
	levelNames = map[Level]string{
		DEBUG: "DEBUG",
		INFO:  "INFO",
		WARN:  "WARN",
		ERROR: "ERROR",
		FATAL: "FATAL",
	}

	levelColors = map[Level]string{
		DEBUG: "\033[36m",
		INFO:  "\033[32m",
		WARN:  "\033[33m",
		ERROR: "\033[31m",
		FATAL: "\033[35m",
	}

	resetColor = "\033[0m"
)

// sink is shared by a root logger and every child created with With.
type sink struct {
	mu         sync.Mutex
	level      Level
	mode       Mode
	consoleOut io.Writer
	fileOut    io.WriteCloser
	useColors  bool
	exit       func(int)
}

type Logger struct {
	out       *sink
	component string
}

type Config struct {
	Level       Level
	Mode        Mode
	LogFilePath string
	UseColors   bool

	// Rotation settings for LogFilePath, in megabytes / days / files.
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

func New(cfg Config) (*Logger, error) {
	s := &sink{
		level:      cfg.Level,
		mode:       cfg.Mode,
		consoleOut: os.Stdout,
		useColors:  cfg.UseColors,
		exit:       os.Exit,
	}

	if cfg.LogFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to setup log file: %w", err)
		}
		s.fileOut = &lumberjack.Logger{
			Filename:   cfg.LogFilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 50),
			MaxAge:     orDefault(cfg.MaxAgeDays, 14),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			Compress:   true,
		}
	}

	return &Logger{out: s}, nil
}

// NewWriter builds a logger that writes only to w. Used by tests.
func NewWriter(w io.Writer, level Level) *Logger {
	return &Logger{out: &sink{level: level, mode: MINIMAL, consoleOut: w, exit: os.Exit}}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// With returns a child logger whose lines are tagged with component.
func (l *Logger) With(component string) *Logger {
	return &Logger{out: l.out, component: component}
}

func (l *Logger) Close() error {
	if l.out.fileOut != nil {
		return l.out.fileOut.Close()
	}
	return nil
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	s := l.out

	s.mu.Lock()
	defer s.mu.Unlock()

	if level < s.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	if l.component != "" {
		message = "[" + l.component + "] " + message
	}

	tag := levelNames[level]
	if s.useColors {
		tag = levelColors[level] + "[" + tag + "]" + resetColor
	} else {
		tag = "[" + tag + "]"
	}

	var consoleMsg, fileMsg string
	switch s.mode {
	case MINIMAL:
		consoleMsg = fmt.Sprintf("%s %s", tag, message)
		fileMsg = fmt.Sprintf("%s [%s] %s", timestamp, levelNames[level], message)
	case FULL:
		file, line := caller()
		consoleMsg = fmt.Sprintf("%s %s | %s:%d | %s", tag, timestamp, file, line, message)
		fileMsg = fmt.Sprintf("%s [%s] %s:%d | %s", timestamp, levelNames[level], file, line, message)
	default:
		consoleMsg = fmt.Sprintf("%s %s | %s", tag, timestamp, message)
		fileMsg = fmt.Sprintf("%s [%s] %s", timestamp, levelNames[level], message)
	}

	if s.consoleOut != nil {
		fmt.Fprintln(s.consoleOut, consoleMsg)
	}
	if s.fileOut != nil {
		fmt.Fprintln(s.fileOut, fileMsg)
	}

	if level == FATAL {
		s.exit(1)
	}
}

func caller() (string, int) {
	_, file, line, ok := runtime.Caller(3)
	if !ok {
		return "unknown", 0
	}
	return filepath.Base(file), line
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(FATAL, format, args...)
}

func (l *Logger) SetLevel(level Level) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.level = level
}

func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return DEBUG
	case "info", "INFO":
		return INFO
	case "warn", "WARN", "warning", "WARNING":
		return WARN
	case "error", "ERROR":
		return ERROR
	case "fatal", "FATAL":
		return FATAL
	default:
		return INFO
	}
}

func ParseMode(s string) Mode {
	switch s {
	case "minimal", "MINIMAL":
		return MINIMAL
	case "normal", "NORMAL":
		return NORMAL
	case "full", "FULL":
		return FULL
	default:
		return NORMAL
	}
}

// Nop discards everything. Components fall back to it when no logger is given.
func Nop() *Logger {
	return &Logger{out: &sink{level: FATAL + 1, exit: func(int) {}}}
}
