package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

var levelColors = map[LogLevel]string{
	DEBUG: "\033[36m",
	INFO:  "\033[32m",
	WARN:  "\033[33m",
	ERROR: "\033[31m",
	FATAL: "\033[35m",
}

const resetColor = "\033[0m"

// ParseLevel maps a config string to a LogLevel, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// Logger writes leveled messages to the console and, when configured, to a
// per-day log file.
type Logger struct {
	mu       sync.Mutex
	level    LogLevel
	console  io.Writer
	file     io.Writer
	useColor bool
}

// Config describes how the logger should be initialised.
type Config struct {
	Level    LogLevel
	LogDir   string // empty disables the file writer
	MaxAge   int    // days of log files to keep
	UseColor bool
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Initialize boots the global logger instance if it has not been created
// yet. The context bounds the background retention goroutine.
func Initialize(ctx context.Context, config Config) error {
	var err error
	once.Do(func() {
		l := &Logger{
			level:    config.Level,
			console:  os.Stdout,
			useColor: config.UseColor,
		}

		if config.LogDir != "" {
			if err = os.MkdirAll(config.LogDir, 0755); err != nil {
				return
			}

			name := fmt.Sprintf("host-%s.log", time.Now().Format("2006-01-02"))
			f, openErr := os.OpenFile(filepath.Join(config.LogDir, name),
				os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if openErr != nil {
				err = openErr
				return
			}
			l.file = f

			go pruneOldLogs(ctx, config.LogDir, config.MaxAge)
		}

		defaultLogger = l
	})
	return err
}

// pruneOldLogs removes log files past the retention window, once per hour,
// until the context is cancelled.
func pruneOldLogs(ctx context.Context, logDir string, maxAge int) {
	if maxAge <= 0 {
		return
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removeExpiredLogs(logDir, maxAge)
		}
	}
}

func removeExpiredLogs(logDir string, maxAge int) {
	files, _ := filepath.Glob(filepath.Join(logDir, "host-*.log"))
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > time.Duration(maxAge)*24*time.Hour {
			os.Remove(file)
		}
	}
}

func (l *Logger) write(level LogLevel, msg string) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stamp := time.Now().Format("2006-01-02 15:04:05.000")
	name := levelNames[level]

	if l.useColor {
		fmt.Fprintf(l.console, "%s [%s] %s%s%s\n", stamp, name, levelColors[level], msg, resetColor)
	} else {
		fmt.Fprintf(l.console, "%s [%s] %s\n", stamp, name, msg)
	}
	if l.file != nil {
		fmt.Fprintf(l.file, "%s [%s] %s\n", stamp, name, msg)
	}

	if level == FATAL {
		os.Exit(1)
	}
}

func emit(level LogLevel, format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.write(level, fmt.Sprintf(format, args...))
		return
	}
	// Not initialised yet (early startup, tests): fall back to stdlib log.
	if level == FATAL {
		log.Fatalf("[FATAL] "+format, args...)
	}
	log.Printf("["+levelNames[level]+"] "+format, args...)
}

func Debug(format string, args ...interface{}) { emit(DEBUG, format, args...) }
func Info(format string, args ...interface{})  { emit(INFO, format, args...) }
func Warn(format string, args ...interface{})  { emit(WARN, format, args...) }
func Error(format string, args ...interface{}) { emit(ERROR, format, args...) }
func Fatal(format string, args ...interface{}) { emit(FATAL, format, args...) }

// SetLevel updates the global logging level.
func SetLevel(level LogLevel) {
	if defaultLogger != nil {
		defaultLogger.mu.Lock()
		defaultLogger.level = level
		defaultLogger.mu.Unlock()
	}
}

// LogEntry is a structured log entry builder.
type LogEntry struct {
	fields map[string]interface{}
}

// WithFields attaches structured fields to the log entry.
func WithFields(fields map[string]interface{}) *LogEntry {
	return &LogEntry{fields: fields}
}

func (e *LogEntry) render(format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if len(e.fields) == 0 {
		return msg
	}

	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.fields[k]))
	}
	return msg + " | " + strings.Join(parts, ", ")
}

func (e *LogEntry) Debug(format string, args ...interface{}) { emit(DEBUG, "%s", e.render(format, args...)) }
func (e *LogEntry) Info(format string, args ...interface{})  { emit(INFO, "%s", e.render(format, args...)) }
func (e *LogEntry) Warn(format string, args ...interface{})  { emit(WARN, "%s", e.render(format, args...)) }
func (e *LogEntry) Error(format string, args ...interface{}) { emit(ERROR, "%s", e.render(format, args...)) }

// Log emits a message with an explicit level via the entry.
func (e *LogEntry) Log(level LogLevel, format string, args ...interface{}) {
	emit(level, "%s", e.render(format, args...))
}
