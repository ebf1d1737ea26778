package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	logDirEnvVar     = "BLOBVAULT_LOG_DIR"
	serverModeEnvVar = "BLOBVAULT_SERVER_MODE"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

type LogCategory string

const (
	LogCategoryService LogCategory = "service"
	LogCategoryLatency LogCategory = "latency"
)

var (
	categoryMu      sync.Mutex
	categoryLoggers = make(map[LogCategory]*Logger)
	minLevel        = DEBUG
	logDirOverride  string
)

// Logger writes formatted lines to the category log file.
type Logger struct {
	file       *os.File
	logger     *log.Logger
	mu         *sync.Mutex
	component  string
	enableFile bool
	category   LogCategory
	logID      string
}

// GetLogger returns the shared service logger.
func GetLogger() *Logger {
	return getOrCreateCategoryLogger(LogCategoryService)
}

// NewComponentLogger creates a logger for a specific component
func NewComponentLogger(component string) *Logger {
	return NewCategorizedLogger(LogCategoryService, component)
}

// NewLatencyLogger creates a logger dedicated to latency instrumentation output.
func NewLatencyLogger(component string) *Logger {
	return NewCategorizedLogger(LogCategoryLatency, component)
}

// NewCategorizedLogger creates a logger for a specific category and component.
func NewCategorizedLogger(category LogCategory, component string) *Logger {
	base := getOrCreateCategoryLogger(category)
	return &Logger{
		file:       base.file,
		logger:     base.logger,
		mu:         base.mu,
		component:  component,
		enableFile: base.enableFile,
		category:   category,
	}
}

// SetMinLevel sets the process-wide minimum level.
func SetMinLevel(level LogLevel) {
	categoryMu.Lock()
	minLevel = level
	categoryMu.Unlock()
}

// ParseLevel maps a config string onto a LogLevel, defaulting to INFO.
func ParseLevel(raw string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// SetLogDirectory overrides the log directory for loggers opened after the
// call. It takes precedence over BLOBVAULT_LOG_DIR.
func SetLogDirectory(dir string) {
	categoryMu.Lock()
	logDirOverride = strings.TrimSpace(dir)
	categoryMu.Unlock()
}

func currentMinLevel() LogLevel {
	categoryMu.Lock()
	defer categoryMu.Unlock()
	return minLevel
}

func getOrCreateCategoryLogger(category LogCategory) *Logger {
	categoryMu.Lock()
	defer categoryMu.Unlock()

	if logger, ok := categoryLoggers[category]; ok {
		return logger
	}

	logger := newLogger(category)
	categoryLoggers[category] = logger
	return logger
}

func newLogger(category LogCategory) *Logger {
	l := &Logger{
		mu:         &sync.Mutex{},
		enableFile: true,
		category:   category,
	}

	file, err := OpenLogFile(category)
	if err != nil {
		log.Printf("Failed to open log file: %v", err)
		return l
	}

	l.file = file
	l.logger = log.New(file, "", 0) // We'll format ourselves
	return l
}

func resolveLogDirectory() (string, error) {
	if logDirOverride != "" {
		return logDirOverride, nil
	}
	if override := strings.TrimSpace(os.Getenv(logDirEnvVar)); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home, nil
}

func logFileName(category LogCategory) string {
	switch category {
	case LogCategoryLatency:
		return "blobvault-latency.log"
	default:
		return "blobvault-service.log"
	}
}

// LogFilePath returns the path of the log file for category.
func LogFilePath(category LogCategory) (string, error) {
	categoryMu.Lock()
	defer categoryMu.Unlock()
	logDir, err := resolveLogDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(logDir, logFileName(category)), nil
}

// OpenLogFile opens (or creates) the log file for the given category.
func OpenLogFile(category LogCategory) (*os.File, error) {
	logDir, err := resolveLogDirectory()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}

	logPath := filepath.Join(logDir, logFileName(category))
	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// WithLogID returns a shallow copy of the logger that tags log lines with a log id.
func (l *Logger) WithLogID(logID string) *Logger {
	if l == nil {
		return nil
	}
	if strings.TrimSpace(logID) == "" {
		return l
	}
	clone := *l
	clone.logID = logID
	return &clone
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < currentMinLevel() || !l.enableFile {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file = "???"
		line = 0
	}

	// Format: 2025-09-30 12:34:56 [INFO] [SERVICE] [Component] [log_id=...] file.go:123 - Message
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	component := l.component
	if component == "" {
		component = "BLOBVAULT"
	}
	category := strings.ToUpper(string(l.category))
	if category == "" {
		category = "SERVICE"
	}

	message := fmt.Sprintf(format, args...)
	var logLine string
	if logID := strings.TrimSpace(l.logID); logID != "" {
		logLine = fmt.Sprintf("%s [%s] [%s] [%s] [log_id=%s] %s:%d - %s\n",
			timestamp, levelToString(level), category, component, logID, file, line, message)
	} else {
		logLine = fmt.Sprintf("%s [%s] [%s] [%s] %s:%d - %s\n",
			timestamp, levelToString(level), category, component, file, line, message)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logger != nil {
		l.logger.Print(logLine)
	}
	if os.Getenv(serverModeEnvVar) == "deploy" {
		fmt.Print(logLine)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

func levelToString(level LogLevel) string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
