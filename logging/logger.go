package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	current   = Config{}.ApplyEnv(os.Getenv)
	sessionID string
)

// Configure replaces the logging configuration used by NewLogger. Loggers created
// before the call are discarded from the cache so later lookups pick up the new settings.
func Configure(cfg Config) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	current = cfg
	loggers = make(map[string]*logrus.Entry)
}

// SetSession tags every logger created afterwards with a "session" field.
func SetSession(id string) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	sessionID = id
	loggers = make(map[string]*logrus.Entry)
}

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logCfg := current
	logger := logrus.New()

	levelStr := "info"
	if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	switch logCfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: logCfg.Format})
	}

	var writers []io.Writer

	if logCfg.File.Enabled && logCfg.File.Path != "" {
		dir := filepath.Dir(logCfg.File.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Warnf("Failed to create log directory %s: %v", dir, err)
		} else if file, err := os.OpenFile(logCfg.File.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			writers = append(writers, file)
		} else {
			logger.Warnf("Failed to open log file %s: %v", logCfg.File.Path, err)
		}
	}

	if shouldLogToStderr(logCfg.Format.StructuredToStderr, logger.GetLevel()) {
		writers = append(writers, GetGlobalOutput())
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	entry := logger.WithField("component", component)
	if sessionID != "" {
		entry = entry.WithField("session", sessionID)
	}
	loggers[component] = entry
	return entry
}

// shouldLogToStderr resolves the stderr sink mode. The entrypoint usually runs
// without a terminal, so the default is "always".
func shouldLogToStderr(mode string, level logrus.Level) bool {
	switch mode {
	case "never":
		return false
	case "auto":
		// Interactive terminals only get structured logs in debug mode.
		isDebug := level >= logrus.DebugLevel
		isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		return isDebug || !isInteractive
	default:
		return true
	}
}
