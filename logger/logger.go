package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger represents a structured logger
type Logger struct {
	logger zerolog.Logger
}

// Fields represents log fields
type Fields map[string]interface{}

var (
	// Default is the default logger instance
	Default *Logger
)

// Init initializes the logger from LOG_LEVEL and SILKDEAL_ENVIRONMENT.
// Production writes JSON lines, everything else a console format.
func Init() {
	level := getLogLevel()

	var output io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	if os.Getenv("SILKDEAL_ENVIRONMENT") == "production" {
		output = os.Stderr
	}

	InitWithWriter(output, level)

	Default.Debug().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// InitWithWriter replaces the default logger with one writing to w.
func InitWithWriter(w io.Writer, level zerolog.Level) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	Default = &Logger{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// getLogLevel returns the log level from environment variable
func getLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		if os.Getenv("SILKDEAL_ENVIRONMENT") == "production" {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// WithFields creates a new logger with fields
func (l *Logger) WithFields(fields Fields) *Logger {
	newLogger := l.logger.With()
	for k, v := range fields {
		newLogger = newLogger.Interface(k, v)
	}
	return &Logger{logger: newLogger.Logger()}
}

// WithField creates a new logger with a single field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.logger.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.logger.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.logger.Fatal() }

func ensure() {
	if Default == nil {
		Init()
	}
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	ensure()
	Default.Info().Msgf(format, v...)
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	ensure()
	Default.Warn().Msgf(format, v...)
}

// ForPager creates a logger for the pagination loop of one profile
func ForPager(profile string) *Logger {
	ensure()
	return Default.WithFields(Fields{"component": "pager", "profile": profile})
}

// ForSession creates a logger for a browser session
func ForSession() *Logger {
	ensure()
	return Default.WithField("component", "session")
}

// ForWorker creates a logger for the worker
func ForWorker() *Logger {
	ensure()
	return Default.WithField("component", "worker")
}

// ForPublisher creates a logger for a publisher
func ForPublisher(name string) *Logger {
	ensure()
	return Default.WithFields(Fields{"component": "publisher", "publisher": name})
}

// ForProxy creates a logger for proxy rotation
func ForProxy() *Logger {
	ensure()
	return Default.WithField("component", "proxy")
}

// ForCache creates a logger for the cache
func ForCache() *Logger {
	ensure()
	return Default.WithField("component", "cache")
}

// LogError is a convenience method for logging errors with context
func LogError(component string, err error, format string, v ...interface{}) {
	ensure()
	Default.Error().
		Str("component", component).
		Err(err).
		Msg(fmt.Sprintf(format, v...))
}

