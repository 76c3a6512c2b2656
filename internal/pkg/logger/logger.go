package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger defines the interface for logging messages.
type Logger interface {
	Error(msg string, err error)
	Warn(msg string)
	Info(msg string)
	Debug(msg string)
}

type zeroLogger struct {
	logger zerolog.Logger
}

var (
	loggerInstance *zeroLogger
	once           sync.Once
)

// New creates a new singleton instance of the console logger.
// LOG_LEVEL selects the minimum level (debug, info, warn, error); default is debug.
func New() Logger {
	once.Do(func() {
		loggerInstance = newZeroLogger(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}, os.Getenv("LOG_LEVEL"))
	})
	return loggerInstance
}

// NewWithWriter creates a non-singleton logger writing JSON lines to w.
func NewWithWriter(w io.Writer, level string) Logger {
	return newZeroLogger(w, level)
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() Logger {
	return &zeroLogger{logger: zerolog.Nop()}
}

func newZeroLogger(w io.Writer, level string) *zeroLogger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.DebugLevel
	}
	return &zeroLogger{
		logger: zerolog.New(w).Level(lvl).With().Timestamp().Logger(),
	}
}

// Error logs an error message with the attached error.
func (l *zeroLogger) Error(msg string, err error) {
	l.logger.Error().Err(err).Msg(msg)
}

// Warn logs a warning message.
func (l *zeroLogger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

// Info logs an informational message.
func (l *zeroLogger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Debug logs a debug message.
func (l *zeroLogger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}
