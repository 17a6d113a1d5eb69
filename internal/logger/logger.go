package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"
)

// Output formats accepted by NewWithLevel.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New creates a console logger at debug level
func New() zerolog.Logger {
	return newConsole(os.Stdout)
}

// NewWithWriter creates a JSON logger writing to w
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

// NewWithLevel builds the process logger from the log section of the config.
// An empty level means info; an empty format means console.
func NewWithLevel(level, format string) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("NewWithLevel: parse level %q: %w", level, err)
		}
		lvl = parsed
	}

	var log zerolog.Logger
	switch strings.ToLower(format) {
	case "", FormatConsole:
		log = newConsole(os.Stdout)
	case FormatJSON:
		log = NewWithWriter(os.Stdout)
	default:
		return zerolog.Nop(), fmt.Errorf("NewWithLevel: unknown format %q", format)
	}
	return log.Level(lvl), nil
}

func newConsole(w io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Caller().Logger()
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from the context or returns a default logger
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return New()
}

// WithFields returns a child logger carrying the given fields
func WithFields(logger zerolog.Logger, fields map[string]interface{}) zerolog.Logger {
	ctx := logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}
