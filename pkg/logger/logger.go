package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init initializes the global logger
func Init(serviceName string, isDevelopment bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var output io.Writer = os.Stdout

	if isDevelopment {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	Logger = zerolog.New(output).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	log.Logger = Logger
}

// WithContext returns a logger with trace information from context
func WithContext(ctx context.Context) *zerolog.Logger {
	logger := Logger.With().Logger()

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		logger = logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return &logger
}

// Info logs at info level with context
func Info(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Info()
}

// Error logs at error level with context
func Error(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Error()
}

// Debug logs at debug level with context
func Debug(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Debug()
}

// Warn logs at warn level with context
func Warn(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Warn()
}

// SetLevel sets the global log level
func SetLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
