// Package logger builds the zap logger used across taskquest and provides
// field constructors for the values the progression engine logs most often.
package logger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the encoder.
type Format string

const (
	// FormatJSON is the production encoder.
	FormatJSON Format = "json"
	// FormatConsole is the human-readable development encoder.
	FormatConsole Format = "console"
)

// Options configures the logger.
type Options struct {
	Level     string
	Format    Format
	AddCaller bool
	// OutputPaths defaults to stdout.
	OutputPaths []string
}

// DefaultOptions returns sensible defaults for the logger.
func DefaultOptions() Options {
	return Options{
		Level:       "info",
		Format:      FormatJSON,
		AddCaller:   true,
		OutputPaths: []string{"stdout"},
	}
}

// ParseLevel parses a string into a zap level. Unknown values fall back to info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// New creates a zap logger with the given options.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	switch opts.Format {
	case FormatConsole:
		cfg = zap.NewDevelopmentConfig()
	case FormatJSON, "":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	default:
		return nil, fmt.Errorf("logger: unknown format %q", opts.Format)
	}

	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(opts.Level))
	cfg.DisableCaller = !opts.AddCaller
	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = opts.OutputPaths
	}

	return cfg.Build()
}

// Default creates a logger with default options, or a no-op logger if that fails.
func Default() *zap.Logger {
	l, err := New(DefaultOptions())
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// Context key for logger.
type ctxKey struct{}

// WithContext returns a new context with the logger attached.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context, or returns a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// RequestIDKey is a common field key for request tracing.
const RequestIDKey = "request_id"

// RequestID returns the request id field.
func RequestID(id string) zap.Field { return zap.String(RequestIDKey, id) }

// Progression-related logging helpers.
func UserID(id string) zap.Field        { return zap.String("user_id", id) }
func Username(name string) zap.Field    { return zap.String("username", name) }
func TaskID(id string) zap.Field        { return zap.String("task_id", id) }
func Points(p int) zap.Field            { return zap.Int("points", p) }
func Level(l int) zap.Field             { return zap.Int("level", l) }
func Streak(s int) zap.Field            { return zap.Int("streak", s) }
func BadgeName(name string) zap.Field   { return zap.String("badge", name) }
func Component(name string) zap.Field   { return zap.String("component", name) }
func Operation(name string) zap.Field   { return zap.String("operation", name) }
func Attempt(n int) zap.Field           { return zap.Int("attempt", n) }
func Latency(d time.Duration) zap.Field { return zap.Duration("latency", d) }
