// Package logging builds the structured zap loggers used by the service and CLI.
package logging

import (
	"fmt"
	"os"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the logger.
type Options struct {
	// Level is a zap level name: debug, info, warn, error
	Level string
	// File, when set, additionally writes JSON logs to a daily rotated file
	File string
	// MaxAge is how long rotated files are kept (default 7 days)
	MaxAge time.Duration
}

// NewLogger builds a production ready structured logger writing JSON to stderr.
func NewLogger(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}

	if opts.File != "" {
		w, err := newRotatingWriter(opts.File, opts.MaxAge)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.AddSync(w), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func newRotatingWriter(path string, maxAge time.Duration) (*rotatelogs.RotateLogs, error) {
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	w, err := rotatelogs.New(
		path+".%Y%m%d",
		rotatelogs.WithLinkName(path),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(maxAge),
	)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return w, nil
}

// WithOperation enriches the logger with operation and user identifiers.
func WithOperation(logger *zap.Logger, operation, userID string) *zap.Logger {
	fields := []zap.Field{zap.String("operation", operation)}
	if userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}
	return logger.With(fields...)
}
