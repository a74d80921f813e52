package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a production ready structured logger at the given level.
// An empty or unknown level falls back to info.
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if lvl, err := zapcore.ParseLevel(strings.TrimSpace(level)); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

// WithOperation enriches the logger with operation and image identifiers.
func WithOperation(logger *zap.Logger, operation, imageID string) *zap.Logger {
	fields := []zap.Field{zap.String("operation", operation)}
	if imageID != "" {
		fields = append(fields, zap.String("image_id", imageID))
	}
	return logger.With(fields...)
}
