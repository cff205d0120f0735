// Package logger constructs the *zap.Logger every stage of the pipeline
// logs through. The teacher's cmd/ binaries call logger.New() and pass the
// result explicitly down through constructors; this package keeps that
// convention rather than reaching for a package-level global.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production zap logger with ISO8601 timestamps, matching the
// teacher's cmd/engine and cmd/preprocessor entry points.
func New() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// NewDevelopment builds a human-readable console logger, used by cmd/extract
// when run with --verbose.
func NewDevelopment() (*zap.Logger, error) {
	return zap.NewDevelopment()
}
