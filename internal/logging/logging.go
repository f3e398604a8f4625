// Package logging builds the zap logger used across aichat.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a debug-level development logger writing to path when verbose
// is set, and a no-op logger otherwise. Logs never go to the terminal, which
// belongs to the TUI or to streamed output.
func New(verbose bool, path string) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	if path == "" {
		return nil, fmt.Errorf("verbose logging needs a log file path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Named("aichat"), nil
}
