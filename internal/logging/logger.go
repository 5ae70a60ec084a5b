// Package logging builds the zap logger shared by every command.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON logger writing to outputPath ("stderr" when empty).
// Verbose lowers the level to debug.
func New(verbose bool, outputPath string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Sampling = nil

	if outputPath == "" {
		outputPath = "stderr"
	}
	config.OutputPaths = []string{outputPath}
	config.ErrorOutputPaths = []string{outputPath}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Named("llmxray"), nil
}
