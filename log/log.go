// Package log holds the process-wide zap logger used by every other package.
package log

import (
	"fmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L returns the process-wide logger. It is a no-op logger until Init or Set is called.
func L() *zap.Logger {
	return zap.L()
}

// Init builds a logger at the given level and installs it as the process-wide logger.
// Development loggers write human-readable console output, production loggers write JSON.
func Init(level string, development bool) error {
	parsedLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level %q: %w", level, err)
	}

	var config zap.Config
	if development {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(parsedLevel)

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	Set(logger)
	return nil
}

// Set installs logger as the process-wide logger and returns a function restoring the previous one.
func Set(logger *zap.Logger) func() {
	return zap.ReplaceGlobals(logger)
}
