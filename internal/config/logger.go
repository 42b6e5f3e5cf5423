package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a configured Zap logger.
// Level is one of debug, info, warn, error (default info) and format is
// json or console (default json).
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var zcfg zap.Config
	switch cfg.Format {
	case "console":
		zcfg = zap.NewDevelopmentConfig()
	case "json", "":
		zcfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q: must be \"json\" or \"console\"", cfg.Format)
	}

	zcfg.Level = zap.NewAtomicLevelAt(zapLevel)

	return zcfg.Build()
}
