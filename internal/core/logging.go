package core

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds the root logger from config. Components derive
// child loggers with .With().Str("component", ...).
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var logger zerolog.Logger
	if strings.ToLower(cfg.Format) == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	}

	return logger.Level(level).With().Timestamp().Logger()
}
