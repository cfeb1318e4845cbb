package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogLevel is used when no level is configured.
const DefaultLogLevel = "warn"

const invalidLogLevelFormat = "invalid log level %q"

// ParseLogLevel converts a configured level name into a zap level.
func ParseLogLevel(levelName string) (zapcore.Level, error) {
	normalized := strings.ToLower(strings.TrimSpace(levelName))
	if normalized == "" {
		normalized = DefaultLogLevel
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(normalized)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf(invalidLogLevelFormat, levelName)
	}
	return level, nil
}

// NewApplicationLogger constructs a zap logger configured for human-readable
// console output on stderr at the given level.
func NewApplicationLogger(levelName string) (*zap.Logger, error) {
	level, levelErr := ParseLogLevel(levelName)
	if levelErr != nil {
		return nil, levelErr
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.Encoding = "console"
	config.DisableCaller = true
	config.DisableStacktrace = true
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.TimeKey = ""
	config.EncoderConfig.NameKey = ""
	config.EncoderConfig.CallerKey = ""
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.StacktraceKey = ""
	return config.Build()
}
