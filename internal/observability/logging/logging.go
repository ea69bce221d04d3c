// Package logging builds the service logger and the restricted sikkerlogg logger.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON logger. env "production" disables development mode.
func New(level, env string) (*zap.Logger, error) {
	return build(level, env, []string{"stdout"}, []string{"stderr"})
}

// NewSikkerlogg builds the logger for payloads that may contain personal data.
// It writes only to path and is never sampled.
func NewSikkerlogg(path, env string) (*zap.Logger, error) {
	if path == "" {
		path = "stdout"
	}
	logger, err := build("debug", env, []string{path}, []string{"stderr"})
	if err != nil {
		return nil, err
	}
	return logger.Named("sikkerlogg"), nil
}

func build(level, env string, outputPaths, errorOutputPaths []string) (*zap.Logger, error) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Development:      env == "development",
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: errorOutputPaths,
	}
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
