package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Level comes from LINKTRAY_LOG_LEVEL; the
// default is info. The logger is returned, not stashed in a package global,
// and injected into every component.
func New() *zap.Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(levelFromEnv())
	log, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func levelFromEnv() zapcore.Level {
	switch strings.ToLower(os.Getenv("LINKTRAY_LOG_LEVEL")) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
