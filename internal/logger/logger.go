// File: internal/logger/logger.go
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Sets the log level when --debug is not given (debug, info, warn, error)
const LevelEnv = "CABINET_LOG_LEVEL"

// Logs go to stderr so command output on stdout stays pipeable
func NewLogger(debug bool) *slog.Logger {
	return New(os.Stderr, resolveLevel(debug, os.Getenv(LevelEnv)))
}

func New(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(w, opts)

	logger := slog.New(handler)

	slog.SetDefault(logger)
	return logger
}

func resolveLevel(debug bool, envLevel string) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(envLevel)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
