package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/novel-engine/internal/config"
)

// Setup configures the global slog logger based on environment. A nil
// writer logs to stdout.
func Setup(cfg *config.Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}

// OpenFile opens path for appending log output. The console host logs to a
// file so output does not corrupt the terminal UI.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// WithSlot adds a save slot to logger context
func WithSlot(logger *slog.Logger, slot int) *slog.Logger {
	return logger.With("slot", slot)
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
