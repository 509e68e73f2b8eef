package log

import (
	"io"
	"log/slog"
	"os"
)

// SetOutput sends log records to w, keeping the level chosen by InitLogger
func SetOutput(w io.Writer) {
	level := slog.LevelInfo
	if os.Getenv(EnvDebug) != "" {
		level = slog.LevelDebug
	}
	Logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(Logger)
}
