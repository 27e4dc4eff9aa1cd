package ioc

import (
	"log/slog"
	"os"

	"github.com/KNICEX/decision-agent/internal/config"
	"github.com/KNICEX/decision-agent/internal/trace"
)

func InitLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(trace.NewLogHandler(handler))
	slog.SetDefault(logger)
	return logger
}
