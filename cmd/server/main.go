package main

import (
	"log/slog"
	"os"

	"pack-portal/internal/app"
	"pack-portal/internal/config"
	"pack-portal/internal/logger"
)

func main() {
	slog.SetDefault(slog.New(logger.New("pretty", "info", os.Stdout)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(logger.New(cfg.LogFormat, cfg.LogLevel, os.Stdout)))

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
