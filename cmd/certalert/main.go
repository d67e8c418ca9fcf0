package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"certalert/internal/app"
	"certalert/internal/config"
	"certalert/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "critical: config load failed: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.Name, cfg.Env, logger.Options{
		Level:      cfg.Logger.Level,
		Filename:   cfg.Logger.Filename,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "critical: logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("application starting",
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.Env),
		zap.String("mode", cfg.App.Mode),
	)

	if err := app.Run(ctx, cfg, log); err != nil {
		log.Error("application crashed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}

	log.Info("shutdown complete")
}
