package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taskReminder/internal/app"
	"taskReminder/internal/config"
	"taskReminder/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := pflag.StringP("config", "c", "config.yml", "path to the YAML config file")
	pflag.Parse()

	cfg, v, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.Logging.Development, cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	config.Watch(v, func(next *config.Config, e fsnotify.Event) {
		if err := logger.SetLevel(next.Logging.Level); err != nil {
			logger.Warn("Config: bad logging level on reload", zap.String("level", next.Logging.Level), zap.Error(err))
			return
		}
		logger.Info("Config: reloaded", zap.String("file", e.Name), zap.String("level", next.Logging.Level))
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg)
	if err := a.Init(ctx); err != nil {
		logger.Error("App: init failed", err)
		return 1
	}

	if err := a.Run(ctx); err != nil {
		logger.Error("App: stopped with error", err)
		return 1
	}
	logger.Info("App: stopped")
	return 0
}
