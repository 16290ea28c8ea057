package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/RichardoC/dehost/internal/app"
	"github.com/RichardoC/dehost/internal/config"
)

func main() {
	configPath := flag.String("config", "dehost.yml", "config file path")
	flag.Parse()

	bootLogger, _ := zap.NewProduction()
	defer bootLogger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger.Fatal("failed to load config",
			zap.Error(err),
			zap.String("configPath", *configPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		bootLogger.Fatal("failed to initialize dehost", zap.Error(err))
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		a.Logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
