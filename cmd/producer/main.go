package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/angle_viewer/internal/app"
	"github.com/relabs-tech/angle_viewer/internal/config"
	"github.com/relabs-tech/angle_viewer/internal/logging"
	"github.com/relabs-tech/angle_viewer/internal/version"
)

func main() {
	configPath := flag.String("config", "viewer_config.txt", "path to the configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := logging.New(cfg.AppEnv, level, version.Version, "angle-producer-mock")
	slog.SetDefault(logger)
	logger.Info("starting mock orientation producer", "port", cfg.ProducerPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunProducer(ctx, cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}
