// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

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

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := logging.New(cfg.AppEnv, level, version.Version, "angle-viewer-web")
	slog.SetDefault(logger)

	logger.Info("starting angle viewer web server",
		"version", version.String(),
		"source", cfg.SourceURL,
		"reconnect", cfg.Reconnect,
		"mqtt", cfg.MQTTBroker != "",
		"panel", cfg.PanelEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunWeb(ctx, cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}
