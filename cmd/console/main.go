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
	"time"

	"github.com/relabs-tech/angle_viewer/internal/app"
	"github.com/relabs-tech/angle_viewer/internal/config"
	"github.com/relabs-tech/angle_viewer/internal/logging"
	"github.com/relabs-tech/angle_viewer/internal/version"
)

func main() {
	configPath := flag.String("config", "viewer_config.txt", "path to the configuration file")
	mock := flag.Bool("mock", false, "print the built-in mock source instead of connecting")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := logging.New(cfg.AppEnv, level, version.Version, "angle-viewer-console")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if *mock {
		logger.Info("starting angle console (mock source)")
		err = app.RunMockConsole(ctx, os.Stdout, time.Duration(cfg.ProducerInterval)*time.Millisecond)
	} else {
		logger.Info("starting angle console", "source", cfg.SourceURL)
		err = app.RunConsole(ctx, cfg, logger, os.Stdout)
	}
	if err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}
