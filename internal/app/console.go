// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/relabs-tech/angle_viewer/internal/config"
	"github.com/relabs-tech/angle_viewer/internal/connection"
	"github.com/relabs-tech/angle_viewer/internal/frame"
	"github.com/relabs-tech/angle_viewer/internal/orientation"
)

// RunConsole connects to the source and prints every decoded sample to out.
func RunConsole(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	client := connection.NewClient(
		clientConfig(cfg),
		consoleHandler(out),
		retryPolicy(cfg),
		logger.With("component", "connection"),
	)
	defer client.Close()

	return client.Run(ctx)
}

func consoleHandler(out io.Writer) connection.BinaryHandler {
	return connection.BinaryHandlerFunc(func(payload []byte) error {
		s, err := frame.Decode(payload)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, formatAngles("ANGLES", orientation.FromSample(s)))
		return nil
	})
}

// RunMockConsole prints the mock source without any socket, for checking
// the conversion and the terminal output.
func RunMockConsole(ctx context.Context, out io.Writer, interval time.Duration) error {
	src := orientation.NewMockSource()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s, err := src.Next()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, formatAngles("MOCK", orientation.FromSample(s)))
		}
	}
}

func formatAngles(tag string, a orientation.Angles) string {
	return fmt.Sprintf("[%-6s] VERT=%7.2f  HORIZ=%7.2f", tag, a.Vertical, a.Horizontal)
}
