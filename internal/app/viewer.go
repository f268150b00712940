package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/angle_viewer/internal/config"
	"github.com/relabs-tech/angle_viewer/internal/connection"
	"github.com/relabs-tech/angle_viewer/internal/gauge"
	"github.com/relabs-tech/angle_viewer/internal/orientation"
	"github.com/relabs-tech/angle_viewer/internal/publish"
)

// Viewer wires the source connection to the two gauges and, when a broker
// is configured, to the MQTT publisher.
type Viewer struct {
	Vertical   *gauge.Gauge
	Horizontal *gauge.Gauge
	Client     *connection.Client
	Publisher  *publish.Publisher // nil when MQTT_BROKER is empty

	logger *slog.Logger
}

// NewViewer builds a viewer from cfg. Nothing connects until Run.
func NewViewer(cfg *config.Config, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Viewer{
		Vertical:   gauge.New(cfg.GaugeVerticalTitle, cfg.GaugeMin, cfg.GaugeMax),
		Horizontal: gauge.New(cfg.GaugeHorizontalTitle, cfg.GaugeMin, cfg.GaugeMax),
		logger:     logger,
	}

	binder := orientation.NewBinder(v.Vertical, v.Horizontal, logger.With("component", "binder"))
	if cfg.MQTTBroker != "" {
		v.Publisher = publish.NewPublisher(publish.Config{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientIDViewer,
			Topic:    cfg.TopicAngles,
		}, logger.With("component", "mqtt"))
		binder.SetPublisher(v.Publisher)
	}

	v.Client = connection.NewClient(
		clientConfig(cfg),
		binder,
		retryPolicy(cfg),
		logger.With("component", "connection"),
	)
	return v
}

// Run drives the source connection until ctx ends or the connection handler
// stops. The publisher connects in the background and never fails Run.
func (v *Viewer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if v.Publisher != nil {
		defer v.Publisher.Disconnect()
		g.Go(func() error {
			if err := v.Publisher.Connect(gctx); err != nil && gctx.Err() == nil {
				v.logger.Warn("mqtt publisher unavailable", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer cancel() // no publishing once the handler is done
		return v.Client.Run(gctx)
	})

	return g.Wait()
}

// HasData reports whether any sample reached the gauges.
func (v *Viewer) HasData() bool {
	return v.Vertical.Reading().Updates > 0
}

func clientConfig(cfg *config.Config) connection.Config {
	return connection.Config{
		URL:              cfg.SourceURL,
		Handshake:        cfg.HandshakeMessage,
		HandshakeTimeout: time.Duration(cfg.HandshakeTimeout) * time.Millisecond,
		WriteTimeout:     time.Duration(cfg.WriteTimeout) * time.Millisecond,
	}
}

func retryPolicy(cfg *config.Config) backoff.BackOff {
	return connection.NewRetryPolicy(
		cfg.Reconnect,
		time.Duration(cfg.ReconnectBaseDelay)*time.Millisecond,
		time.Duration(cfg.ReconnectMaxDelay)*time.Millisecond,
		cfg.ReconnectMaxAttempts,
	)
}
