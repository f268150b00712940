package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/angle_viewer/internal/config"
	"github.com/relabs-tech/angle_viewer/internal/orientation"
	"github.com/relabs-tech/angle_viewer/internal/publish"
)

// RunConsoleMQTT prints the angles a viewer publishes on TOPIC_ANGLES.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is not set")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	logger.Info("connected to MQTT broker", "broker", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicAngles, 0, func(_ mqtt.Client, msg mqtt.Message) {
		line, err := formatPublished(msg.Payload())
		if err != nil {
			logger.Warn("angles unmarshal error", "topic", msg.Topic(), "error", err)
			return
		}
		fmt.Fprintln(out, line)
	})
	token.Wait()
	if token.Error() != nil {
		client.Disconnect(250)
		return token.Error()
	}
	logger.Info("subscribed", "topic", cfg.TopicAngles)

	<-ctx.Done()

	logger.Info("console shutting down")
	client.Disconnect(250)
	return nil
}

func formatPublished(payload []byte) (string, error) {
	m, err := publish.Decode(payload)
	if err != nil {
		return "", err
	}
	line := formatAngles("MQTT", orientation.Angles{Vertical: m.Vertical, Horizontal: m.Horizontal})
	if !m.Timestamp.IsZero() {
		line += "  at " + m.Timestamp.Format("15:04:05.000")
	}
	return line, nil
}
