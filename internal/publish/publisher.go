// Package publish forwards displayed angles to an MQTT broker.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/angle_viewer/internal/orientation"
)

// ErrStopped is returned by Connect after Disconnect.
var ErrStopped = errors.New("publisher stopped")

// Message is the JSON document published on the angles topic.
type Message struct {
	Vertical   float64   `json:"vertical"`
	Horizontal float64   `json:"horizontal"`
	Timestamp  time.Time `json:"timestamp"`
}

// Config configures a Publisher.
type Config struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Topic    string
}

// Publisher implements orientation.Publisher on top of paho.
type Publisher struct {
	client mqtt.Client
	cfg    Config
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool
	dropped   atomic.Uint64
	skipped   atomic.Uint64

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewPublisher creates a publisher. Nothing is sent until Connect succeeds.
func NewPublisher(cfg Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.Broker, "topic", cfg.Topic)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost, dropping angles until reconnected", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// Connect waits for the first broker connection. It respects ctx and
// Disconnect.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return ErrStopped
	default:
	}

	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return ErrStopped
		default:
		}
	}
}

// Publish sends a at QoS 0 without waiting for the broker. While the broker
// is unreachable samples are counted as dropped and nil is returned. Samples
// with a NaN or infinite angle have no JSON form; they are counted as skipped.
func (p *Publisher) Publish(a orientation.Angles) error {
	if !finite(a.Vertical) || !finite(a.Horizontal) {
		p.skipped.Add(1)
		return nil
	}
	if !p.IsConnected() {
		p.dropped.Add(1)
		return nil
	}

	data, err := Encode(a, time.Now())
	if err != nil {
		return err
	}
	p.client.Publish(p.cfg.Topic, 0, false, data)
	return nil
}

// Dropped returns the number of samples skipped while disconnected.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Skipped returns the number of non-finite samples not published.
func (p *Publisher) Skipped() uint64 {
	return p.skipped.Load()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// IsConnected returns whether the broker connection is up.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect stops the publisher. Safe to call more than once.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.client.Disconnect(250)
	p.setConnected(false)
	p.logger.Info("mqtt disconnected", "dropped", p.Dropped(), "skipped", p.Skipped())
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

// Encode marshals a with its timestamp.
func Encode(a orientation.Angles, at time.Time) ([]byte, error) {
	data, err := json.Marshal(Message{Vertical: a.Vertical, Horizontal: a.Horizontal, Timestamp: at.UTC()})
	if err != nil {
		return nil, fmt.Errorf("marshal angles: %w", err)
	}
	return data, nil
}

// Decode parses a published document.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("unmarshal angles: %w", err)
	}
	return m, nil
}
