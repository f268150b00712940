// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/angle_viewer/internal/config"
	"github.com/relabs-tech/angle_viewer/internal/frame"
	"github.com/relabs-tech/angle_viewer/internal/orientation"
)

const (
	producerWriteWait  = 10 * time.Second
	producerSendBuffer = 64
	producerReadLimit  = 4096
)

// producerClient is one connected viewer.
type producerClient struct {
	id   string
	send chan []byte
}

// Producer is the source side of the socket: it accepts viewers and sends
// every one of them the same orientation records.
type Producer struct {
	src      orientation.Source
	interval time.Duration
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	clients  map[*producerClient]struct{}
	sequence uint32
}

// NewProducer creates a producer that samples src every interval.
func NewProducer(src orientation.Source, interval time.Duration, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{
		src:      src,
		interval: interval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			// viewers may be opened from file:// or another port
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*producerClient]struct{}),
	}
}

// RunProducer serves mock orientation records on PRODUCER_PORT until ctx ends.
func RunProducer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	p := NewProducer(
		orientation.NewMockSource(),
		time.Duration(cfg.ProducerInterval)*time.Millisecond,
		logger,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok clients=%d\n", p.ClientCount())
	})
	mux.Handle("/", p)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ProducerPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("producer listening", "addr", srv.Addr, "interval", p.interval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("producer server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		p.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Run samples the source on every tick and broadcasts the record. It returns
// nil when ctx ends.
func (p *Producer) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			s, err := p.src.Next()
			if err != nil {
				p.logger.Warn("error from mock source", "error", err)
				continue
			}
			p.Broadcast(p.record(t, s))
		}
	}
}

// record lays out one frame. The header carries the send time in unix
// milliseconds followed by a sequence number; viewers ignore it.
func (p *Producer) record(t time.Time, s frame.Sample) []byte {
	p.mu.Lock()
	p.sequence++
	seq := p.sequence
	p.mu.Unlock()

	var header [frame.HeaderSize]byte
	binary.BigEndian.PutUint64(header[0:8], uint64(t.UnixMilli()))
	binary.BigEndian.PutUint32(header[8:12], seq)
	return frame.Encode(header, s)
}

// Broadcast queues data for every client. A client whose buffer is full is
// disconnected rather than slowing the others down.
func (p *Producer) Broadcast(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for c := range p.clients {
		select {
		case c.send <- data:
		default:
			delete(p.clients, c)
			close(c.send)
			p.logger.Warn("client send buffer full, disconnecting", "client_id", c.id)
		}
	}
}

// ClientCount returns the number of connected viewers.
func (p *Producer) ClientCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

// ServeHTTP upgrades the request and serves one viewer until it leaves.
func (p *Producer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.Warn("failed to upgrade connection", "error", err)
		return
	}

	c := &producerClient{
		id:   uuid.New().String(),
		send: make(chan []byte, producerSendBuffer),
	}
	p.register(c)
	log := p.logger.With("client_id", c.id)
	log.Info("viewer connected", "remote", r.RemoteAddr)

	go p.writePump(conn, c)
	p.readPump(conn, c, log)
}

func (p *Producer) register(c *producerClient) {
	p.mu.Lock()
	p.clients[c] = struct{}{}
	n := len(p.clients)
	p.mu.Unlock()
	p.logger.Debug("client registered", "client_id", c.id, "clients", n)
}

func (p *Producer) unregister(c *producerClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.clients[c]; ok {
		delete(p.clients, c)
		close(c.send)
	}
}

func (p *Producer) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for c := range p.clients {
		delete(p.clients, c)
		close(c.send)
	}
}

// readPump logs what viewers send (the greeting) until the connection ends.
func (p *Producer) readPump(conn *websocket.Conn, c *producerClient, log *slog.Logger) {
	defer func() {
		p.unregister(c)
		conn.Close()
	}()

	conn.SetReadLimit(producerReadLimit)
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("viewer connection error", "error", err)
			}
			log.Info("viewer disconnected")
			return
		}
		switch messageType {
		case websocket.TextMessage:
			log.Info("message from viewer", "text", string(data))
		default:
			log.Debug("ignoring non-text message", "type", messageType, "bytes", len(data))
		}
	}
}

// writePump sends queued records as binary frames.
func (p *Producer) writePump(conn *websocket.Conn, c *producerClient) {
	defer conn.Close()

	for data := range c.send {
		conn.SetWriteDeadline(time.Now().Add(producerWriteWait))
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			return
		}
	}
	conn.SetWriteDeadline(time.Now().Add(producerWriteWait))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "producer stopping"))
}
