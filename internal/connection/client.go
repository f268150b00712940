package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/angle_viewer/internal/frame"
)

// Client owns the connection to the orientation source. Run drives sessions
// until the context ends, Close is called or the retry policy gives up.
type Client struct {
	cfg     Config
	handler BinaryHandler
	retry   backoff.BackOff
	logger  *slog.Logger
	dialer  websocket.Dialer

	writeMu sync.Mutex

	// dispatchMu spans the stop check and the dispatch of one frame, so
	// once Close returns no frame reaches the handler.
	dispatchMu sync.Mutex

	mu          sync.RWMutex
	state       State
	conn        *websocket.Conn
	sessionID   string
	connectedAt time.Time
	stats       Stats
	lastErr     error

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a client that forwards binary frames to handler. A nil
// retry policy means a single attempt; a nil logger uses slog.Default().
func NewClient(cfg Config, handler BinaryHandler, retry backoff.BackOff, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if retry == nil {
		retry = &backoff.StopBackOff{}
	}
	return &Client{
		cfg:     cfg,
		handler: handler,
		retry:   retry,
		logger:  logger,
		dialer: websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		done: make(chan struct{}),
	}
}

// Run connects and keeps reconnecting per the retry policy.
//
// It returns nil on context cancellation, on Close, or when the last session
// ended with a normal close and the policy does not retry. An invalid URL
// yields ErrInvalidURL and a failing source that the policy gives up on
// yields ErrRetriesExhausted.
func (c *Client) Run(ctx context.Context) error {
	if err := validateURL(c.cfg.URL); err != nil {
		c.fail(err)
		return err
	}
	if c.isClosed() {
		return ErrClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	c.retry.Reset()
	for {
		established, err := c.session(ctx)
		if c.stopped(ctx) {
			c.setState(StateClosed)
			c.logger.Info("connection handler stopped")
			return nil
		}
		c.recordError(err)

		if established {
			c.retry.Reset()
		}
		wait := c.retry.NextBackOff()
		if wait == backoff.Stop {
			c.setState(StateClosed)
			if isNormalClose(err) {
				c.logger.Info("source closed the connection, not reconnecting")
				return nil
			}
			return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
		}

		c.logger.Warn("reconnecting", "in", wait, "error", err)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.setState(StateClosed)
			c.logger.Info("connection handler stopped")
			return nil
		case <-timer.C:
		}
	}
}

// session runs one connection from dial to close. established reports
// whether the dial succeeded.
func (c *Client) session(ctx context.Context) (established bool, err error) {
	c.setState(StateConnecting)
	id := uuid.NewString()
	log := c.logger.With("session_id", id)

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		log.Warn("connect failed", "url", c.cfg.URL, "error", err)
		return false, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		conn.Close()
		c.mu.Lock()
		c.conn = nil
		if c.state != StateClosed {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
	}()

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.sessionID = id
	c.connectedAt = time.Now()
	c.stats.Sessions++
	c.mu.Unlock()
	log.Info("connected", "url", c.cfg.URL)

	if err := c.write(conn, websocket.TextMessage, []byte(c.cfg.Handshake)); err != nil {
		return true, fmt.Errorf("send handshake: %w", err)
	}
	log.Info("handshake sent", "message", c.cfg.Handshake)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if c.stopped(ctx) {
				return true, ctx.Err()
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				log.Info("connection closed", "code", ce.Code, "reason", ce.Text)
			} else {
				log.Warn("connection lost", "error", err)
			}
			return true, fmt.Errorf("read: %w", err)
		}
		if !c.dispatchUnlessStopped(ctx, log, frame.FromWebsocket(messageType, data)) {
			return true, ctx.Err()
		}
	}
}

// dispatchUnlessStopped hands msg to dispatch unless the client was stopped
// after the frame was read. It reports whether msg was dispatched.
func (c *Client) dispatchUnlessStopped(ctx context.Context, log *slog.Logger, msg frame.Message) bool {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	if c.stopped(ctx) {
		return false
	}
	c.dispatch(log, msg)
	return true
}

func (c *Client) dispatch(log *slog.Logger, msg frame.Message) {
	switch m := msg.(type) {
	case frame.Text:
		c.count(func(s *Stats) { s.TextFrames++ })
		log.Info("text frame received", "text", string(m))
	case frame.Binary:
		c.count(func(s *Stats) { s.BinaryFrames++ })
		if err := c.handler.HandleBinary(m); err != nil {
			if errors.Is(err, frame.ErrShortPayload) {
				c.count(func(s *Stats) { s.Malformed++ })
			}
			log.Warn("binary frame skipped", "bytes", len(m), "error", err)
		}
	case frame.Unknown:
		c.count(func(s *Stats) { s.Unknown++ })
		log.Warn("unexpected frame ignored", "opcode", m.Opcode, "bytes", len(m.Data))
	}
}

func (c *Client) write(conn *websocket.Conn, messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	return conn.WriteMessage(messageType, data)
}

// Close stops Run and closes the active connection, if any. It waits for a
// frame being dispatched to finish, so it must not be called from the
// BinaryHandler. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.dispatchMu.Lock()
		close(c.done)
		c.dispatchMu.Unlock()

		c.mu.Lock()
		c.state = StateClosed
		conn := c.conn
		c.mu.Unlock()

		if conn != nil {
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			err = conn.Close()
		}
	})
	return err
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Stats returns a snapshot of the client counters.
func (c *Client) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.stats
	s.State = c.state.String()
	s.URL = c.cfg.URL
	s.SessionID = c.sessionID
	if c.state == StateConnected {
		s.ConnectedAt = c.connectedAt
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

func (c *Client) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return c.isClosed()
}

func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) count(f func(*Stats)) {
	c.mu.Lock()
	f(&c.stats)
	c.mu.Unlock()
}

func (c *Client) recordError(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.state = StateClosed
	c.mu.Unlock()
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: %q needs a ws:// or wss:// scheme", ErrInvalidURL, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	return nil
}

func isNormalClose(err error) bool {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
}
