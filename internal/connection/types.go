package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrClosed           = errors.New("client closed")
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
	ErrInvalidURL       = errors.New("invalid source url")
)

// State is the lifecycle state of a Client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// BinaryHandler consumes binary frames. A returned error is logged and the
// frame is skipped; it never ends the session.
type BinaryHandler interface {
	HandleBinary(payload []byte) error
}

// BinaryHandlerFunc adapts a function to BinaryHandler.
type BinaryHandlerFunc func(payload []byte) error

// HandleBinary calls f(payload).
func (f BinaryHandlerFunc) HandleBinary(payload []byte) error {
	return f(payload)
}

// Config configures a Client.
type Config struct {
	URL              string        // ws:// or wss:// endpoint
	Handshake        string        // text frame sent once per session after connecting
	HandshakeTimeout time.Duration // websocket opening handshake
	WriteTimeout     time.Duration // write deadline for outbound frames
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:              "ws://localhost:5801",
		Handshake:        "hi there",
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// Stats is a snapshot of client bookkeeping.
type Stats struct {
	State        string    `json:"state"`
	URL          string    `json:"url"`
	SessionID    string    `json:"session_id,omitempty"`
	ConnectedAt  time.Time `json:"connected_at,omitzero"`
	Sessions     uint64    `json:"sessions"`
	TextFrames   uint64    `json:"text_frames"`
	BinaryFrames uint64    `json:"binary_frames"`
	Malformed    uint64    `json:"malformed_frames"`
	Unknown      uint64    `json:"unknown_frames"`
	LastError    string    `json:"last_error,omitempty"`
}
