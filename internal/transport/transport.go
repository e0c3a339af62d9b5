package transport

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected  = errors.New("transport not connected")
	ErrAlreadyClosed = errors.New("transport already closed")
)

// RawFrame wraps one inbound transport message.
type RawFrame struct {
	Data       []byte    // Raw message bytes
	ReceivedAt time.Time // Local timestamp when the read returned
	Generation uint64    // Generation of the transport that produced it
}

// Config configures a single transport instance.
type Config struct {
	URL          string        // WebSocket URL (e.g., wss://api.ariavoice.dev/session)
	AuthToken    string        // Bearer token for the Authorization header
	DialTimeout  time.Duration // WebSocket handshake deadline
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Frame channel buffer size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DialTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   256,
	}
}
