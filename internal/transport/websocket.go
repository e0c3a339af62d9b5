package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is a single duplex message stream to the backend.
type Transport interface {
	// Connect establishes the underlying connection.
	Connect(ctx context.Context) error

	// Close gracefully closes the connection. Safe to call twice.
	Close() error

	// Send writes one message to the connection.
	Send(data []byte) error

	// Ping sends a protocol-level liveness probe.
	Ping(data []byte) error

	// Frames returns the channel of inbound messages.
	Frames() <-chan RawFrame

	// Pongs returns a channel signaled on each protocol-level pong.
	Pongs() <-chan struct{}

	// Errors returns a channel of connection errors from the read loop.
	Errors() <-chan error

	// Generation returns the generation tag of this transport instance.
	Generation() uint64

	// IsConnected returns current connection state.
	IsConnected() bool
}

// Factory creates a fresh Transport per connection attempt. The session
// layer holds a Factory so tests can substitute an in-memory transport.
type Factory func(cfg Config, logger *slog.Logger) Transport

// generation is a process-wide counter; each transport instance gets the
// next value so stale frames are distinguishable after a reconnect.
var generation atomic.Uint64

// wsTransport implements Transport over a WebSocket.
type wsTransport struct {
	cfg    Config
	logger *slog.Logger
	gen    uint64

	conn *websocket.Conn

	frames chan RawFrame
	pongs  chan struct{}
	errs   chan error
	done   chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu        sync.RWMutex
	connected bool
	closed    bool
}

// NewWebSocket creates a WebSocket transport. It satisfies Factory.
func NewWebSocket(cfg Config, logger *slog.Logger) Transport {
	if logger == nil {
		logger = slog.Default()
	}

	return &wsTransport{
		cfg:    cfg,
		logger: logger,
		gen:    generation.Add(1),
		frames: make(chan RawFrame, cfg.BufferSize),
		pongs:  make(chan struct{}, 1),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// Connect dials the WebSocket endpoint and starts the read loop.
func (t *wsTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrAlreadyClosed
	}
	t.mu.Unlock()

	header := http.Header{}
	header.Set("Accept", "application/json")
	if t.cfg.AuthToken != "" {
		header.Set("Authorization", "Bearer "+t.cfg.AuthToken)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: t.cfg.DialTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, t.cfg.URL, header)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.conn = conn
	t.connected = true
	t.mu.Unlock()

	// Server pings are answered in kind; our own liveness probes are
	// acknowledged via the pong handler below.
	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	conn.SetPongHandler(func(string) error {
		select {
		case t.pongs <- struct{}{}:
		default:
		}
		return nil
	})

	go t.readLoop()

	t.logger.Debug("transport connected", "url", t.cfg.URL, "generation", t.gen)

	return nil
}

// Close gracefully closes the connection.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.connected = false
	conn := t.conn
	t.mu.Unlock()

	close(t.done)

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}

	return nil
}

// Send writes one message to the connection.
func (t *wsTransport) Send(data []byte) error {
	t.mu.RLock()
	if !t.connected {
		t.mu.RUnlock()
		return ErrNotConnected
	}
	conn := t.conn
	t.mu.RUnlock()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Ping sends a protocol-level liveness probe.
func (t *wsTransport) Ping(data []byte) error {
	t.mu.RLock()
	if !t.connected {
		t.mu.RUnlock()
		return ErrNotConnected
	}
	conn := t.conn
	t.mu.RUnlock()

	deadline := time.Now().Add(t.cfg.WriteTimeout)
	return conn.WriteControl(websocket.PingMessage, data, deadline)
}

func (t *wsTransport) Frames() <-chan RawFrame { return t.frames }
func (t *wsTransport) Pongs() <-chan struct{}  { return t.pongs }
func (t *wsTransport) Errors() <-chan error    { return t.errs }
func (t *wsTransport) Generation() uint64      { return t.gen }

// IsConnected returns the current connection state.
func (t *wsTransport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

// readLoop reads messages and feeds the frame channel until the
// connection dies or Close is called.
func (t *wsTransport) readLoop() {
	defer func() {
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()
	}()

	for {
		select {
		case <-t.done:
			return
		default:
		}

		_, data, err := t.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-t.done:
				return
			default:
				select {
				case t.errs <- err:
				default:
				}
				return
			}
		}

		frame := RawFrame{
			Data:       data,
			ReceivedAt: receivedAt,
			Generation: t.gen,
		}

		select {
		case t.frames <- frame:
		case <-t.done:
			return
		default:
			t.logger.Warn("frame buffer full, dropping message", "generation", t.gen)
		}
	}
}
