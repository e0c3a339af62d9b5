package session

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ariavoice/aria-link/internal/protocol"
	"github.com/ariavoice/aria-link/internal/transport"
	"github.com/ariavoice/aria-link/internal/version"
)

// Config configures a session Manager.
type Config struct {
	URL       string // Backend WebSocket URL (e.g., wss://api.ariavoice.dev/session)
	AuthToken string // Bearer token presented during the handshake
	Locale    string // BCP 47 locale sent in the handshake

	// Client identity block for the handshake.
	ClientName    string
	ClientVersion string
	Platform      string
	InstanceID    string

	ConnectTimeout    time.Duration // Deadline for dial + handshake per attempt
	RequestTimeout    time.Duration // Default SendRequest deadline (0 = caller ctx only)
	HeartbeatInterval time.Duration // Liveness probe period while Connected
	Backoff           Policy        // Long-horizon reconnect schedule

	// Bounded local retry inside one Connect call, before the caller
	// sees an error. Distinct from the backoff reconnect schedule.
	LocalRetryCount int
	LocalRetryDelay time.Duration

	DialTimeout  time.Duration // WebSocket handshake deadline
	WriteTimeout time.Duration // Transport write deadline
	FrameBuffer  int           // Transport frame channel size
	QueueSize    int           // Dispatch queue initial capacity

	Streams StreamNames // Turn-streaming event names (zero value = defaults)

	// Transport overrides the transport constructor (tests).
	Transport transport.Factory
}

// DefaultConfig returns sensible defaults. URL and AuthToken must still
// be provided.
func DefaultConfig() Config {
	cfg := Config{
		Locale:          "en-US",
		ClientName:      "aria-link",
		ClientVersion:   version.Version,
		Platform:        runtime.GOOS,
		InstanceID:      uuid.NewString(),
		RequestTimeout:  30 * time.Second,
		LocalRetryCount: 3,
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero timing and sizing fields so a hand-built
// Config cannot produce a zero-interval heartbeat ticker or an
// unbuffered frame channel. RequestTimeout stays as given: zero means
// the caller's context alone bounds the wait.
func (c *Config) applyDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 15 * time.Second
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 20 * time.Second
	}
	if c.LocalRetryDelay == 0 {
		c.LocalRetryDelay = 1 * time.Second
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.FrameBuffer == 0 {
		c.FrameBuffer = 256
	}
	if c.QueueSize == 0 {
		c.QueueSize = 64
	}
	if c.Backoff.Base == 0 && c.Backoff.Max == 0 && c.Backoff.MaxAttempts == 0 {
		c.Backoff = DefaultPolicy()
	}
}

// Stats describes the manager for logging and telemetry.
type Stats struct {
	State       State
	Pending     int
	ActiveTurns int
	Generation  uint64
	Queue       QueueStats
}

// Manager owns the connection state machine. All state mutation is
// serialized behind one mutex; the receive loop, timers and the heartbeat
// re-enter through methods that take it. Construct one Manager per
// backend session and share it by reference.
type Manager struct {
	cfg     Config
	logger  *slog.Logger
	factory transport.Factory

	pending  *pendingTable
	dispatch *dispatcher
	queue    *frameQueue[transport.RawFrame]
	stateCh  chan State

	mu             sync.Mutex
	state          State
	tr             transport.Transport
	gen            uint64 // generation of the current transport
	recvStop       chan struct{}
	hb             *heartbeat
	reconnectTimer *time.Timer
	intentional    bool // caller asked for the disconnect; no auto-retry
	hasConnected   bool
	reachable      bool
}

// NewManager creates a session manager. A nil logger falls back to
// slog.Default().
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	factory := cfg.Transport
	if factory == nil {
		factory = transport.NewWebSocket
	}

	m := &Manager{
		cfg:       cfg,
		logger:    logger,
		factory:   factory,
		pending:   newPendingTable(),
		queue:     newFrameQueue[transport.RawFrame](cfg.QueueSize),
		stateCh:   make(chan State, 16),
		state:     State{Status: Disconnected},
		reachable: true,
	}
	m.dispatch = newDispatcher(cfg.Streams, m.resolveResponse, logger)

	go m.dispatchLoop()

	return m
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// StateChanges returns a channel of state transitions for UI and
// telemetry. Notifications are dropped, not blocked on, when the
// subscriber lags.
func (m *Manager) StateChanges() <-chan State {
	return m.stateCh
}

// Stats returns current statistics.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	state := m.state
	gen := m.gen
	m.mu.Unlock()

	return Stats{
		State:       state,
		Pending:     m.pending.size(),
		ActiveTurns: m.dispatch.accumCount(),
		Generation:  gen,
		Queue:       m.queue.stats(),
	}
}

// On registers a handler for a named server event.
func (m *Manager) On(name string, fn EventHandler) {
	m.dispatch.handle(name, fn)
}

// OnTurn registers a handler for completed streamed turns.
func (m *Manager) OnTurn(fn TurnHandler) {
	m.dispatch.handleTurn(fn)
}

// SetReachable records the current network reachability. Fed by the
// lifecycle adapter; consulted when deciding between reconnecting and
// giving up after a drop.
func (m *Manager) SetReachable(v bool) {
	m.mu.Lock()
	m.reachable = v
	m.mu.Unlock()
}

// Connect establishes the session: dial, handshake, transition to
// Connected. No-op when already connected or an attempt is in flight.
// On failure the triggering error is returned and, unless the network is
// unreachable or the caller disconnected meanwhile, a reconnect is
// scheduled.
func (m *Manager) Connect(ctx context.Context) error {
	if m.cfg.URL == "" || m.cfg.AuthToken == "" {
		return ErrNotConfigured
	}

	m.mu.Lock()
	switch m.state.Status {
	case Connected, Connecting, Reconnecting:
		m.mu.Unlock()
		return nil
	}
	m.intentional = false
	m.setStateLocked(State{Status: Connecting})
	m.mu.Unlock()

	return m.establish(ctx, 0)
}

// Disconnect tears the session down and suppresses any auto-reconnect.
// Idempotent. Every pending request observes its failure before
// Disconnect returns.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.intentional = true
	if m.state.Status == Disconnected {
		return
	}
	m.teardownLocked(ErrNotConnected)
	m.setStateLocked(State{Status: Disconnected})
}

// Suspend pauses the session without scheduling a retry. Resumption is
// driven externally (lifecycle adapter or an explicit Connect).
func (m *Manager) Suspend() {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state.Status {
	case Suspended, Disconnected, Failed:
		return
	}
	m.teardownLocked(ErrNotConnected)
	m.setStateLocked(State{Status: Suspended})
}

// Close disconnects and releases the dispatch goroutine. The manager is
// unusable afterwards.
func (m *Manager) Close() {
	m.Disconnect()
	m.queue.close()
}

// SendRequest issues a request and suspends the caller until the matching
// response arrives, the connection is lost, or ctx (bounded additionally
// by RequestTimeout) is done.
func (m *Manager) SendRequest(ctx context.Context, method string, params any) (protocol.Frame, error) {
	m.mu.Lock()
	if m.state.Status != Connected {
		m.mu.Unlock()
		return protocol.Frame{}, ErrNotConnected
	}
	tr := m.tr
	m.mu.Unlock()

	if m.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.RequestTimeout)
		defer cancel()
	}

	return m.roundTrip(ctx, tr, method, params)
}

// SendEvent emits a fire-and-forget event. Failures are logged, never
// returned: events are best-effort by contract.
func (m *Manager) SendEvent(name string, payload any) {
	m.mu.Lock()
	connected := m.state.Status == Connected
	tr := m.tr
	m.mu.Unlock()

	if !connected {
		m.logger.Warn("dropping event, not connected", "event", name)
		return
	}

	data, err := protocol.EncodeEvent(name, payload)
	if err != nil {
		m.logger.Warn("dropping unencodable event", "event", name, "error", err)
		return
	}
	if err := tr.Send(data); err != nil {
		m.logger.Warn("event send failed", "event", name, "error", err)
	}
}

// establish runs the bounded local retry loop around one dial+handshake
// sequence. attempt is the reconnect attempt that triggered it (0 for a
// fresh Connect).
func (m *Manager) establish(ctx context.Context, attempt int) error {
	tries := m.cfg.LocalRetryCount
	if tries < 1 {
		tries = 1
	}

	var lastErr error
	for i := 0; i < tries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return m.connectFailed(attempt, ctx.Err())
			case <-time.After(m.cfg.LocalRetryDelay):
			}
		}

		m.mu.Lock()
		abandoned := m.intentional || m.state.Status != Connecting
		m.mu.Unlock()
		if abandoned {
			return ErrNotConnected
		}

		if err := m.dialAndHandshake(ctx); err != nil {
			lastErr = err
			m.logger.Warn("connect attempt failed", "try", i+1, "of", tries, "error", err)
			continue
		}
		return nil
	}

	return m.connectFailed(attempt, lastErr)
}

// connectFailed decides the post-failure transition and propagates the
// triggering error to the Connect caller.
func (m *Manager) connectFailed(attempt int, cause error) error {
	m.mu.Lock()
	if m.state.Status == Connecting {
		if !m.intentional && m.reachable {
			m.toReconnectingLocked(attempt+1, cause)
		} else {
			m.toFailedLocked(cause)
		}
	}
	m.mu.Unlock()
	return cause
}

// dialAndHandshake opens a fresh transport, installs it as current, and
// performs the session.connect handshake over it.
func (m *Manager) dialAndHandshake(ctx context.Context) error {
	tcfg := transport.Config{
		URL:          m.cfg.URL,
		AuthToken:    m.cfg.AuthToken,
		DialTimeout:  m.cfg.DialTimeout,
		WriteTimeout: m.cfg.WriteTimeout,
		BufferSize:   m.cfg.FrameBuffer,
	}
	tr := m.factory(tcfg, m.logger)

	hsCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	if err := tr.Connect(hsCtx); err != nil {
		return err
	}

	// Install before the handshake so the receive loop can resolve the
	// handshake response.
	stop := make(chan struct{})
	m.mu.Lock()
	if m.intentional || m.state.Status != Connecting {
		m.mu.Unlock()
		tr.Close()
		return ErrNotConnected
	}
	m.closeTransportLocked()
	m.tr = tr
	m.gen = tr.Generation()
	m.recvStop = stop
	m.mu.Unlock()

	go m.receiveLoop(tr, stop)

	params := protocol.ConnectParams{
		ProtocolMin: protocol.VersionMin,
		ProtocolMax: protocol.VersionMax,
		Client: protocol.ClientInfo{
			Name:       m.cfg.ClientName,
			Version:    m.cfg.ClientVersion,
			Platform:   m.cfg.Platform,
			InstanceID: m.cfg.InstanceID,
		},
		AuthToken: m.cfg.AuthToken,
		Locale:    m.cfg.Locale,
	}

	if _, err := m.roundTrip(hsCtx, tr, protocol.MethodConnect, params); err != nil {
		m.mu.Lock()
		if m.tr == tr {
			m.closeTransportLocked()
		}
		m.mu.Unlock()
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrConnectionTimeout
		}
		return err
	}

	m.mu.Lock()
	if m.state.Status != Connecting || m.tr != tr {
		m.mu.Unlock()
		tr.Close()
		return ErrNotConnected
	}
	m.toConnectedLocked()
	m.mu.Unlock()

	m.logger.Info("session established", "generation", tr.Generation())
	return nil
}

// roundTrip performs one correlated request/response exchange on tr.
func (m *Manager) roundTrip(ctx context.Context, tr transport.Transport, method string, params any) (protocol.Frame, error) {
	id := m.pending.nextID()
	data, err := protocol.EncodeRequest(id, method, params)
	if err != nil {
		return protocol.Frame{}, err
	}

	// Register before handing the frame to the transport: the response
	// may race back before the send call returns.
	ch := m.pending.register(id)

	if err := tr.Send(data); err != nil {
		// resolve only completes the waiter if the entry is still
		// pending; a racing response or bulk failure already won
		// otherwise.
		m.pending.resolve(id, result{err: err})
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return protocol.Frame{}, res.err
		}
		return res.frame, nil
	case <-ctx.Done():
		// Cancels only this wait, not the transport.
		m.pending.remove(id)
		return protocol.Frame{}, ctx.Err()
	}
}

// resolveResponse converts a response frame into the waiting caller's
// result. Wired into the dispatcher.
func (m *Manager) resolveResponse(f protocol.Frame) bool {
	if f.OK {
		return m.pending.resolve(f.ID, result{frame: f})
	}
	msg := "unknown error"
	if f.Error != nil {
		msg = f.Error.Message
	}
	return m.pending.resolve(f.ID, result{err: &RequestFailedError{Message: msg}})
}

// receiveLoop forwards frames from one transport into the dispatch queue
// and reports its death. One receive loop exists per transport instance.
func (m *Manager) receiveLoop(tr transport.Transport, stop <-chan struct{}) {
	gen := tr.Generation()
	for {
		select {
		case <-stop:
			return
		case err := <-tr.Errors():
			m.handleConnectionDrop(gen, err)
			return
		case frame := <-tr.Frames():
			m.queue.push(frame)
		}
	}
}

// dispatchLoop drains the frame queue for the manager's lifetime,
// discarding frames from stale transport generations.
func (m *Manager) dispatchLoop() {
	for {
		frame, ok := m.queue.pop()
		if !ok {
			return
		}

		m.mu.Lock()
		current := m.gen
		m.mu.Unlock()

		if frame.Generation != current {
			m.logger.Debug("discarding frame from stale transport",
				"frame_generation", frame.Generation,
				"current_generation", current,
			)
			continue
		}

		m.dispatch.onFrame(frame.Data)
	}
}

// handleConnectionDrop reacts to a transport-level failure discovered by
// the receive loop or the heartbeat. Drops from stale generations and
// intentional disconnects are ignored.
func (m *Manager) handleConnectionDrop(gen uint64, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.intentional {
		return
	}

	switch m.state.Status {
	case Connected:
		m.logger.Warn("connection dropped", "error", cause)
		if m.hasConnected && m.reachable {
			m.toReconnectingLocked(1, cause)
		} else {
			m.toFailedLocked(cause)
		}

	case Connecting:
		// The in-flight Connect owns the transition; just wake its
		// handshake waiter.
		m.pending.failAll(ErrNotConnected)
	}
}

// retryConnect is the reconnect timer callback.
func (m *Manager) retryConnect(attempt int) {
	m.mu.Lock()
	if m.state.Status != Reconnecting || m.intentional {
		m.mu.Unlock()
		return
	}
	m.reconnectTimer = nil
	m.setStateLocked(State{Status: Connecting})
	m.mu.Unlock()

	if err := m.establish(context.Background(), attempt); err != nil {
		m.logger.Warn("reconnect attempt failed", "attempt", attempt, "error", err)
	}
}

// --- transitions; all require m.mu held ---

func (m *Manager) setStateLocked(s State) {
	m.logger.Debug("state transition", "from", m.state.String(), "to", s.String())
	m.state = s
	select {
	case m.stateCh <- s:
	default:
	}
}

func (m *Manager) toConnectedLocked() {
	m.setStateLocked(State{Status: Connected})
	m.hasConnected = true

	gen := m.gen
	m.hb = newHeartbeat(m.cfg.HeartbeatInterval, m.tr.Pongs(), m.tr.Ping, func(err error) {
		m.handleConnectionDrop(gen, err)
	}, m.logger)
	m.hb.start()
}

func (m *Manager) toReconnectingLocked(attempt int, cause error) {
	m.teardownLocked(ErrNotConnected)

	if attempt > m.cfg.Backoff.MaxAttempts {
		m.logger.Error("reconnect attempts exhausted", "attempts", m.cfg.Backoff.MaxAttempts)
		m.toFailedLocked(cause)
		return
	}

	delay := m.cfg.Backoff.Delay(attempt)
	m.setStateLocked(State{Status: Reconnecting, Attempt: attempt})
	m.logger.Info("reconnect scheduled", "attempt", attempt, "delay", delay)
	m.reconnectTimer = time.AfterFunc(delay, func() { m.retryConnect(attempt) })
}

func (m *Manager) toFailedLocked(cause error) {
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	m.teardownLocked(&ConnectionFailedError{Reason: reason})
	m.setStateLocked(State{Status: Failed, Reason: reason})
}

// teardownLocked runs the shared exit effects: stop the heartbeat, cancel
// any reconnect timer, close the transport, discard orphaned turn
// accumulators, and fail every pending request with failErr. Idempotent.
func (m *Manager) teardownLocked(failErr error) {
	if m.hb != nil {
		m.hb.halt()
		m.hb = nil
	}
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	m.closeTransportLocked()
	m.dispatch.resetAccumulators()
	m.pending.failAll(failErr)
}

func (m *Manager) closeTransportLocked() {
	if m.recvStop != nil {
		close(m.recvStop)
		m.recvStop = nil
	}
	if m.tr != nil {
		m.tr.Close()
		m.tr = nil
	}
	// The transport counter never issues 0, so frames still queued from
	// the closed transport fail the dispatch generation check.
	m.gen = 0
}
