package session

import (
	"log/slog"
	"sync"
	"time"
)

// heartbeat probes the link at a fixed interval while the session is
// Connected. Exactly one probe is in flight at a time: if the interval
// elapses with the previous probe still unacknowledged, the link is
// declared dead without sending a second probe. This catches connections
// the transport itself never reports as broken (NAT timeouts and the like).
type heartbeat struct {
	interval time.Duration
	ping     func([]byte) error
	acks     <-chan struct{}
	onDead   func(error)
	logger   *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once

	// Probe state, touched only by the run goroutine.
	awaitingAck bool
	lastSentAt  time.Time
}

func newHeartbeat(interval time.Duration, acks <-chan struct{}, ping func([]byte) error, onDead func(error), logger *slog.Logger) *heartbeat {
	if logger == nil {
		logger = slog.Default()
	}
	return &heartbeat{
		interval: interval,
		ping:     ping,
		acks:     acks,
		onDead:   onDead,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// start launches the probe loop.
func (h *heartbeat) start() {
	go h.run()
}

// halt stops the probe loop. Safe to call twice.
func (h *heartbeat) halt() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *heartbeat) run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return

		case <-h.acks:
			h.awaitingAck = false

		case <-ticker.C:
			// An ack that raced the tick still counts.
			select {
			case <-h.acks:
				h.awaitingAck = false
			default:
			}

			if h.awaitingAck {
				h.logger.Warn("heartbeat ack missed, declaring link dead",
					"last_sent", h.lastSentAt,
					"interval", h.interval,
				)
				h.onDead(ErrConnectionTimeout)
				return
			}

			if err := h.ping([]byte("hb")); err != nil {
				h.logger.Debug("heartbeat probe failed", "error", err)
				h.onDead(err)
				return
			}
			h.awaitingAck = true
			h.lastSentAt = time.Now()
		}
	}
}
