package session

import (
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/ariavoice/aria-link/internal/protocol"
)

// TurnResult is a completed streamed turn: the concatenation of every
// partial fragment observed before the turn's final marker.
type TurnResult struct {
	Turn string
	Text string
}

// EventHandler receives a named event's raw payload.
type EventHandler func(name string, payload json.RawMessage)

// TurnHandler receives completed turns.
type TurnHandler func(TurnResult)

// StreamNames configures which event names participate in turn streaming.
type StreamNames struct {
	Delta  string   // partial fragment events
	Final  string   // terminal marker that surfaces the accumulated turn
	Aborts []string // terminal markers that discard the accumulated turn
}

func defaultStreamNames() StreamNames {
	return StreamNames{
		Delta:  protocol.EventTurnDelta,
		Final:  protocol.EventTurnFinal,
		Aborts: []string{protocol.EventTurnError, protocol.EventTurnAborted},
	}
}

// dispatcher classifies inbound frames as responses or events, routes
// events by name, and accumulates streamed turn fragments until a
// terminal marker arrives.
//
// The accumulators are private to the dispatcher; the state machine only
// asks for a wholesale reset when the connection leaves Connected.
type dispatcher struct {
	logger *slog.Logger
	names  StreamNames

	// respond hands a response frame to the correlator; false means no
	// caller was waiting for that id.
	respond func(protocol.Frame) bool

	mu           sync.Mutex
	handlers     map[string][]EventHandler
	turnHandlers []TurnHandler
	accums       map[string]*strings.Builder
}

func newDispatcher(names StreamNames, respond func(protocol.Frame) bool, logger *slog.Logger) *dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if names.Delta == "" {
		names = defaultStreamNames()
	}
	return &dispatcher{
		logger:   logger,
		names:    names,
		respond:  respond,
		handlers: make(map[string][]EventHandler),
		accums:   make(map[string]*strings.Builder),
	}
}

// handle registers fn for a named event. Multiple handlers per name are
// supported; registration order is delivery order.
func (d *dispatcher) handle(name string, fn EventHandler) {
	d.mu.Lock()
	d.handlers[name] = append(d.handlers[name], fn)
	d.mu.Unlock()
}

// handleTurn registers fn for completed turns.
func (d *dispatcher) handleTurn(fn TurnHandler) {
	d.mu.Lock()
	d.turnHandlers = append(d.turnHandlers, fn)
	d.mu.Unlock()
}

// onFrame processes one raw transport message. Malformed frames are
// logged and dropped; the receive loop never dies on bad input.
func (d *dispatcher) onFrame(data []byte) {
	frame, err := protocol.DecodeFrame(data)
	if err != nil {
		d.logger.Debug("dropping malformed frame", "error", err)
		return
	}

	switch frame.Kind {
	case protocol.KindResponse:
		if !d.respond(frame) {
			d.logger.Debug("dropping response with no pending request", "id", frame.ID)
		}

	case protocol.KindEvent:
		d.dispatchEvent(frame.Event, frame.Payload)
	}
}

func (d *dispatcher) dispatchEvent(name string, payload json.RawMessage) {
	switch {
	case name == d.names.Delta:
		var delta protocol.TurnDelta
		if err := json.Unmarshal(payload, &delta); err != nil || delta.Turn == "" {
			d.logger.Debug("dropping unparseable turn fragment", "error", err)
			return
		}
		d.appendFragment(delta.Turn, delta.Text)
		d.fanOut(name, payload)

	case name == d.names.Final:
		var marker protocol.TurnMarker
		if err := json.Unmarshal(payload, &marker); err != nil || marker.Turn == "" {
			d.logger.Debug("dropping unparseable turn marker", "event", name, "error", err)
			return
		}
		// Terminal events go out immediately; the accumulated text follows
		// to the turn handlers.
		d.fanOut(name, payload)
		text := d.takeAccumulated(marker.Turn)
		d.completeTurn(TurnResult{Turn: marker.Turn, Text: text})

	case slices.Contains(d.names.Aborts, name):
		var marker protocol.TurnMarker
		if err := json.Unmarshal(payload, &marker); err != nil || marker.Turn == "" {
			d.logger.Debug("dropping unparseable turn marker", "event", name, "error", err)
			return
		}
		d.fanOut(name, payload)
		// Abandoned turn: fragments are discarded, not surfaced.
		d.takeAccumulated(marker.Turn)

	default:
		if !d.fanOut(name, payload) {
			d.logger.Debug("ignoring unrecognized event", "event", name)
		}
	}
}

// fanOut delivers payload to every handler registered for name.
// Returns false when no handler is registered.
func (d *dispatcher) fanOut(name string, payload json.RawMessage) bool {
	d.mu.Lock()
	fns := slices.Clone(d.handlers[name])
	d.mu.Unlock()

	for _, fn := range fns {
		fn(name, payload)
	}
	return len(fns) > 0
}

func (d *dispatcher) completeTurn(res TurnResult) {
	d.mu.Lock()
	fns := slices.Clone(d.turnHandlers)
	d.mu.Unlock()

	for _, fn := range fns {
		fn(res)
	}
}

// appendFragment adds text to the turn's accumulator, creating it on the
// first fragment.
func (d *dispatcher) appendFragment(turn, text string) {
	d.mu.Lock()
	b, ok := d.accums[turn]
	if !ok {
		b = &strings.Builder{}
		d.accums[turn] = b
	}
	b.WriteString(text)
	d.mu.Unlock()
}

// takeAccumulated removes and returns the accumulated text for a turn.
func (d *dispatcher) takeAccumulated(turn string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.accums[turn]
	if !ok {
		return ""
	}
	delete(d.accums, turn)
	return b.String()
}

// resetAccumulators discards every in-flight turn. Called when the
// connection leaves Connected: a turn interrupted by a reconnect is never
// resumed.
func (d *dispatcher) resetAccumulators() {
	d.mu.Lock()
	d.accums = make(map[string]*strings.Builder)
	d.mu.Unlock()
}

// accumCount reports in-flight turns (for stats and tests).
func (d *dispatcher) accumCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.accums)
}
