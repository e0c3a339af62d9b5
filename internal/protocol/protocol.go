package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Protocol version bounds advertised during the handshake.
const (
	VersionMin = 1
	VersionMax = 1
)

// MethodConnect is the handshake method. It must be the first request sent
// after transport open.
const MethodConnect = "session.connect"

// Default event names for streamed turns.
const (
	EventTurnDelta   = "turn.delta"
	EventTurnFinal   = "turn.final"
	EventTurnError   = "turn.error"
	EventTurnAborted = "turn.aborted"
)

// Errors
var (
	ErrInvalidFrame = errors.New("invalid frame")
)

// FrameKind distinguishes the two server-to-client envelope shapes.
type FrameKind int

const (
	KindResponse FrameKind = iota
	KindEvent
)

// Request is the client-to-server envelope.
type Request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// ClientEvent is a fire-and-forget client-to-server event envelope.
type ClientEvent struct {
	Type    string `json:"type"` // always "event"
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// ErrorBody carries the server-side failure description of a non-ok response.
type ErrorBody struct {
	Message string `json:"message"`
}

// Frame is one decoded server-to-client message.
//
// For KindResponse, ID/OK/Error are populated and Raw holds the full
// message for method-specific payload fields. For KindEvent, Event and
// Payload are populated.
type Frame struct {
	Kind FrameKind

	// Response fields
	ID    string
	OK    bool
	Error *ErrorBody
	Raw   json.RawMessage

	// Event fields
	Event   string
	Payload json.RawMessage
}

// envelope is the superset used for decoding.
type envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	OK      bool            `json:"ok"`
	Error   *ErrorBody      `json:"error"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeFrame parses one transport message into a Frame.
// A frame that is not valid JSON or does not match a recognized shape
// returns an error; the caller logs and drops it.
func DecodeFrame(data []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	switch env.Type {
	case "res":
		if env.ID == "" {
			return Frame{}, fmt.Errorf("%w: response without id", ErrInvalidFrame)
		}
		return Frame{
			Kind:  KindResponse,
			ID:    env.ID,
			OK:    env.OK,
			Error: env.Error,
			Raw:   json.RawMessage(data),
		}, nil

	case "event":
		if env.Event == "" {
			return Frame{}, fmt.Errorf("%w: event without name", ErrInvalidFrame)
		}
		return Frame{
			Kind:    KindEvent,
			Event:   env.Event,
			Payload: env.Payload,
		}, nil
	}

	return Frame{}, fmt.Errorf("%w: unknown type %q", ErrInvalidFrame, env.Type)
}

// EncodeRequest marshals a client request envelope.
func EncodeRequest(id, method string, params any) ([]byte, error) {
	return json.Marshal(Request{ID: id, Method: method, Params: params})
}

// EncodeEvent marshals a client event envelope.
func EncodeEvent(name string, payload any) ([]byte, error) {
	return json.Marshal(ClientEvent{Type: "event", Event: name, Payload: payload})
}

// ClientInfo identifies this client instance in the handshake.
type ClientInfo struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Platform   string `json:"platform"`
	InstanceID string `json:"instance_id"`
}

// ConnectParams is the params block of the session.connect handshake.
type ConnectParams struct {
	ProtocolMin int        `json:"protocol_min"`
	ProtocolMax int        `json:"protocol_max"`
	Client      ClientInfo `json:"client"`
	AuthToken   string     `json:"auth_token"`
	Locale      string     `json:"locale"`
}

// TurnDelta is the payload of a partial (streamed) turn event.
type TurnDelta struct {
	Turn string `json:"turn"`
	Text string `json:"text"`
}

// TurnMarker is the payload of a terminal turn event.
type TurnMarker struct {
	Turn    string `json:"turn"`
	Status  string `json:"status"` // "final", "error", "aborted"
	Message string `json:"message,omitempty"`
}
