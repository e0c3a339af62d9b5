// Package protocol defines the JSON wire envelope exchanged with the
// backend over a single duplex transport.
//
// Three top-level shapes exist:
//   - Request (client to server): {"id", "method", "params"}
//   - Response (server to client): {"id", "type":"res", "ok", "error"?, ...}
//   - Event (server to client): {"type":"event", "event", "payload"}
//
// Fields beyond the envelope are method- or event-specific and stay opaque
// to this package except for the handshake and turn-streaming payloads.
package protocol
