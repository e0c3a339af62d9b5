// Package transport implements the duplex message stream under a session.
//
// The WebSocket transport:
//   - Dials with bearer-token headers and a bounded handshake timeout
//   - Runs one read loop feeding a buffered frame channel
//   - Surfaces protocol-level pongs on a separate channel for liveness
//   - Tags every frame with the transport generation so the session layer
//     can discard frames from a stale connection after a reconnect
package transport
