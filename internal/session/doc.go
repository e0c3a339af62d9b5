// Package session implements the resilient session layer over a single
// duplex transport to the backend.
//
// The Manager:
//   - Owns the connection state machine and serializes every transition
//     behind one mutex
//   - Correlates outgoing requests with their responses
//   - Detects silently-dead links with a single-in-flight heartbeat probe
//   - Reconnects with full-jitter exponential backoff
//   - Demultiplexes inbound frames into responses and named events, and
//     accumulates streamed turn fragments into complete results
//
// External reachability and foreground/background signals are translated
// into state-machine inputs by the LifecycleAdapter.
package session
