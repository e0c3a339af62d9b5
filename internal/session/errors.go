package session

import (
	"errors"
	"fmt"
)

// Errors
var (
	// ErrNotConfigured is returned by Connect when endpoint or credential
	// fields are missing.
	ErrNotConfigured = errors.New("session not configured: endpoint URL and auth token required")

	// ErrNotConnected is returned by operations that require a Connected
	// session, and is the failure delivered to pending requests when the
	// connection is lost.
	ErrNotConnected = errors.New("not connected")

	// ErrConnectionTimeout marks a handshake or heartbeat-ack deadline
	// exceeded.
	ErrConnectionTimeout = errors.New("connection timeout")
)

// ConnectionFailedError is the terminal failure after a handshake or
// transport failure when retries are exhausted or disallowed.
type ConnectionFailedError struct {
	Reason string
}

func (e *ConnectionFailedError) Error() string {
	return fmt.Sprintf("connection failed: %s", e.Reason)
}

// RequestFailedError carries the server-side message of an ok:false
// response.
type RequestFailedError struct {
	Message string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("request failed: %s", e.Message)
}
