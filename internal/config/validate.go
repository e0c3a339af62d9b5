package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *ClientConfig) Validate() error {
	if c.Endpoint.URL == "" {
		return errors.New("endpoint.url is required")
	}
	if !strings.HasPrefix(c.Endpoint.URL, "ws://") && !strings.HasPrefix(c.Endpoint.URL, "wss://") {
		return fmt.Errorf("endpoint.url must use ws:// or wss://, got %q", c.Endpoint.URL)
	}

	if c.Session.ConnectTimeout <= 0 {
		return errors.New("session.connect_timeout must be > 0")
	}
	if c.Session.HeartbeatInterval <= 0 {
		return errors.New("session.heartbeat_interval must be > 0")
	}
	if c.Session.RetryCount < 1 {
		return errors.New("session.retry_count must be >= 1")
	}

	if c.Reconnect.BaseDelay <= 0 {
		return errors.New("reconnect.base_delay must be > 0")
	}
	if c.Reconnect.BaseDelay > c.Reconnect.MaxDelay {
		return fmt.Errorf("reconnect.base_delay (%v) cannot exceed max_delay (%v)", c.Reconnect.BaseDelay, c.Reconnect.MaxDelay)
	}
	if c.Reconnect.MaxAttempts < 1 {
		return errors.New("reconnect.max_attempts must be >= 1")
	}

	if c.Transport.FrameBuffer < 1 {
		return errors.New("transport.frame_buffer must be >= 1")
	}
	if c.Transport.QueueSize < 1 {
		return errors.New("transport.queue_size must be >= 1")
	}

	return nil
}
