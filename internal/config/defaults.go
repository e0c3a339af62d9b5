package config

import (
	"runtime"
	"time"

	"github.com/google/uuid"
)

// Default values for optional configuration fields.
const (
	DefaultClientName           = "aria-link"
	DefaultLocale               = "en-US"
	DefaultConnectTimeout       = 15 * time.Second
	DefaultRequestTimeout       = 30 * time.Second
	DefaultHeartbeatInterval    = 20 * time.Second
	DefaultRetryCount           = 3
	DefaultRetryDelay           = 1 * time.Second
	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultReconnectMaxDelay    = 30 * time.Second
	DefaultReconnectMaxAttempts = 12
	DefaultDialTimeout          = 10 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultFrameBuffer          = 256
	DefaultQueueSize            = 64
)

func (c *ClientConfig) applyDefaults() {
	// Client identity defaults
	if c.Client.Name == "" {
		c.Client.Name = DefaultClientName
	}
	if c.Client.InstanceID == "" {
		c.Client.InstanceID = uuid.NewString()
	}
	if c.Client.Platform == "" {
		c.Client.Platform = runtime.GOOS
	}
	if c.Client.Locale == "" {
		c.Client.Locale = DefaultLocale
	}

	// Session defaults
	if c.Session.ConnectTimeout == 0 {
		c.Session.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Session.RequestTimeout == 0 {
		c.Session.RequestTimeout = DefaultRequestTimeout
	}
	if c.Session.HeartbeatInterval == 0 {
		c.Session.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Session.RetryCount == 0 {
		c.Session.RetryCount = DefaultRetryCount
	}
	if c.Session.RetryDelay == 0 {
		c.Session.RetryDelay = DefaultRetryDelay
	}

	// Reconnect defaults
	if c.Reconnect.BaseDelay == 0 {
		c.Reconnect.BaseDelay = DefaultReconnectBaseDelay
	}
	if c.Reconnect.MaxDelay == 0 {
		c.Reconnect.MaxDelay = DefaultReconnectMaxDelay
	}
	if c.Reconnect.MaxAttempts == 0 {
		c.Reconnect.MaxAttempts = DefaultReconnectMaxAttempts
	}

	// Transport defaults
	if c.Transport.DialTimeout == 0 {
		c.Transport.DialTimeout = DefaultDialTimeout
	}
	if c.Transport.WriteTimeout == 0 {
		c.Transport.WriteTimeout = DefaultWriteTimeout
	}
	if c.Transport.FrameBuffer == 0 {
		c.Transport.FrameBuffer = DefaultFrameBuffer
	}
	if c.Transport.QueueSize == 0 {
		c.Transport.QueueSize = DefaultQueueSize
	}
}
