package config

import "time"

// ClientConfig is the root configuration for an aria-link client.
type ClientConfig struct {
	Client    IdentityConfig  `yaml:"client"`
	Endpoint  EndpointConfig  `yaml:"endpoint"`
	Session   SessionConfig   `yaml:"session"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Transport TransportConfig `yaml:"transport"`
}

// IdentityConfig identifies this client installation in the handshake.
type IdentityConfig struct {
	Name       string `yaml:"name"`
	InstanceID string `yaml:"instance_id"`
	Platform   string `yaml:"platform"`
	Locale     string `yaml:"locale"`
}

// EndpointConfig holds the backend endpoint and credential.
type EndpointConfig struct {
	URL           string `yaml:"url"`
	AuthToken     string `yaml:"auth_token"`      // inline token; supports ${VAR} expansion
	AuthTokenPath string `yaml:"auth_token_path"` // file fallback when no inline token
}

// SessionConfig holds handshake and liveness settings.
type SessionConfig struct {
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	RetryCount        int           `yaml:"retry_count"` // local retries inside one connect call
	RetryDelay        time.Duration `yaml:"retry_delay"`
}

// ReconnectConfig holds the backoff schedule for automatic reconnects.
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// TransportConfig holds WebSocket-level settings.
type TransportConfig struct {
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	FrameBuffer  int           `yaml:"frame_buffer"`
	QueueSize    int           `yaml:"queue_size"`
}
