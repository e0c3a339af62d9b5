package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
client:
  name: aria-desk
  instance_id: dev-box-1
  locale: de-DE
endpoint:
  url: wss://staging.ariavoice.dev/session
  auth_token: abc123
session:
  heartbeat_interval: 5s
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Client.Name != "aria-desk" {
		t.Errorf("Client.Name = %q, want %q", cfg.Client.Name, "aria-desk")
	}
	if cfg.Client.Locale != "de-DE" {
		t.Errorf("Client.Locale = %q, want %q", cfg.Client.Locale, "de-DE")
	}
	if cfg.Endpoint.URL != "wss://staging.ariavoice.dev/session" {
		t.Errorf("Endpoint.URL = %q", cfg.Endpoint.URL)
	}
	if cfg.Session.HeartbeatInterval != 5*time.Second {
		t.Errorf("Session.HeartbeatInterval = %v, want 5s", cfg.Session.HeartbeatInterval)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_ARIA_TOKEN", "secret123")

	yaml := `
endpoint:
  url: wss://staging.ariavoice.dev/session
  auth_token: ${TEST_ARIA_TOKEN}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Endpoint.AuthToken != "secret123" {
		t.Errorf("Endpoint.AuthToken = %q, want %q", cfg.Endpoint.AuthToken, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
endpoint:
  url: wss://staging.ariavoice.dev/session
  auth_token: abc123
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Client.Name != DefaultClientName {
		t.Errorf("Client.Name = %q, want default %q", cfg.Client.Name, DefaultClientName)
	}
	if cfg.Client.InstanceID == "" {
		t.Error("Client.InstanceID not generated")
	}
	if cfg.Session.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("Session.ConnectTimeout = %v, want default %v", cfg.Session.ConnectTimeout, DefaultConnectTimeout)
	}
	if cfg.Session.HeartbeatInterval != DefaultHeartbeatInterval {
		t.Errorf("Session.HeartbeatInterval = %v, want default %v", cfg.Session.HeartbeatInterval, DefaultHeartbeatInterval)
	}
	if cfg.Reconnect.MaxAttempts != DefaultReconnectMaxAttempts {
		t.Errorf("Reconnect.MaxAttempts = %d, want default %d", cfg.Reconnect.MaxAttempts, DefaultReconnectMaxAttempts)
	}
	if cfg.Transport.FrameBuffer != DefaultFrameBuffer {
		t.Errorf("Transport.FrameBuffer = %d, want default %d", cfg.Transport.FrameBuffer, DefaultFrameBuffer)
	}
}

func TestInstanceIDStable(t *testing.T) {
	yaml := `
client:
  instance_id: keep-me
endpoint:
  url: wss://staging.ariavoice.dev/session
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Client.InstanceID != "keep-me" {
		t.Errorf("InstanceID = %q, want keep-me", cfg.Client.InstanceID)
	}
}

func TestValidate(t *testing.T) {
	valid := func() ClientConfig {
		c := ClientConfig{
			Endpoint: EndpointConfig{URL: "wss://api.ariavoice.dev/session", AuthToken: "t"},
		}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*ClientConfig)
		wantErr string
	}{
		{
			name:    "missing endpoint url",
			mutate:  func(c *ClientConfig) { c.Endpoint.URL = "" },
			wantErr: "endpoint.url is required",
		},
		{
			name:    "http scheme rejected",
			mutate:  func(c *ClientConfig) { c.Endpoint.URL = "https://api.ariavoice.dev" },
			wantErr: `endpoint.url must use ws:// or wss://, got "https://api.ariavoice.dev"`,
		},
		{
			name:    "zero heartbeat",
			mutate:  func(c *ClientConfig) { c.Session.HeartbeatInterval = 0 },
			wantErr: "session.heartbeat_interval must be > 0",
		},
		{
			name:    "base delay above max",
			mutate:  func(c *ClientConfig) { c.Reconnect.BaseDelay = time.Minute },
			wantErr: "reconnect.base_delay (1m0s) cannot exceed max_delay (30s)",
		},
		{
			name:    "zero max attempts",
			mutate:  func(c *ClientConfig) { c.Reconnect.MaxAttempts = 0 },
			wantErr: "reconnect.max_attempts must be >= 1",
		},
		{
			name:    "valid config",
			mutate:  func(*ClientConfig) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
