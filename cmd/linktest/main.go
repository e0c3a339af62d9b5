// linktest connects to the Aria backend and streams session events to the
// console.
// Usage: go run ./cmd/linktest --config configs/linktest.example.yaml
//
// The auth token comes from endpoint.auth_token, endpoint.auth_token_path,
// or the ARIA_AUTH_TOKEN environment variable.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariavoice/aria-link/internal/auth"
	"github.com/ariavoice/aria-link/internal/config"
	"github.com/ariavoice/aria-link/internal/session"
	"github.com/ariavoice/aria-link/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/linktest.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full event payload JSON")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Setup logger
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	// Load config
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	token, err := auth.LoadToken(cfg.Endpoint.AuthToken, cfg.Endpoint.AuthTokenPath)
	if err != nil {
		logger.Error("failed to resolve auth token", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	mgr := session.NewManager(managerConfig(cfg, token), logger)
	defer mgr.Close()

	// Console printers
	mgr.OnTurn(func(res session.TurnResult) {
		fmt.Printf("[TURN %s] %s\n", res.Turn, res.Text)
	})
	mgr.On("turn.delta", func(_ string, payload json.RawMessage) {
		if !*verbose {
			return
		}
		fmt.Printf("[DELTA] %s\n", payload)
	})
	mgr.On("session.notice", func(_ string, payload json.RawMessage) {
		fmt.Printf("[NOTICE] %s\n", payload)
	})

	// State transition printer
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-mgr.StateChanges():
				logger.Info("session state", "state", s.String())
			}
		}
	}()

	logger.Info("connecting", "url", cfg.Endpoint.URL, "instance_id", cfg.Client.InstanceID)
	if err := mgr.Connect(ctx); err != nil {
		// The manager keeps retrying on its own unless the failure was
		// terminal; surface the first error either way.
		logger.Warn("initial connect failed", "error", err)
		if mgr.State().Status == session.Failed {
			os.Exit(1)
		}
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := mgr.Stats()
				logger.Info("stats",
					"state", st.State.String(),
					"pending", st.Pending,
					"active_turns", st.ActiveTurns,
					"generation", st.Generation,
					"queue_count", st.Queue.Count,
					"queue_pushed", st.Queue.TotalPushed,
				)
			}
		}
	}()

	logger.Info("session running - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")
	mgr.Disconnect()
	logger.Info("shutdown complete")
}

func managerConfig(cfg *config.ClientConfig, token string) session.Config {
	sc := session.DefaultConfig()
	sc.URL = cfg.Endpoint.URL
	sc.AuthToken = token
	sc.Locale = cfg.Client.Locale
	sc.ClientName = cfg.Client.Name
	sc.ClientVersion = version.Version
	sc.InstanceID = cfg.Client.InstanceID
	sc.Platform = cfg.Client.Platform
	sc.ConnectTimeout = cfg.Session.ConnectTimeout
	sc.RequestTimeout = cfg.Session.RequestTimeout
	sc.HeartbeatInterval = cfg.Session.HeartbeatInterval
	sc.LocalRetryCount = cfg.Session.RetryCount
	sc.LocalRetryDelay = cfg.Session.RetryDelay
	sc.Backoff = session.Policy{
		Base:        cfg.Reconnect.BaseDelay,
		Max:         cfg.Reconnect.MaxDelay,
		MaxAttempts: cfg.Reconnect.MaxAttempts,
	}
	sc.DialTimeout = cfg.Transport.DialTimeout
	sc.WriteTimeout = cfg.Transport.WriteTimeout
	sc.FrameBuffer = cfg.Transport.FrameBuffer
	sc.QueueSize = cfg.Transport.QueueSize
	return sc
}
