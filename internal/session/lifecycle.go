package session

import (
	"context"
	"log/slog"
	"sync"
)

// AppPhase is the host application's foreground/background phase.
type AppPhase int

const (
	AppForeground AppPhase = iota
	AppBackground
)

func (p AppPhase) String() string {
	if p == AppBackground {
		return "background"
	}
	return "foreground"
}

// ReachabilitySource reports network reachability changes. The platform
// layer implements it (NetworkMonitor on darwin, netlink on linux, a stub
// in tests).
type ReachabilitySource interface {
	Changes() <-chan bool
}

// AppStateSource reports application phase changes.
type AppStateSource interface {
	Changes() <-chan AppPhase
}

// LifecycleAdapter translates platform signals into session transitions:
// network loss suspends an active session, network restoration resumes a
// suspended one, backgrounding suspends, and foregrounding resumes only
// sessions the adapter itself suspended. It also keeps the manager's
// reachability flag current so drop handling can decide between
// reconnecting and failing.
type LifecycleAdapter struct {
	mgr    *Manager
	logger *slog.Logger

	reach <-chan bool
	app   <-chan AppPhase

	stop     chan struct{}
	stopOnce sync.Once

	// suspendedByUs gates foreground resumption: a session the caller
	// stopped on purpose must not come back because the app did.
	suspendedByUs bool
}

// NewLifecycleAdapter wires the sources to mgr. Either source may be nil
// when the platform cannot provide it.
func NewLifecycleAdapter(mgr *Manager, reach ReachabilitySource, app AppStateSource, logger *slog.Logger) *LifecycleAdapter {
	if logger == nil {
		logger = slog.Default()
	}

	a := &LifecycleAdapter{
		mgr:    mgr,
		logger: logger,
		stop:   make(chan struct{}),
	}
	if reach != nil {
		a.reach = reach.Changes()
	}
	if app != nil {
		a.app = app.Changes()
	}
	return a
}

// Start launches the signal loop.
func (a *LifecycleAdapter) Start() {
	go a.run()
}

// Stop halts the signal loop. Safe to call twice.
func (a *LifecycleAdapter) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
}

func (a *LifecycleAdapter) run() {
	for {
		select {
		case <-a.stop:
			return

		case reachable, ok := <-a.reach:
			if !ok {
				a.reach = nil // nil channel blocks forever
				continue
			}
			a.onReachability(reachable)

		case phase, ok := <-a.app:
			if !ok {
				a.app = nil
				continue
			}
			a.onAppPhase(phase)
		}
	}
}

func (a *LifecycleAdapter) onReachability(reachable bool) {
	a.mgr.SetReachable(reachable)

	if !reachable {
		if active(a.mgr.State().Status) {
			a.logger.Info("network lost, suspending session")
			a.suspendedByUs = true
			a.mgr.Suspend()
		}
		return
	}

	if a.suspendedByUs && a.mgr.State().Status == Suspended {
		a.logger.Info("network restored, resuming session")
		a.suspendedByUs = false
		a.resume()
	}
}

func (a *LifecycleAdapter) onAppPhase(phase AppPhase) {
	switch phase {
	case AppBackground:
		if active(a.mgr.State().Status) {
			a.logger.Info("app backgrounded, suspending session")
			a.suspendedByUs = true
			a.mgr.Suspend()
		}

	case AppForeground:
		if a.suspendedByUs && a.mgr.State().Status == Suspended {
			a.logger.Info("app foregrounded, resuming session")
			a.suspendedByUs = false
			a.resume()
		}
	}
}

// resume reconnects off the signal loop so a slow dial cannot starve
// later lifecycle events.
func (a *LifecycleAdapter) resume() {
	go func() {
		if err := a.mgr.Connect(context.Background()); err != nil {
			a.logger.Warn("session resume failed", "error", err)
		}
	}()
}

// active reports whether the session is worth suspending: it is up or
// actively trying to get up.
func active(s Status) bool {
	return s == Connected || s == Connecting || s == Reconnecting
}
