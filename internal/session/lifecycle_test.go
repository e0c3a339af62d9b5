package session

import (
	"context"
	"testing"
	"time"
)

type fakeReachability struct{ ch chan bool }

func (f *fakeReachability) Changes() <-chan bool { return f.ch }

type fakeAppState struct{ ch chan AppPhase }

func (f *fakeAppState) Changes() <-chan AppPhase { return f.ch }

func lifecycleFixture(t *testing.T) (*Manager, *fakeReachability, *fakeAppState, *LifecycleAdapter) {
	t.Helper()

	server := mockServer(t, echoHandler)
	t.Cleanup(server.Close)

	m := NewManager(testManagerConfig(wsURL(server)), nil)
	t.Cleanup(m.Close)

	reach := &fakeReachability{ch: make(chan bool)}
	app := &fakeAppState{ch: make(chan AppPhase)}

	a := NewLifecycleAdapter(m, reach, app, nil)
	a.Start()
	t.Cleanup(a.Stop)

	return m, reach, app, a
}

func waitForStatus(t *testing.T, m *Manager, want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State().Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", m.State().Status, want)
}

func TestLifecycle_NetworkLossSuspends(t *testing.T) {
	m, reach, _, _ := lifecycleFixture(t)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	reach.ch <- false
	waitForStatus(t, m, Suspended)
}

func TestLifecycle_NetworkRestoreResumes(t *testing.T) {
	m, reach, _, _ := lifecycleFixture(t)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	reach.ch <- false
	waitForStatus(t, m, Suspended)

	reach.ch <- true
	waitForStatus(t, m, Connected)
}

func TestLifecycle_BackgroundSuspendsForegroundResumes(t *testing.T) {
	m, _, app, _ := lifecycleFixture(t)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	app.ch <- AppBackground
	waitForStatus(t, m, Suspended)

	app.ch <- AppForeground
	waitForStatus(t, m, Connected)
}

func TestLifecycle_ForegroundDoesNotResumeCallerDisconnect(t *testing.T) {
	m, _, app, _ := lifecycleFixture(t)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	m.Disconnect()

	app.ch <- AppForeground
	time.Sleep(100 * time.Millisecond)

	if got := m.State().Status; got != Disconnected {
		t.Errorf("state = %v, want %v after foreground with no adapter suspend", got, Disconnected)
	}
}

func TestLifecycle_NetworkLossWhileIdleIsNoop(t *testing.T) {
	m, reach, _, _ := lifecycleFixture(t)

	reach.ch <- false
	time.Sleep(50 * time.Millisecond)

	if got := m.State().Status; got != Disconnected {
		t.Errorf("state = %v, want %v", got, Disconnected)
	}

	// Restore must not spuriously connect either.
	reach.ch <- true
	time.Sleep(50 * time.Millisecond)

	if got := m.State().Status; got != Disconnected {
		t.Errorf("state = %v, want %v after restore", got, Disconnected)
	}
}

func TestLifecycle_ReachabilityFlagFeedsManager(t *testing.T) {
	m, reach, _, _ := lifecycleFixture(t)

	reach.ch <- false
	waitFor := time.Now().Add(time.Second)
	for time.Now().Before(waitFor) {
		m.mu.Lock()
		r := m.reachable
		m.mu.Unlock()
		if !r {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("reachability flag never propagated")
}
