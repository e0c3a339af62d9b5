package session

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestHeartbeat_ProbesWhileAcked(t *testing.T) {
	acks := make(chan struct{}, 1)
	var probes atomic.Int32
	var dead atomic.Int32

	ping := func([]byte) error {
		probes.Add(1)
		acks <- struct{}{} // immediate ack
		return nil
	}

	hb := newHeartbeat(10*time.Millisecond, acks, ping, func(error) { dead.Add(1) }, nil)
	hb.start()
	defer hb.halt()

	time.Sleep(100 * time.Millisecond)

	if probes.Load() < 3 {
		t.Errorf("probes = %d, want >= 3", probes.Load())
	}
	if dead.Load() != 0 {
		t.Errorf("onDead fired %d times, want 0", dead.Load())
	}
}

func TestHeartbeat_MissedAckDeclaresDead(t *testing.T) {
	acks := make(chan struct{}) // never acked
	var probes atomic.Int32
	deadErr := make(chan error, 1)

	ping := func([]byte) error {
		probes.Add(1)
		return nil
	}

	hb := newHeartbeat(10*time.Millisecond, acks, ping, func(err error) { deadErr <- err }, nil)
	hb.start()
	defer hb.halt()

	select {
	case err := <-deadErr:
		if !errors.Is(err, ErrConnectionTimeout) {
			t.Errorf("onDead err = %v, want ErrConnectionTimeout", err)
		}
	case <-time.After(time.Second):
		t.Fatal("onDead never fired")
	}

	// Exactly one probe went out: the second tick found awaitingAck set and
	// declared the link dead instead of probing again.
	if probes.Load() != 1 {
		t.Errorf("probes = %d, want 1", probes.Load())
	}
}

func TestHeartbeat_PingErrorDeclaresDead(t *testing.T) {
	acks := make(chan struct{})
	cause := errors.New("broken pipe")
	deadErr := make(chan error, 1)

	ping := func([]byte) error { return cause }

	hb := newHeartbeat(10*time.Millisecond, acks, ping, func(err error) { deadErr <- err }, nil)
	hb.start()
	defer hb.halt()

	select {
	case err := <-deadErr:
		if !errors.Is(err, cause) {
			t.Errorf("onDead err = %v, want %v", err, cause)
		}
	case <-time.After(time.Second):
		t.Fatal("onDead never fired")
	}
}

func TestHeartbeat_HaltStopsProbing(t *testing.T) {
	acks := make(chan struct{}, 1)
	var probes atomic.Int32

	ping := func([]byte) error {
		probes.Add(1)
		acks <- struct{}{}
		return nil
	}

	hb := newHeartbeat(10*time.Millisecond, acks, ping, func(error) {}, nil)
	hb.start()

	time.Sleep(50 * time.Millisecond)
	hb.halt()
	hb.halt() // idempotent

	settled := probes.Load()
	time.Sleep(50 * time.Millisecond)

	if probes.Load() != settled {
		t.Errorf("probes continued after halt: %d -> %d", settled, probes.Load())
	}
}
