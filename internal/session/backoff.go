package session

import (
	"math/rand"
	"time"
)

// Policy computes reconnect delays with full jitter: the returned delay is
// drawn uniformly from [0, min(Max, Base*2^(attempt-1))] so that many
// clients reconnecting at once do not stampede the backend.
//
// Attempts beyond MaxAttempts are never mapped to a delay; the state
// machine checks the bound before asking for one.
type Policy struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int

	// rand overrides the jitter draw in tests; nil uses the global source.
	rand func() float64
}

// DefaultPolicy returns the calibrated policy: 1s base, 30s cap, 12 attempts.
func DefaultPolicy() Policy {
	return Policy{
		Base:        1 * time.Second,
		Max:         30 * time.Second,
		MaxAttempts: 12,
	}
}

// Ceiling returns the upper bound of the jitter window for an attempt.
func (p Policy) Ceiling(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := uint(attempt - 1)
	// A shift past 62 bits would wrap; the cap applies long before that.
	if shift > 62 {
		return p.Max
	}
	exp := p.Base << shift
	if exp <= 0 || exp > p.Max {
		return p.Max
	}
	return exp
}

// Delay returns the wait before the given reconnect attempt, attempt >= 1.
func (p Policy) Delay(attempt int) time.Duration {
	ceiling := p.Ceiling(attempt)
	draw := rand.Float64
	if p.rand != nil {
		draw = p.rand
	}
	return time.Duration(draw() * float64(ceiling))
}
