// Package resilience protects the conversation hot path from a flapping
// model backend. A Breaker stops hammering a backend after repeated
// failures, and Failover composes several voice providers so that a tripped
// primary is bypassed in favour of the next configured one.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Do] while the breaker is open and
// the reset timeout has not elapsed.
var ErrBreakerOpen = errors.New("resilience: breaker open")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards all calls.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrBreakerOpen] until the reset
	// timeout elapses.
	StateOpen

	// StateHalfOpen lets a bounded number of probe calls through. Probes
	// decide whether the breaker closes again or re-opens.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a [Breaker]. Zero fields get defaults.
type BreakerConfig struct {
	// Name labels the breaker in log output.
	Name string

	// MaxFailures is the consecutive-failure count that trips the breaker.
	// Default: 5.
	MaxFailures int

	// ResetTimeout is how long a tripped breaker waits before allowing
	// probe calls. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the probe budget in the half-open state. Default: 3.
	HalfOpenMax int
}

// Breaker is a three-state circuit breaker. Safe for concurrent use.
type Breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu         sync.Mutex
	state      State
	fails      int
	lastFail   time.Time
	probes     int
	probeFails int
}

// NewBreaker returns a closed [Breaker] configured from cfg.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &Breaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
	}
}

// Do runs fn unless the breaker rejects the call. The error from fn is
// returned unchanged; a rejected call returns [ErrBreakerOpen] without
// invoking fn.
func (b *Breaker) Do(fn func() error) error {
	probe, err := b.allow()
	if err != nil {
		return err
	}

	err = fn()
	b.record(probe, err)
	return err
}

// allow decides whether a call may proceed and reports whether it counts as
// a half-open probe.
func (b *Breaker) allow() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.lastFail) < b.resetTimeout {
			return false, ErrBreakerOpen
		}
		b.state = StateHalfOpen
		b.probes = 0
		b.probeFails = 0
		slog.Info("breaker half-open", "name", b.name)

	case StateHalfOpen:
		if b.probes >= b.halfOpenMax {
			return false, ErrBreakerOpen
		}
	}

	if b.state == StateHalfOpen {
		b.probes++
		return true, nil
	}
	return false, nil
}

func (b *Breaker) record(probe bool, callErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if callErr != nil {
		b.lastFail = time.Now()
		if probe {
			// One failed probe re-opens immediately.
			b.probeFails++
			b.state = StateOpen
			b.fails = b.maxFailures
			slog.Warn("breaker re-opened", "name", b.name)
			return
		}
		b.fails++
		if b.fails >= b.maxFailures {
			b.state = StateOpen
			slog.Warn("breaker opened", "name", b.name, "consecutive_failures", b.fails)
		}
		return
	}

	if probe {
		if b.probes-b.probeFails >= b.halfOpenMax {
			b.state = StateClosed
			b.fails = 0
			slog.Info("breaker closed", "name", b.name)
		}
		return
	}
	b.fails = 0
}

// State returns the breaker's current state. An open breaker whose reset
// timeout has elapsed reports half-open; the transition itself happens on
// the next [Breaker.Do].
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.lastFail) >= b.resetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to closed and clears failure counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.fails = 0
	b.probes = 0
	b.probeFails = 0
}
