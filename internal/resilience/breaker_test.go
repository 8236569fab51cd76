package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Name: "test", MaxFailures: 3, ResetTimeout: time.Hour})

	for range 3 {
		if err := b.Do(func() error { return errBackend }); !errors.Is(err, errBackend) {
			t.Fatalf("Do() = %v, want backend error", err)
		}
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("State() = %v, want open", got)
	}

	called := false
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("Do() while open = %v, want ErrBreakerOpen", err)
	}
	if called {
		t.Error("fn was called while breaker open")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})

	_ = b.Do(func() error { return errBackend })
	_ = b.Do(func() error { return nil })
	_ = b.Do(func() error { return errBackend })

	if got := b.State(); got != StateClosed {
		t.Errorf("State() = %v, want closed after interleaved success", got)
	}
}

func TestBreaker_ClosesAfterSuccessfulProbes(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond, HalfOpenMax: 2})

	_ = b.Do(func() error { return errBackend })
	if got := b.State(); got != StateOpen {
		t.Fatalf("State() = %v, want open", got)
	}

	time.Sleep(20 * time.Millisecond)
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("State() after reset timeout = %v, want half-open", got)
	}

	for range 2 {
		if err := b.Do(func() error { return nil }); err != nil {
			t.Fatalf("probe failed: %v", err)
		}
	}
	if got := b.State(); got != StateClosed {
		t.Errorf("State() after successful probes = %v, want closed", got)
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond})

	_ = b.Do(func() error { return errBackend })
	time.Sleep(20 * time.Millisecond)

	_ = b.Do(func() error { return errBackend })
	if got := b.State(); got != StateOpen {
		t.Errorf("State() after failed probe = %v, want open", got)
	}
}

func TestBreaker_Reset(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	_ = b.Do(func() error { return errBackend })

	b.Reset()
	if got := b.State(); got != StateClosed {
		t.Fatalf("State() after Reset = %v, want closed", got)
	}
	if err := b.Do(func() error { return nil }); err != nil {
		t.Errorf("Do() after Reset = %v", err)
	}
}
