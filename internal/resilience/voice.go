package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nexuslearn/oracy/pkg/provider/voice"
)

// ErrAllProvidersFailed is returned when every failover entry fails or has
// an open breaker.
var ErrAllProvidersFailed = errors.New("resilience: all providers failed")

// entry pairs one provider with its dedicated breaker.
type entry struct {
	name     string
	provider voice.Provider
	breaker  *Breaker
}

// Failover is a [voice.Provider] that tries each configured provider in
// order until one succeeds. Every entry has its own circuit breaker, so a
// backend that keeps failing is skipped without paying its timeout on each
// turn. Safe for concurrent use.
type Failover struct {
	entries []entry
	log     *slog.Logger
}

// NewFailover builds a Failover over the given providers, primary first.
// The breaker config is shared by all entries except Name, which is set per
// provider.
func NewFailover(providers []voice.Provider, cfg BreakerConfig, log *slog.Logger) (*Failover, error) {
	if len(providers) == 0 {
		return nil, errors.New("resilience: at least one provider required")
	}
	if log == nil {
		log = slog.Default()
	}
	f := &Failover{log: log}
	for _, p := range providers {
		bc := cfg
		bc.Name = p.Name()
		f.entries = append(f.entries, entry{
			name:     p.Name(),
			provider: p,
			breaker:  NewBreaker(bc),
		})
	}
	return f, nil
}

// Name lists the chain, e.g. "failover(azure-openai,openai)".
func (f *Failover) Name() string {
	names := make([]string, len(f.entries))
	for i, e := range f.entries {
		names[i] = e.name
	}
	return "failover(" + strings.Join(names, ",") + ")"
}

// Capabilities reports the primary's capabilities. Fallbacks are assumed to
// cover the same surface; a capability gap shows up as a per-call failure
// and the chain moves on.
func (f *Failover) Capabilities() []voice.Capability {
	return f.entries[0].provider.Capabilities()
}

func (f *Failover) GenerateText(ctx context.Context, history []voice.Message, sctx voice.SessionContext) (voice.Response, error) {
	return tryEach(f, func(p voice.Provider) (voice.Response, error) {
		return p.GenerateText(ctx, history, sctx)
	})
}

func (f *Failover) TranscribeAudio(ctx context.Context, audio []byte) (string, error) {
	return tryEach(f, func(p voice.Provider) (string, error) {
		return p.TranscribeAudio(ctx, audio)
	})
}

func (f *Failover) SynthesizeAudio(ctx context.Context, text string) ([]byte, error) {
	return tryEach(f, func(p voice.Provider) ([]byte, error) {
		return p.SynthesizeAudio(ctx, text)
	})
}

func (f *Failover) StreamAudioResponse(ctx context.Context, audio []byte, sctx voice.SessionContext) (<-chan []byte, error) {
	return tryEach(f, func(p voice.Provider) (<-chan []byte, error) {
		return p.StreamAudioResponse(ctx, audio, sctx)
	})
}

// HealthCheck passes while any entry in the chain is healthy.
func (f *Failover) HealthCheck(ctx context.Context) bool {
	for _, e := range f.entries {
		if e.provider.HealthCheck(ctx) {
			return true
		}
	}
	return false
}

// tryEach runs fn against each entry in order until one succeeds. Entries
// with an open breaker are skipped. This is a package-level function because
// Go does not support method-level type parameters.
func tryEach[R any](f *Failover, fn func(voice.Provider) (R, error)) (R, error) {
	var (
		zero    R
		lastErr error
	)
	for i := range f.entries {
		e := &f.entries[i]
		var result R
		err := e.breaker.Do(func() error {
			var callErr error
			result, callErr = fn(e.provider)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			f.log.Debug("skipping provider, breaker open", "provider", e.name)
		} else {
			f.log.Warn("provider failed, trying next", "provider", e.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)
}

var _ voice.Provider = (*Failover)(nil)
