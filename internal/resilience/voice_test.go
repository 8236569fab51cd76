package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nexuslearn/oracy/pkg/provider/voice"
	voicemock "github.com/nexuslearn/oracy/pkg/provider/voice/mock"
)

func newFailover(t *testing.T, providers ...voice.Provider) *Failover {
	t.Helper()
	f, err := NewFailover(providers, BreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour}, nil)
	if err != nil {
		t.Fatalf("NewFailover() error: %v", err)
	}
	return f
}

func TestNewFailover_RequiresProvider(t *testing.T) {
	t.Parallel()

	if _, err := NewFailover(nil, BreakerConfig{}, nil); err == nil {
		t.Error("NewFailover(nil) succeeded, want error")
	}
}

func TestFailover_PrimaryServesWhenHealthy(t *testing.T) {
	t.Parallel()

	primary := &voicemock.Provider{GenerateResponses: []string{"from primary"}}
	fallback := &voicemock.Provider{GenerateResponses: []string{"from fallback"}}
	f := newFailover(t, primary, fallback)

	resp, err := f.GenerateText(context.Background(), nil, voice.SessionContext{})
	if err != nil {
		t.Fatalf("GenerateText() error: %v", err)
	}
	if resp.Text != "from primary" {
		t.Errorf("Text = %q, want primary reply", resp.Text)
	}
	if len(fallback.GenerateCalls) != 0 {
		t.Errorf("fallback was called %d times, want 0", len(fallback.GenerateCalls))
	}
}

func TestFailover_FallsBackOnPrimaryError(t *testing.T) {
	t.Parallel()

	primary := &voicemock.Provider{GenerateErr: errBackend}
	fallback := &voicemock.Provider{GenerateResponses: []string{"from fallback"}}
	f := newFailover(t, primary, fallback)

	resp, err := f.GenerateText(context.Background(), nil, voice.SessionContext{})
	if err != nil {
		t.Fatalf("GenerateText() error: %v", err)
	}
	if resp.Text != "from fallback" {
		t.Errorf("Text = %q, want fallback reply", resp.Text)
	}
}

func TestFailover_AllFail(t *testing.T) {
	t.Parallel()

	primary := &voicemock.Provider{TranscribeErr: errBackend}
	fallback := &voicemock.Provider{TranscribeErr: errBackend}
	f := newFailover(t, primary, fallback)

	_, err := f.TranscribeAudio(context.Background(), []byte{1, 2})
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Errorf("TranscribeAudio() = %v, want ErrAllProvidersFailed", err)
	}
}

func TestFailover_SkipsTrippedPrimary(t *testing.T) {
	t.Parallel()

	primary := &voicemock.Provider{GenerateErr: errBackend}
	fallback := &voicemock.Provider{}
	f := newFailover(t, primary, fallback)

	// Two failures trip the primary's breaker.
	for range 2 {
		if _, err := f.GenerateText(context.Background(), nil, voice.SessionContext{}); err != nil {
			t.Fatalf("GenerateText() error: %v", err)
		}
	}
	primaryCalls := len(primary.GenerateCalls)

	if _, err := f.GenerateText(context.Background(), nil, voice.SessionContext{}); err != nil {
		t.Fatalf("GenerateText() error: %v", err)
	}
	if len(primary.GenerateCalls) != primaryCalls {
		t.Errorf("tripped primary was called again (%d -> %d calls)", primaryCalls, len(primary.GenerateCalls))
	}
}

func TestFailover_HealthCheck(t *testing.T) {
	t.Parallel()

	primary := &voicemock.Provider{}
	fallback := &voicemock.Provider{}
	f := newFailover(t, primary, fallback)

	if !f.HealthCheck(context.Background()) {
		t.Error("HealthCheck() = false with healthy entries")
	}

	primary.SetHealthy(false)
	if !f.HealthCheck(context.Background()) {
		t.Error("HealthCheck() = false while fallback healthy")
	}

	fallback.SetHealthy(false)
	if f.HealthCheck(context.Background()) {
		t.Error("HealthCheck() = true with all entries unhealthy")
	}
}

func TestFailover_Name(t *testing.T) {
	t.Parallel()

	f := newFailover(t, &voicemock.Provider{}, &voicemock.Provider{})
	if got := f.Name(); got != "failover(mock,mock)" {
		t.Errorf("Name() = %q", got)
	}
}
