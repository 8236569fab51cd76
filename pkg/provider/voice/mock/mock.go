// Package mock provides a network-free implementation of voice.Provider.
//
// It serves two roles. In tests it is a configurable double: set the response
// fields to feed controlled output and read the call records afterwards. In a
// running deployment it is the always-available fallback the factory selects
// when no real provider is configured, producing plausible canned tutoring
// replies so the rest of the pipeline can be exercised end to end.
//
// Zero-value response fields fall back to the canned defaults; set Err fields
// to inject failures.
package mock

import (
	"context"
	"sync"

	"github.com/nexuslearn/oracy/pkg/provider/voice"
)

// Canned replies cycled by GenerateText when GenerateResponses is unset.
var defaultReplies = []string{
	"That's a great start! Can you tell me more about what you mean?",
	"I like how you explained that. What happened next?",
	"Good thinking! Let's try saying that in a full sentence together.",
	"You're doing really well. What word would you use to describe it?",
}

// defaultTranscript is returned by TranscribeAudio when Transcripts is unset.
const defaultTranscript = "I think the answer is because the water goes up."

// GenerateCall records a single invocation of GenerateText.
type GenerateCall struct {
	// History is the conversation passed to GenerateText.
	History []voice.Message
	// SessionContext is the context passed to GenerateText.
	SessionContext voice.SessionContext
}

// TranscribeCall records a single invocation of TranscribeAudio.
type TranscribeCall struct {
	// AudioLen is the byte length of the audio passed in.
	AudioLen int
}

// SynthesizeCall records a single invocation of SynthesizeAudio.
type SynthesizeCall struct {
	// Text is the text passed to SynthesizeAudio.
	Text string
}

// Provider is a mock implementation of voice.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// GenerateResponses are cycled, one per GenerateText call. When empty,
	// canned tutoring replies are used instead.
	GenerateResponses []string

	// GenerateErr, if non-nil, is returned from GenerateText.
	GenerateErr error

	// Transcripts are cycled, one per TranscribeAudio call. When empty, a
	// canned transcript is used.
	Transcripts []string

	// TranscribeErr, if non-nil, is returned from TranscribeAudio.
	TranscribeErr error

	// SynthesizedAudio is returned by SynthesizeAudio. When nil, a short
	// buffer of PCM16 silence proportional to the text length is returned.
	SynthesizedAudio []byte

	// SynthesizeErr, if non-nil, is returned from SynthesizeAudio.
	SynthesizeErr error

	// Healthy is returned by HealthCheck. Defaults to true via the
	// healthSet guard.
	Healthy   bool
	healthSet bool

	// LatencyMS is reported on generated responses. Zero means 42.
	LatencyMS float64

	// --- Call records (read after test) ---

	// GenerateCalls records every invocation of GenerateText in order.
	GenerateCalls []GenerateCall

	// TranscribeCalls records every invocation of TranscribeAudio in order.
	TranscribeCalls []TranscribeCall

	// SynthesizeCalls records every invocation of SynthesizeAudio in order.
	SynthesizeCalls []SynthesizeCall

	// StreamCalls counts invocations of StreamAudioResponse.
	StreamCalls int

	generateIdx   int
	transcribeIdx int
}

// SetHealthy sets the HealthCheck result explicitly.
func (p *Provider) SetHealthy(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Healthy = ok
	p.healthSet = true
}

// Name returns "mock".
func (p *Provider) Name() string { return "mock" }

// Capabilities reports full support so the mock can stand in for any
// real provider in tests.
func (p *Provider) Capabilities() []voice.Capability {
	return []voice.Capability{
		voice.CapabilityTextGeneration,
		voice.CapabilityAudioToText,
		voice.CapabilityTextToAudio,
		voice.CapabilityRealtimeAudio,
		voice.CapabilityStreaming,
	}
}

// GenerateText records the call and returns the next configured (or canned)
// reply.
func (p *Provider) GenerateText(ctx context.Context, history []voice.Message, sctx voice.SessionContext) (voice.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	hist := make([]voice.Message, len(history))
	copy(hist, history)
	p.GenerateCalls = append(p.GenerateCalls, GenerateCall{History: hist, SessionContext: sctx})
	if p.GenerateErr != nil {
		return voice.Response{}, p.GenerateErr
	}
	replies := p.GenerateResponses
	if len(replies) == 0 {
		replies = defaultReplies
	}
	text := replies[p.generateIdx%len(replies)]
	p.generateIdx++
	latency := p.LatencyMS
	if latency == 0 {
		latency = 42
	}
	return voice.Response{
		Text:      text,
		LatencyMS: latency,
		Model:     "mock-tutor-1",
		Provider:  "mock",
	}, nil
}

// TranscribeAudio records the call and returns the next configured (or
// canned) transcript.
func (p *Provider) TranscribeAudio(ctx context.Context, audio []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{AudioLen: len(audio)})
	if p.TranscribeErr != nil {
		return "", p.TranscribeErr
	}
	if len(p.Transcripts) == 0 {
		return defaultTranscript, nil
	}
	t := p.Transcripts[p.transcribeIdx%len(p.Transcripts)]
	p.transcribeIdx++
	return t, nil
}

// SynthesizeAudio records the call and returns SynthesizedAudio, or PCM16
// silence sized to the text when unset.
func (p *Provider) SynthesizeAudio(ctx context.Context, text string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Text: text})
	if p.SynthesizeErr != nil {
		return nil, p.SynthesizeErr
	}
	if p.SynthesizedAudio != nil {
		out := make([]byte, len(p.SynthesizedAudio))
		copy(out, p.SynthesizedAudio)
		return out, nil
	}
	// 2 bytes per sample, ~50ms of 24kHz silence per character.
	n := len(text) * 2400
	if n == 0 {
		n = 2400
	}
	return make([]byte, n), nil
}

// StreamAudioResponse delegates to the composed default flow.
func (p *Provider) StreamAudioResponse(ctx context.Context, audio []byte, sctx voice.SessionContext) (<-chan []byte, error) {
	p.mu.Lock()
	p.StreamCalls++
	p.mu.Unlock()
	return voice.DefaultStream(ctx, p, audio, sctx)
}

// HealthCheck returns the configured health, defaulting to true.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.healthSet {
		return true
	}
	return p.Healthy
}

// Reset clears all recorded calls and cycling positions. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GenerateCalls = nil
	p.TranscribeCalls = nil
	p.SynthesizeCalls = nil
	p.StreamCalls = 0
	p.generateIdx = 0
	p.transcribeIdx = 0
}

// Ensure Provider implements voice.Provider at compile time.
var _ voice.Provider = (*Provider)(nil)
