// Package voice defines the Provider interface for text/speech generation
// backends used by oracy tutoring sessions.
//
// A voice provider wraps a hosted model API (OpenAI, Azure OpenAI, Gemini) or
// a local test double and exposes a uniform interface for text generation,
// speech-to-text, text-to-speech, and streamed audio responses. Providers are
// capability-tagged: callers should consult Capabilities before invoking
// realtime-specific paths. Invoking an unsupported path is not a programming
// error — it degrades to the composed transcribe → generate → synthesize flow
// (see DefaultStream).
//
// Failure contract: a transient backend failure (network error, quota,
// missing credentials at call time) is returned as a normal error. Callers in
// the conversation hot path must treat such an error as "no output this turn"
// — log it and continue — never as a reason to terminate the session.
//
// Implementations must be safe for concurrent use. Channels returned by
// StreamAudioResponse must be closed by the implementation when the stream
// ends or when the supplied context is cancelled.
package voice

import "context"

// Capability is a named feature a provider may or may not support.
type Capability string

const (
	// CapabilityTextGeneration indicates basic text completion support.
	CapabilityTextGeneration Capability = "text_generation"

	// CapabilityAudioToText indicates speech-to-text (STT) support.
	CapabilityAudioToText Capability = "audio_to_text"

	// CapabilityTextToAudio indicates text-to-speech (TTS) support.
	CapabilityTextToAudio Capability = "text_to_audio"

	// CapabilityRealtimeAudio indicates native bidirectional realtime audio.
	CapabilityRealtimeAudio Capability = "realtime_audio"

	// CapabilityStreaming indicates streamed (incremental) responses.
	CapabilityStreaming Capability = "streaming"
)

// Config is the immutable configuration value object for a provider
// instance. It is constructed once (usually by the factory) and never
// mutated afterwards.
type Config struct {
	// Model selects the text-generation model (e.g., "gpt-4o-mini").
	Model string

	// RealtimeModel selects the bidirectional audio model for providers
	// with native realtime support. Ignored by others.
	RealtimeModel string

	// Voice is the TTS voice identifier (e.g., "alloy").
	Voice string

	// Temperature controls output randomness in [0.0, 2.0].
	Temperature float64

	// MaxResponseTokens caps the generated response length.
	MaxResponseTokens int

	// APIKey authenticates against the provider's API.
	APIKey string

	// BaseURL overrides the provider's default endpoint. Primarily used in
	// tests to point at a local mock server.
	BaseURL string

	// APIVersion pins a vendor API version where the vendor requires one.
	APIVersion string

	// AzureEndpoint and AzureDeployment configure the enterprise-hosted
	// variant. Ignored by other providers.
	AzureEndpoint   string
	AzureDeployment string

	// BuildPrompt constructs the system instruction for a session context.
	// When nil, providers fall back to a minimal built-in prompt. The
	// factory wires the full language-aware builder here.
	BuildPrompt func(SessionContext) string

	// Extra holds provider-specific options not covered by the fields above.
	Extra map[string]any
}

// Message is a single turn in a conversation history.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the turn.
	Content string
}

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SessionContext carries the per-session information a provider needs to
// personalise its responses. The student is identified only by an opaque
// code — never a real name.
type SessionContext struct {
	// StudentCode is the opaque student identifier.
	StudentCode string

	// Grade is the student's grade level. Defaults to 5 until the student
	// record resolves.
	Grade int

	// PrimaryLanguage is the student's home language, or "Unknown".
	PrimaryLanguage string

	// CurriculumFocus is an optional learning-outcome hint attached by the
	// curriculum search collaborator.
	CurriculumFocus string

	// History is the ordered conversation so far, oldest first.
	History []Message
}

// Response is the result of a text generation call.
type Response struct {
	// Text is the generated assistant reply.
	Text string

	// LatencyMS is the wall-clock generation latency in milliseconds.
	LatencyMS float64

	// TokensUsed is the total token count reported by the backend, or zero
	// when the backend does not report usage.
	TokensUsed int

	// Model and Provider identify what produced this response.
	Model    string
	Provider string
}

// Provider is the abstraction over any text/speech generation backend.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly on every method.
type Provider interface {
	// Name returns the human-readable provider name (e.g., "openai").
	Name() string

	// Capabilities returns the set of capabilities this provider supports.
	// The result is constant for the lifetime of the instance.
	Capabilities() []Capability

	// GenerateText produces a reply from the ordered conversation history
	// and session context. The system instruction is built deterministically
	// from the context's grade, primary language, and curriculum focus.
	GenerateText(ctx context.Context, history []Message, sctx SessionContext) (Response, error)

	// TranscribeAudio converts raw PCM16 mono 24kHz audio to text.
	TranscribeAudio(ctx context.Context, audio []byte) (string, error)

	// SynthesizeAudio converts text to raw PCM16 audio bytes.
	SynthesizeAudio(ctx context.Context, text string) ([]byte, error)

	// StreamAudioResponse produces an audio reply to an audio input as a
	// stream of chunks. Providers without native realtime support should
	// delegate to DefaultStream. The returned channel is closed when the
	// response is complete or ctx is cancelled.
	StreamAudioResponse(ctx context.Context, audio []byte, sctx SessionContext) (<-chan []byte, error)

	// HealthCheck reports whether the provider is reachable and configured.
	// It must never panic and should be cheap enough for a readiness probe.
	HealthCheck(ctx context.Context) bool
}

// HasCapability reports whether p declares the given capability.
func HasCapability(p Provider, c Capability) bool {
	for _, have := range p.Capabilities() {
		if have == c {
			return true
		}
	}
	return false
}

// SystemPrompt resolves the system instruction for sctx using cfg.BuildPrompt
// when set, falling back to a minimal deterministic prompt otherwise.
func SystemPrompt(cfg Config, sctx SessionContext) string {
	if cfg.BuildPrompt != nil {
		return cfg.BuildPrompt(sctx)
	}
	return defaultPrompt(sctx)
}
