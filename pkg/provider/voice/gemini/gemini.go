// Package gemini implements voice.Provider backed by Google Gemini through
// github.com/mozilla-ai/any-llm-go. It is the alternate-vendor text path:
// speech endpoints are not wired here, so transcription and synthesis report
// missing capability and streamed audio responses use the composed default
// flow (which will fail cleanly without a speech-capable provider).
package gemini

import (
	"context"
	"fmt"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	anyllmgemini "github.com/mozilla-ai/any-llm-go/providers/gemini"

	"github.com/nexuslearn/oracy/pkg/provider/voice"
)

const defaultModel = "gemini-2.0-flash"

// ErrNoSpeech is returned by the speech endpoints, which Gemini does not
// provide through this integration.
var ErrNoSpeech = fmt.Errorf("gemini: speech endpoints not supported")

// Provider implements voice.Provider using Google Gemini.
type Provider struct {
	backend anyllmlib.Provider
	cfg     voice.Config
	model   string
}

// New constructs a Gemini voice provider from cfg. cfg.APIKey must be set.
func New(cfg voice.Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key must not be empty")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	opts := []anyllmlib.Option{anyllmlib.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}
	backend, err := anyllmgemini.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create backend: %w", err)
	}
	return &Provider{backend: backend, cfg: cfg, model: cfg.Model}, nil
}

// Name returns "gemini".
func (p *Provider) Name() string { return "gemini" }

// Capabilities implements voice.Provider. Text only.
func (p *Provider) Capabilities() []voice.Capability {
	return []voice.Capability{
		voice.CapabilityTextGeneration,
		voice.CapabilityStreaming,
	}
}

// GenerateText implements voice.Provider.
func (p *Provider) GenerateText(ctx context.Context, history []voice.Message, sctx voice.SessionContext) (voice.Response, error) {
	messages := make([]anyllmlib.Message, 0, len(history)+1)
	messages = append(messages, anyllmlib.Message{
		Role:    anyllmlib.RoleSystem,
		Content: voice.SystemPrompt(p.cfg, sctx),
	})
	for _, m := range history {
		messages = append(messages, anyllmlib.Message{Role: m.Role, Content: m.Content})
	}

	params := anyllmlib.CompletionParams{
		Model:    p.model,
		Messages: messages,
	}
	if p.cfg.Temperature != 0 {
		t := p.cfg.Temperature
		params.Temperature = &t
	}
	if p.cfg.MaxResponseTokens > 0 {
		mt := p.cfg.MaxResponseTokens
		params.MaxTokens = &mt
	}

	start := time.Now()
	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return voice.Response{}, fmt.Errorf("gemini: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return voice.Response{}, fmt.Errorf("gemini: empty choices in response")
	}

	out := voice.Response{
		Text:      resp.Choices[0].Message.ContentString(),
		LatencyMS: float64(time.Since(start)) / float64(time.Millisecond),
		Model:     p.model,
		Provider:  "gemini",
	}
	if resp.Usage != nil {
		out.TokensUsed = resp.Usage.TotalTokens
	}
	return out, nil
}

// TranscribeAudio implements voice.Provider. Not supported.
func (p *Provider) TranscribeAudio(ctx context.Context, pcm []byte) (string, error) {
	return "", ErrNoSpeech
}

// SynthesizeAudio implements voice.Provider. Not supported.
func (p *Provider) SynthesizeAudio(ctx context.Context, text string) ([]byte, error) {
	return nil, ErrNoSpeech
}

// StreamAudioResponse delegates to the composed default flow.
func (p *Provider) StreamAudioResponse(ctx context.Context, pcm []byte, sctx voice.SessionContext) (<-chan []byte, error) {
	return voice.DefaultStream(ctx, p, pcm, sctx)
}

// HealthCheck reports whether a minimal completion succeeds.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	mt := 1
	_, err := p.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model:     p.model,
		Messages:  []anyllmlib.Message{{Role: "user", Content: "ping"}},
		MaxTokens: &mt,
	})
	return err == nil
}

// Compile-time assertion that Provider satisfies voice.Provider.
var _ voice.Provider = (*Provider)(nil)
