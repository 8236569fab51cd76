// Package openai implements voice.Provider backed by the OpenAI API.
//
// Text generation uses chat completions, speech-to-text uses the audio
// transcription endpoint (raw PCM16 is wrapped in a WAV container first),
// text-to-speech uses the speech endpoint with PCM output, and streamed
// audio responses use the Realtime API over a WebSocket (see realtime.go).
package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/nexuslearn/oracy/pkg/audio"
	"github.com/nexuslearn/oracy/pkg/provider/voice"
)

const (
	defaultModel         = "gpt-4o-mini"
	defaultRealtimeModel = "gpt-4o-realtime-preview"
	defaultVoice         = "alloy"
	defaultSTTModel      = "whisper-1"
	defaultTTSModel      = "tts-1"
)

// Provider implements voice.Provider using the OpenAI API.
type Provider struct {
	client      oai.Client
	cfg         voice.Config
	model       string
	realtimeURL string
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithRealtimeURL overrides the Realtime WebSocket base URL. Primarily used
// in tests to point at a local mock server.
func WithRealtimeURL(url string) Option {
	return func(p *Provider) { p.realtimeURL = url }
}

// New constructs an OpenAI voice provider from cfg. cfg.APIKey must be set.
func New(cfg voice.Config, opts ...Option) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key must not be empty")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.RealtimeModel == "" {
		cfg.RealtimeModel = defaultRealtimeModel
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	p := &Provider{
		client:      oai.NewClient(reqOpts...),
		cfg:         cfg,
		model:       cfg.Model,
		realtimeURL: defaultRealtimeURL,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name returns "openai".
func (p *Provider) Name() string { return "openai" }

// Capabilities implements voice.Provider.
func (p *Provider) Capabilities() []voice.Capability {
	return []voice.Capability{
		voice.CapabilityTextGeneration,
		voice.CapabilityAudioToText,
		voice.CapabilityTextToAudio,
		voice.CapabilityRealtimeAudio,
		voice.CapabilityStreaming,
	}
}

// GenerateText implements voice.Provider.
func (p *Provider) GenerateText(ctx context.Context, history []voice.Message, sctx voice.SessionContext) (voice.Response, error) {
	params := p.buildParams(history, sctx)

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return voice.Response{}, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return voice.Response{}, fmt.Errorf("openai: empty choices in response")
	}

	return voice.Response{
		Text:       resp.Choices[0].Message.Content,
		LatencyMS:  float64(time.Since(start)) / float64(time.Millisecond),
		TokensUsed: int(resp.Usage.TotalTokens),
		Model:      p.model,
		Provider:   "openai",
	}, nil
}

// TranscribeAudio implements voice.Provider. The raw PCM16 mono 24kHz input
// is wrapped in a WAV container before upload.
func (p *Provider) TranscribeAudio(ctx context.Context, pcm []byte) (string, error) {
	wav := audio.WrapWAV(pcm, audio.SessionSampleRate)

	tr, err := p.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		File:  bytes.NewReader(wav),
		Model: defaultSTTModel,
	})
	if err != nil {
		return "", fmt.Errorf("openai: transcribe: %w", err)
	}
	return tr.Text, nil
}

// SynthesizeAudio implements voice.Provider. Output is raw PCM16 at 24kHz,
// matching the transport's playback format.
func (p *Provider) SynthesizeAudio(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, nil
	}
	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          defaultTTSModel,
		Input:          text,
		Voice:          oai.AudioSpeechNewParamsVoice(p.cfg.Voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: synthesize: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read synthesized audio: %w", err)
	}
	return data, nil
}

// HealthCheck reports whether the API is reachable with the configured key.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// A minimal models list call is the cheapest authenticated request.
	_, err := p.client.Models.List(ctx)
	return err == nil
}

// buildParams converts history + context into chat completion params with
// the session's system instruction prepended.
func (p *Provider) buildParams(history []voice.Message, sctx voice.SessionContext) oai.ChatCompletionNewParams {
	messages := make([]oai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	messages = append(messages, oai.SystemMessage(voice.SystemPrompt(p.cfg, sctx)))

	for _, m := range history {
		switch m.Role {
		case voice.RoleAssistant:
			messages = append(messages, oai.AssistantMessage(m.Content))
		case voice.RoleSystem:
			messages = append(messages, oai.SystemMessage(m.Content))
		default:
			messages = append(messages, oai.UserMessage(m.Content))
		}
	}

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}
	if p.cfg.Temperature != 0 {
		params.Temperature = param.NewOpt(p.cfg.Temperature)
	}
	if p.cfg.MaxResponseTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(p.cfg.MaxResponseTokens))
	}
	return params
}

// Compile-time assertion that Provider satisfies voice.Provider.
var _ voice.Provider = (*Provider)(nil)
