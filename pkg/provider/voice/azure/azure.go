// Package azure implements voice.Provider backed by an Azure OpenAI
// deployment. It is the enterprise-hosted variant: the same model family as
// the openai provider, addressed by deployment name against a tenant
// endpoint. Azure OpenAI does not expose the Realtime API here, so streamed
// audio responses use the composed default flow.
package azure

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	oai "github.com/openai/openai-go"
	azopts "github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/nexuslearn/oracy/pkg/audio"
	"github.com/nexuslearn/oracy/pkg/provider/voice"
)

const (
	defaultAPIVersion = "2024-06-01"
	defaultVoice      = "alloy"

	// Deployment names for the speech endpoints. Tenants conventionally
	// name these after the underlying model.
	sttDeployment = "whisper"
	ttsDeployment = "tts"
)

// Provider implements voice.Provider using Azure OpenAI.
type Provider struct {
	client     oai.Client
	cfg        voice.Config
	deployment string
}

// New constructs an Azure OpenAI voice provider from cfg. cfg.AzureEndpoint,
// cfg.APIKey, and cfg.AzureDeployment must be set.
func New(cfg voice.Config) (*Provider, error) {
	if cfg.AzureEndpoint == "" {
		return nil, fmt.Errorf("azure: endpoint must not be empty")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("azure: api key must not be empty")
	}
	if cfg.AzureDeployment == "" {
		return nil, fmt.Errorf("azure: deployment must not be empty")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}

	client := oai.NewClient(
		azopts.WithEndpoint(cfg.AzureEndpoint, cfg.APIVersion),
		azopts.WithAPIKey(cfg.APIKey),
	)
	return &Provider{
		client:     client,
		cfg:        cfg,
		deployment: cfg.AzureDeployment,
	}, nil
}

// Name returns "azure-openai".
func (p *Provider) Name() string { return "azure-openai" }

// Capabilities implements voice.Provider. Realtime audio is not available
// through the Azure deployment surface used here.
func (p *Provider) Capabilities() []voice.Capability {
	return []voice.Capability{
		voice.CapabilityTextGeneration,
		voice.CapabilityAudioToText,
		voice.CapabilityTextToAudio,
		voice.CapabilityStreaming,
	}
}

// GenerateText implements voice.Provider.
func (p *Provider) GenerateText(ctx context.Context, history []voice.Message, sctx voice.SessionContext) (voice.Response, error) {
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
		Model:    shared.ChatModel(p.deployment),
		Messages: messages,
	}
	if p.cfg.Temperature != 0 {
		params.Temperature = param.NewOpt(p.cfg.Temperature)
	}
	if p.cfg.MaxResponseTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(p.cfg.MaxResponseTokens))
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return voice.Response{}, fmt.Errorf("azure: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return voice.Response{}, fmt.Errorf("azure: empty choices in response")
	}

	return voice.Response{
		Text:       resp.Choices[0].Message.Content,
		LatencyMS:  float64(time.Since(start)) / float64(time.Millisecond),
		TokensUsed: int(resp.Usage.TotalTokens),
		Model:      p.deployment,
		Provider:   "azure-openai",
	}, nil
}

// TranscribeAudio implements voice.Provider via the whisper deployment.
func (p *Provider) TranscribeAudio(ctx context.Context, pcm []byte) (string, error) {
	wav := audio.WrapWAV(pcm, audio.SessionSampleRate)

	tr, err := p.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		File:  bytes.NewReader(wav),
		Model: sttDeployment,
	})
	if err != nil {
		return "", fmt.Errorf("azure: transcribe: %w", err)
	}
	return tr.Text, nil
}

// SynthesizeAudio implements voice.Provider via the tts deployment.
func (p *Provider) SynthesizeAudio(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, nil
	}
	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          ttsDeployment,
		Input:          text,
		Voice:          oai.AudioSpeechNewParamsVoice(p.cfg.Voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return nil, fmt.Errorf("azure: synthesize: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("azure: read synthesized audio: %w", err)
	}
	return data, nil
}

// StreamAudioResponse delegates to the composed default flow.
func (p *Provider) StreamAudioResponse(ctx context.Context, pcm []byte, sctx voice.SessionContext) (<-chan []byte, error) {
	return voice.DefaultStream(ctx, p, pcm, sctx)
}

// HealthCheck reports whether the deployment endpoint is reachable.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := p.client.Models.List(ctx)
	return err == nil
}

// Compile-time assertion that Provider satisfies voice.Provider.
var _ voice.Provider = (*Provider)(nil)
