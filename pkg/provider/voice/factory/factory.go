// Package factory constructs voice providers from a closed set of known
// variants and selects among them based on which credentials are present.
//
// The selection priority is fixed: azure-openai, then openai, then gemini,
// then mock. The enterprise-hosted variant wins whenever it is configured
// because student traffic must stay on tenant infrastructure when available.
// The mock variant needs no credentials and is always available, so every
// deployment has a working provider.
package factory

import (
	"fmt"
	"strings"

	"github.com/nexuslearn/oracy/pkg/provider/voice"
	"github.com/nexuslearn/oracy/pkg/provider/voice/azure"
	"github.com/nexuslearn/oracy/pkg/provider/voice/gemini"
	"github.com/nexuslearn/oracy/pkg/provider/voice/mock"
	"github.com/nexuslearn/oracy/pkg/provider/voice/openai"
)

// Type identifies a provider variant.
type Type string

// The closed set of provider variants.
const (
	TypeAzureOpenAI Type = "azure-openai"
	TypeOpenAI      Type = "openai"
	TypeGemini      Type = "gemini"
	TypeMock        Type = "mock"
)

// priority is the fixed auto-selection order. Do not reorder.
var priority = []Type{TypeAzureOpenAI, TypeOpenAI, TypeGemini, TypeMock}

// Credentials holds the per-variant secrets and settings the factory needs.
// Fields left empty mark the variant as unavailable.
type Credentials struct {
	OpenAIAPIKey        string
	OpenAIModel         string
	OpenAIRealtimeModel string

	AzureEndpoint   string
	AzureAPIKey     string
	AzureDeployment string
	AzureAPIVersion string

	GeminiAPIKey string
	GeminiModel  string

	// Voice, Temperature and MaxResponseTokens apply to every variant.
	Voice             string
	Temperature       float64
	MaxResponseTokens int

	// BuildPrompt is threaded into each constructed provider's config.
	BuildPrompt func(voice.SessionContext) string
}

// Available returns the variants usable with the given credentials, in
// selection priority order. Mock is always included.
func Available(creds Credentials) []Type {
	var out []Type
	for _, t := range priority {
		if configured(t, creds) {
			out = append(out, t)
		}
	}
	return out
}

// AutoSelect returns the highest-priority variant usable with the given
// credentials. It never fails: mock is always available.
func AutoSelect(creds Credentials) Type {
	return Available(creds)[0]
}

// New constructs a provider of the given variant. Unknown variants return a
// descriptive error listing the valid set.
func New(t Type, creds Credentials) (voice.Provider, error) {
	switch t {
	case TypeMock:
		return &mock.Provider{}, nil

	case TypeOpenAI:
		p, err := openai.New(voice.Config{
			Model:             creds.OpenAIModel,
			RealtimeModel:     creds.OpenAIRealtimeModel,
			Voice:             creds.Voice,
			Temperature:       creds.Temperature,
			MaxResponseTokens: creds.MaxResponseTokens,
			APIKey:            creds.OpenAIAPIKey,
			BuildPrompt:       creds.BuildPrompt,
		})
		if err != nil {
			return nil, fmt.Errorf("factory: %w", err)
		}
		return p, nil

	case TypeAzureOpenAI:
		p, err := azure.New(voice.Config{
			Voice:             creds.Voice,
			Temperature:       creds.Temperature,
			MaxResponseTokens: creds.MaxResponseTokens,
			APIKey:            creds.AzureAPIKey,
			APIVersion:        creds.AzureAPIVersion,
			AzureEndpoint:     creds.AzureEndpoint,
			AzureDeployment:   creds.AzureDeployment,
			BuildPrompt:       creds.BuildPrompt,
		})
		if err != nil {
			return nil, fmt.Errorf("factory: %w", err)
		}
		return p, nil

	case TypeGemini:
		p, err := gemini.New(voice.Config{
			Model:             creds.GeminiModel,
			Temperature:       creds.Temperature,
			MaxResponseTokens: creds.MaxResponseTokens,
			APIKey:            creds.GeminiAPIKey,
			BuildPrompt:       creds.BuildPrompt,
		})
		if err != nil {
			return nil, fmt.Errorf("factory: %w", err)
		}
		return p, nil

	default:
		return nil, fmt.Errorf("factory: unknown provider type %q; valid types: %s", t, validTypes())
	}
}

// configured reports whether the given variant has the credentials it needs.
func configured(t Type, creds Credentials) bool {
	switch t {
	case TypeAzureOpenAI:
		return creds.AzureEndpoint != "" && creds.AzureAPIKey != "" && creds.AzureDeployment != ""
	case TypeOpenAI:
		return creds.OpenAIAPIKey != ""
	case TypeGemini:
		return creds.GeminiAPIKey != ""
	case TypeMock:
		return true
	}
	return false
}

func validTypes() string {
	names := make([]string, len(priority))
	for i, t := range priority {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
