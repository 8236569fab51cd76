package factory_test

import (
	"strings"
	"testing"

	"github.com/nexuslearn/oracy/pkg/provider/voice/factory"
)

func TestAutoSelect_Priority(t *testing.T) {
	t.Parallel()

	azure := factory.Credentials{
		AzureEndpoint:   "https://tenant.openai.azure.com",
		AzureAPIKey:     "az-key",
		AzureDeployment: "gpt-4o",
	}

	tests := []struct {
		name  string
		creds factory.Credentials
		want  factory.Type
	}{
		{"nothing configured selects mock", factory.Credentials{}, factory.TypeMock},
		{"gemini only", factory.Credentials{GeminiAPIKey: "g-key"}, factory.TypeGemini},
		{"openai beats gemini", factory.Credentials{OpenAIAPIKey: "sk-1", GeminiAPIKey: "g-key"}, factory.TypeOpenAI},
		{
			"azure beats openai",
			factory.Credentials{
				OpenAIAPIKey:    "sk-1",
				AzureEndpoint:   azure.AzureEndpoint,
				AzureAPIKey:     azure.AzureAPIKey,
				AzureDeployment: azure.AzureDeployment,
			},
			factory.TypeAzureOpenAI,
		},
		{"partial azure config is not available", factory.Credentials{AzureEndpoint: "https://x", OpenAIAPIKey: "sk-1"}, factory.TypeOpenAI},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := factory.AutoSelect(tc.creds); got != tc.want {
				t.Errorf("AutoSelect = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAvailable_AlwaysIncludesMockLast(t *testing.T) {
	t.Parallel()

	got := factory.Available(factory.Credentials{OpenAIAPIKey: "sk-1", GeminiAPIKey: "g-key"})
	if len(got) != 3 {
		t.Fatalf("got %d variants, want 3: %v", len(got), got)
	}
	if got[0] != factory.TypeOpenAI || got[1] != factory.TypeGemini || got[2] != factory.TypeMock {
		t.Errorf("order = %v; want openai, gemini, mock", got)
	}
}

func TestNew_Mock(t *testing.T) {
	t.Parallel()

	p, err := factory.New(factory.TypeMock, factory.Credentials{})
	if err != nil {
		t.Fatalf("New(mock): %v", err)
	}
	if p.Name() != "mock" {
		t.Errorf("Name = %q, want mock", p.Name())
	}
}

func TestNew_OpenAIRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := factory.New(factory.TypeOpenAI, factory.Credentials{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestNew_UnknownType(t *testing.T) {
	t.Parallel()

	_, err := factory.New(factory.Type("anthropic"), factory.Credentials{})
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
	if !strings.Contains(err.Error(), `"anthropic"`) {
		t.Errorf("error should name the unknown type: %v", err)
	}
	if !strings.Contains(err.Error(), "mock") {
		t.Errorf("error should list valid types: %v", err)
	}
}
