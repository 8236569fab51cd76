package azure_test

import (
	"testing"

	"github.com/nexuslearn/oracy/pkg/provider/voice"
	"github.com/nexuslearn/oracy/pkg/provider/voice/azure"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     voice.Config
		wantErr bool
	}{
		{"missing endpoint", voice.Config{APIKey: "k", AzureDeployment: "d"}, true},
		{"missing key", voice.Config{AzureEndpoint: "https://x", AzureDeployment: "d"}, true},
		{"missing deployment", voice.Config{AzureEndpoint: "https://x", APIKey: "k"}, true},
		{"complete", voice.Config{AzureEndpoint: "https://x", APIKey: "k", AzureDeployment: "d"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := azure.New(tc.cfg)
			if (err != nil) != tc.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestCapabilities_NoRealtime(t *testing.T) {
	t.Parallel()

	p, err := azure.New(voice.Config{AzureEndpoint: "https://x", APIKey: "k", AzureDeployment: "d"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if voice.HasCapability(p, voice.CapabilityRealtimeAudio) {
		t.Error("azure should not report realtime audio")
	}
	if !voice.HasCapability(p, voice.CapabilityTextGeneration) {
		t.Error("azure should report text generation")
	}
	if p.Name() != "azure-openai" {
		t.Errorf("Name = %q", p.Name())
	}
}
