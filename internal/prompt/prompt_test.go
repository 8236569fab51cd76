package prompt

import (
	"strings"
	"testing"

	"github.com/nexuslearn/oracy/pkg/provider/voice"
)

func TestContext_Lookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		language string
		wantName string
	}{
		{"exact match", "Arabic", "Arabic"},
		{"case insensitive", "mandarin", "Mandarin Chinese"},
		{"language code", "uk", "Ukrainian"},
		{"unknown falls back", "Klingon", "English"},
		{"empty falls back", "", "English"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Context(tc.language); got.Name != tc.wantName {
				t.Errorf("Context(%q).Name = %q, want %q", tc.language, got.Name, tc.wantName)
			}
		})
	}
}

func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()

	a := Build(6, "Tagalog", "oral storytelling", "")
	b := Build(6, "Tagalog", "oral storytelling", "")
	if a != b {
		t.Error("same inputs produced different prompts")
	}
}

func TestBuild_Contents(t *testing.T) {
	t.Parallel()

	got := Build(6, "Ukrainian", "wetland ecosystems", "")

	for _, want := range []string{
		"Grade 6",
		"Ukrainian",
		"Current learning focus: wetland ecosystems",
		"Привіт",
		"Never ask for personal information",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuild_DefaultsAndEnglishSkipsGuidance(t *testing.T) {
	t.Parallel()

	got := Build(0, "", "", "")
	if !strings.Contains(got, "Grade 5") {
		t.Error("grade should default to 5")
	}
	if strings.Contains(got, "Language Support") {
		t.Error("default context should not include language guidance")
	}
}

func TestBuild_LimitsGuidanceLists(t *testing.T) {
	t.Parallel()

	got := Build(4, "Vietnamese", "", "")
	// Vietnamese lists five difficulties; only the first three appear.
	if strings.Contains(got, "Plural forms") {
		t.Error("prompt should include at most three difficulties")
	}
	if !strings.Contains(got, "TH sounds (becomes T or D)") {
		t.Error("prompt should include the first difficulty")
	}
}

func TestCulturalBridgeHint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		language string
		topic    string
		want     string
	}{
		{"exact topic", "Arabic", "wetland", "Like oases in the desert, wetlands are special water places"},
		{"topic substring", "Vietnamese", "Wetland ecosystems of Alberta", "Like the Mekong Delta where rivers meet the sea"},
		{"no bridge for language", "Somali", "wetland", ""},
		{"unknown topic", "Arabic", "multiplication", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := CulturalBridgeHint(tc.language, tc.topic); got != tc.want {
				t.Errorf("CulturalBridgeHint(%q, %q) = %q, want %q", tc.language, tc.topic, got, tc.want)
			}
		})
	}
}

func TestForSession_IncludesBridgeHint(t *testing.T) {
	t.Parallel()

	got := ForSession(voice.SessionContext{
		Grade:           5,
		PrimaryLanguage: "Arabic",
		CurriculumFocus: "wetland habitats",
	})
	if !strings.Contains(got, "Like oases in the desert") {
		t.Error("session prompt should include the cultural bridge hint")
	}
	if !strings.Contains(got, "wetland habitats") {
		t.Error("session prompt should include the curriculum focus")
	}
}
