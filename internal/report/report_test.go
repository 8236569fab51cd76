package report_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nexuslearn/oracy/internal/report"
	"github.com/nexuslearn/oracy/internal/session"
	"github.com/nexuslearn/oracy/pkg/provider/voice"
	voicemock "github.com/nexuslearn/oracy/pkg/provider/voice/mock"
)

func sessionContext() voice.SessionContext {
	return voice.SessionContext{
		StudentCode:     "ST-204",
		Grade:           6,
		PrimaryLanguage: "Ukrainian",
		History: []voice.Message{
			{Role: voice.RoleUser, Content: "I think the frog lives in the wetland."},
			{Role: voice.RoleAssistant, Content: "Nice full sentence! What does the frog eat there?"},
			{Role: voice.RoleUser, Content: "My friend John Smith says bugs."},
		},
	}
}

func TestNewGenerator_RequiresProvider(t *testing.T) {
	t.Parallel()

	if _, err := report.NewGenerator(nil, nil); err == nil {
		t.Error("expected error for nil provider")
	}
}

func TestDraft_SendsScrubbedTranscript(t *testing.T) {
	t.Parallel()

	p := &voicemock.Provider{GenerateResponses: []string{
		"The student practiced describing wetland animals in full sentences.",
	}}
	g, err := report.NewGenerator(p, nil)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	note, err := g.Draft(context.Background(), sessionContext(), session.Stats{
		TurnCount:       2,
		DurationSeconds: 310,
	})
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if !strings.Contains(note, "wetland animals") {
		t.Errorf("note = %q", note)
	}

	if len(p.GenerateCalls) != 1 {
		t.Fatalf("GenerateCalls = %d, want 1", len(p.GenerateCalls))
	}
	sent := p.GenerateCalls[0].History[0].Content
	if strings.Contains(sent, "John Smith") {
		t.Errorf("prompt leaked a name:\n%s", sent)
	}
	if !strings.Contains(sent, "Grade 6") || !strings.Contains(sent, "Ukrainian") {
		t.Errorf("prompt missing session facts:\n%s", sent)
	}
	if !strings.Contains(sent, "Never assign a grade") {
		t.Errorf("prompt missing the no-grading instruction:\n%s", sent)
	}
	if !strings.Contains(sent, "Student: ") || !strings.Contains(sent, "Tutor: ") {
		t.Errorf("prompt missing speaker-tagged transcript:\n%s", sent)
	}
}

func TestDraft_EmptySessionErrors(t *testing.T) {
	t.Parallel()

	g, err := report.NewGenerator(&voicemock.Provider{}, nil)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	sctx := voice.SessionContext{StudentCode: "ST-101", Grade: 5}
	if _, err := g.Draft(context.Background(), sctx, session.Stats{}); err == nil {
		t.Error("expected error for empty history")
	}
}

func TestDraft_ProviderErrorPropagates(t *testing.T) {
	t.Parallel()

	p := &voicemock.Provider{GenerateErr: errors.New("llm offline")}
	g, err := report.NewGenerator(p, nil)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	if _, err := g.Draft(context.Background(), sessionContext(), session.Stats{}); err == nil {
		t.Error("expected provider error to propagate")
	}
}
