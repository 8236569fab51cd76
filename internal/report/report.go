// Package report drafts short teacher-facing notes about finished tutoring
// sessions. A note describes what the student practiced and suggests a next
// step; it is never a grade or assessment, and everything sent to or
// received from the model is PII-scrubbed.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nexuslearn/oracy/internal/privacy"
	"github.com/nexuslearn/oracy/internal/session"
	"github.com/nexuslearn/oracy/pkg/provider/voice"
)

// maxTranscriptLines caps how much conversation is sent to the model.
const maxTranscriptLines = 16

// Generator drafts session summaries using the configured model provider.
// It implements [session.Reporter].
type Generator struct {
	provider voice.Provider
	log      *slog.Logger
}

// NewGenerator returns a Generator backed by p. The provider must support
// text generation.
func NewGenerator(p voice.Provider, log *slog.Logger) (*Generator, error) {
	if p == nil {
		return nil, fmt.Errorf("report: provider must not be nil")
	}
	if !voice.HasCapability(p, voice.CapabilityTextGeneration) {
		return nil, fmt.Errorf("report: provider %q cannot generate text", p.Name())
	}
	if log == nil {
		log = slog.Default()
	}
	return &Generator{provider: p, log: log}, nil
}

// Draft implements session.Reporter. It asks the model for a 3-4 sentence
// note about the session and returns it scrubbed.
func (g *Generator) Draft(ctx context.Context, sctx voice.SessionContext, stats session.Stats) (string, error) {
	digest := transcriptDigest(sctx.History)
	if digest == "" {
		return "", fmt.Errorf("report: session has no conversation to summarize")
	}

	request := fmt.Sprintf(
		"Draft a short note for a classroom teacher about this oral language "+
			"practice session with a Grade %d student (home language: %s). "+
			"The session had %d conversation turns over %.0f seconds.\n\n"+
			"Describe in 3 to 4 sentences what the student practiced, one thing "+
			"they did well, and one suggestion for next time. Never assign a "+
			"grade, score, or level. Never mention names or personal details.\n\n"+
			"Conversation:\n%s",
		sctx.Grade, sctx.PrimaryLanguage, stats.TurnCount, stats.DurationSeconds, digest)

	history := []voice.Message{{Role: voice.RoleUser, Content: request}}
	resp, err := g.provider.GenerateText(ctx, history, sctx)
	if err != nil {
		return "", fmt.Errorf("report: draft: %w", err)
	}

	g.log.Debug("report drafted",
		"student_code", sctx.StudentCode,
		"turns", stats.TurnCount,
		"latency_ms", resp.LatencyMS)
	return privacy.Scrub(strings.TrimSpace(resp.Text)), nil
}

// transcriptDigest renders the most recent conversation as scrubbed
// speaker-tagged lines.
func transcriptDigest(history []voice.Message) string {
	if len(history) > maxTranscriptLines {
		history = history[len(history)-maxTranscriptLines:]
	}
	var b strings.Builder
	for _, msg := range history {
		speaker := "Student"
		if msg.Role == voice.RoleAssistant {
			speaker = "Tutor"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, privacy.Scrub(msg.Content))
	}
	return strings.TrimSpace(b.String())
}

var _ session.Reporter = (*Generator)(nil)
