package voice

import (
	"context"
	"fmt"
	"slices"
)

// StreamChunkSize is the size in bytes of audio chunks emitted by
// DefaultStream. 4096 bytes of PCM16 mono 24kHz is roughly 85ms of audio,
// small enough for smooth playback scheduling on the client.
const StreamChunkSize = 4096

// DefaultStream composes transcribe → generate → synthesize into a streamed
// audio response for providers without native realtime support. The
// synthesized audio is re-chunked at StreamChunkSize and delivered on the
// returned channel, which is closed when the response is complete or ctx is
// cancelled.
//
// Each stage failure aborts the stream with a wrapped error before any
// channel is returned, so callers never receive a half-open stream.
func DefaultStream(ctx context.Context, p Provider, audio []byte, sctx SessionContext) (<-chan []byte, error) {
	transcript, err := p.TranscribeAudio(ctx, audio)
	if err != nil {
		return nil, fmt.Errorf("voice: default stream transcribe: %w", err)
	}

	history := slices.Clone(sctx.History)
	history = append(history, Message{Role: RoleUser, Content: transcript})

	resp, err := p.GenerateText(ctx, history, sctx)
	if err != nil {
		return nil, fmt.Errorf("voice: default stream generate: %w", err)
	}

	synth, err := p.SynthesizeAudio(ctx, resp.Text)
	if err != nil {
		return nil, fmt.Errorf("voice: default stream synthesize: %w", err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for off := 0; off < len(synth); off += StreamChunkSize {
			end := min(off+StreamChunkSize, len(synth))
			select {
			case out <- synth[off:end]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// defaultPrompt is the fallback system instruction used when no prompt
// builder is configured. Deterministic in grade, language, and focus.
func defaultPrompt(sctx SessionContext) string {
	grade := sctx.Grade
	if grade == 0 {
		grade = 5
	}
	lang := sctx.PrimaryLanguage
	if lang == "" {
		lang = "Unknown"
	}
	prompt := fmt.Sprintf(
		"You are a supportive and patient tutor for a Grade %d student whose primary language is %s. "+
			"Keep replies short, spoken-friendly, and encouraging.", grade, lang)
	if sctx.CurriculumFocus != "" {
		prompt += fmt.Sprintf(" Current learning focus: %s.", sctx.CurriculumFocus)
	}
	return prompt
}
