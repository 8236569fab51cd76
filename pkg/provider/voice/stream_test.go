package voice_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nexuslearn/oracy/pkg/provider/voice"
	"github.com/nexuslearn/oracy/pkg/provider/voice/mock"
)

func collect(t *testing.T, ch <-chan []byte) [][]byte {
	t.Helper()
	var out [][]byte
	timeout := time.After(3 * time.Second)
	for {
		select {
		case chunk, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, chunk)
		case <-timeout:
			t.Fatal("timeout collecting stream chunks")
		}
	}
}

func TestDefaultStream_RechunksSynthesizedAudio(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{SynthesizedAudio: bytes.Repeat([]byte{0xAB}, 10000)}

	ch, err := voice.DefaultStream(context.Background(), p, []byte{1, 2, 3, 4}, voice.SessionContext{})
	if err != nil {
		t.Fatalf("DefaultStream: %v", err)
	}

	chunks := collect(t, ch)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if len(chunks[0]) != voice.StreamChunkSize || len(chunks[1]) != voice.StreamChunkSize {
		t.Errorf("full chunks = %d, %d bytes; want %d", len(chunks[0]), len(chunks[1]), voice.StreamChunkSize)
	}
	if len(chunks[2]) != 10000-2*voice.StreamChunkSize {
		t.Errorf("tail chunk = %d bytes; want %d", len(chunks[2]), 10000-2*voice.StreamChunkSize)
	}
}

func TestDefaultStream_AppendsTranscriptToHistory(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{Transcripts: []string{"the rivers flow north"}}
	sctx := voice.SessionContext{
		History: []voice.Message{{Role: voice.RoleAssistant, Content: "What do you remember about rivers?"}},
	}

	ch, err := voice.DefaultStream(context.Background(), p, []byte{1, 2}, sctx)
	if err != nil {
		t.Fatalf("DefaultStream: %v", err)
	}
	collect(t, ch)

	if len(p.GenerateCalls) != 1 {
		t.Fatalf("GenerateText called %d times, want 1", len(p.GenerateCalls))
	}
	hist := p.GenerateCalls[0].History
	if len(hist) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist))
	}
	last := hist[len(hist)-1]
	if last.Role != voice.RoleUser || last.Content != "the rivers flow north" {
		t.Errorf("last turn = %+v; want user transcript", last)
	}

	// The caller's history must not be mutated.
	if len(sctx.History) != 1 {
		t.Errorf("caller history length = %d, want 1", len(sctx.History))
	}
}

func TestDefaultStream_TranscribeFailureAbortsBeforeStream(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{TranscribeErr: errors.New("upstream unavailable")}

	ch, err := voice.DefaultStream(context.Background(), p, []byte{1, 2}, voice.SessionContext{})
	if err == nil {
		t.Fatal("expected error from failing transcription")
	}
	if ch != nil {
		t.Error("expected nil channel on stage failure")
	}
	if !strings.Contains(err.Error(), "transcribe") {
		t.Errorf("error = %q; want transcribe stage named", err)
	}
	if len(p.GenerateCalls) != 0 {
		t.Error("GenerateText should not run after transcription failure")
	}
}

func TestDefaultStream_ContextCancelStopsEmission(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{SynthesizedAudio: bytes.Repeat([]byte{1}, 20*voice.StreamChunkSize)}
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := voice.DefaultStream(ctx, p, []byte{1, 2}, voice.SessionContext{})
	if err != nil {
		t.Fatalf("DefaultStream: %v", err)
	}

	<-ch
	cancel()

	timeout := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("stream did not terminate after cancel")
		}
	}
}

func TestHasCapability(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	if !voice.HasCapability(p, voice.CapabilityRealtimeAudio) {
		t.Error("mock should report realtime audio")
	}
	if voice.HasCapability(p, voice.Capability("teleportation")) {
		t.Error("unknown capability should be absent")
	}
}

func TestSystemPrompt(t *testing.T) {
	t.Parallel()

	t.Run("uses configured builder", func(t *testing.T) {
		t.Parallel()
		cfg := voice.Config{BuildPrompt: func(sctx voice.SessionContext) string {
			return "custom for " + sctx.PrimaryLanguage
		}}
		got := voice.SystemPrompt(cfg, voice.SessionContext{PrimaryLanguage: "Tagalog"})
		if got != "custom for Tagalog" {
			t.Errorf("SystemPrompt = %q", got)
		}
	})

	t.Run("fallback includes grade and language defaults", func(t *testing.T) {
		t.Parallel()
		got := voice.SystemPrompt(voice.Config{}, voice.SessionContext{})
		if !strings.Contains(got, "Grade 5") {
			t.Errorf("fallback prompt missing grade default: %q", got)
		}
		if !strings.Contains(got, "Unknown") {
			t.Errorf("fallback prompt missing language default: %q", got)
		}
	})

	t.Run("fallback includes curriculum focus when set", func(t *testing.T) {
		t.Parallel()
		got := voice.SystemPrompt(voice.Config{}, voice.SessionContext{CurriculumFocus: "wetland ecosystems"})
		if !strings.Contains(got, "wetland ecosystems") {
			t.Errorf("fallback prompt missing focus: %q", got)
		}
	})
}
