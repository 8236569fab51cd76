package session_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nexuslearn/oracy/internal/session"
	"github.com/nexuslearn/oracy/internal/store"
	storemock "github.com/nexuslearn/oracy/internal/store/mock"
	"github.com/nexuslearn/oracy/pkg/provider/voice"
	voicemock "github.com/nexuslearn/oracy/pkg/provider/voice/mock"
)

// recordingSink captures everything a turn emits, plus the emission order.
type recordingSink struct {
	mu          sync.Mutex
	transcripts []string
	texts       []string
	latencies   []float64
	audio       [][]byte
	events      []string
	err         error
}

func (r *recordingSink) SendTranscript(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcripts = append(r.transcripts, text)
	r.events = append(r.events, "transcript")
	return r.err
}

func (r *recordingSink) SendAIText(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	r.events = append(r.events, "text")
	return r.err
}

func (r *recordingSink) SendLatency(latencyMS float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, latencyMS)
	r.events = append(r.events, "latency")
	return r.err
}

func (r *recordingSink) SendAudio(chunk []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	r.audio = append(r.audio, cp)
	r.events = append(r.events, "audio")
	return r.err
}

func (r *recordingSink) lastEvent() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return ""
	}
	return r.events[len(r.events)-1]
}

// composedProvider narrows the mock to STT/LLM/TTS so audio turns take the
// generate-then-synthesize path. An optional delay slows synthesis down.
type composedProvider struct {
	*voicemock.Provider
	synthDelay time.Duration
}

func (p *composedProvider) Capabilities() []voice.Capability {
	return []voice.Capability{
		voice.CapabilityTextGeneration,
		voice.CapabilityAudioToText,
		voice.CapabilityTextToAudio,
	}
}

func (p *composedProvider) SynthesizeAudio(ctx context.Context, text string) ([]byte, error) {
	if p.synthDelay > 0 {
		time.Sleep(p.synthDelay)
	}
	return p.Provider.SynthesizeAudio(ctx, text)
}

// transcribeBlocker parks TranscribeAudio until its context is cancelled.
type transcribeBlocker struct {
	*voicemock.Provider
	started chan struct{}
}

func (p *transcribeBlocker) TranscribeAudio(ctx context.Context, audio []byte) (string, error) {
	close(p.started)
	<-ctx.Done()
	return "", ctx.Err()
}

func newManager(t *testing.T, cfg session.Config) *session.Manager {
	t.Helper()
	if cfg.Provider == nil {
		cfg.Provider = &voicemock.Provider{}
	}
	m, err := session.NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestNewManager_RequiresProvider(t *testing.T) {
	t.Parallel()

	if _, err := session.NewManager(session.Config{}); err == nil {
		t.Error("expected error for nil provider")
	}
	if _, err := session.NewManager(session.Config{
		Provider:            &voicemock.Provider{},
		RequireKnownStudent: true,
	}); err == nil {
		t.Error("expected error for roster flag without store")
	}
}

func TestCreateSession_DefaultsWithoutRoster(t *testing.T) {
	t.Parallel()

	m := newManager(t, session.Config{})
	s, err := m.CreateSession(context.Background(), "ST-101", session.StartOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.ID == "" {
		t.Error("session ID is empty")
	}
	if s.Grade != session.DefaultGrade {
		t.Errorf("Grade = %d, want %d", s.Grade, session.DefaultGrade)
	}
	if s.PrimaryLanguage != session.DefaultPrimaryLanguage {
		t.Errorf("PrimaryLanguage = %q, want %q", s.PrimaryLanguage, session.DefaultPrimaryLanguage)
	}
}

func TestCreateSession_RosterOverridesDefaults(t *testing.T) {
	t.Parallel()

	st := &storemock.Store{Students: map[string]store.Student{
		"ST-204": {Code: "ST-204", Grade: 6, PrimaryLanguage: "Ukrainian"},
	}}
	m := newManager(t, session.Config{Store: st})

	s, err := m.CreateSession(context.Background(), "ST-204", session.StartOptions{Grade: 3})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.Grade != 6 || s.PrimaryLanguage != "Ukrainian" {
		t.Errorf("session = grade %d lang %q, want roster values", s.Grade, s.PrimaryLanguage)
	}
	if len(st.Created) != 1 || st.Created[0].StudentCode != "ST-204" {
		t.Errorf("Created records = %+v, want one for ST-204", st.Created)
	}
	if st.Created[0].Provider != "mock" {
		t.Errorf("recorded provider = %q, want mock", st.Created[0].Provider)
	}
}

func TestCreateSession_RequireKnownStudent(t *testing.T) {
	t.Parallel()

	st := &storemock.Store{Students: map[string]store.Student{}}
	m := newManager(t, session.Config{Store: st, RequireKnownStudent: true})

	_, err := m.CreateSession(context.Background(), "ST-999", session.StartOptions{})
	if !errors.Is(err, session.ErrStudentNotEnrolled) {
		t.Errorf("err = %v, want ErrStudentNotEnrolled", err)
	}
}

func TestCreateSession_IdempotentForActiveSession(t *testing.T) {
	t.Parallel()

	m := newManager(t, session.Config{})
	ctx := context.Background()

	first, err := m.CreateSession(ctx, "ST-101", session.StartOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	second, err := m.CreateSession(ctx, "ST-101", session.StartOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("rapid reconnect created a new session: %q vs %q", first.ID, second.ID)
	}
	if m.ActiveCount() != 1 {
		t.Errorf("ActiveCount = %d, want 1", m.ActiveCount())
	}
}

func TestCreateSession_RecoversDisconnectedSession(t *testing.T) {
	t.Parallel()

	m := newManager(t, session.Config{DisconnectTTL: 200 * time.Millisecond})
	ctx := context.Background()

	s, err := m.CreateSession(ctx, "ST-101", session.StartOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	s.AppendHistory(voice.RoleUser, "hello")
	m.DisconnectSession(s.ID)
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount after disconnect = %d, want 0", m.ActiveCount())
	}

	recovered, err := m.CreateSession(ctx, "ST-101", session.StartOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if recovered.ID != s.ID {
		t.Errorf("recovered session ID = %q, want %q", recovered.ID, s.ID)
	}
	if h := recovered.History(); len(h) != 1 || h[0].Content != "hello" {
		t.Errorf("history lost on recovery: %+v", h)
	}

	// The expiry timer must have been cancelled by the recovery.
	time.Sleep(300 * time.Millisecond)
	if m.ActiveCount() != 1 {
		t.Errorf("session expired despite recovery, ActiveCount = %d", m.ActiveCount())
	}
}

func TestDisconnectSession_ExpiresAfterWindow(t *testing.T) {
	t.Parallel()

	st := &storemock.Store{Students: map[string]store.Student{}}
	m := newManager(t, session.Config{Store: st, DisconnectTTL: 50 * time.Millisecond})
	ctx := context.Background()

	s, err := m.CreateSession(ctx, "ST-101", session.StartOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	m.DisconnectSession(s.ID)

	time.Sleep(150 * time.Millisecond)

	replacement, err := m.CreateSession(ctx, "ST-101", session.StartOptions{})
	if err != nil {
		t.Fatalf("CreateSession after expiry: %v", err)
	}
	if replacement.ID == s.ID {
		t.Error("expired session was recovered, want a fresh one")
	}

	found := false
	for _, fin := range st.Finalized {
		if fin.SessionID == s.ID && fin.Finalization.Status == "expired" {
			found = true
		}
	}
	if !found {
		t.Errorf("no expired finalization for %q in %+v", s.ID, st.Finalized)
	}
}

func TestAppendAudio_ThresholdBoundary(t *testing.T) {
	t.Parallel()

	m := newManager(t, session.Config{})
	ctx := context.Background()
	s, _ := m.CreateSession(ctx, "ST-101", session.StartOptions{})

	size, ready, err := m.AppendAudio(ctx, s.ID, make([]byte, 95999))
	if err != nil {
		t.Fatalf("AppendAudio: %v", err)
	}
	if size != 95999 || ready {
		t.Errorf("size=%d ready=%v, want 95999 bytes below threshold", size, ready)
	}

	size, ready, err = m.AppendAudio(ctx, s.ID, make([]byte, 1))
	if err != nil {
		t.Fatalf("AppendAudio: %v", err)
	}
	if size != 96000 || !ready {
		t.Errorf("size=%d ready=%v, want exactly 96000 to be ready", size, ready)
	}

	if got, _ := m.PeekAudioSize(s.ID); got != 96000 {
		t.Errorf("PeekAudioSize = %d, want 96000", got)
	}
}

func TestAppendAudio_UnknownSession(t *testing.T) {
	t.Parallel()

	m := newManager(t, session.Config{})
	if _, _, err := m.AppendAudio(context.Background(), "nope", []byte{1}); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
	if _, err := m.PeekAudioSize("nope"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("PeekAudioSize err = %v, want ErrSessionNotFound", err)
	}
	if _, err := m.DrainAudio("nope"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("DrainAudio err = %v, want ErrSessionNotFound", err)
	}
}

func TestProcessAudioAndRespond_FullTurn(t *testing.T) {
	t.Parallel()

	inner := &voicemock.Provider{
		Transcripts:       []string{"My name is John Smith and I think it floats"},
		GenerateResponses: []string{"Good thinking! Why do you think it floats?"},
	}
	p := &composedProvider{Provider: inner}
	m := newManager(t, session.Config{Provider: p})
	ctx := context.Background()
	s, _ := m.CreateSession(ctx, "ST-101", session.StartOptions{})

	m.AppendAudio(ctx, s.ID, make([]byte, 96000))
	sink := &recordingSink{}
	if err := m.ProcessAudioAndRespond(ctx, s.ID, sink); err != nil {
		t.Fatalf("ProcessAudioAndRespond: %v", err)
	}

	if len(p.TranscribeCalls) != 1 || p.TranscribeCalls[0].AudioLen != 96000 {
		t.Errorf("TranscribeCalls = %+v, want one with 96000 bytes", p.TranscribeCalls)
	}
	if len(sink.transcripts) != 1 {
		t.Fatalf("transcripts = %+v, want one", sink.transcripts)
	}
	if strings.Contains(sink.transcripts[0], "John") {
		t.Errorf("transcript leaked a name: %q", sink.transcripts[0])
	}
	if !strings.Contains(sink.transcripts[0], "<NAME>") {
		t.Errorf("transcript not scrubbed: %q", sink.transcripts[0])
	}
	if len(sink.texts) != 1 || sink.texts[0] != "Good thinking! Why do you think it floats?" {
		t.Errorf("texts = %+v", sink.texts)
	}
	if len(sink.latencies) != 1 || sink.latencies[0] <= 0 {
		t.Errorf("latencies = %+v, want one positive value", sink.latencies)
	}
	if len(sink.audio) == 0 {
		t.Fatal("no audio chunks sent")
	}
	for i, chunk := range sink.audio {
		if len(chunk) > voice.StreamChunkSize {
			t.Errorf("chunk %d is %d bytes, exceeds %d", i, len(chunk), voice.StreamChunkSize)
		}
	}
	if got := sink.lastEvent(); got != "latency" {
		t.Errorf("last frame = %q, want the latency to close the turn", got)
	}
	if s.TurnCount() != 1 {
		t.Errorf("TurnCount = %d, want 1", s.TurnCount())
	}
	// The drain must have emptied the buffer.
	if got, _ := m.PeekAudioSize(s.ID); got != 0 {
		t.Errorf("buffer holds %d bytes after processing, want 0", got)
	}
}

func TestProcessAudioAndRespond_DiscardsShortBuffer(t *testing.T) {
	t.Parallel()

	p := &voicemock.Provider{}
	m := newManager(t, session.Config{Provider: p})
	ctx := context.Background()
	s, _ := m.CreateSession(ctx, "ST-101", session.StartOptions{})

	m.AppendAudio(ctx, s.ID, make([]byte, 999))
	sink := &recordingSink{}
	if err := m.ProcessAudioAndRespond(ctx, s.ID, sink); err != nil {
		t.Fatalf("ProcessAudioAndRespond: %v", err)
	}
	if len(p.TranscribeCalls) != 0 {
		t.Errorf("short buffer reached the provider: %+v", p.TranscribeCalls)
	}
	if len(sink.transcripts) != 0 || len(sink.texts) != 0 {
		t.Errorf("short buffer produced output: %+v %+v", sink.transcripts, sink.texts)
	}
}

func TestProcessAudioAndRespond_RealtimeProviderStreams(t *testing.T) {
	t.Parallel()

	p := &voicemock.Provider{Transcripts: []string{"the pond has tadpoles"}}
	m := newManager(t, session.Config{Provider: p})
	ctx := context.Background()
	s, _ := m.CreateSession(ctx, "ST-101", session.StartOptions{})

	m.AppendAudio(ctx, s.ID, make([]byte, 96000))
	sink := &recordingSink{}
	if err := m.ProcessAudioAndRespond(ctx, s.ID, sink); err != nil {
		t.Fatalf("ProcessAudioAndRespond: %v", err)
	}

	if p.StreamCalls != 1 {
		t.Errorf("StreamCalls = %d, want the provider's stream to carry the turn", p.StreamCalls)
	}
	if len(sink.texts) != 0 {
		t.Errorf("texts = %+v, want none on the duplex path", sink.texts)
	}
	if len(sink.audio) == 0 {
		t.Fatal("no audio chunks sent")
	}
	for i, chunk := range sink.audio {
		if len(chunk) > voice.StreamChunkSize {
			t.Errorf("chunk %d is %d bytes, exceeds %d", i, len(chunk), voice.StreamChunkSize)
		}
	}
	if len(sink.latencies) != 1 || sink.latencies[0] <= 0 {
		t.Errorf("latencies = %+v, want one positive value", sink.latencies)
	}
	if got := sink.lastEvent(); got != "latency" {
		t.Errorf("last frame = %q, want the latency to close the turn", got)
	}
	if s.TurnCount() != 1 {
		t.Errorf("TurnCount = %d, want 1", s.TurnCount())
	}
	if h := s.History(); len(h) != 1 || h[0].Content != "the pond has tadpoles" {
		t.Errorf("history = %+v, want the user transcript", h)
	}
}

func TestProcessAudioAndRespond_LatencyCoversWholeTurn(t *testing.T) {
	t.Parallel()

	p := &composedProvider{
		Provider:   &voicemock.Provider{LatencyMS: 1},
		synthDelay: 50 * time.Millisecond,
	}
	m := newManager(t, session.Config{Provider: p})
	ctx := context.Background()
	s, _ := m.CreateSession(ctx, "ST-101", session.StartOptions{})

	m.AppendAudio(ctx, s.ID, make([]byte, 96000))
	sink := &recordingSink{}
	if err := m.ProcessAudioAndRespond(ctx, s.ID, sink); err != nil {
		t.Fatalf("ProcessAudioAndRespond: %v", err)
	}

	// The provider reported 1ms for generation; the emitted value must
	// cover the slow synthesis stage too.
	if len(sink.latencies) != 1 || sink.latencies[0] < 50 {
		t.Errorf("latencies = %+v, want one value covering the 50ms synthesis", sink.latencies)
	}
	if avg := s.AvgLatencyMS(); avg < 50 {
		t.Errorf("AvgLatencyMS = %v, want the whole turn accounted", avg)
	}
}

func TestProcessAudioAndRespond_TranscribeFailureDegrades(t *testing.T) {
	t.Parallel()

	inner := &voicemock.Provider{TranscribeErr: errors.New("stt offline")}
	p := &composedProvider{Provider: inner}
	m := newManager(t, session.Config{Provider: p})
	ctx := context.Background()
	s, _ := m.CreateSession(ctx, "ST-101", session.StartOptions{})

	m.AppendAudio(ctx, s.ID, make([]byte, 96000))
	sink := &recordingSink{}
	if err := m.ProcessAudioAndRespond(ctx, s.ID, sink); err != nil {
		t.Fatalf("ProcessAudioAndRespond: %v", err)
	}
	if len(sink.transcripts) != 0 {
		t.Errorf("failed transcription still sent frames: %+v", sink.transcripts)
	}

	// The session must keep working once the provider recovers.
	inner.TranscribeErr = nil
	m.AppendAudio(ctx, s.ID, make([]byte, 96000))
	if err := m.ProcessAudioAndRespond(ctx, s.ID, sink); err != nil {
		t.Fatalf("ProcessAudioAndRespond after recovery: %v", err)
	}
	if len(sink.texts) != 1 {
		t.Errorf("texts = %+v, want one after recovery", sink.texts)
	}
}

func TestProcessAudioAndRespond_SynthesisFailureIsTextOnly(t *testing.T) {
	t.Parallel()

	p := &composedProvider{Provider: &voicemock.Provider{SynthesizeErr: errors.New("tts offline")}}
	m := newManager(t, session.Config{Provider: p})
	ctx := context.Background()
	s, _ := m.CreateSession(ctx, "ST-101", session.StartOptions{})

	m.AppendAudio(ctx, s.ID, make([]byte, 96000))
	sink := &recordingSink{}
	if err := m.ProcessAudioAndRespond(ctx, s.ID, sink); err != nil {
		t.Fatalf("ProcessAudioAndRespond: %v", err)
	}
	if len(sink.texts) != 1 {
		t.Errorf("texts = %+v, want text despite synthesis failure", sink.texts)
	}
	if len(sink.audio) != 0 {
		t.Errorf("audio = %d chunks, want none", len(sink.audio))
	}
}

func TestEndSession_CancelsInFlightTurn(t *testing.T) {
	t.Parallel()

	p := &transcribeBlocker{Provider: &voicemock.Provider{}, started: make(chan struct{})}
	m := newManager(t, session.Config{Provider: p})
	ctx := context.Background()
	s, _ := m.CreateSession(ctx, "ST-101", session.StartOptions{})

	m.AppendAudio(ctx, s.ID, make([]byte, 96000))
	sink := &recordingSink{}
	done := make(chan error, 1)
	go func() { done <- m.ProcessAudioAndRespond(ctx, s.ID, sink) }()

	<-p.started
	if _, err := m.EndSession(ctx, s.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ProcessAudioAndRespond: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("turn kept running after EndSession")
	}
	if len(sink.transcripts) != 0 {
		t.Errorf("cancelled turn still sent frames: %+v", sink.transcripts)
	}
}

func TestGetAIResponse_MissingSessionSentinel(t *testing.T) {
	t.Parallel()

	m := newManager(t, session.Config{})
	text, latency := m.GetAIResponse(context.Background(), "nope", "hello")
	if text != session.SessionNotFoundText || latency != 0 {
		t.Errorf("got (%q, %v), want (%q, 0)", text, latency, session.SessionNotFoundText)
	}
}

func TestGetAIResponse_ProviderFailureReturnsEmpty(t *testing.T) {
	t.Parallel()

	p := &voicemock.Provider{GenerateErr: errors.New("llm offline")}
	m := newManager(t, session.Config{Provider: p})
	ctx := context.Background()
	s, _ := m.CreateSession(ctx, "ST-101", session.StartOptions{})

	text, latency := m.GetAIResponse(ctx, s.ID, "what is a wetland?")
	if text != "" || latency != 0 {
		t.Errorf("got (%q, %v), want empty degraded reply", text, latency)
	}
	if s.TurnCount() != 0 {
		t.Errorf("failed turn was counted: %d", s.TurnCount())
	}

	// Degraded, not dead: the next turn succeeds.
	p.GenerateErr = nil
	text, latency = m.GetAIResponse(ctx, s.ID, "what is a wetland?")
	if text == "" || latency <= 0 {
		t.Errorf("got (%q, %v) after recovery, want a reply", text, latency)
	}
	if s.TurnCount() != 1 {
		t.Errorf("TurnCount = %d, want 1", s.TurnCount())
	}
}

func TestGetAIResponse_BuildsHistory(t *testing.T) {
	t.Parallel()

	p := &voicemock.Provider{GenerateResponses: []string{"first reply", "second reply"}}
	m := newManager(t, session.Config{Provider: p})
	ctx := context.Background()
	s, _ := m.CreateSession(ctx, "ST-101", session.StartOptions{})

	m.GetAIResponse(ctx, s.ID, "question one")
	m.GetAIResponse(ctx, s.ID, "question two")

	h := s.History()
	if len(h) != 4 {
		t.Fatalf("history length = %d, want 4", len(h))
	}
	if h[0].Role != voice.RoleUser || h[1].Role != voice.RoleAssistant {
		t.Errorf("history roles = %q %q", h[0].Role, h[1].Role)
	}
	if h[3].Content != "second reply" {
		t.Errorf("last message = %q", h[3].Content)
	}

	// The second provider call must have seen the first exchange.
	if len(p.GenerateCalls) != 2 {
		t.Fatalf("GenerateCalls = %d, want 2", len(p.GenerateCalls))
	}
	if got := len(p.GenerateCalls[1].History); got != 3 {
		t.Errorf("second call history length = %d, want 3", got)
	}
}

func TestGetAIResponse_ScrubsUserText(t *testing.T) {
	t.Parallel()

	p := &voicemock.Provider{}
	m := newManager(t, session.Config{Provider: p})
	ctx := context.Background()
	s, _ := m.CreateSession(ctx, "ST-101", session.StartOptions{})

	m.GetAIResponse(ctx, s.ID, "my email is kid@example.com")
	if len(p.GenerateCalls) != 1 {
		t.Fatalf("GenerateCalls = %d", len(p.GenerateCalls))
	}
	sent := p.GenerateCalls[0].History[0].Content
	if strings.Contains(sent, "kid@example.com") || !strings.Contains(sent, "<EMAIL>") {
		t.Errorf("provider saw unscrubbed text: %q", sent)
	}
}

type stubReporter struct {
	text string
	err  error
}

func (r *stubReporter) Draft(ctx context.Context, sctx voice.SessionContext, stats session.Stats) (string, error) {
	return r.text, r.err
}

func TestEndSession_FinalizesRecord(t *testing.T) {
	t.Parallel()

	st := &storemock.Store{Students: map[string]store.Student{}}
	rep := &stubReporter{text: "Practiced describing wetlands with Maria Lopez."}
	m := newManager(t, session.Config{Store: st, Reporter: rep})
	ctx := context.Background()

	s, _ := m.CreateSession(ctx, "ST-101", session.StartOptions{})
	m.GetAIResponse(ctx, s.ID, "tell me about frogs")

	summary, err := m.EndSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if summary.SessionID != s.ID || summary.TurnCount != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.AvgLatencyMS <= 0 {
		t.Errorf("AvgLatencyMS = %v, want positive", summary.AvgLatencyMS)
	}

	if len(st.Finalized) != 1 {
		t.Fatalf("Finalized = %+v, want one record", st.Finalized)
	}
	fin := st.Finalized[0].Finalization
	if fin.Status != "completed" || fin.TurnCount != 1 {
		t.Errorf("finalization = %+v", fin)
	}
	// Names in the reporter draft must never reach storage.
	if strings.Contains(fin.TranscriptSummary, "Maria") {
		t.Errorf("summary leaked a name: %q", fin.TranscriptSummary)
	}

	if _, err := m.EndSession(ctx, s.ID); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("second EndSession err = %v, want ErrSessionNotFound", err)
	}

	// The student can start fresh afterwards.
	fresh, err := m.CreateSession(ctx, "ST-101", session.StartOptions{})
	if err != nil {
		t.Fatalf("CreateSession after end: %v", err)
	}
	if fresh.ID == s.ID {
		t.Error("ended session was reused")
	}
}
