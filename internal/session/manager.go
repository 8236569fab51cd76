// Package session implements the tutoring session lifecycle: creation and
// idempotent recovery, audio buffering between conversation turns, the
// turn pipeline against the model provider, and finalization.
//
// A session is active while its student is connected, survives a disconnect
// for a configurable recovery window, and is purged or finalized after
// that. Provider failures never take a session down: the turn degrades to
// empty output and the conversation continues.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexuslearn/oracy/internal/config"
	"github.com/nexuslearn/oracy/internal/curriculum"
	"github.com/nexuslearn/oracy/internal/observe"
	"github.com/nexuslearn/oracy/internal/privacy"
	"github.com/nexuslearn/oracy/internal/store"
	"github.com/nexuslearn/oracy/pkg/provider/voice"
)

// SessionNotFoundText is the reply handed to callers who ask for an AI
// response against a session that does not exist.
const SessionNotFoundText = "Session not found."

var (
	// ErrSessionNotFound is returned by operations that need a live session.
	ErrSessionNotFound = errors.New("session: not found")

	// ErrStudentNotEnrolled is returned by CreateSession when the deployment
	// requires roster membership and the student code does not resolve.
	ErrStudentNotEnrolled = errors.New("session: student not enrolled")
)

// ResponseSink receives the outputs of one conversation turn, in order:
// the transcript, then for composed turns the AI text, then zero or more
// audio chunks, and finally the turn latency. The transport layer
// implements this on top of its WebSocket connection.
type ResponseSink interface {
	SendTranscript(text string) error
	SendAIText(text string) error
	SendLatency(latencyMS float64) error
	SendAudio(chunk []byte) error
}

// Reporter drafts a short teacher-facing summary of a finished session.
type Reporter interface {
	Draft(ctx context.Context, sctx voice.SessionContext, stats Stats) (string, error)
}

// Stats are the aggregate numbers for a finished session.
type Stats struct {
	TurnCount       int
	DurationSeconds float64
	AvgLatencyMS    float64
}

// Summary is returned by EndSession for the closing frame to the client.
type Summary struct {
	SessionID       string
	StudentCode     string
	TurnCount       int
	DurationSeconds float64
	AvgLatencyMS    float64
}

// StartOptions carries client-supplied session hints. Roster data, when
// available, takes precedence over Grade and PrimaryLanguage.
type StartOptions struct {
	Grade           int
	PrimaryLanguage string
	CurriculumFocus string
}

// Config wires a Manager's dependencies. Provider is required; everything
// else is optional and degrades gracefully when nil.
type Config struct {
	Provider   voice.Provider
	Store      store.Store
	Curriculum curriculum.Searcher
	Reporter   Reporter
	Metrics    *observe.Metrics
	Logger     *slog.Logger

	// ProcessThresholdBytes is the buffered-audio size that marks a turn
	// ready for processing. Zero means the documented default (two seconds
	// of PCM16 mono at 24kHz).
	ProcessThresholdBytes int

	// MinAudioBytes is the smallest drained buffer worth transcribing.
	MinAudioBytes int

	// DisconnectTTL is the recovery window for disconnected sessions.
	DisconnectTTL time.Duration

	// ProviderTimeout bounds every call into the model provider.
	ProviderTimeout time.Duration

	// RequireKnownStudent rejects codes absent from the roster.
	RequireKnownStudent bool
}

// Manager owns all live sessions. All methods are safe for concurrent use.
type Manager struct {
	provider   voice.Provider
	store      store.Store
	curriculum curriculum.Searcher
	reporter   Reporter
	metrics    *observe.Metrics
	log        *slog.Logger

	threshold       int
	minAudio        int
	ttl             time.Duration
	providerTimeout time.Duration
	requireKnown    bool

	mu           sync.Mutex
	active       map[string]*Session
	disconnected map[string]*Session
	byStudent    map[string]string
	timers       map[string]*time.Timer
	processing   map[string]context.CancelFunc
}

// NewManager builds a Manager from cfg. Zero tunables take the documented
// defaults.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Provider == nil {
		return nil, errors.New("session: Config.Provider must not be nil")
	}
	if cfg.RequireKnownStudent && cfg.Store == nil {
		return nil, errors.New("session: RequireKnownStudent needs a Store for the roster")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ProcessThresholdBytes <= 0 {
		cfg.ProcessThresholdBytes = config.DefaultProcessThresholdBytes
	}
	if cfg.MinAudioBytes <= 0 {
		cfg.MinAudioBytes = config.DefaultMinAudioBytes
	}
	if cfg.DisconnectTTL <= 0 {
		cfg.DisconnectTTL = config.DefaultDisconnectTTL
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = config.DefaultProviderTimeout
	}

	return &Manager{
		provider:        cfg.Provider,
		store:           cfg.Store,
		curriculum:      cfg.Curriculum,
		reporter:        cfg.Reporter,
		metrics:         cfg.Metrics,
		log:             cfg.Logger,
		threshold:       cfg.ProcessThresholdBytes,
		minAudio:        cfg.MinAudioBytes,
		ttl:             cfg.DisconnectTTL,
		providerTimeout: cfg.ProviderTimeout,
		requireKnown:    cfg.RequireKnownStudent,
		active:          make(map[string]*Session),
		disconnected:    make(map[string]*Session),
		byStudent:       make(map[string]string),
		timers:          make(map[string]*time.Timer),
		processing:      make(map[string]context.CancelFunc),
	}, nil
}

// CreateSession returns the session for studentCode, creating one if
// needed. The call is idempotent: an active session is returned as-is and
// a disconnected session inside its recovery window is recovered with its
// conversation state intact.
func (m *Manager) CreateSession(ctx context.Context, studentCode string, opts StartOptions) (*Session, error) {
	if studentCode == "" {
		return nil, errors.New("session: student code must not be empty")
	}

	if s := m.recoverOrActive(studentCode); s != nil {
		return s, nil
	}

	grade := opts.Grade
	language := opts.PrimaryLanguage
	if m.store != nil {
		student, err := m.store.ResolveStudent(ctx, studentCode)
		switch {
		case err == nil:
			if student.Grade > 0 {
				grade = student.Grade
			}
			if student.PrimaryLanguage != "" {
				language = student.PrimaryLanguage
			}
		case errors.Is(err, store.ErrNotFound):
			if m.requireKnown {
				return nil, fmt.Errorf("%w: %q", ErrStudentNotEnrolled, studentCode)
			}
		default:
			m.log.Warn("roster lookup failed, using defaults",
				"student_code", studentCode, "error", err)
		}
	}
	if grade <= 0 {
		grade = DefaultGrade
	}
	if language == "" {
		language = DefaultPrimaryLanguage
	}

	s := &Session{
		ID:              uuid.NewString(),
		StudentCode:     studentCode,
		Grade:           grade,
		PrimaryLanguage: language,
		CurriculumFocus: opts.CurriculumFocus,
		StartedAt:       time.Now(),
	}
	s.Touch()

	m.mu.Lock()
	// A concurrent create for the same student may have won the race while
	// the roster lookup ran. The first session stands.
	if id, ok := m.byStudent[studentCode]; ok {
		if existing, ok := m.active[id]; ok {
			m.mu.Unlock()
			return existing, nil
		}
	}
	m.active[s.ID] = s
	m.byStudent[studentCode] = s.ID
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.AddActiveSessions(ctx, 1)
	}
	if m.store != nil {
		rec := store.SessionRecord{
			ID:          s.ID,
			StudentCode: s.StudentCode,
			Provider:    m.provider.Name(),
			StartedAt:   s.StartedAt,
		}
		if err := m.store.CreateSession(ctx, rec); err != nil {
			m.log.Warn("session record not persisted", "session_id", s.ID, "error", err)
		}
	}

	m.log.Info("session created",
		"session_id", s.ID,
		"student_code", s.StudentCode,
		"grade", s.Grade,
		"primary_language", s.PrimaryLanguage)
	return s, nil
}

// recoverOrActive returns the student's current session, pulling it back
// from the disconnected set when inside the recovery window.
func (m *Manager) recoverOrActive(studentCode string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byStudent[studentCode]
	if !ok {
		return nil
	}
	if s, ok := m.active[id]; ok {
		return s
	}
	s, ok := m.disconnected[id]
	if !ok {
		return nil
	}
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
	delete(m.disconnected, id)
	m.active[id] = s
	s.Touch()
	m.log.Info("session recovered", "session_id", id, "student_code", studentCode)
	return s
}

// DisconnectSession parks an active session for the recovery window. The
// session keeps its conversation state; if nobody reconnects before the
// window closes it is finalized as expired. Unknown or already parked
// sessions are a no-op.
func (m *Manager) DisconnectSession(sessionID string) {
	m.mu.Lock()
	s, ok := m.active[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.active, sessionID)
	m.disconnected[sessionID] = s
	m.timers[sessionID] = time.AfterFunc(m.ttl, func() { m.expire(sessionID) })
	m.mu.Unlock()

	m.log.Info("session disconnected, holding for recovery",
		"session_id", sessionID, "ttl", m.ttl)
}

// expire purges a session whose recovery window elapsed.
func (m *Manager) expire(sessionID string) {
	m.mu.Lock()
	s, ok := m.disconnected[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.disconnected, sessionID)
	delete(m.timers, sessionID)
	delete(m.byStudent, s.StudentCode)
	m.mu.Unlock()

	ctx := context.Background()
	if m.metrics != nil {
		m.metrics.AddActiveSessions(ctx, -1)
	}
	m.finalize(ctx, s, "expired")
	m.log.Info("session expired", "session_id", sessionID, "student_code", s.StudentCode)
}

// EndSession explicitly finishes a session, cancelling any in-flight turn
// and finalizing the persistent record.
func (m *Manager) EndSession(ctx context.Context, sessionID string) (Summary, error) {
	m.mu.Lock()
	s, ok := m.active[sessionID]
	if !ok {
		s, ok = m.disconnected[sessionID]
	}
	if !ok {
		m.mu.Unlock()
		return Summary{}, fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}
	delete(m.active, sessionID)
	delete(m.disconnected, sessionID)
	delete(m.byStudent, s.StudentCode)
	if t, ok := m.timers[sessionID]; ok {
		t.Stop()
		delete(m.timers, sessionID)
	}
	if cancel, ok := m.processing[sessionID]; ok {
		cancel()
		delete(m.processing, sessionID)
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.AddActiveSessions(ctx, -1)
	}

	summary := Summary{
		SessionID:       s.ID,
		StudentCode:     s.StudentCode,
		TurnCount:       s.TurnCount(),
		DurationSeconds: time.Since(s.StartedAt).Seconds(),
		AvgLatencyMS:    s.AvgLatencyMS(),
	}
	m.finalize(ctx, s, "completed")

	m.log.Info("session ended",
		"session_id", s.ID,
		"student_code", s.StudentCode,
		"turns", summary.TurnCount,
		"duration_s", summary.DurationSeconds)
	return summary, nil
}

// finalize writes the closing session record. Best-effort: persistence
// failures are logged, never surfaced.
func (m *Manager) finalize(ctx context.Context, s *Session, status string) {
	if m.store == nil {
		return
	}

	stats := Stats{
		TurnCount:       s.TurnCount(),
		DurationSeconds: time.Since(s.StartedAt).Seconds(),
		AvgLatencyMS:    s.AvgLatencyMS(),
	}

	summary := ""
	if m.reporter != nil && stats.TurnCount > 0 {
		draftCtx, cancel := context.WithTimeout(ctx, m.providerTimeout)
		text, err := m.reporter.Draft(draftCtx, s.Context(), stats)
		cancel()
		if err != nil {
			m.log.Warn("report draft failed", "session_id", s.ID, "error", err)
		} else {
			summary = text
		}
	}

	fin := store.Finalization{
		Status:            status,
		EndedAt:           time.Now(),
		TurnCount:         stats.TurnCount,
		DurationSeconds:   stats.DurationSeconds,
		AvgLatencyMS:      stats.AvgLatencyMS,
		TranscriptSummary: privacy.Scrub(summary),
	}
	if err := m.store.FinalizeSession(ctx, s.ID, fin); err != nil {
		m.log.Warn("session finalization not persisted", "session_id", s.ID, "error", err)
	}
}

// lookupActive returns the active session for id.
func (m *Manager) lookupActive(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.active[sessionID]
	return s, ok
}

// AppendAudio adds pcm to the session's audio buffer. It returns the new
// buffered size and whether the buffer has reached the processing
// threshold.
func (m *Manager) AppendAudio(ctx context.Context, sessionID string, pcm []byte) (int, bool, error) {
	s, ok := m.lookupActive(sessionID)
	if !ok {
		return 0, false, fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}
	size := s.Audio.Append(pcm)
	s.Touch()
	if m.metrics != nil {
		m.metrics.AddAudioBytes(ctx, int64(len(pcm)))
	}
	return size, size >= m.threshold, nil
}

// PeekAudioSize reports the session's buffered byte count without
// consuming it.
func (m *Manager) PeekAudioSize(sessionID string) (int, error) {
	s, ok := m.lookupActive(sessionID)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}
	return s.Audio.PeekSize(), nil
}

// DrainAudio empties the session's audio buffer and returns its contents.
func (m *Manager) DrainAudio(sessionID string) ([]byte, error) {
	s, ok := m.lookupActive(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}
	return s.Audio.Drain(), nil
}

// ProcessAudioAndRespond drains the session's audio buffer and runs one
// conversation turn. The transcript goes out first; providers with native
// realtime support then answer the audio directly through their stream,
// everyone else takes the composed generate-then-synthesize path. Turn
// latency is measured end to end and emitted last. Buffers below the
// minimum size are discarded as line noise. Provider failures degrade the
// turn rather than failing it; only sink errors (a gone client) are
// returned.
func (m *Manager) ProcessAudioAndRespond(ctx context.Context, sessionID string, sink ResponseSink) error {
	s, ok := m.lookupActive(sessionID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}

	// Registered before the drain so an EndSession racing with this turn
	// cancels it no matter how far it got.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.mu.Lock()
	m.processing[sessionID] = cancel
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.processing, sessionID)
		m.mu.Unlock()
	}()

	pcm := s.Audio.Drain()
	if len(pcm) < m.minAudio {
		m.log.Debug("discarding short audio buffer",
			"session_id", sessionID, "bytes", len(pcm))
		return nil
	}

	turnStart := time.Now()

	transcript, ok := m.transcribe(ctx, sessionID, pcm)
	if !ok {
		return nil
	}
	transcript = strings.TrimSpace(privacy.Scrub(transcript))
	if transcript == "" {
		return nil
	}
	if err := sink.SendTranscript(transcript); err != nil {
		return fmt.Errorf("session: send transcript: %w", err)
	}

	var responded bool
	var err error
	if voice.HasCapability(m.provider, voice.CapabilityRealtimeAudio) {
		responded, err = m.streamTurn(ctx, s, transcript, pcm, sink)
	} else {
		responded, err = m.composedTurn(ctx, s, transcript, sink)
	}
	if err != nil {
		return err
	}
	if !responded {
		return nil
	}

	latencyMS := float64(time.Since(turnStart)) / float64(time.Millisecond)
	s.RecordTurn(latencyMS)
	if m.metrics != nil {
		m.metrics.RecordTurnLatency(ctx, "turn", time.Since(turnStart).Seconds())
	}
	if err := sink.SendLatency(latencyMS); err != nil {
		return fmt.Errorf("session: send latency: %w", err)
	}
	return nil
}

// streamTurn answers the turn through the provider's native audio stream.
// The session context is captured before the user turn is appended; the
// provider hears the audio itself as the current turn. Reports ok=false
// when the provider refused the stream.
func (m *Manager) streamTurn(ctx context.Context, s *Session, transcript string, pcm []byte, sink ResponseSink) (bool, error) {
	sctx := s.Context()
	m.enrichFocus(ctx, s, &sctx, transcript)
	s.AppendHistory(voice.RoleUser, transcript)

	stctx, cancel := context.WithTimeout(ctx, m.providerTimeout)
	defer cancel()

	if m.metrics != nil {
		m.metrics.IncProviderRequest(ctx, m.provider.Name())
	}
	stream, err := m.provider.StreamAudioResponse(stctx, pcm, sctx)
	if err != nil {
		if m.metrics != nil {
			m.metrics.IncProviderError(ctx, m.provider.Name())
		}
		m.log.Warn("audio stream failed, skipping response",
			"session_id", s.ID, "provider", m.provider.Name(), "error", err)
		return false, nil
	}
	for chunk := range stream {
		if err := sink.SendAudio(chunk); err != nil {
			return false, fmt.Errorf("session: send audio: %w", err)
		}
	}
	return true, nil
}

// composedTurn answers the turn as generate-then-synthesize. Generation
// failure degrades to an empty text frame; synthesis failure degrades to a
// text-only turn.
func (m *Manager) composedTurn(ctx context.Context, s *Session, transcript string, sink ResponseSink) (bool, error) {
	text, _, ok := m.generate(ctx, s, transcript)
	if err := sink.SendAIText(text); err != nil {
		return false, fmt.Errorf("session: send ai text: %w", err)
	}
	if !ok || text == "" {
		return false, nil
	}
	if err := m.synthesizeTo(ctx, s.ID, text, sink); err != nil {
		return false, err
	}
	return true, nil
}

// transcribe runs speech-to-text with the provider timeout. A failure is
// logged and reported as not-ok, never as an error.
func (m *Manager) transcribe(ctx context.Context, sessionID string, pcm []byte) (string, bool) {
	tctx, cancel := context.WithTimeout(ctx, m.providerTimeout)
	defer cancel()

	if m.metrics != nil {
		m.metrics.IncProviderRequest(ctx, m.provider.Name())
	}
	start := time.Now()
	transcript, err := m.provider.TranscribeAudio(tctx, pcm)
	if m.metrics != nil {
		m.metrics.RecordTurnLatency(ctx, "transcribe", time.Since(start).Seconds())
	}
	if err != nil {
		if m.metrics != nil {
			m.metrics.IncProviderError(ctx, m.provider.Name())
		}
		m.log.Warn("transcription failed, skipping turn",
			"session_id", sessionID, "error", err)
		return "", false
	}
	return transcript, true
}

// synthesizeTo converts text to speech and streams it to sink in fixed
// chunks. Synthesis failure degrades to a text-only turn.
func (m *Manager) synthesizeTo(ctx context.Context, sessionID, text string, sink ResponseSink) error {
	sctx, cancel := context.WithTimeout(ctx, m.providerTimeout)
	defer cancel()

	start := time.Now()
	pcm, err := m.provider.SynthesizeAudio(sctx, text)
	if m.metrics != nil {
		m.metrics.RecordTurnLatency(ctx, "synthesize", time.Since(start).Seconds())
	}
	if err != nil {
		if m.metrics != nil {
			m.metrics.IncProviderError(ctx, m.provider.Name())
		}
		m.log.Warn("synthesis failed, responding with text only",
			"session_id", sessionID, "error", err)
		return nil
	}

	for off := 0; off < len(pcm); off += voice.StreamChunkSize {
		if err := ctx.Err(); err != nil {
			return nil
		}
		end := min(off+voice.StreamChunkSize, len(pcm))
		if err := sink.SendAudio(pcm[off:end]); err != nil {
			return fmt.Errorf("session: send audio: %w", err)
		}
	}
	return nil
}

// GetAIResponse runs one text turn against the provider and returns the
// reply with the provider-reported latency in milliseconds. A missing
// session yields the sentinel reply with zero latency. Provider failures
// yield an empty reply so the session continues degraded.
func (m *Manager) GetAIResponse(ctx context.Context, sessionID, userText string) (string, float64) {
	s, ok := m.lookupActive(sessionID)
	if !ok {
		return SessionNotFoundText, 0
	}
	text, latencyMS, ok := m.generate(ctx, s, userText)
	if ok {
		s.RecordTurn(latencyMS)
	}
	return text, latencyMS
}

// generate runs one text generation: scrub, history append, curriculum
// enrichment, provider call. Turn accounting is the caller's job, since
// audio turns measure latency end to end instead of per call. Reports
// ok=false when the text was empty after scrubbing or the provider failed.
func (m *Manager) generate(ctx context.Context, s *Session, userText string) (string, float64, bool) {
	userText = strings.TrimSpace(privacy.Scrub(userText))
	if userText == "" {
		return "", 0, false
	}
	s.AppendHistory(voice.RoleUser, userText)

	sctx := s.Context()
	m.enrichFocus(ctx, s, &sctx, userText)

	gctx, cancel := context.WithTimeout(ctx, m.providerTimeout)
	defer cancel()

	if m.metrics != nil {
		m.metrics.IncProviderRequest(ctx, m.provider.Name())
	}
	resp, err := m.provider.GenerateText(gctx, sctx.History, sctx)
	if err != nil {
		if m.metrics != nil {
			m.metrics.IncProviderError(ctx, m.provider.Name())
		}
		m.log.Warn("generation failed, continuing degraded",
			"session_id", s.ID, "provider", m.provider.Name(), "error", err)
		return "", 0, false
	}

	s.AppendHistory(voice.RoleAssistant, resp.Text)
	if m.metrics != nil {
		m.metrics.RecordTurnLatency(ctx, "generate", resp.LatencyMS/1000)
	}
	return resp.Text, resp.LatencyMS, true
}

// enrichFocus fills in the session context's curriculum focus from the
// retrieval index when the session has none. Best-effort.
func (m *Manager) enrichFocus(ctx context.Context, s *Session, sctx *voice.SessionContext, query string) {
	if m.curriculum == nil || sctx.CurriculumFocus != "" {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, m.providerTimeout)
	defer cancel()

	matches, err := m.curriculum.Search(cctx, query, sctx.Grade, 1)
	if err != nil {
		m.log.Debug("curriculum search failed", "session_id", s.ID, "error", err)
		return
	}
	if len(matches) > 0 {
		sctx.CurriculumFocus = matches[0].Topic
	}
}

// ActiveCount returns the number of connected sessions. Disconnected
// sessions inside their recovery window are not counted.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
