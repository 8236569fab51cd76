package session

import (
	"sync"
	"time"

	"github.com/nexuslearn/oracy/pkg/provider/voice"
)

// Session state defaults applied when the roster has no entry for a
// student code.
const (
	DefaultGrade           = 5
	DefaultPrimaryLanguage = "Unknown"
)

// maxHistoryMessages bounds the conversation history sent to providers.
// Older messages fall off the front; the tutor only needs recent context.
const maxHistoryMessages = 20

// Session is one student's live tutoring conversation. ID and StudentCode
// are immutable after creation; everything else is guarded by an internal
// mutex and safe for concurrent use.
type Session struct {
	// ID is the server-assigned session identifier (a UUID).
	ID string

	// StudentCode is the pseudonymous student identifier. Never a name.
	StudentCode string

	// Grade is the student's grade level. Written only at creation and via
	// ApplyHints.
	Grade int

	// PrimaryLanguage is the student's home language, used for prompt
	// adaptation. "Unknown" when the roster has no entry.
	PrimaryLanguage string

	// CurriculumFocus is the unit of study for this session, if any.
	CurriculumFocus string

	// StartedAt is when the session was created.
	StartedAt time.Time

	// Audio is the between-turn PCM accumulation buffer.
	Audio AudioBuffer

	mu           sync.Mutex
	lastActivity time.Time
	turnCount    int
	latencies    []float64
	history      []voice.Message
}

// Touch updates the last-activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// LastActivity returns the most recent activity timestamp.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// RecordTurn counts one completed conversation turn with its end-to-end
// latency in milliseconds.
func (s *Session) RecordTurn(latencyMS float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnCount++
	s.latencies = append(s.latencies, latencyMS)
	s.lastActivity = time.Now()
}

// TurnCount returns the number of completed turns.
func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnCount
}

// AvgLatencyMS returns the mean turn latency, or 0 before the first turn.
func (s *Session) AvgLatencyMS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.latencies) == 0 {
		return 0
	}
	var total float64
	for _, l := range s.latencies {
		total += l
	}
	return total / float64(len(s.latencies))
}

// AppendHistory adds one message to the conversation history, trimming the
// oldest messages beyond the history window.
func (s *Session) AppendHistory(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, voice.Message{Role: role, Content: content})
	if n := len(s.history); n > maxHistoryMessages {
		s.history = s.history[n-maxHistoryMessages:]
	}
}

// History returns a copy of the conversation history.
func (s *Session) History() []voice.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]voice.Message, len(s.history))
	copy(out, s.history)
	return out
}

// ApplyHints fills session fields from client-supplied session_start hints.
// Grade and language apply only while the session still carries defaults,
// so roster data wins; the curriculum focus hint always applies.
func (s *Session) ApplyHints(grade int, language, focus string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if grade > 0 && s.Grade == DefaultGrade {
		s.Grade = grade
	}
	if language != "" && s.PrimaryLanguage == DefaultPrimaryLanguage {
		s.PrimaryLanguage = language
	}
	if focus != "" {
		s.CurriculumFocus = focus
	}
}

// Context returns the provider-facing view of this session.
func (s *Session) Context() voice.SessionContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]voice.Message, len(s.history))
	copy(out, s.history)
	return voice.SessionContext{
		StudentCode:     s.StudentCode,
		Grade:           s.Grade,
		PrimaryLanguage: s.PrimaryLanguage,
		CurriculumFocus: s.CurriculumFocus,
		History:         out,
	}
}
