// Package store defines the persistence boundary for student roster lookups
// and session records. The session manager treats it as optional: a nil
// store means sessions run in memory only.
//
// Raw audio is never persisted, and every free-text field written through
// this interface must already be PII-scrubbed by the caller.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a student code is not in the roster.
var ErrNotFound = errors.New("store: not found")

// Student is a roster entry. The code is the only identifier the rest of
// the system sees; names never leave the roster table.
type Student struct {
	Code            string
	Grade           int
	PrimaryLanguage string
}

// SessionRecord is written when a session starts.
type SessionRecord struct {
	ID          string
	StudentCode string
	Provider    string
	StartedAt   time.Time
}

// Finalization closes out a session record.
type Finalization struct {
	// Status is "completed" for explicit ends, "expired" for sessions
	// purged after the disconnect window.
	Status string

	EndedAt         time.Time
	TurnCount       int
	DurationSeconds float64
	AvgLatencyMS    float64

	// TranscriptSummary is a short scrubbed summary of the conversation,
	// suitable for teacher review. Never raw transcript, never audio.
	TranscriptSummary string
}

// Store persists roster and session data.
type Store interface {
	// ResolveStudent looks up a roster entry by student code. Returns
	// ErrNotFound when the code is not enrolled.
	ResolveStudent(ctx context.Context, code string) (Student, error)

	// CreateSession records a newly started session.
	CreateSession(ctx context.Context, rec SessionRecord) error

	// FinalizeSession closes out a session record. Finalizing an unknown
	// session returns ErrNotFound.
	FinalizeSession(ctx context.Context, sessionID string, fin Finalization) error
}
