// Package mock provides an in-memory test double for the store.Store
// interface. Seed Students before use and read the call records afterwards.
package mock

import (
	"context"
	"sync"

	"github.com/nexuslearn/oracy/internal/store"
)

// FinalizeCall records a single invocation of FinalizeSession.
type FinalizeCall struct {
	SessionID    string
	Finalization store.Finalization
}

// Store is a mock implementation of store.Store.
type Store struct {
	mu sync.Mutex

	// Students maps student code to roster entry. Codes not present
	// resolve to store.ErrNotFound.
	Students map[string]store.Student

	// ResolveErr, if non-nil, is returned from ResolveStudent.
	ResolveErr error

	// CreateErr, if non-nil, is returned from CreateSession.
	CreateErr error

	// FinalizeErr, if non-nil, is returned from FinalizeSession.
	FinalizeErr error

	// Created records every session record passed to CreateSession.
	Created []store.SessionRecord

	// Finalized records every invocation of FinalizeSession.
	Finalized []FinalizeCall
}

// ResolveStudent returns the seeded roster entry for code.
func (s *Store) ResolveStudent(ctx context.Context, code string) (store.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ResolveErr != nil {
		return store.Student{}, s.ResolveErr
	}
	student, ok := s.Students[code]
	if !ok {
		return store.Student{}, store.ErrNotFound
	}
	return student, nil
}

// CreateSession records the call.
func (s *Store) CreateSession(ctx context.Context, rec store.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Created = append(s.Created, rec)
	return s.CreateErr
}

// FinalizeSession records the call.
func (s *Store) FinalizeSession(ctx context.Context, sessionID string, fin store.Finalization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Finalized = append(s.Finalized, FinalizeCall{SessionID: sessionID, Finalization: fin})
	return s.FinalizeErr
}

// Reset clears all recorded calls. Thread-safe.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Created = nil
	s.Finalized = nil
}

// Ensure Store implements store.Store at compile time.
var _ store.Store = (*Store)(nil)
