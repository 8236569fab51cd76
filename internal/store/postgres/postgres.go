// Package postgres implements store.Store on PostgreSQL.
//
// Two tables are involved: a students roster that deployments load out of
// band (the server only reads it), and a sessions table the server writes.
// Audio is never written here, and callers scrub free text before it
// arrives.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexuslearn/oracy/internal/store"
)

var _ store.Store = (*Store)(nil)

const ddl = `
CREATE TABLE IF NOT EXISTS students (
    code             TEXT  PRIMARY KEY,
    grade            INT   NOT NULL DEFAULT 0,
    primary_language TEXT  NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sessions (
    id                 TEXT         PRIMARY KEY,
    student_code       TEXT         NOT NULL,
    provider           TEXT         NOT NULL DEFAULT '',
    started_at         TIMESTAMPTZ  NOT NULL DEFAULT now(),
    status             TEXT         NOT NULL DEFAULT 'active',
    ended_at           TIMESTAMPTZ,
    turn_count         INT          NOT NULL DEFAULT 0,
    duration_seconds   DOUBLE PRECISION NOT NULL DEFAULT 0,
    avg_latency_ms     DOUBLE PRECISION NOT NULL DEFAULT 0,
    transcript_summary TEXT         NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sessions_student_code
    ON sessions (student_code);

CREATE INDEX IF NOT EXISTS idx_sessions_started_at
    ON sessions (started_at);
`

// Store persists the roster and session records in PostgreSQL.
// All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn and ensures the required tables
// exist. The migration is idempotent and safe to run on every start.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// ResolveStudent implements store.Store.
func (s *Store) ResolveStudent(ctx context.Context, code string) (store.Student, error) {
	const q = `
		SELECT code, grade, primary_language
		FROM   students
		WHERE  code = $1`

	var st store.Student
	err := s.pool.QueryRow(ctx, q, code).Scan(&st.Code, &st.Grade, &st.PrimaryLanguage)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Student{}, store.ErrNotFound
	}
	if err != nil {
		return store.Student{}, fmt.Errorf("postgres store: resolve student: %w", err)
	}
	return st, nil
}

// CreateSession implements store.Store.
func (s *Store) CreateSession(ctx context.Context, rec store.SessionRecord) error {
	const q = `
		INSERT INTO sessions (id, student_code, provider, started_at)
		VALUES ($1, $2, $3, $4)`

	_, err := s.pool.Exec(ctx, q, rec.ID, rec.StudentCode, rec.Provider, rec.StartedAt)
	if err != nil {
		return fmt.Errorf("postgres store: create session: %w", err)
	}
	return nil
}

// FinalizeSession implements store.Store.
func (s *Store) FinalizeSession(ctx context.Context, sessionID string, fin store.Finalization) error {
	const q = `
		UPDATE sessions SET
		    status             = $2,
		    ended_at           = $3,
		    turn_count         = $4,
		    duration_seconds   = $5,
		    avg_latency_ms     = $6,
		    transcript_summary = $7
		WHERE id = $1`

	ct, err := s.pool.Exec(ctx, q, sessionID,
		fin.Status, fin.EndedAt, fin.TurnCount,
		fin.DurationSeconds, fin.AvgLatencyMS, fin.TranscriptSummary)
	if err != nil {
		return fmt.Errorf("postgres store: finalize session: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
