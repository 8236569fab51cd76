// Package postgres provides a pgvector-backed curriculum.Searcher.
//
// Snippets are embedded once at indexing time and retrieved by cosine
// distance against an embedding of the student's query. The pgvector
// extension must be available; [NewStore] installs it via CREATE EXTENSION
// IF NOT EXISTS.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/nexuslearn/oracy/internal/curriculum"
	"github.com/nexuslearn/oracy/pkg/provider/embeddings"
)

var _ curriculum.Searcher = (*Store)(nil)

// ddl returns the snippet table DDL with the embedding dimension substituted.
// The vector dimension is baked into the column type at schema creation time.
func ddl(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS curriculum_snippets (
    id         TEXT        PRIMARY KEY,
    topic      TEXT        NOT NULL,
    grade      INT         NOT NULL DEFAULT 0,
    content    TEXT        NOT NULL,
    embedding  vector(%d)
);

CREATE INDEX IF NOT EXISTS idx_curriculum_snippets_grade
    ON curriculum_snippets (grade);

CREATE INDEX IF NOT EXISTS idx_curriculum_snippets_embedding
    ON curriculum_snippets USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Store is a curriculum snippet index backed by PostgreSQL with pgvector.
// All methods are safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	embedder embeddings.Provider
}

// NewStore connects to the database at dsn, registers pgvector types on
// every connection, and ensures the snippet table exists with a vector
// column matching embedder.Dimensions(). Changing the embedding model after
// the first migration requires a manual schema change.
func NewStore(ctx context.Context, dsn string, embedder embeddings.Provider) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("curriculum store: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("curriculum store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("curriculum store: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, ddl(embedder.Dimensions())); err != nil {
		pool.Close()
		return nil, fmt.Errorf("curriculum store: migrate: %w", err)
	}

	return &Store{pool: pool, embedder: embedder}, nil
}

// IndexSnippets embeds and upserts snippets in one batch. Re-indexing an
// existing ID replaces it completely.
func (s *Store) IndexSnippets(ctx context.Context, snippets []curriculum.Snippet) error {
	if len(snippets) == 0 {
		return nil
	}

	texts := make([]string, len(snippets))
	for i, sn := range snippets {
		texts[i] = sn.Topic + "\n" + sn.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("curriculum store: embed snippets: %w", err)
	}

	const q = `
		INSERT INTO curriculum_snippets (id, topic, grade, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
		    topic     = EXCLUDED.topic,
		    grade     = EXCLUDED.grade,
		    content   = EXCLUDED.content,
		    embedding = EXCLUDED.embedding`

	for i, sn := range snippets {
		vec := pgvector.NewVector(vectors[i])
		if _, err := s.pool.Exec(ctx, q, sn.ID, sn.Topic, sn.Grade, sn.Text, vec); err != nil {
			return fmt.Errorf("curriculum store: index snippet %q: %w", sn.ID, err)
		}
	}
	return nil
}

// Search implements curriculum.Searcher. Scores are 1 minus the cosine
// distance, so identical directions score 1.0.
func (s *Store) Search(ctx context.Context, query string, grade, topK int) ([]curriculum.Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("curriculum store: embed query: %w", err)
	}

	args := []any{pgvector.NewVector(queryVec)}
	gradeClause := ""
	if grade > 0 {
		args = append(args, grade)
		gradeClause = fmt.Sprintf("WHERE grade = 0 OR grade = $%d", len(args))
	}
	args = append(args, topK)

	q := fmt.Sprintf(`
		SELECT id, topic, grade, content, embedding <=> $1 AS distance
		FROM   curriculum_snippets
		%s
		ORDER  BY distance
		LIMIT  $%d`, gradeClause, len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("curriculum store: search: %w", err)
	}

	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (curriculum.Match, error) {
		var (
			m        curriculum.Match
			distance float64
		)
		if err := row.Scan(&m.ID, &m.Topic, &m.Grade, &m.Text, &distance); err != nil {
			return curriculum.Match{}, err
		}
		m.Score = 1 - distance
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("curriculum store: scan rows: %w", err)
	}
	return matches, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
