// Package curriculum provides retrieval over curriculum snippets so the
// tutor can ground its responses in the unit a student is working on.
//
// Two implementations exist: an in-memory fuzzy keyword store for
// development and tests, and a pgvector-backed semantic store for
// deployments with PostgreSQL configured.
package curriculum

import "context"

// Snippet is one curriculum passage, small enough to drop into a prompt.
type Snippet struct {
	// ID uniquely identifies the snippet within its store.
	ID string

	// Topic is a short label such as "confederation" or "wetland ecosystems".
	Topic string

	// Grade is the grade level the snippet targets. Zero means any grade.
	Grade int

	// Text is the passage itself.
	Text string
}

// Match is a scored retrieval result. Higher scores are more relevant.
type Match struct {
	Snippet
	Score float64
}

// Searcher retrieves the snippets most relevant to a query.
//
// grade filters results to that grade level (snippets marked grade zero
// always pass); a zero grade disables the filter. topK caps the number of
// results. Implementations must be safe for concurrent use.
type Searcher interface {
	Search(ctx context.Context, query string, grade, topK int) ([]Match, error)
}
