package curriculum

import (
	"context"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	// fuzzyThreshold is the minimum Jaro-Winkler score for a query token to
	// count as matching a snippet token without phonetic agreement.
	fuzzyThreshold = 0.84

	// phoneticThreshold is the lower bar applied when Double Metaphone codes
	// overlap. EAL speech transcripts misspell topic words often enough that
	// phonetic agreement deserves the benefit of the doubt.
	phoneticThreshold = 0.70
)

// MemStore is an in-memory Searcher over a fixed snippet set. Queries are
// matched token-by-token using Double Metaphone codes and Jaro-Winkler
// similarity, so "confedration" still finds the confederation unit.
//
// The store is read-only after construction and safe for concurrent use.
type MemStore struct {
	snippets []Snippet
}

// NewMemStore builds a MemStore over snippets. The slice is copied.
func NewMemStore(snippets []Snippet) *MemStore {
	cp := make([]Snippet, len(snippets))
	copy(cp, snippets)
	return &MemStore{snippets: cp}
}

// Search implements Searcher.
func (m *MemStore) Search(ctx context.Context, query string, grade, topK int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	queryTokens := strings.Fields(strings.ToLower(query))
	if len(queryTokens) == 0 || topK <= 0 {
		return nil, nil
	}

	var matches []Match
	for _, s := range m.snippets {
		if grade > 0 && s.Grade > 0 && s.Grade != grade {
			continue
		}
		if score := scoreSnippet(queryTokens, s); score > 0 {
			matches = append(matches, Match{Snippet: s, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// scoreSnippet returns the fraction of query tokens that match a token in
// the snippet's topic or text. Topic hits count double so a query naming
// the unit outranks passing mentions inside other passages.
func scoreSnippet(queryTokens []string, s Snippet) float64 {
	topicTokens := strings.Fields(strings.ToLower(s.Topic))
	textTokens := strings.Fields(strings.ToLower(s.Text))

	var total float64
	for _, qt := range queryTokens {
		if tokenMatches(qt, topicTokens) {
			total += 2
		} else if tokenMatches(qt, textTokens) {
			total++
		}
	}
	return total / float64(2*len(queryTokens))
}

func tokenMatches(query string, tokens []string) bool {
	qp, qs := matchr.DoubleMetaphone(query)
	for _, t := range tokens {
		if t == query {
			return true
		}
		jw := matchr.JaroWinkler(query, t, false)
		if jw >= fuzzyThreshold {
			return true
		}
		tp, ts := matchr.DoubleMetaphone(t)
		phonetic := (qp != "" && (qp == tp || qp == ts)) ||
			(qs != "" && (qs == tp || qs == ts))
		if phonetic && jw >= phoneticThreshold {
			return true
		}
	}
	return false
}

var _ Searcher = (*MemStore)(nil)
