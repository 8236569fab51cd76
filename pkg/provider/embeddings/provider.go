// Package embeddings defines the Provider interface for vector embedding
// backends.
//
// An embeddings provider maps text to dense float32 vectors. Oracy uses
// these vectors to index curriculum snippets and to retrieve the snippets
// most relevant to what a student is currently talking about, so the tutor
// can ground its responses in the active unit of study.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
//
// All vectors returned by a single Provider instance share the same
// dimensionality (returned by Dimensions). Vectors from different Provider
// instances must not be mixed in one similarity computation unless both use
// the same model.
type Provider interface {
	// Embed computes the embedding vector for a single text string. The
	// returned slice has length Dimensions(). Text is passed through
	// verbatim; any model-specific prefixing is the caller's job.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds a slice of texts in a single provider call. The
	// returned slice has the same length as texts, index-aligned. On error
	// no partial results are returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed length of every vector this provider
	// produces. Constant for the lifetime of the instance.
	Dimensions() int

	// ModelID returns the provider-specific model identifier, for logging
	// and for checking that an index was built with the same model.
	ModelID() string
}
