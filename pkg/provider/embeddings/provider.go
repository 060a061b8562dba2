// Package embeddings defines the Provider interface for text-embedding
// backends. The assistant uses embeddings to score knowledge-base entries
// against a caller's question by cosine similarity, as an alternative to
// lexical overlap.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider maps text to dense float32 vectors. Every vector from one Provider
// has length Dimensions().
type Provider interface {
	// Embed computes the embedding of a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes embeddings for texts in one call. result[i]
	// corresponds to texts[i]; on error no partial results are returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed vector length, or 0 if unknown.
	Dimensions() int

	// ModelID returns the provider-specific model identifier. Cached vectors
	// are keyed by it so switching models never mixes vector spaces.
	ModelID() string
}
