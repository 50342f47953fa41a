package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// Embed generates the embeddings for a single text.
	// A single call may return more than one vector; callers store each vector
	// as its own point. Returns an error if the embedding generation fails.
	Embed(ctx context.Context, text string) ([][]float32, error)
}

// EmbedderFunc adapts an ordinary function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([][]float32, error)

// Embed calls f(ctx, text).
func (f EmbedderFunc) Embed(ctx context.Context, text string) ([][]float32, error) {
	return f(ctx, text)
}
