// Package mock provides a test double for the ai.Embedder interface.
//
// The mock lets tests run without an embedding service and gives controlled,
// deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	embedder := mock.NewMockEmbedderWithDimension(3)
//	vectors, err := embedder.Embed(ctx, "test")
//
//	// Custom behavior injection
//	embedder.WithEmbedFunc(func(ctx context.Context, text string) ([][]float32, error) {
//	    return nil, errors.New("service down")
//	})
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
// MockEmbedder returns one unit-length vector per call, derived from an FNV
// hash of the text, so identical text always embeds identically.
package mock
