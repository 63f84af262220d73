package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore stores and searches normalized embedding vectors.
type VectorStore interface {
	// Upsert adds or updates vectors in the store.
	Upsert(ctx context.Context, items []VectorItem) error

	// Search finds the k vectors with the highest inner product with the query.
	Search(ctx context.Context, query []float32, k int) ([]VectorResult, error)

	// Delete removes vectors by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of vectors in the store.
	Count(ctx context.Context) (int, error)
}

// VectorItem represents a vector to be stored.
type VectorItem struct {
	ID       string            // Inventory id
	Vector   []float32         // Normalized embedding
	Metadata map[string]string // Optional metadata, e.g. the display name
}

// VectorResult represents a search result.
type VectorResult struct {
	ID       string            // Inventory id
	Score    float64           // Similarity in [-1, 1], higher is better
	Metadata map[string]string // Stored metadata
}
