package retriever

import (
	"context"

	"github.com/cockroachdb/errors"

	"demandcast/internal/adapter/embedding"
	"demandcast/internal/port"
)

// SemanticSearcher finds the catalog item whose embedded display name is
// nearest to a query.
type SemanticSearcher struct {
	vectorStore port.VectorStore
	embedder    port.Embedder
}

func NewSemanticSearcher(vectorStore port.VectorStore, embedder port.Embedder) *SemanticSearcher {
	return &SemanticSearcher{
		vectorStore: vectorStore,
		embedder:    embedder,
	}
}

// Available reports whether both an embedder and an index are configured.
func (s *SemanticSearcher) Available() bool {
	return s != nil && s.vectorStore != nil && s.embedder != nil
}

// Best returns the nearest item id and its cosine similarity. ok is false when
// the index is empty.
func (s *SemanticSearcher) Best(ctx context.Context, query string) (id string, similarity float64, ok bool, err error) {
	if !s.Available() {
		return "", 0, false, errors.New("semantic search not available: embeddings not configured")
	}

	embeddings, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", 0, false, errors.Wrap(err, "embed query")
	}
	if len(embeddings) == 0 {
		return "", 0, false, errors.New("embedding returned empty result")
	}

	results, err := s.vectorStore.Search(ctx, embedding.Normalize(embeddings[0]), 1)
	if err != nil {
		return "", 0, false, errors.Wrap(err, "vector search")
	}
	if len(results) == 0 {
		return "", 0, false, nil
	}
	return results[0].ID, results[0].Score, true, nil
}
