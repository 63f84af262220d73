package retriever

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandcast/internal/port"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (e stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

func (e stubEmbedder) Dimension() int    { return len(e.vec) }
func (e stubEmbedder) ModelName() string { return "stub" }

type stubStore struct {
	results []port.VectorResult
	query   []float32
	k       int
}

func (s *stubStore) Upsert(context.Context, []port.VectorItem) error { return nil }
func (s *stubStore) Delete(context.Context, []string) error          { return nil }
func (s *stubStore) Count(context.Context) (int, error)              { return len(s.results), nil }

func (s *stubStore) Search(_ context.Context, query []float32, k int) ([]port.VectorResult, error) {
	s.query, s.k = query, k
	return s.results, nil
}

func TestSemanticSearcher_Best(t *testing.T) {
	store := &stubStore{results: []port.VectorResult{{ID: "INV001", Score: 0.91}}}
	s := NewSemanticSearcher(store, stubEmbedder{vec: []float32{3, 4}})

	id, sim, ok, err := s.Best(context.Background(), "gloves")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "INV001", id)
	assert.Equal(t, 0.91, sim)
	assert.Equal(t, 1, store.k)
	assert.InDelta(t, 0.6, store.query[0], 1e-6, "query is normalized")
	assert.InDelta(t, 0.8, store.query[1], 1e-6)
}

func TestSemanticSearcher_EmptyIndex(t *testing.T) {
	s := NewSemanticSearcher(&stubStore{}, stubEmbedder{vec: []float32{1}})

	_, _, ok, err := s.Best(context.Background(), "gloves")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSemanticSearcher_EmbedError(t *testing.T) {
	s := NewSemanticSearcher(&stubStore{}, stubEmbedder{err: errors.New("provider down")})

	_, _, _, err := s.Best(context.Background(), "gloves")
	assert.Error(t, err)
}

func TestSemanticSearcher_Unavailable(t *testing.T) {
	var s *SemanticSearcher
	assert.False(t, s.Available())
	assert.False(t, NewSemanticSearcher(nil, stubEmbedder{}).Available())
}
