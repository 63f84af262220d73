package usecase

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"demandcast/internal/adapter/memstore"
	"demandcast/internal/adapter/store"
	"demandcast/internal/domain"
	"demandcast/internal/port"
)

func ptr(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func catalog(items ...domain.CatalogItem) *memstore.Snapshot {
	return memstore.NewSnapshot(items, nil)
}

// fixedEmbedder returns the same vector for every text and counts calls.
type fixedEmbedder struct {
	vec   []float32
	calls atomic.Int32
}

func (e *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

func (e *fixedEmbedder) Dimension() int    { return len(e.vec) }
func (e *fixedEmbedder) ModelName() string { return "fixed" }

// countingStore counts searches against a real vector store.
type countingStore struct {
	port.VectorStore
	searches atomic.Int32
}

func (s *countingStore) Search(ctx context.Context, q []float32, k int) ([]port.VectorResult, error) {
	s.searches.Add(1)
	return s.VectorStore.Search(ctx, q, k)
}

func openVectors(t *testing.T, dim int) (*store.BoltStore, *store.BoltVectorStore) {
	t.Helper()
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	vs, err := store.NewBoltVectorStore(st.DB(), dim)
	require.NoError(t, err)
	return st, vs
}

// predictorFunc adapts a function to port.Predictor.
type predictorFunc func(domain.Features) (float64, error)

func (f predictorFunc) Predict(_ context.Context, features domain.Features) (float64, error) {
	return f(features)
}

func constant(v float64) predictorFunc {
	return func(domain.Features) (float64, error) { return v, nil }
}
