package usecase

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandcast/internal/adapter/cache"
	"demandcast/internal/adapter/retriever"
	"demandcast/internal/domain"
	"demandcast/internal/port"
)

var medical = catalog(
	domain.CatalogItem{ID: "INV001", DisplayName: "Nitrile Gloves"},
	domain.CatalogItem{ID: "INV002", DisplayName: "Latex Gloves"},
	domain.CatalogItem{ID: "INV003", DisplayName: "Surgical Face Mask"},
	domain.CatalogItem{ID: "INV004", DisplayName: "nitrile gloves"},
)

func TestResolve_ExactIgnoresCaseAndWhitespace(t *testing.T) {
	r := NewResolver(medical)

	for _, q := range []string{"INV002", "inv002", " Inv 002 ", "i n v 0 0 2"} {
		matches, err := r.Resolve(context.Background(), q)
		require.NoError(t, err, q)
		require.Len(t, matches, 1, q)
		assert.Equal(t, "INV002", matches[0].ID)
		assert.Equal(t, domain.MethodExact, matches[0].Method)
		assert.Nil(t, matches[0].Score)
	}
}

func TestResolve_FuzzyReturnsEveryIDWithBestName(t *testing.T) {
	r := NewResolver(medical)

	matches, err := r.Resolve(context.Background(), "gloves nitrile")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "INV001", matches[0].ID)
	assert.Equal(t, "INV004", matches[1].ID)
	for _, m := range matches {
		assert.Equal(t, domain.MethodFuzzy, m.Method)
		require.NotNil(t, m.Score)
		assert.Equal(t, 100.0, *m.Score)
	}
}

func TestResolve_FuzzyThreshold(t *testing.T) {
	t.Run("85 accepts", func(t *testing.T) {
		r := NewResolver(catalog(domain.CatalogItem{ID: "A1", DisplayName: strings.Repeat("a", 20)}))

		matches, err := r.Resolve(context.Background(), strings.Repeat("a", 17)+"bbb")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, domain.MethodFuzzy, matches[0].Method)
		assert.Equal(t, 85.0, *matches[0].Score)
	})

	t.Run("84 falls through", func(t *testing.T) {
		query := strings.Repeat("a", 21) + "bbbb"
		r := NewResolver(catalog(
			domain.CatalogItem{ID: "A1", DisplayName: strings.Repeat("a", 25)},
			domain.CatalogItem{ID: "A2", DisplayName: query + " industrial grade supply kit for the warehouse"},
		))

		matches, err := r.Resolve(context.Background(), query)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "A2", matches[0].ID)
		assert.Equal(t, domain.MethodSubstring, matches[0].Method)
	})
}

func TestResolve_SubstringReturnsAllInCatalogOrder(t *testing.T) {
	r := NewResolver(medical)

	matches, err := r.Resolve(context.Background(), "Gloves")
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, []string{"INV001", "INV002", "INV004"}, []string{matches[0].ID, matches[1].ID, matches[2].ID})
	for _, m := range matches {
		assert.Equal(t, domain.MethodSubstring, m.Method)
		assert.Nil(t, m.Score)
	}
}

func TestResolve_NothingMatches(t *testing.T) {
	r := NewResolver(medical)

	for _, q := range []string{"", "zzq"} {
		matches, err := r.Resolve(context.Background(), q)
		require.NoError(t, err)
		assert.NotNil(t, matches)
		assert.Empty(t, matches)
	}
}

// semanticFixture indexes one item at [1, 0] and embeds every query as
// [sim, sqrt(1-sim^2)], so the query's cosine similarity to the item is sim.
func semanticFixture(t *testing.T, sim float64) (*Resolver, *fixedEmbedder, *countingStore) {
	t.Helper()
	_, vs := openVectors(t, 2)
	require.NoError(t, vs.Upsert(context.Background(), []port.VectorItem{{ID: "INV003", Vector: []float32{1, 0}}}))

	emb := &fixedEmbedder{vec: []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}}
	counted := &countingStore{VectorStore: vs}
	r := NewResolver(medical,
		WithSemantic(retriever.NewSemanticSearcher(counted, emb)),
		WithCache(cache.NewSemanticCache()),
	)
	return r, emb, counted
}

func TestResolve_SemanticThreshold(t *testing.T) {
	t.Run("0.65 rejects", func(t *testing.T) {
		r, _, _ := semanticFixture(t, 0.65)

		matches, err := r.Resolve(context.Background(), "respirator")
		require.NoError(t, err)
		assert.Empty(t, matches)
		assert.Equal(t, 0, r.Cache().Size())
	})

	t.Run("0.75 accepts", func(t *testing.T) {
		r, _, _ := semanticFixture(t, 0.75)

		matches, err := r.Resolve(context.Background(), "respirator")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "INV003", matches[0].ID)
		assert.Equal(t, domain.MethodSemantic, matches[0].Method)
		assert.InDelta(t, 0.75, *matches[0].Score, 1e-6)
		assert.Equal(t, 1, r.Cache().Size())
	})
}

func TestResolve_CacheIsIdempotent(t *testing.T) {
	r, emb, counted := semanticFixture(t, 0.9)

	first, err := r.Resolve(context.Background(), "respirator")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "respirator")
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, domain.MethodSemantic, first[0].Method)
	assert.Equal(t, domain.MethodSemanticCached, second[0].Method)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.InDelta(t, *first[0].Score, *second[0].Score, 1e-12)
	assert.Equal(t, int32(1), emb.calls.Load())
	assert.Equal(t, int32(1), counted.searches.Load())
}

func TestResolve_EarlierStrategyShortCircuits(t *testing.T) {
	r, emb, counted := semanticFixture(t, 0.9)

	matches, err := r.Resolve(context.Background(), "INV001")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, domain.MethodExact, matches[0].Method)
	assert.Equal(t, 0, r.Cache().Size())
	assert.Equal(t, int32(0), emb.calls.Load())
	assert.Equal(t, int32(0), counted.searches.Load())
}

type failingSearcher struct{}

func (failingSearcher) Available() bool { return true }
func (failingSearcher) Best(context.Context, string) (string, float64, bool, error) {
	return "", 0, false, errors.New("embedding provider unavailable")
}

func TestResolve_SemanticErrorPropagates(t *testing.T) {
	r := NewResolver(medical, WithSemantic(failingSearcher{}))

	_, err := r.Resolve(context.Background(), "respirator")
	assert.Error(t, err)
}

func TestResolve_SemanticDisabledYieldsNothing(t *testing.T) {
	r := NewResolver(medical, WithSemantic(retriever.NewSemanticSearcher(nil, nil)))

	matches, err := r.Resolve(context.Background(), "respirator")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestResolve_ConfiguredThreshold(t *testing.T) {
	r := NewResolver(medical, WithThresholds(60, DefaultSemanticThreshold))

	matches, err := r.Resolve(context.Background(), "surgical mask")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "INV003", matches[0].ID)
	assert.Equal(t, domain.MethodFuzzy, matches[0].Method)
}
