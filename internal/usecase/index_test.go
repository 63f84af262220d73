package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandcast/internal/adapter/embedding"
	"demandcast/internal/domain"
)

func TestIndexUseCase_BuildIsIncremental(t *testing.T) {
	ctx := context.Background()
	st, vs := openVectors(t, 16)
	emb := embedding.NewMockEmbedder(16)

	items := []domain.CatalogItem{
		{ID: "INV001", DisplayName: "Nitrile Gloves"},
		{ID: "INV002", DisplayName: "Latex Gloves"},
		{ID: "INV003", DisplayName: "Face Mask"},
	}

	var calls []int
	uc := NewIndexUseCase(catalog(items...), emb, vs, st, 2, nil)
	res, err := uc.Build(ctx, func(done, total int) {
		calls = append(calls, done)
		assert.Equal(t, 3, total)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Embedded)
	assert.Equal(t, []int{2, 3}, calls)

	n, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Unchanged catalog: nothing to embed.
	res, err = uc.Build(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Embedded)
	assert.Equal(t, 3, res.Skipped)

	// One renamed, one removed.
	changed := []domain.CatalogItem{
		{ID: "INV001", DisplayName: "Nitrile Exam Gloves"},
		{ID: "INV002", DisplayName: "Latex Gloves"},
	}
	uc = NewIndexUseCase(catalog(changed...), emb, vs, st, 2, nil)
	res, err = uc.Build(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Embedded)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Deleted)

	names, err := st.IndexedNames()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"INV001": "Nitrile Exam Gloves", "INV002": "Latex Gloves"}, names)

	n, err = vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIndexUseCase_StoresNormalizedVectors(t *testing.T) {
	ctx := context.Background()
	_, vs := openVectors(t, 2)
	emb := &fixedEmbedder{vec: []float32{3, 4}}

	uc := NewIndexUseCase(catalog(domain.CatalogItem{ID: "A", DisplayName: "a"}), emb, vs, nil, 0, nil)
	_, err := uc.Build(ctx, nil)
	require.NoError(t, err)

	res, err := vs.Search(ctx, []float32{0.6, 0.8}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)
	assert.Equal(t, "a", res[0].Metadata["name"])
}

func TestIndexUseCase_SkipsBlankNames(t *testing.T) {
	ctx := context.Background()
	st, vs := openVectors(t, 2)
	emb := &fixedEmbedder{vec: []float32{1, 0}}

	uc := NewIndexUseCase(catalog(
		domain.CatalogItem{ID: "A", DisplayName: "gloves"},
		domain.CatalogItem{ID: "B", DisplayName: "  "},
	), emb, vs, st, 0, nil)
	res, err := uc.Build(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Embedded)

	names, err := st.IndexedNames()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "gloves"}, names)
}
