package embedding

import (
	"context"
	"hash/fnv"

	"demandcast/internal/adapter/analyzer"
)

// MockEmbedder hashes tokens into a fixed number of buckets. Texts that share
// words get similar vectors, which is enough for offline runs and tests.
type MockEmbedder struct {
	dimension int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dimension)
		for _, tok := range analyzer.Tokenize(text) {
			h := fnv.New32a()
			h.Write([]byte(tok))
			vec[h.Sum32()%uint32(e.dimension)] += 1
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
