// Command benchmark reports how well the semantic index separates catalog
// items for a query, to help choose resolver.semantic_threshold.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"demandcast/config"
	"demandcast/internal/adapter/embedding"
	"demandcast/internal/adapter/store"
	"demandcast/internal/port"
)

func main() {
	dir := flag.String("dir", ".", "Project directory holding .demandcast/index.db")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"query\"")
		fmt.Println("\nTests:")
		fmt.Println("  1. Embedding infrastructure (model connection, vector store)")
		fmt.Println("  2. Semantic similarity of the query to catalog names")
		fmt.Println("  3. Margin between the best match and the runner-up")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	st, err := store.NewBoltStore(config.IndexDBPath(*dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	embedder, vectorStore, err := setupEmbedding(ctx, st, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Semantic search not available: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("SEMANTIC RESOLUTION BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))

	count, _ := vectorStore.Count(ctx)
	fmt.Printf("Items indexed: %d\n", count)
	fmt.Printf("Model: %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", embedder.Dimension())
	fmt.Printf("Threshold: %.2f\n", cfg.Resolver.SemanticThreshold)
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	queryVec, err := embedder.Embed(ctx, []string{*query})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Query embedded: %d dimensions\n\n", len(queryVec[0]))

	results, err := vectorStore.Search(ctx, embedding.Normalize(queryVec[0]), *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}

	names, _ := st.IndexedNames()

	fmt.Printf("Top %d semantic matches:\n\n", len(results))
	for i, r := range results {
		rating := "REJECT"
		if r.Score >= cfg.Resolver.SemanticThreshold {
			rating = "ACCEPT"
		}
		fmt.Printf("%2d. [%s %.3f] %-12s %s\n", i+1, rating, r.Score, r.ID, names[r.ID])
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Score)
	if len(results) > 1 {
		margin := results[0].Score - results[1].Score
		fmt.Printf("  Margin to top-2:    %.3f\n", margin)
		if margin < 0.05 {
			fmt.Println("  Status: AMBIGUOUS - top matches are nearly tied")
		} else {
			fmt.Println("  Status: CLEAR - best match stands out")
		}
	}
}

func setupEmbedding(ctx context.Context, st *store.BoltStore, cfg *config.Config) (port.Embedder, port.VectorStore, error) {
	if !cfg.Embedding.Enabled {
		return nil, nil, errors.New("embeddings not enabled in config")
	}

	var embedder port.Embedder
	var err error

	switch cfg.Embedding.Provider {
	case "ollama":
		embedder, err = embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL, embedding.WithDimension(cfg.Embedding.Dimension))
	case "openai":
		embedder, err = embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, embedding.WithDimension(cfg.Embedding.Dimension))
	case "mock":
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimension)
	default:
		return nil, nil, errors.Newf("unsupported provider: %s", cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "embedder init failed")
	}

	vectorStore, err := store.NewBoltVectorStore(st.DB(), embedder.Dimension())
	if err != nil {
		return nil, nil, errors.Wrap(err, "vector store failed")
	}

	count, _ := vectorStore.Count(ctx)
	if count == 0 {
		return nil, nil, errors.New("no embeddings - run 'demandcast index' with embedding.enabled=true")
	}

	return embedder, vectorStore, nil
}
