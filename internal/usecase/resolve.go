package usecase

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"demandcast/internal/adapter/analyzer"
	"demandcast/internal/adapter/cache"
	"demandcast/internal/domain"
	"demandcast/internal/logger"
	"demandcast/internal/port"
)

const (
	DefaultFuzzyThreshold    = 85
	DefaultSemanticThreshold = 0.70
)

// SemanticSearcher finds the nearest catalog item to a query by embedding.
type SemanticSearcher interface {
	Available() bool
	Best(ctx context.Context, query string) (id string, similarity float64, ok bool, err error)
}

// strategy produces matches for a query; an empty result hands over to the
// next strategy.
type strategy func(ctx context.Context, query string, items []domain.CatalogItem) ([]domain.Match, error)

// Resolver maps free text to catalog ids by trying, in order, exact id,
// fuzzy name, substring name and semantic similarity. The first strategy with
// any match decides the whole result.
type Resolver struct {
	catalog           port.CatalogProvider
	semantic          SemanticSearcher
	cache             *cache.SemanticCache
	fuzzyThreshold    int
	semanticThreshold float64
	log               *zap.SugaredLogger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithSemantic enables the semantic strategy.
func WithSemantic(s SemanticSearcher) ResolverOption {
	return func(r *Resolver) { r.semantic = s }
}

// WithCache shares a query cache. Without it each Resolver gets its own.
func WithCache(c *cache.SemanticCache) ResolverOption {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
	}
}

func WithThresholds(fuzzy int, semantic float64) ResolverOption {
	return func(r *Resolver) {
		r.fuzzyThreshold = fuzzy
		r.semanticThreshold = semantic
	}
}

func WithResolverLogger(l *zap.SugaredLogger) ResolverOption {
	return func(r *Resolver) { r.log = logger.OrNop(l) }
}

func NewResolver(catalog port.CatalogProvider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		catalog:           catalog,
		cache:             cache.NewSemanticCache(),
		fuzzyThreshold:    DefaultFuzzyThreshold,
		semanticThreshold: DefaultSemanticThreshold,
		log:               zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache returns the resolver's query cache.
func (r *Resolver) Cache() *cache.SemanticCache {
	return r.cache
}

// Resolve returns the matches of the first strategy that finds any, in
// discovery order. No match is an empty slice and a nil error.
func (r *Resolver) Resolve(ctx context.Context, query string) ([]domain.Match, error) {
	items, err := r.catalog.Items(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}

	strategies := []struct {
		name domain.Method
		run  strategy
	}{
		{domain.MethodExact, r.exact},
		{domain.MethodFuzzy, r.fuzzy},
		{domain.MethodSubstring, r.substring},
		{domain.MethodSemantic, r.semanticMatch},
	}
	for _, s := range strategies {
		matches, err := s.run(ctx, query, items)
		if err != nil {
			return nil, errors.Wrapf(err, "%s strategy", strings.ToLower(string(s.name)))
		}
		if len(matches) > 0 {
			r.log.Debugw("Resolved query",
				logger.FieldQuery, query,
				logger.FieldMethod, matches[0].Method,
				logger.FieldCount, len(matches),
			)
			return matches, nil
		}
	}

	r.log.Debugw("No match", logger.FieldQuery, query)
	return []domain.Match{}, nil
}

func (r *Resolver) exact(_ context.Context, query string, items []domain.CatalogItem) ([]domain.Match, error) {
	id := domain.NormalizeID(query)
	if id == "" {
		return nil, nil
	}
	for _, item := range items {
		if item.ID == id {
			return []domain.Match{{ID: item.ID, Method: domain.MethodExact}}, nil
		}
	}
	return nil, nil
}

func (r *Resolver) fuzzy(_ context.Context, query string, items []domain.CatalogItem) ([]domain.Match, error) {
	seen := make(map[string]bool, len(items))
	names := make([]string, 0, len(items))
	for _, item := range items {
		name := strings.ToLower(item.DisplayName)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	best, score, ok := analyzer.ExtractOne(strings.ToLower(query), names)
	if !ok || score < r.fuzzyThreshold {
		return nil, nil
	}

	var matches []domain.Match
	for _, item := range items {
		if strings.ToLower(item.DisplayName) == best {
			matches = append(matches, domain.Match{
				ID:     item.ID,
				Method: domain.MethodFuzzy,
				Score:  domain.Score(float64(score)),
			})
		}
	}
	return matches, nil
}

func (r *Resolver) substring(_ context.Context, query string, items []domain.CatalogItem) ([]domain.Match, error) {
	q := strings.ToLower(query)
	if q == "" {
		return nil, nil
	}
	var matches []domain.Match
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.DisplayName), q) {
			matches = append(matches, domain.Match{ID: item.ID, Method: domain.MethodSubstring})
		}
	}
	return matches, nil
}

func (r *Resolver) semanticMatch(ctx context.Context, query string, _ []domain.CatalogItem) ([]domain.Match, error) {
	if hit, ok := r.cache.Get(query); ok {
		return []domain.Match{{
			ID:     hit.ID,
			Method: domain.MethodSemanticCached,
			Score:  domain.Score(hit.Similarity),
		}}, nil
	}
	if r.semantic == nil || !r.semantic.Available() {
		return nil, nil
	}

	id, sim, ok, err := r.semantic.Best(ctx, query)
	if err != nil {
		return nil, err
	}
	if !ok || sim < r.semanticThreshold {
		r.log.Debugw("Semantic match below threshold",
			logger.FieldQuery, query,
			logger.FieldScore, sim,
		)
		return nil, nil
	}

	r.cache.Put(query, id, sim)
	return []domain.Match{{
		ID:     id,
		Method: domain.MethodSemantic,
		Score:  domain.Score(sim),
	}}, nil
}
