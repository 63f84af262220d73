package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"demandcast/config"
	"demandcast/internal/adapter/embedding"
	"demandcast/internal/adapter/fs"
	"demandcast/internal/adapter/memstore"
	"demandcast/internal/adapter/predictor"
	"demandcast/internal/adapter/retriever"
	"demandcast/internal/adapter/source"
	"demandcast/internal/adapter/store"
	"demandcast/internal/logger"
	"demandcast/internal/port"
	"demandcast/internal/usecase"
)

// app holds every component built from the configuration.
type app struct {
	cfg       *config.Config
	root      string
	snapshot  *memstore.Snapshot
	pool      *pgxpool.Pool
	postgres  *source.Postgres
	bolt      *store.BoltStore
	embedder  port.Embedder
	vectors   port.VectorStore
	indexer   *usecase.IndexUseCase
	resolver  *usecase.Resolver
	assistant *usecase.Assistant
}

type buildOptions struct {
	predictor bool // load the regression model
	rebuild   bool // clear the vector index first
}

func buildApp(ctx context.Context, cfg *config.Config, root string, opts buildOptions) (*app, error) {
	a := &app{cfg: cfg, root: root}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var src port.Source
	switch cfg.Catalog.Source {
	case "files", "":
		files, err := source.LoadFiles(a.path(cfg.Catalog.Dir), fs.NewWalker(cfg.Catalog.Includes, cfg.Catalog.Excludes), logger.Named("source"))
		if err != nil {
			return nil, err
		}
		src = files
	case "postgres":
		pool, err := a.database(ctx)
		if err != nil {
			return nil, err
		}
		a.postgres = source.NewPostgres(pool)
		src = a.postgres
	default:
		return nil, errors.Newf("unknown catalog source %q", cfg.Catalog.Source)
	}

	snap, err := memstore.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	a.snapshot = snap
	logger.Logger.Infow("Catalog loaded", logger.FieldCount, snap.Len(), logger.FieldSource, cfg.Catalog.Source)

	resolverOpts := []usecase.ResolverOption{
		usecase.WithThresholds(cfg.Resolver.FuzzyThreshold, cfg.Resolver.SemanticThreshold),
		usecase.WithResolverLogger(logger.Named("resolver")),
	}
	if cfg.Embedding.Enabled {
		if err := a.openIndex(ctx, opts.rebuild); err != nil {
			return nil, err
		}
		resolverOpts = append(resolverOpts, usecase.WithSemantic(retriever.NewSemanticSearcher(a.vectors, a.embedder)))
	}
	a.resolver = usecase.NewResolver(snap, resolverOpts...)

	if opts.predictor {
		pred, err := a.newPredictor()
		if err != nil {
			return nil, err
		}
		seed := usecase.SeedDefaults{
			ClosingStock:  cfg.Forecast.ClosingStock,
			MinStockLimit: cfg.Forecast.MinStockLimit,
			LeadTimeDays:  cfg.Forecast.LeadTimeDays,
			MaxCapacity:   cfg.Forecast.MaxCapacity,
		}
		forecaster := usecase.NewForecaster(snap, pred, seed, logger.Named("forecast"))
		a.assistant = usecase.NewAssistant(a.resolver, forecaster, cfg.Forecast.DefaultHorizon, logger.Named("assistant"))
	}

	ok = true
	return a, nil
}

// path resolves p against the project directory.
func (a *app) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.root, p)
}

func (a *app) database(ctx context.Context) (*pgxpool.Pool, error) {
	if a.pool != nil {
		return a.pool, nil
	}
	pool, err := source.Connect(ctx, os.Getenv(a.cfg.Catalog.DatabaseURLEnv))
	if err != nil {
		return nil, err
	}
	a.pool = pool
	return pool, nil
}

func (a *app) openIndex(ctx context.Context, rebuild bool) error {
	emb, err := newEmbedder(a.cfg.Embedding)
	if err != nil {
		return err
	}
	a.embedder = emb

	var ledger usecase.NameLedger
	switch a.cfg.Index.Backend {
	case "bolt", "":
		if err := config.EnsureDataDir(a.root); err != nil {
			return errors.Wrap(err, "create data directory")
		}
		st, err := store.NewBoltStore(config.IndexDBPath(a.root))
		if err != nil {
			return errors.Wrap(err, "open index store")
		}
		a.bolt = st

		migration, err := st.CheckMigration(a.cfg)
		if err != nil {
			return err
		}
		switch {
		case rebuild || migration.NeedsRebuild:
			reason := migration.Reason
			if rebuild {
				reason = "requested"
			}
			logger.Logger.Infow("Rebuilding vector index", logger.FieldReason, reason)
			if err := st.Clear(); err != nil {
				return errors.Wrap(err, "clear index")
			}
		case migration.NeedsMigration:
			logger.Logger.Infow("Migrating index schema", logger.FieldReason, migration.Reason)
		}
		if err := st.Migrate(a.cfg); err != nil {
			return err
		}

		vs, err := store.NewBoltVectorStore(st.DB(), emb.Dimension())
		if err != nil {
			return err
		}
		a.vectors = vs
		ledger = st
	case "postgres":
		pool, err := a.database(ctx)
		if err != nil {
			return err
		}
		a.vectors = store.NewPGVectorStore(pool, emb.Dimension())
	default:
		return errors.Newf("unknown index backend %q", a.cfg.Index.Backend)
	}

	a.indexer = usecase.NewIndexUseCase(a.snapshot, emb, a.vectors, ledger, a.cfg.Embedding.BatchSize, logger.Named("index"))
	return nil
}

func newEmbedder(c config.EmbeddingConfig) (port.Embedder, error) {
	opts := []embedding.Option{
		embedding.WithRateLimit(c.RequestsPerSecond),
		embedding.WithDimension(c.Dimension),
	}
	var (
		emb port.Embedder
		err error
	)
	switch c.Provider {
	case "openai":
		if c.BaseURL != "" {
			emb, err = embedding.NewOpenAICompatibleEmbedder(c.APIKeyEnv, c.Model, c.BaseURL, opts...)
		} else {
			emb, err = embedding.NewOpenAIEmbedder(c.APIKeyEnv, c.Model, opts...)
		}
	case "jina":
		emb, err = embedding.NewJinaEmbedder(c.APIKeyEnv, c.Model, opts...)
	case "ollama":
		emb, err = embedding.NewOllamaEmbedder(c.Model, c.BaseURL, opts...)
	case "mock":
		emb = embedding.NewMockEmbedder(c.Dimension)
	default:
		return nil, errors.Newf("unsupported embedding provider: %s", c.Provider)
	}
	if err != nil {
		return nil, errors.Wrap(err, "create embedder")
	}
	return emb, nil
}

func (a *app) newPredictor() (port.Predictor, error) {
	switch a.cfg.Predictor.Kind {
	case "xgboost", "":
		return predictor.LoadBooster(a.path(a.cfg.Predictor.ModelPath))
	case "http":
		return predictor.NewHTTPPredictor(a.cfg.Predictor.URL, nil)
	default:
		return nil, errors.Newf("unknown predictor kind %q", a.cfg.Predictor.Kind)
	}
}

func (a *app) Close() {
	if a.bolt != nil {
		_ = a.bolt.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
