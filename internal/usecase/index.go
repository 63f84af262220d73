package usecase

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"demandcast/internal/adapter/embedding"
	"demandcast/internal/domain"
	"demandcast/internal/logger"
	"demandcast/internal/port"
)

// NameLedger records which display name each stored vector was built from,
// so unchanged items are not embedded again.
type NameLedger interface {
	IndexedNames() (map[string]string, error)
	PutIndexedNames(names map[string]string) error
	DeleteIndexedNames(ids []string) error
}

// IndexUseCase embeds catalog display names into the vector index.
type IndexUseCase struct {
	catalog   port.CatalogProvider
	embedder  port.Embedder
	vectors   port.VectorStore
	ledger    NameLedger
	batchSize int
	log       *zap.SugaredLogger
}

// NewIndexUseCase creates an index use case. A nil ledger re-embeds every item
// on each build.
func NewIndexUseCase(
	catalog port.CatalogProvider,
	embedder port.Embedder,
	vectors port.VectorStore,
	ledger NameLedger,
	batchSize int,
	log *zap.SugaredLogger,
) *IndexUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &IndexUseCase{
		catalog:   catalog,
		embedder:  embedder,
		vectors:   vectors,
		ledger:    ledger,
		batchSize: batchSize,
		log:       logger.OrNop(log),
	}
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	Embedded int
	Skipped  int
	Deleted  int
}

// ProgressFunc is called after each embedded batch.
type ProgressFunc func(done, total int)

// Build brings the vector index in line with the catalog: new or renamed items
// are embedded, unchanged ones skipped and vanished ones removed. Items without
// a display name are left out of the index.
func (u *IndexUseCase) Build(ctx context.Context, progress ProgressFunc) (*IndexResult, error) {
	items, err := u.catalog.Items(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}

	existing := map[string]string{}
	if u.ledger != nil {
		if existing, err = u.ledger.IndexedNames(); err != nil {
			return nil, errors.Wrap(err, "read indexed names")
		}
	}

	result := &IndexResult{}
	seen := make(map[string]bool, len(items))
	var pending []domain.CatalogItem
	for _, item := range items {
		if seen[item.ID] || strings.TrimSpace(item.DisplayName) == "" {
			continue
		}
		seen[item.ID] = true
		if name, ok := existing[item.ID]; ok && name == item.DisplayName {
			result.Skipped++
			continue
		}
		pending = append(pending, item)
	}

	var stale []string
	for id := range existing {
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := u.vectors.Delete(ctx, stale); err != nil {
			return nil, errors.Wrap(err, "delete stale vectors")
		}
		if err := u.ledger.DeleteIndexedNames(stale); err != nil {
			return nil, errors.Wrap(err, "delete stale names")
		}
		result.Deleted = len(stale)
	}

	for start := 0; start < len(pending); start += u.batchSize {
		end := min(start+u.batchSize, len(pending))
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, item := range batch {
			texts[i] = item.DisplayName
		}
		vecs, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return result, errors.Wrap(err, "embed batch")
		}
		if len(vecs) != len(batch) {
			return result, errors.Newf("embedder returned %d vectors for %d names", len(vecs), len(batch))
		}

		vectorItems := make([]port.VectorItem, len(batch))
		names := make(map[string]string, len(batch))
		for i, item := range batch {
			vectorItems[i] = port.VectorItem{
				ID:       item.ID,
				Vector:   embedding.Normalize(vecs[i]),
				Metadata: map[string]string{"name": item.DisplayName},
			}
			names[item.ID] = item.DisplayName
		}
		if err := u.vectors.Upsert(ctx, vectorItems); err != nil {
			return result, errors.Wrap(err, "store vectors")
		}
		if u.ledger != nil {
			if err := u.ledger.PutIndexedNames(names); err != nil {
				return result, errors.Wrap(err, "record indexed names")
			}
		}

		result.Embedded += len(batch)
		if progress != nil {
			progress(result.Embedded, len(pending))
		}
	}

	u.log.Infow("Index built",
		logger.FieldEmbedded, result.Embedded,
		logger.FieldSkipped, result.Skipped,
		logger.FieldDeleted, result.Deleted,
	)
	return result, nil
}
