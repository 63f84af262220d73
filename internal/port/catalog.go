package port

import (
	"context"

	"demandcast/internal/domain"
)

// CatalogProvider lists every stocked item.
type CatalogProvider interface {
	Items(ctx context.Context) ([]domain.CatalogItem, error)
}

// RecordProvider returns the historical series for an item, in any order.
// An unknown id yields an empty series, not an error.
type RecordProvider interface {
	Series(ctx context.Context, id string) ([]domain.Observation, error)
}

// Source is a data source that provides both.
type Source interface {
	CatalogProvider
	RecordProvider
}
