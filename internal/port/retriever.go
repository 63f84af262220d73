package port

import (
	"context"

	"demandcast/internal/domain"
)

// Resolver maps free text to inventory identifiers.
type Resolver interface {
	Resolve(ctx context.Context, query string) ([]domain.Match, error)
}
