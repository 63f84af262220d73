package port

import (
	"context"

	"demandcast/internal/domain"
)

// Predictor is the regression model that estimates one day's consumption.
type Predictor interface {
	Predict(ctx context.Context, features domain.Features) (float64, error)
}
