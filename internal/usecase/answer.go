package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"demandcast/internal/domain"
	"demandcast/internal/logger"
	"demandcast/internal/port"
)

// ForecastRunner produces the daily trajectory for one resolved id.
type ForecastRunner interface {
	Forecast(ctx context.Context, id string, horizon int, method domain.Method) ([]domain.ForecastPoint, error)
}

// Assistant answers one free-text question: which items, and what they will
// consume over the requested period.
type Assistant struct {
	resolver       port.Resolver
	forecaster     ForecastRunner
	defaultHorizon int
	log            *zap.SugaredLogger
}

func NewAssistant(resolver port.Resolver, forecaster ForecastRunner, defaultHorizon int, log *zap.SugaredLogger) *Assistant {
	return &Assistant{
		resolver:       resolver,
		forecaster:     forecaster,
		defaultHorizon: defaultHorizon,
		log:            logger.OrNop(log),
	}
}

// NotFoundMessage is the user-facing text for a query nothing matched.
func NotFoundMessage(query string) string {
	return fmt.Sprintf("Sorry, I could not find any inventory item matching '%s'. Please provide a valid product name or Inventory ID.", query)
}

// Answer resolves the query and forecasts every match. Failures are reported
// as error outcomes: one for the whole query when resolution fails or finds
// nothing, otherwise one per failing id while the other ids still forecast.
func (a *Assistant) Answer(ctx context.Context, query string) (out []domain.Outcome) {
	start := time.Now()
	log := a.log.With(logger.FieldRequestID, uuid.NewString())

	defer func() {
		if r := recover(); r != nil {
			log.Errorw("Recovered panic while answering", logger.FieldQuery, query, logger.FieldError, r)
			out = []domain.Outcome{{Error: &domain.ErrorRecord{
				Kind:    domain.KindInternal,
				Message: fmt.Sprintf("internal error: %v", r),
			}}}
		}
	}()

	horizon := ExtractPeriod(query, a.defaultHorizon)
	log.Infow("Answering query", logger.FieldQuery, query, logger.FieldHorizon, horizon)

	matches, err := a.resolver.Resolve(ctx, query)
	if err != nil {
		log.Errorw("Resolve failed", logger.FieldQuery, query, logger.FieldError, err)
		return []domain.Outcome{{Error: &domain.ErrorRecord{
			Kind:    domain.KindInternal,
			Message: err.Error(),
		}}}
	}
	if len(matches) == 0 {
		log.Infow("No inventory item matched", logger.FieldQuery, query)
		return []domain.Outcome{{Error: &domain.ErrorRecord{
			Kind:    domain.KindNotFound,
			Message: NotFoundMessage(query),
		}}}
	}

	out = make([]domain.Outcome, 0, len(matches)*min(max(horizon, 1), 366))
	for _, m := range matches {
		points, err := a.forecaster.Forecast(ctx, m.ID, horizon, m.Method)
		if err != nil {
			log.Warnw("Forecast failed",
				logger.FieldItemID, m.ID,
				logger.FieldMethod, m.Method,
				logger.FieldError, err,
			)
			out = append(out, domain.Outcome{Error: &domain.ErrorRecord{
				Kind:    domain.KindOf(err),
				ID:      m.ID,
				Method:  m.Method,
				Message: err.Error(),
			}})
			continue
		}
		for i := range points {
			out = append(out, domain.Outcome{Point: &points[i]})
		}
	}

	log.Infow("Answered query",
		logger.FieldCount, len(out),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return out
}
