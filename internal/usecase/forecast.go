package usecase

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"demandcast/internal/domain"
	"demandcast/internal/logger"
	"demandcast/internal/port"
)

// SeedDefaults fill in seed fields the last historical row leaves empty.
type SeedDefaults struct {
	ClosingStock  float64
	MinStockLimit float64
	LeadTimeDays  float64
	MaxCapacity   float64
}

// DefaultSeed is used when no configuration overrides it.
var DefaultSeed = SeedDefaults{
	ClosingStock:  100,
	MinStockLimit: 10,
	LeadTimeDays:  3,
	MaxCapacity:   500,
}

// Forecaster simulates daily consumption one day at a time, feeding each
// prediction back into the lag window for the next day.
type Forecaster struct {
	records   port.RecordProvider
	predictor port.Predictor
	defaults  SeedDefaults
	log       *zap.SugaredLogger
}

func NewForecaster(records port.RecordProvider, predictor port.Predictor, defaults SeedDefaults, log *zap.SugaredLogger) *Forecaster {
	return &Forecaster{
		records:   records,
		predictor: predictor,
		defaults:  defaults,
		log:       logger.OrNop(log),
	}
}

// rollingState is the per-run simulation state. It is passed by value and
// never escapes one Forecast call.
type rollingState struct {
	stock    float64
	minStock float64
	leadTime float64
	capacity float64
	lags     [domain.LagWindow]float64
	date     time.Time
}

// advance shifts today's consumption into the window and draws stock down,
// never below zero.
func (s rollingState) advance(consumed float64) rollingState {
	copy(s.lags[1:], s.lags[:domain.LagWindow-1])
	s.lags[0] = consumed
	s.stock = math.Max(0, s.stock-consumed)
	return s
}

// Forecast returns one point per day for horizon days after the last observed
// date. An id without history fails with domain.ErrNoHistory; a predictor
// error fails with domain.ErrPredictorFailure.
func (f *Forecaster) Forecast(ctx context.Context, id string, horizon int, method domain.Method) ([]domain.ForecastPoint, error) {
	series, err := f.records.Series(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "load history for %s", id)
	}
	if len(series) == 0 {
		return nil, errors.Wrapf(domain.ErrNoHistory, "item %s", id)
	}
	if horizon <= 0 {
		return []domain.ForecastPoint{}, nil
	}

	state := f.seed(series)
	points := make([]domain.ForecastPoint, 0, min(horizon, 366))

	for d := 1; d <= horizon; d++ {
		day := state.date.AddDate(0, 0, d)

		features := domain.Features{
			OpeningStock:      state.stock,
			ClosingStock:      state.stock,
			QuantityRestocked: 0,
			LeadTimeDays:      state.leadTime,
			MinStockLimit:     state.minStock,
			MaxCapacity:       state.capacity,
			DayOfWeek:         mondayFirst(day.Weekday()),
			Month:             nextMonth(day.AddDate(0, 0, -1)),
			Lags:              state.lags,
		}

		predicted, err := f.predictor.Predict(ctx, features)
		if err != nil {
			return nil, errors.Mark(
				errors.Wrapf(err, "predict %s on %s", id, day.Format(time.DateOnly)),
				domain.ErrPredictorFailure,
			)
		}
		if math.IsNaN(predicted) || predicted < 0 {
			predicted = 0
		}

		points = append(points, domain.ForecastPoint{
			Date:                 day.Format(time.DateOnly),
			ID:                   id,
			PredictedConsumption: predicted,
			AvailableStock:       state.stock,
			StockWarning:         state.stock-predicted < state.minStock,
			Method:               method,
		})

		state = state.advance(predicted)
	}

	f.log.Debugw("Forecast complete",
		logger.FieldItemID, id,
		logger.FieldHorizon, horizon,
		logger.FieldStock, state.stock,
	)
	return points, nil
}

// seed builds the initial state from the latest observation, taking the lag
// window from the most recent seven consumption values.
func (f *Forecaster) seed(series []domain.Observation) rollingState {
	sorted := make([]domain.Observation, len(series))
	copy(sorted, series)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	last := sorted[len(sorted)-1]

	s := rollingState{
		stock:    valueOr(last.ClosingStock, f.defaults.ClosingStock),
		minStock: valueOr(last.MinStockLimit, f.defaults.MinStockLimit),
		leadTime: valueOr(last.LeadTimeDays, f.defaults.LeadTimeDays),
		capacity: valueOr(last.MaxCapacity, f.defaults.MaxCapacity),
		date:     last.Date,
	}
	for i := 0; i < domain.LagWindow && i < len(sorted); i++ {
		s.lags[i] = valueOr(sorted[len(sorted)-1-i].QuantityConsumed, 0)
	}
	return s
}

func valueOr(v *float64, def float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return def
	}
	return *v
}

// mondayFirst converts a weekday to Monday=0 ... Sunday=6.
func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// nextMonth returns the month after t's, 1-12. The model was fitted with this
// value computed from the previous day's row.
func nextMonth(t time.Time) int {
	return int(t.Month())%12 + 1
}
