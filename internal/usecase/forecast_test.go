package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandcast/internal/adapter/memstore"
	"demandcast/internal/domain"
)

func history(id string, obs ...domain.Observation) *memstore.Snapshot {
	return memstore.NewSnapshot(
		[]domain.CatalogItem{{ID: id, DisplayName: id}},
		map[string][]domain.Observation{id: obs},
	)
}

func TestForecast_StockDepletion(t *testing.T) {
	records := history("INV001", domain.Observation{
		Date:          date(2025, 3, 1),
		ClosingStock:  ptr(10),
		MinStockLimit: ptr(10),
	})
	f := NewForecaster(records, constant(5), DefaultSeed, nil)

	points, err := f.Forecast(context.Background(), "INV001", 3, domain.MethodExact)
	require.NoError(t, err)
	require.Len(t, points, 3)

	want := []struct {
		date    string
		stock   float64
		warning bool
	}{
		{"2025-03-02", 10, true},
		{"2025-03-03", 5, true},
		{"2025-03-04", 0, true},
	}
	for i, w := range want {
		assert.Equal(t, w.date, points[i].Date)
		assert.Equal(t, w.stock, points[i].AvailableStock, "day %d", i+1)
		assert.Equal(t, w.warning, points[i].StockWarning, "day %d", i+1)
		assert.Equal(t, 5.0, points[i].PredictedConsumption)
		assert.Equal(t, "INV001", points[i].ID)
		assert.Equal(t, domain.MethodExact, points[i].Method)
	}
}

func TestForecast_ZeroConsumptionKeepsStock(t *testing.T) {
	records := history("INV001", domain.Observation{
		Date:          date(2025, 3, 1),
		ClosingStock:  ptr(40),
		MinStockLimit: ptr(10),
	})
	f := NewForecaster(records, constant(0), DefaultSeed, nil)

	points, err := f.Forecast(context.Background(), "INV001", 30, domain.MethodFuzzy)
	require.NoError(t, err)
	require.Len(t, points, 30)
	for _, p := range points {
		assert.Equal(t, 40.0, p.AvailableStock)
		assert.False(t, p.StockWarning)
	}
}

func TestForecast_HorizonZero(t *testing.T) {
	records := history("INV001", domain.Observation{Date: date(2025, 3, 1)})
	f := NewForecaster(records, constant(1), DefaultSeed, nil)

	points, err := f.Forecast(context.Background(), "INV001", 0, domain.MethodExact)
	require.NoError(t, err)
	assert.NotNil(t, points)
	assert.Empty(t, points)
}

func TestForecast_NoHistory(t *testing.T) {
	f := NewForecaster(history("INV001"), constant(1), DefaultSeed, nil)

	_, err := f.Forecast(context.Background(), "INV999", 7, domain.MethodExact)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoHistory))
	assert.Equal(t, domain.KindNoHistory, domain.KindOf(err))
}

func TestForecast_PredictorFailure(t *testing.T) {
	records := history("INV001", domain.Observation{Date: date(2025, 3, 1)})
	broken := predictorFunc(func(domain.Features) (float64, error) {
		return 0, errors.New("model not loaded")
	})
	f := NewForecaster(records, broken, DefaultSeed, nil)

	_, err := f.Forecast(context.Background(), "INV001", 3, domain.MethodExact)
	require.Error(t, err)
	assert.Equal(t, domain.KindPredictorFailure, domain.KindOf(err))
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestForecast_ClampsPredictions(t *testing.T) {
	records := history("INV001", domain.Observation{Date: date(2025, 3, 1)})
	values := []float64{-3, math.NaN(), 2}
	i := 0
	f := NewForecaster(records, predictorFunc(func(domain.Features) (float64, error) {
		v := values[i]
		i++
		return v, nil
	}), DefaultSeed, nil)

	points, err := f.Forecast(context.Background(), "INV001", 3, domain.MethodExact)
	require.NoError(t, err)
	assert.Equal(t, 0.0, points[0].PredictedConsumption)
	assert.Equal(t, 0.0, points[1].PredictedConsumption)
	assert.Equal(t, 2.0, points[2].PredictedConsumption)
	assert.Equal(t, 100.0, points[2].AvailableStock)
}

func TestForecast_FeaturesAndLagWindow(t *testing.T) {
	// Eight days of history, unsorted, ending Sunday 2025-03-09.
	var obs []domain.Observation
	for d := 9; d >= 2; d-- {
		obs = append(obs, domain.Observation{
			Date:             date(2025, 3, d),
			QuantityConsumed: ptr(float64(d)),
			ClosingStock:     ptr(200),
			LeadTimeDays:     ptr(5),
			MaxCapacity:      ptr(800),
		})
	}
	obs[0].QuantityConsumed = nil // 2025-03-09 missing

	var seen []domain.Features
	rec := predictorFunc(func(f domain.Features) (float64, error) {
		seen = append(seen, f)
		return 50, nil
	})
	f := NewForecaster(history("INV001", obs...), rec, DefaultSeed, nil)

	_, err := f.Forecast(context.Background(), "INV001", 2, domain.MethodExact)
	require.NoError(t, err)
	require.Len(t, seen, 2)

	first := seen[0]
	assert.Equal(t, [domain.LagWindow]float64{0, 8, 7, 6, 5, 4, 3}, first.Lags)
	assert.Equal(t, 200.0, first.OpeningStock)
	assert.Equal(t, 200.0, first.ClosingStock)
	assert.Equal(t, 0.0, first.QuantityRestocked)
	assert.Equal(t, 5.0, first.LeadTimeDays)
	assert.Equal(t, 10.0, first.MinStockLimit, "default minimum")
	assert.Equal(t, 800.0, first.MaxCapacity)
	assert.Equal(t, 0, first.DayOfWeek, "2025-03-10 is a Monday")
	assert.Equal(t, 4, first.Month, "month after the 2025-03-09 seed")

	second := seen[1]
	assert.Equal(t, [domain.LagWindow]float64{50, 0, 8, 7, 6, 5, 4}, second.Lags)
	assert.Equal(t, 150.0, second.OpeningStock)
	assert.Equal(t, 1, second.DayOfWeek)
}

func TestForecast_SeedDefaultsAndMonthWrap(t *testing.T) {
	var seen []domain.Features
	rec := predictorFunc(func(f domain.Features) (float64, error) {
		seen = append(seen, f)
		return 0, nil
	})
	f := NewForecaster(history("INV001", domain.Observation{Date: date(2025, 12, 31)}), rec, DefaultSeed, nil)

	points, err := f.Forecast(context.Background(), "INV001", 1, domain.MethodExact)
	require.NoError(t, err)
	require.Len(t, seen, 1)

	assert.Equal(t, "2026-01-01", points[0].Date)
	assert.Equal(t, 1, seen[0].Month)
	assert.Equal(t, int(time.Thursday-time.Monday), seen[0].DayOfWeek)
	assert.Equal(t, 100.0, seen[0].OpeningStock)
	assert.Equal(t, 3.0, seen[0].LeadTimeDays)
	assert.Equal(t, 500.0, seen[0].MaxCapacity)
	assert.Equal(t, [domain.LagWindow]float64{}, seen[0].Lags)
}

func TestForecast_MonthFollowsPreviousDay(t *testing.T) {
	var seen []domain.Features
	rec := predictorFunc(func(f domain.Features) (float64, error) {
		seen = append(seen, f)
		return 0, nil
	})
	f := NewForecaster(history("INV001", domain.Observation{Date: date(2025, 6, 15)}), rec, DefaultSeed, nil)

	points, err := f.Forecast(context.Background(), "INV001", 17, domain.MethodExact)
	require.NoError(t, err)
	require.Len(t, seen, 17)

	assert.Equal(t, "2025-06-16", points[0].Date)
	assert.Equal(t, 7, seen[0].Month)
	assert.Equal(t, "2025-07-01", points[15].Date)
	assert.Equal(t, 7, seen[15].Month, "previous day is still June")
	assert.Equal(t, "2025-07-02", points[16].Date)
	assert.Equal(t, 8, seen[16].Month)
}

func TestRollingState_AdvanceIsValueSemantics(t *testing.T) {
	s := rollingState{stock: 3, lags: [domain.LagWindow]float64{1, 2, 3, 4, 5, 6, 7}}
	next := s.advance(5)

	assert.Equal(t, 3.0, s.stock)
	assert.Equal(t, 1.0, s.lags[0])
	assert.Equal(t, 0.0, next.stock)
	assert.Equal(t, [domain.LagWindow]float64{5, 1, 2, 3, 4, 5, 6}, next.lags)
}
