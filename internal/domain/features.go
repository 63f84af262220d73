package domain

import (
	"strconv"

	"github.com/cockroachdb/errors"
)

// LagWindow is the number of recent daily consumption values fed to the predictor.
const LagWindow = 7

// Features is the fixed input schema of the consumption predictor.
// Lags[0] is the most recent day.
type Features struct {
	OpeningStock      float64
	ClosingStock      float64
	QuantityRestocked float64
	LeadTimeDays      float64
	MinStockLimit     float64
	MaxCapacity       float64
	DayOfWeek         int
	Month             int
	Lags              [LagWindow]float64
}

// FeatureNames is the canonical column order the model was trained with.
// Lead time appears twice because the training data carried it under both spellings.
var FeatureNames = []string{
	"Opening_Stock",
	"Closing_Stock",
	"Quantity_Restocked",
	"Lead_Time_Days",
	"lead_time_days",
	"min_stock_limit",
	"max_capacity",
	"day_of_week",
	"month",
	"lag_1", "lag_2", "lag_3", "lag_4", "lag_5", "lag_6", "lag_7",
}

// Map returns the features keyed by column name.
func (f Features) Map() map[string]float64 {
	m := map[string]float64{
		"Opening_Stock":      f.OpeningStock,
		"Closing_Stock":      f.ClosingStock,
		"Quantity_Restocked": f.QuantityRestocked,
		"Lead_Time_Days":     f.LeadTimeDays,
		"lead_time_days":     f.LeadTimeDays,
		"min_stock_limit":    f.MinStockLimit,
		"max_capacity":       f.MaxCapacity,
		"day_of_week":        float64(f.DayOfWeek),
		"month":              float64(f.Month),
	}
	for i, v := range f.Lags {
		m["lag_"+strconv.Itoa(i+1)] = v
	}
	return m
}

// Vector lays the features out in the given column order.
func (f Features) Vector(names []string) ([]float64, error) {
	m := f.Map()
	out := make([]float64, len(names))
	for i, name := range names {
		v, ok := m[name]
		if !ok {
			return nil, errors.Newf("unknown feature %q", name)
		}
		out[i] = v
	}
	return out, nil
}
