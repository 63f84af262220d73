package domain

import (
	"strings"
	"time"
)

// CatalogItem is one stocked item known to the resolver.
type CatalogItem struct {
	ID          string
	DisplayName string
	Embedding   []float32
}

// NormalizeID returns the canonical form of an inventory identifier:
// uppercase with all whitespace removed.
func NormalizeID(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// Observation is one day of inventory history. Nil fields are missing values.
type Observation struct {
	Date              time.Time
	OpeningStock      *float64
	ClosingStock      *float64
	QuantityConsumed  *float64
	QuantityRestocked *float64
	LeadTimeDays      *float64
	MinStockLimit     *float64
	MaxCapacity       *float64
}

// Method names the resolution strategy that produced a match.
type Method string

const (
	MethodExact          Method = "Exact"
	MethodFuzzy          Method = "Fuzzy"
	MethodSubstring      Method = "Substring"
	MethodSemantic       Method = "Semantic"
	MethodSemanticCached Method = "SemanticCached"
)

// Match is one resolved identifier.
type Match struct {
	ID     string   `json:"inventory_id"`
	Method Method   `json:"search_method"`
	Score  *float64 `json:"score"`
}

// ForecastPoint is the prediction for one item on one day.
type ForecastPoint struct {
	Date                 string  `json:"date"`
	ID                   string  `json:"inventory_id"`
	PredictedConsumption float64 `json:"predicted_consumption"`
	AvailableStock       float64 `json:"available_stock"`
	StockWarning         bool    `json:"stock_warning"`
	Method               Method  `json:"search_method"`
}

// ErrorKind classifies a reported failure.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindNoHistory        ErrorKind = "no_history"
	KindPredictorFailure ErrorKind = "predictor_failure"
	KindInternal         ErrorKind = "internal"
)

// ErrorRecord is a failure reported in place of forecast points.
type ErrorRecord struct {
	Kind    ErrorKind `json:"kind"`
	ID      string    `json:"inventory_id,omitempty"`
	Method  Method    `json:"search_method,omitempty"`
	Message string    `json:"error"`
}

// Outcome is one entry of an answer: exactly one of Point or Error is set.
type Outcome struct {
	Point *ForecastPoint `json:"point,omitempty"`
	Error *ErrorRecord   `json:"error,omitempty"`
}

// Score returns a pointer to v, for Match.Score.
func Score(v float64) *float64 {
	return &v
}
