package domain

import "github.com/cockroachdb/errors"

// Sentinel errors, checked with errors.Is after wrapping.
var (
	// ErrNotFound means no resolution strategy produced a match.
	ErrNotFound = errors.New("inventory item not found")

	// ErrNoHistory means a resolved id has no historical series.
	ErrNoHistory = errors.New("no historical data")

	// ErrPredictorFailure means the regression predictor returned an error.
	ErrPredictorFailure = errors.New("predictor failure")
)

// KindOf maps an error to the kind reported to callers.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNoHistory):
		return KindNoHistory
	case errors.Is(err, ErrPredictorFailure):
		return KindPredictorFailure
	default:
		return KindInternal
	}
}
