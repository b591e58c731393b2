package portfolio

import "errors"

// Errors returned by the return pipeline. Callers match them with errors.Is;
// the wrapped message carries the offending date or tickers.
var (
	// ErrDegenerateWeights means total holdings were zero (or negative) on a date.
	ErrDegenerateWeights = errors.New("degenerate weights")
	// ErrColumnMismatch means the weight and price ticker sets disagree.
	ErrColumnMismatch = errors.New("weight/price ticker mismatch")
	// ErrEmptyInput means no usable aligned dates survived gap dropping.
	ErrEmptyInput = errors.New("no usable aligned dates")
	// ErrMissingStartMarker means the holdings record has no start date.
	ErrMissingStartMarker = errors.New("holdings record has no start date")
)
