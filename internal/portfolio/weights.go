package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// WeightTable holds, per date, each included ticker's fraction of total shares.
type WeightTable struct {
	Dates   []time.Time
	Tickers []string
	Weights map[string][]float64
}

// asOf returns the index of the latest weight date on or before d, or -1.
func (w *WeightTable) asOf(d time.Time) int {
	i := sort.Search(len(w.Dates), func(i int) bool { return w.Dates[i].After(d) })
	return i - 1
}

// ComputeWeights normalizes share counts into per-date weights:
// weight = shares / sum(shares of included tickers) on that date.
// A date whose included shares sum to zero fails with ErrDegenerateWeights.
func ComputeWeights(holdings *HoldingsRecord, exclusions ExclusionSet) (*WeightTable, error) {
	if holdings == nil {
		return nil, errors.New("holdings record is nil")
	}
	if err := holdings.Validate(); err != nil {
		return nil, err
	}

	tickers := exclusions.Filter(holdings.Tickers())
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: no tickers left after exclusions", ErrDegenerateWeights)
	}
	dates := holdings.Dates()
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: holdings record has no dated share counts", ErrDegenerateWeights)
	}

	wt := &WeightTable{
		Dates:   dates,
		Tickers: tickers,
		Weights: make(map[string][]float64, len(tickers)),
	}
	for _, t := range tickers {
		wt.Weights[t] = make([]float64, len(dates))
	}

	for i, d := range dates {
		total := decimal.Zero
		for _, t := range tickers {
			total = total.Add(holdings.Shares[t][d])
		}
		if !total.IsPositive() {
			return nil, fmt.Errorf("%w: total shares are zero on %s", ErrDegenerateWeights, d.Format(DayFormat))
		}
		for _, t := range tickers {
			wt.Weights[t][i] = holdings.Shares[t][d].Div(total).InexactFloat64()
		}
	}
	return wt, nil
}
