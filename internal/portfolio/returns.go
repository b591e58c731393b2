package portfolio

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

// FirstDayReturn is the daily return assigned to the first aligned date.
// There is no prior close to compare against; treating it as 0 makes every
// cumulative series start at exactly 1.0.
const FirstDayReturn = 0.0

// TickerReturns holds per-ticker daily returns and cumulative multipliers
// over the aligned dates.
type TickerReturns struct {
	Dates      []time.Time
	Tickers    []string
	Daily      map[string][]float64
	Cumulative map[string][]float64
}

// PortfolioReturns is the weighted portfolio's daily return and cumulative
// multiplier over the aligned dates.
type PortfolioReturns struct {
	Dates      []time.Time
	Daily      []float64
	Cumulative []float64
}

// Final returns the last cumulative multiplier.
func (p *PortfolioReturns) Final() float64 { return p.Cumulative[len(p.Cumulative)-1] }

// dailyReturns computes (p[d]-p[d-1])/p[d-1], with FirstDayReturn at d=0.
func dailyReturns(closes []float64) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 {
		return out
	}
	out[0] = FirstDayReturn
	for i := 1; i < len(closes); i++ {
		out[i] = (closes[i] - closes[i-1]) / closes[i-1]
	}
	return out
}

// compound returns the running product of (1 + daily).
func compound(daily []float64) []float64 {
	out := make([]float64, len(daily))
	for i, r := range daily {
		out[i] = 1 + r
	}
	return floats.CumProd(out, out)
}

// ComputeTickerReturns aligns prices and computes each remaining ticker's
// daily returns and cumulative multiplier.
func ComputeTickerReturns(prices *PriceTable, exclusions ExclusionSet) (*TickerReturns, error) {
	aligned, err := prices.Align(exclusions)
	if err != nil {
		return nil, err
	}
	return tickerReturns(aligned), nil
}

func tickerReturns(aligned *PriceTable) *TickerReturns {
	tr := &TickerReturns{
		Dates:      aligned.Dates,
		Tickers:    aligned.Tickers,
		Daily:      make(map[string][]float64, len(aligned.Tickers)),
		Cumulative: make(map[string][]float64, len(aligned.Tickers)),
	}
	for _, t := range aligned.Tickers {
		daily := dailyReturns(aligned.Close[t])
		tr.Daily[t] = daily
		tr.Cumulative[t] = compound(daily)
	}
	return tr
}

// ComputePortfolioReturns weights each ticker's daily return by the holdings
// weight in effect on that date and compounds the weighted sum.
//
// The weight ticker set must equal the post-exclusion price ticker set.
// Weights apply from their own date onwards; price dates before the first
// weight date precede tracking and are dropped.
func ComputePortfolioReturns(prices *PriceTable, weights *WeightTable, exclusions ExclusionSet) (*PortfolioReturns, error) {
	if weights == nil || len(weights.Dates) == 0 {
		return nil, fmt.Errorf("%w: weights were not computed", ErrDegenerateWeights)
	}
	aligned, err := prices.Align(exclusions)
	if err != nil {
		return nil, err
	}
	if err := matchColumns(weights.Tickers, aligned.Tickers); err != nil {
		return nil, err
	}

	tracked := aligned.since(weights.Dates[0])
	if len(tracked.Dates) == 0 {
		return nil, fmt.Errorf("%w: no price dates on or after %s", ErrEmptyInput, weights.Dates[0].Format(DayFormat))
	}
	tr := tickerReturns(tracked)

	n := len(tracked.Dates)
	pr := &PortfolioReturns{
		Dates: tracked.Dates,
		Daily: make([]float64, n),
	}
	w := make([]float64, len(weights.Tickers))
	r := make([]float64, len(weights.Tickers))
	for i, d := range tracked.Dates {
		wi := weights.asOf(d)
		for k, t := range weights.Tickers {
			w[k] = weights.Weights[t][wi]
			r[k] = tr.Daily[t][i]
		}
		pr.Daily[i] = floats.Dot(w, r)
	}
	pr.Cumulative = compound(pr.Daily)
	return pr, nil
}

// matchColumns fails with ErrColumnMismatch unless both sets are equal.
func matchColumns(weightTickers, priceTickers []string) error {
	inWeights := make(map[string]bool, len(weightTickers))
	for _, t := range weightTickers {
		inWeights[t] = true
	}
	inPrices := make(map[string]bool, len(priceTickers))
	var extra []string
	for _, t := range priceTickers {
		inPrices[t] = true
		if !inWeights[t] {
			extra = append(extra, t)
		}
	}
	var missing []string
	for _, t := range weightTickers {
		if !inPrices[t] {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return fmt.Errorf("%w: no prices for [%s], no weights for [%s]",
		ErrColumnMismatch, strings.Join(missing, " "), strings.Join(extra, " "))
}
