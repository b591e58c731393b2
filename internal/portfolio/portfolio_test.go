package portfolio

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	d1 = time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC)
	d2 = time.Date(2021, 9, 2, 0, 0, 0, 0, time.UTC)
	d3 = time.Date(2021, 9, 3, 0, 0, 0, 0, time.UTC)
)

func record(start time.Time, shares map[string][]float64, dates ...time.Time) *HoldingsRecord {
	r := &HoldingsRecord{StartDate: start, Shares: map[string]map[time.Time]decimal.Decimal{}}
	for t, counts := range shares {
		byDay := map[time.Time]decimal.Decimal{}
		for i, n := range counts {
			byDay[dates[i]] = decimal.NewFromFloat(n)
		}
		r.Shares[t] = byDay
	}
	return r
}

func table(dates []time.Time, closes map[string][]float64, tickers ...string) *PriceTable {
	p := NewPriceTable(dates, tickers)
	for t, col := range closes {
		copy(p.Close[t], col)
	}
	return p
}

func TestComputeWeightsEqualHoldings(t *testing.T) {
	h := record(d1, map[string][]float64{"AAA": {10, 10}, "BBB": {10, 10}}, d1, d2)

	w, err := ComputeWeights(h, ExclusionSet{})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, w.Tickers)
	assert.Equal(t, []time.Time{d1, d2}, w.Dates)
	assert.Equal(t, []float64{0.5, 0.5}, w.Weights["AAA"])
	assert.Equal(t, []float64{0.5, 0.5}, w.Weights["BBB"])
}

func TestComputeWeightsSumToOne(t *testing.T) {
	h := record(d1, map[string][]float64{
		"AAA": {3, 7, 0.5},
		"BBB": {11, 0, 1.25},
		"CCC": {1.5, 13, 9},
	}, d1, d2, d3)

	w, err := ComputeWeights(h, ExclusionSet{})
	require.NoError(t, err)
	for i := range w.Dates {
		sum := 0.0
		for _, tk := range w.Tickers {
			v := w.Weights[tk][i]
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "date %d", i)
	}
}

func TestComputeWeightsExclusions(t *testing.T) {
	h := record(d1, map[string][]float64{"AAA": {10}, "BBB": {30}, "AFRM": {-5}}, d1)
	// negative shares are invalid even for an excluded ticker
	_, err := ComputeWeights(h, NewExclusionSet(Exclusion{Symbol: "afrm", Reason: "short position"}))
	require.ErrorIs(t, err, ErrDegenerateWeights)

	h = record(d1, map[string][]float64{"AAA": {10}, "BBB": {30}, "AFRM": {5}}, d1)
	w, err := ComputeWeights(h, NewExclusionSet(Exclusion{Symbol: "afrm", Reason: "short position"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, w.Tickers)
	assert.InDelta(t, 0.25, w.Weights["AAA"][0], 1e-12)
	assert.InDelta(t, 0.75, w.Weights["BBB"][0], 1e-12)
}

func TestComputeWeightsErrors(t *testing.T) {
	tests := []struct {
		name string
		h    *HoldingsRecord
		ex   ExclusionSet
		want error
	}{
		{
			name: "zero total",
			h:    record(d1, map[string][]float64{"AAA": {10, 0}, "BBB": {5, 0}}, d1, d2),
			want: ErrDegenerateWeights,
		},
		{
			name: "only excluded holdings",
			h:    record(d1, map[string][]float64{"AAA": {0}, "AFRM": {5}}, d1),
			ex:   NewExclusionSet(Exclusion{Symbol: "AFRM"}),
			want: ErrDegenerateWeights,
		},
		{
			name: "everything excluded",
			h:    record(d1, map[string][]float64{"AFRM": {5}}, d1),
			ex:   NewExclusionSet(Exclusion{Symbol: "AFRM"}),
			want: ErrDegenerateWeights,
		},
		{
			name: "no start date",
			h:    record(time.Time{}, map[string][]float64{"AAA": {10}}, d1),
			want: ErrMissingStartMarker,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ComputeWeights(tt.h, tt.ex)
			assert.Nil(t, w)
			assert.True(t, errors.Is(err, tt.want), "got %v want %v", err, tt.want)
		})
	}
}

func TestHoldingsRecordValidateGaps(t *testing.T) {
	h := record(d1, map[string][]float64{"AAA": {10, 10}}, d1, d2)
	h.Shares["BBB"] = map[time.Time]decimal.Decimal{d1: decimal.NewFromInt(3)}
	err := h.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BBB")
}

func TestTickerReturnsTwoDates(t *testing.T) {
	p := table([]time.Time{d1, d2}, map[string][]float64{"AAA": {100, 110}, "BBB": {50, 45}}, "AAA", "BBB")

	tr, err := ComputeTickerReturns(p, ExclusionSet{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, tr.Daily["AAA"][0])
	assert.InDelta(t, 0.10, tr.Daily["AAA"][1], 1e-12)
	assert.InDelta(t, -0.10, tr.Daily["BBB"][1], 1e-12)
	assert.Equal(t, 1.0, tr.Cumulative["AAA"][0])
	assert.Equal(t, 1.0, tr.Cumulative["BBB"][0])
	assert.InDelta(t, 1.10, tr.Cumulative["AAA"][1], 1e-12)
	assert.InDelta(t, 0.90, tr.Cumulative["BBB"][1], 1e-12)
}

func TestTickerReturnsIdempotentAndRoundTrip(t *testing.T) {
	dates := []time.Time{d1, d2, d3, d3.AddDate(0, 0, 1), d3.AddDate(0, 0, 4)}
	p := table(dates, map[string][]float64{
		"AAA": {101.3, 99.87, 104.2, 104.2, 97.01},
		"BBB": {12.5, 12.75, 12.1, 13.9, 14.05},
	}, "AAA", "BBB")

	first, err := ComputeTickerReturns(p, ExclusionSet{})
	require.NoError(t, err)
	second, err := ComputeTickerReturns(p, ExclusionSet{})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for _, tk := range first.Tickers {
		cum := first.Cumulative[tk]
		assert.Equal(t, 1.0, cum[0])
		for i := 1; i < len(cum); i++ {
			assert.InDelta(t, first.Daily[tk][i], cum[i]/cum[i-1]-1, 1e-12, "%s day %d", tk, i)
		}
	}
}

func TestTickerReturnsDropsGapDates(t *testing.T) {
	p := table([]time.Time{d1, d2, d3}, map[string][]float64{
		"AAA": {100, 101, 102},
		"BBB": {50, math.NaN(), 52},
	}, "AAA", "BBB")

	tr, err := ComputeTickerReturns(p, ExclusionSet{})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{d1, d3}, tr.Dates)
	assert.InDelta(t, 0.02, tr.Daily["AAA"][1], 1e-12)
	assert.InDelta(t, 0.04, tr.Daily["BBB"][1], 1e-12)

	w := &WeightTable{Dates: []time.Time{d1}, Tickers: []string{"AAA", "BBB"},
		Weights: map[string][]float64{"AAA": {0.5}, "BBB": {0.5}}}
	pr, err := ComputePortfolioReturns(p, w, ExclusionSet{})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{d1, d3}, pr.Dates)
}

func TestTickerReturnsGapLeavesOneRow(t *testing.T) {
	p := table([]time.Time{d1, d2}, map[string][]float64{
		"AAA": {100, 110},
		"BBB": {50, math.NaN()},
	}, "AAA", "BBB")

	tr, err := ComputeTickerReturns(p, ExclusionSet{})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{d1}, tr.Dates)
	assert.Equal(t, []float64{1.0}, tr.Cumulative["AAA"])
}

func TestTickerReturnsEmptyInput(t *testing.T) {
	p := table([]time.Time{d1, d2}, map[string][]float64{
		"AAA": {100, math.NaN()},
		"BBB": {math.NaN(), 45},
	}, "AAA", "BBB")

	_, err := ComputeTickerReturns(p, ExclusionSet{})
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = ComputeTickerReturns(NewPriceTable(nil, []string{"AAA"}), ExclusionSet{})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestTickerReturnsExcludedGapIgnored(t *testing.T) {
	p := table([]time.Time{d1, d2}, map[string][]float64{
		"AAA":  {100, 110},
		"AFRM": {80, math.NaN()},
	}, "AAA", "AFRM")

	tr, err := ComputeTickerReturns(p, NewExclusionSet(Exclusion{Symbol: "AFRM", Reason: "short position"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, tr.Tickers)
	assert.Len(t, tr.Dates, 2)
	assert.NotContains(t, tr.Cumulative, "AFRM")
}

func TestPortfolioReturnsOffsetting(t *testing.T) {
	p := table([]time.Time{d1, d2}, map[string][]float64{"AAA": {100, 110}, "BBB": {50, 45}}, "AAA", "BBB")
	h := record(d1, map[string][]float64{"AAA": {10, 10}, "BBB": {10, 10}}, d1, d2)
	w, err := ComputeWeights(h, ExclusionSet{})
	require.NoError(t, err)

	pr, err := ComputePortfolioReturns(p, w, ExclusionSet{})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{d1, d2}, pr.Dates)
	assert.Equal(t, 0.0, pr.Daily[0])
	assert.InDelta(t, 0.0, pr.Daily[1], 1e-12)
	assert.Equal(t, 1.0, pr.Cumulative[0])
	assert.InDelta(t, 1.0, pr.Cumulative[1], 1e-12)
	assert.InDelta(t, 1.0, pr.Final(), 1e-12)
}

func TestPortfolioReturnsColumnMismatch(t *testing.T) {
	p := table([]time.Time{d1, d2}, map[string][]float64{"AAA": {100, 110}, "CCC": {20, 21}}, "AAA", "CCC")
	w := &WeightTable{Dates: []time.Time{d1}, Tickers: []string{"AAA", "BBB"},
		Weights: map[string][]float64{"AAA": {0.5}, "BBB": {0.5}}}

	_, err := ComputePortfolioReturns(p, w, ExclusionSet{})
	require.ErrorIs(t, err, ErrColumnMismatch)
	assert.Contains(t, err.Error(), "BBB")
	assert.Contains(t, err.Error(), "CCC")
}

func TestPortfolioReturnsAsOfWeights(t *testing.T) {
	d0 := d1.AddDate(0, 0, -1)
	p := table([]time.Time{d0, d1, d2, d3}, map[string][]float64{
		"AAA": {90, 100, 110, 121},
		"BBB": {60, 50, 50, 55},
	}, "AAA", "BBB")
	w := &WeightTable{Dates: []time.Time{d1, d3}, Tickers: []string{"AAA", "BBB"},
		Weights: map[string][]float64{"AAA": {1, 0}, "BBB": {0, 1}}}

	pr, err := ComputePortfolioReturns(p, w, ExclusionSet{})
	require.NoError(t, err)
	// d0 precedes the first weight date
	assert.Equal(t, []time.Time{d1, d2, d3}, pr.Dates)
	assert.Equal(t, 0.0, pr.Daily[0])
	assert.InDelta(t, 0.10, pr.Daily[1], 1e-12) // AAA weight in effect
	assert.InDelta(t, 0.10, pr.Daily[2], 1e-12) // BBB weight from d3
	assert.InDelta(t, 1.21, pr.Cumulative[2], 1e-12)
}

func TestPortfolioReturnsBeforeTracking(t *testing.T) {
	p := table([]time.Time{d1, d2}, map[string][]float64{"AAA": {100, 110}}, "AAA")
	w := &WeightTable{Dates: []time.Time{d3}, Tickers: []string{"AAA"},
		Weights: map[string][]float64{"AAA": {1}}}

	_, err := ComputePortfolioReturns(p, w, ExclusionSet{})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestPortfolioReturnsWithoutWeights(t *testing.T) {
	p := table([]time.Time{d1}, map[string][]float64{"AAA": {100}}, "AAA")
	_, err := ComputePortfolioReturns(p, nil, ExclusionSet{})
	assert.ErrorIs(t, err, ErrDegenerateWeights)
}

func TestAlignRejectsUnsortedDates(t *testing.T) {
	p := table([]time.Time{d2, d1}, map[string][]float64{"AAA": {100, 110}}, "AAA")
	_, err := p.Align(ExclusionSet{})
	assert.Error(t, err)
}

func TestParseDay(t *testing.T) {
	for _, s := range []string{"2021-09-01", "2021-9-1", "09/01/2021", " 2021-09-01 "} {
		got, err := ParseDay(s)
		require.NoError(t, err, s)
		assert.Equal(t, d1, got, s)
	}
	_, err := ParseDay("Sept 1")
	assert.Error(t, err)
}
