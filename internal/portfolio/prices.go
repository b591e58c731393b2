package portfolio

import (
	"fmt"
	"math"
	"time"
)

// PriceTable is a date x ticker table of adjusted closes. A missing price is
// stored as NaN.
type PriceTable struct {
	Dates   []time.Time
	Tickers []string
	Close   map[string][]float64
}

// NewPriceTable returns a table with every cell missing.
func NewPriceTable(dates []time.Time, tickers []string) *PriceTable {
	p := &PriceTable{
		Dates:   append([]time.Time(nil), dates...),
		Tickers: append([]string(nil), tickers...),
		Close:   make(map[string][]float64, len(tickers)),
	}
	for _, t := range p.Tickers {
		col := make([]float64, len(p.Dates))
		for i := range col {
			col[i] = math.NaN()
		}
		p.Close[t] = col
	}
	return p
}

// Missing reports whether v cannot be used as a price.
func Missing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || v <= 0
}

func (p *PriceTable) check() error {
	for i := 1; i < len(p.Dates); i++ {
		if !p.Dates[i-1].Before(p.Dates[i]) {
			return fmt.Errorf("price dates not strictly ascending at %s", p.Dates[i].Format(DayFormat))
		}
	}
	for _, t := range p.Tickers {
		col, ok := p.Close[t]
		if ok && len(col) != len(p.Dates) {
			return fmt.Errorf("price column %s has %d rows, expected %d", t, len(col), len(p.Dates))
		}
	}
	return nil
}

// Align drops excluded tickers, then drops every date on which any remaining
// ticker lacks a usable price. Missing prices are never filled. It fails with
// ErrEmptyInput when no ticker or no date survives.
func (p *PriceTable) Align(exclusions ExclusionSet) (*PriceTable, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: no price table", ErrEmptyInput)
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	tickers := exclusions.Filter(p.Tickers)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: no tickers left after exclusions", ErrEmptyInput)
	}

	var keep []int
	for i := range p.Dates {
		complete := true
		for _, t := range tickers {
			col, ok := p.Close[t]
			if !ok || Missing(col[i]) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("%w: all %d dates have a missing price", ErrEmptyInput, len(p.Dates))
	}

	out := &PriceTable{
		Dates:   make([]time.Time, len(keep)),
		Tickers: tickers,
		Close:   make(map[string][]float64, len(tickers)),
	}
	for j, i := range keep {
		out.Dates[j] = p.Dates[i]
	}
	for _, t := range tickers {
		col := make([]float64, len(keep))
		for j, i := range keep {
			col[j] = p.Close[t][i]
		}
		out.Close[t] = col
	}
	return out, nil
}

// since returns the rows dated on or after from.
func (p *PriceTable) since(from time.Time) *PriceTable {
	start := len(p.Dates)
	for i, d := range p.Dates {
		if !d.Before(from) {
			start = i
			break
		}
	}
	out := &PriceTable{
		Dates:   p.Dates[start:],
		Tickers: p.Tickers,
		Close:   make(map[string][]float64, len(p.Tickers)),
	}
	for _, t := range p.Tickers {
		out.Close[t] = p.Close[t][start:]
	}
	return out
}
