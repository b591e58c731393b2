package finance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"portfolioPlot/internal/portfolio"

	"github.com/rs/zerolog/log"
)

// SeriesCache keeps downloaded series between runs.
type SeriesCache interface {
	LoadSeries(symbol, rng, interval string, maxAge time.Duration) (days []time.Time, closes []float64, ok bool, err error)
	SaveSeries(symbol, rng, interval string, days []time.Time, closes []float64) error
}

// Provider builds price tables from Yahoo, consulting an optional cache first.
type Provider struct {
	client *Client
	cache  SeriesCache
	maxAge time.Duration
}

// NewProvider returns a provider. cache may be nil; cached series older than
// maxAge are downloaded again.
func NewProvider(client *Client, cache SeriesCache, maxAge time.Duration) *Provider {
	return &Provider{client: client, cache: cache, maxAge: maxAge}
}

// Fetch returns a date x ticker table of adjusted closes for every requested
// ticker. The date set is the union of all tickers' trading days; a ticker
// with no close on one of those days has a missing (NaN) cell there.
func (p *Provider) Fetch(ctx context.Context, tickers []string, period, interval string) (*portfolio.PriceTable, error) {
	w, err := ParseWindow(period, interval)
	if err != nil {
		return nil, err
	}
	symbols := uniqueTickers(tickers)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no tickers requested")
	}

	all := make([]Series, 0, len(symbols))
	for _, sym := range symbols {
		s, err := p.series(ctx, sym, w)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", sym, err)
		}
		if len(s.Days) == 0 {
			return nil, fmt.Errorf("no data available for %s", sym)
		}
		all = append(all, trimToTargetDays(s, w.TargetDays))
	}
	table := buildTable(all)
	log.Info().Int("tickers", len(table.Tickers)).Int("dates", len(table.Dates)).
		Str("range", w.Range).Str("interval", w.Interval).Msg("prices: table ready")
	return table, nil
}

func (p *Provider) series(ctx context.Context, sym string, w Window) (Series, error) {
	if p.cache != nil {
		days, closes, ok, err := p.cache.LoadSeries(sym, w.Range, w.Interval, p.maxAge)
		if err != nil {
			log.Warn().Err(err).Str("symbol", sym).Msg("prices: cache read failed")
		} else if ok {
			log.Debug().Str("symbol", sym).Msg("prices: cache hit")
			return Series{Symbol: sym, Days: days, Closes: closes}, nil
		}
	}
	s, err := p.client.FetchSeries(ctx, sym, w)
	if err != nil {
		return Series{}, err
	}
	if p.cache != nil {
		if err := p.cache.SaveSeries(sym, w.Range, w.Interval, s.Days, s.Closes); err != nil {
			log.Warn().Err(err).Str("symbol", sym).Msg("prices: cache write failed")
		}
	}
	return s, nil
}

func uniqueTickers(tickers []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = portfolio.NormalizeTicker(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// trimToTargetDays keeps the days within targetDays of the most recent one.
func trimToTargetDays(s Series, targetDays int) Series {
	if targetDays <= 0 || len(s.Days) == 0 {
		return s
	}
	cutoff := s.Days[len(s.Days)-1].AddDate(0, 0, -targetDays)
	start := sort.Search(len(s.Days), func(i int) bool { return !s.Days[i].Before(cutoff) })
	return Series{Symbol: s.Symbol, Days: s.Days[start:], Closes: s.Closes[start:]}
}

// buildTable lays the series out on the union of their days.
func buildTable(all []Series) *portfolio.PriceTable {
	seen := map[time.Time]struct{}{}
	var days []time.Time
	tickers := make([]string, 0, len(all))
	for _, s := range all {
		tickers = append(tickers, s.Symbol)
		for _, d := range s.Days {
			if _, ok := seen[d]; !ok {
				seen[d] = struct{}{}
				days = append(days, d)
			}
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	index := make(map[time.Time]int, len(days))
	for i, d := range days {
		index[d] = i
	}

	table := portfolio.NewPriceTable(days, tickers)
	for _, s := range all {
		col := table.Close[s.Symbol]
		for i, d := range s.Days {
			col[index[d]] = s.Closes[i]
		}
	}
	return table
}
