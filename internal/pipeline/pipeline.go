// Package pipeline runs one holdings-to-returns computation.
package pipeline

import (
	"context"
	"fmt"

	"portfolioPlot/internal/holdings"
	"portfolioPlot/internal/portfolio"

	"github.com/rs/zerolog/log"
)

// PriceSource returns a date x ticker close table for the window.
type PriceSource interface {
	Fetch(ctx context.Context, tickers []string, period, interval string) (*portfolio.PriceTable, error)
}

type Options struct {
	HoldingsPath string
	Period       string
	Interval     string
	Exclusions   []portfolio.Exclusion
}

type Deps struct {
	Prices PriceSource
}

// Result holds everything computed by a run.
type Result struct {
	Holdings  *portfolio.HoldingsRecord
	Weights   *portfolio.WeightTable
	Prices    *portfolio.PriceTable
	Tickers   *portfolio.TickerReturns
	Portfolio *portfolio.PortfolioReturns
	Excluded  []string
}

// Run loads the holdings, weights them, downloads prices for the included
// tickers and computes per-ticker and portfolio cumulative returns. Any error
// aborts the run; no partial result is returned.
func Run(ctx context.Context, opts Options, deps Deps) (*Result, error) {
	if deps.Prices == nil {
		return nil, fmt.Errorf("pipeline: no price source")
	}
	rec, err := holdings.Load(opts.HoldingsPath)
	if err != nil {
		return nil, err
	}
	exclusions := portfolio.NewExclusionSet(opts.Exclusions...)
	for _, e := range exclusions.List() {
		log.Info().Str("symbol", e.Symbol).Str("reason", e.Reason).Msg("pipeline: excluding ticker")
	}

	weights, err := portfolio.ComputeWeights(rec, exclusions)
	if err != nil {
		return nil, fmt.Errorf("failed to compute weights: %w", err)
	}

	prices, err := deps.Prices.Fetch(ctx, weights.Tickers, opts.Period, opts.Interval)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}

	tr, err := portfolio.ComputeTickerReturns(prices, exclusions)
	if err != nil {
		return nil, fmt.Errorf("failed to compute ticker returns: %w", err)
	}
	pr, err := portfolio.ComputePortfolioReturns(prices, weights, exclusions)
	if err != nil {
		return nil, fmt.Errorf("failed to compute portfolio returns: %w", err)
	}

	res := &Result{
		Holdings:  rec,
		Weights:   weights,
		Prices:    prices,
		Tickers:   tr,
		Portfolio: pr,
	}
	for _, e := range exclusions.List() {
		res.Excluded = append(res.Excluded, e.Symbol)
	}
	log.Info().Int("dates", len(pr.Dates)).Float64("cumulative", pr.Final()).Msg("pipeline: returns computed")
	return res, nil
}
