package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"portfolioPlot/internal/finance"
	"portfolioPlot/internal/portfolio"

	"github.com/rs/zerolog/log"
)

// Chart is a rendered PNG with the file name it was saved under.
type Chart struct {
	Name  string
	Title string
	PNG   []byte
}

// Output lists what Write produced.
type Output struct {
	Dir    string
	Files  []string
	Charts []Chart
}

// Write renders both charts and exports the weight, ticker and portfolio
// tables into dir, creating it if needed. A chart with too few points to draw
// is skipped with a warning; its CSV is still written.
func Write(dir string, wt *portfolio.WeightTable, tr *portfolio.TickerReturns, pr *portfolio.PortfolioReturns, excluded []string) (*Output, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	out := &Output{Dir: dir}

	portfolioPNG, err := finance.MakePortfolioReturnChart(pr, excluded)
	if err := out.addChart("portfolio_return.png", "Cumulative portfolio return", portfolioPNG, err); err != nil {
		return nil, err
	}
	tickerPNG, err := finance.MakeTickerReturnsChart(tr)
	if err := out.addChart("ticker_returns.png", "Cumulative ticker returns", tickerPNG, err); err != nil {
		return nil, err
	}

	tables := []struct {
		name  string
		write func(string) error
	}{
		{"weights.csv", func(p string) error { return WriteWeightsCSV(p, wt) }},
		{"ticker_returns.csv", func(p string) error { return WriteTickerCSV(p, tr) }},
		{"portfolio_return.csv", func(p string) error { return WritePortfolioCSV(p, pr) }},
	}
	for _, tb := range tables {
		path := filepath.Join(dir, tb.name)
		if err := tb.write(path); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", tb.name, err)
		}
		out.Files = append(out.Files, path)
	}

	log.Info().Str("dir", dir).Int("files", len(out.Files)).Msg("report: written")
	return out, nil
}

func (o *Output) addChart(name, title string, png []byte, renderErr error) error {
	if errors.Is(renderErr, finance.ErrTooFewPoints) {
		log.Warn().Str("chart", name).Msg("report: skipping chart, not enough data points")
		return nil
	}
	if renderErr != nil {
		return fmt.Errorf("failed to render %s: %w", name, renderErr)
	}
	path := filepath.Join(o.Dir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	o.Files = append(o.Files, path)
	o.Charts = append(o.Charts, Chart{Name: name, Title: title, PNG: png})
	return nil
}
