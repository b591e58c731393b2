package report

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"portfolioPlot/internal/portfolio"
)

// WriteTickerCSV writes one row per date with each ticker's cumulative
// return multiplier.
func WriteTickerCSV(path string, tr *portfolio.TickerReturns) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := append([]string{"date"}, tr.Tickers...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, d := range tr.Dates {
		row := make([]string, 0, len(tr.Tickers)+1)
		row = append(row, fmtDay(d))
		for _, t := range tr.Tickers {
			row = append(row, fmtFloat(tr.Cumulative[t][i]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func WritePortfolioCSV(path string, pr *portfolio.PortfolioReturns) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"date", "daily_return", "cumulative"}); err != nil {
		return err
	}
	for i, d := range pr.Dates {
		row := []string{
			fmtDay(d),
			fmtFloat(pr.Daily[i]),
			fmtFloat(pr.Cumulative[i]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteWeightsCSV writes the normalized weight of every ticker per holdings
// date.
func WriteWeightsCSV(path string, wt *portfolio.WeightTable) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := append([]string{"date"}, wt.Tickers...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, d := range wt.Dates {
		row := []string{fmtDay(d)}
		for _, t := range wt.Tickers {
			row = append(row, fmtFloat(wt.Weights[t][i]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtDay(t time.Time) string {
	return t.Format(portfolio.DayFormat)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
