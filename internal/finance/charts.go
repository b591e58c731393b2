package finance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolioPlot/internal/portfolio"

	"github.com/vicanso/go-charts/v2"
)

// ErrTooFewPoints is returned when a series is too short to draw a line.
var ErrTooFewPoints = errors.New("not enough data points to chart")

// percentReturn turns cumulative multipliers into "% return" values.
func percentReturn(cum []float64) []float64 {
	out := make([]float64, len(cum))
	for i, v := range cum {
		out[i] = (v - 1.0) * 100.0
	}
	return out
}

func dateLabels(dates []time.Time) []string {
	labels := make([]string, len(dates))
	for i, d := range dates {
		// Format labels based on data range
		if len(dates) <= 60 {
			labels[i] = d.Format("Jan 02")
		} else if len(dates) <= 400 {
			labels[i] = d.Format("Jan 02 '06")
		} else {
			labels[i] = d.Format("Jan '06")
		}
	}
	return labels
}

func splitNumber(n int) int {
	split := 6
	if n <= 30 {
		split = n / 3
		if split < 3 {
			split = 3
		}
	}
	return split
}

// yRange pads the extent of all values by 5%.
func yRange(values [][]float64) (float64, float64) {
	first := true
	var minVal, maxVal float64
	for _, series := range values {
		for _, v := range series {
			if first {
				minVal, maxVal = v, v
				first = false
				continue
			}
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
		}
	}
	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = 1 // flat series: one percentage point either side
	}
	return minVal - padding, maxVal + padding
}

func windowTitle(dates []time.Time) string {
	return dates[0].Format(portfolio.DayFormat) + " to " + dates[len(dates)-1].Format(portfolio.DayFormat)
}

// MakeTickerReturnsChart renders every ticker's cumulative return, in percent,
// as one line per ticker.
func MakeTickerReturnsChart(tr *portfolio.TickerReturns) ([]byte, error) {
	if tr == nil || len(tr.Tickers) == 0 {
		return nil, errors.New("no tickers to chart")
	}
	if len(tr.Dates) < 2 {
		return nil, ErrTooFewPoints
	}

	values := make([][]float64, 0, len(tr.Tickers))
	for _, t := range tr.Tickers {
		values = append(values, percentReturn(tr.Cumulative[t]))
	}
	yMin, yMax := yRange(values)

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = tr.Tickers[i]
		seriesList[i].AxisIndex = 0
	}
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc("Cumulative Ticker Return (%)", windowTitle(tr.Dates)),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        dateLabels(tr.Dates),
			SplitNumber: splitNumber(len(tr.Dates)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: tr.Tickers, Top: charts.PositionTop}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	buf, err := painter.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// MakePortfolioReturnChart renders the weighted portfolio's cumulative
// return in percent. excluded names tickers left out of the weighting, shown
// in the subtitle.
func MakePortfolioReturnChart(pr *portfolio.PortfolioReturns, excluded []string) ([]byte, error) {
	if pr == nil || len(pr.Dates) < 2 {
		return nil, ErrTooFewPoints
	}

	values := percentReturn(pr.Cumulative)
	yMin, yMax := yRange([][]float64{values})

	subtitle := fmt.Sprintf("%s | Return: %.2f%%", windowTitle(pr.Dates), values[len(values)-1])
	if len(excluded) > 0 {
		subtitle += " | Excluded: " + strings.Join(excluded, ", ")
	}

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc("Cumulative Portfolio Daily Return (%)", subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        dateLabels(pr.Dates),
			SplitNumber: splitNumber(len(pr.Dates)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}
