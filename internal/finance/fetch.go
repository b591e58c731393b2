package finance

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// FetchSeries downloads the daily closes of one symbol over the window. It
// tries the v8 chart endpoint on every host with backoff, then falls back to
// the v7 spark endpoint, which only carries unadjusted closes.
func (c *Client) FetchSeries(ctx context.Context, symbol string, w Window) (Series, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	chartPath := fmt.Sprintf("/v8/finance/chart/%s?range=%s&interval=%s&events=div,splits",
		url.PathEscape(symbol), w.Range, w.Interval)

	var yc yahooChartResp
	err := c.retry(ctx, func(host string) error {
		yc = yahooChartResp{}
		return c.getJSON(ctx, host, chartPath, symbol, &yc)
	})
	if err == nil {
		return chartSeries(symbol, &yc)
	}
	if isPermanent(err) || ctx.Err() != nil {
		return Series{}, err
	}

	log.Warn().Err(err).Str("symbol", symbol).Msg("yahoo: chart failed, trying spark fallback")
	sparkPath := fmt.Sprintf("/v7/finance/spark?symbols=%s&range=%s&interval=%s",
		url.QueryEscape(symbol), w.Range, w.Interval)
	var sp yahooSparkResp
	sparkErr := c.retry(ctx, func(host string) error {
		sp = yahooSparkResp{}
		if err := c.getJSON(ctx, host, sparkPath, symbol, &sp); err != nil {
			return err
		}
		if len(sp.Spark.Result) == 0 || len(sp.Spark.Result[0].Response) == 0 {
			return errors.New("yahoo spark returned no series")
		}
		return nil
	})
	if sparkErr != nil {
		return Series{}, fmt.Errorf("%w (spark fallback: %v)", err, sparkErr)
	}
	r := sp.Spark.Result[0].Response[0]
	log.Warn().Str("symbol", symbol).Msg("yahoo: spark closes are not dividend-adjusted")
	return toSeries(symbol, r.Timestamp, r.Close, r.Meta.GmtOffset), nil
}

func chartSeries(symbol string, yc *yahooChartResp) (Series, error) {
	if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
		return Series{}, fmt.Errorf("no data for %s", symbol)
	}
	res := yc.Chart.Result[0]
	var adj []*float64
	if len(res.Indicators.AdjClose) > 0 {
		adj = res.Indicators.AdjClose[0].AdjClose
	}
	cl := pickCloses(res.Indicators.Quote[0].Close, adj)
	if len(res.Timestamp) == 0 || len(cl) == 0 {
		return Series{}, fmt.Errorf("empty bars for %s", symbol)
	}
	return toSeries(symbol, res.Timestamp, cl, res.Meta.GmtOffset), nil
}
