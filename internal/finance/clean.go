package finance

import (
	"math"
	"sort"
	"time"
)

// toSeries converts raw bars into a day-indexed series. Bars are truncated to
// the shorter of the two arrays, null or non-positive closes become NaN
// (missing, never filled), and when two bars fall on the same day the later
// one wins; Yahoo appends the live bar of the current session that way.
func toSeries(symbol string, ts []int64, cl []*float64, gmtOffset int) Series {
	if len(ts) != len(cl) {
		n := len(ts)
		if len(cl) < n {
			n = len(cl)
		}
		ts = ts[:n]
		cl = cl[:n]
	}
	type bar struct {
		ts    int64
		close float64
	}
	byDay := make(map[time.Time]bar, len(ts))
	for i := 0; i < len(ts); i++ {
		v := math.NaN()
		if cl[i] != nil && *cl[i] > 0 && !math.IsInf(*cl[i], 0) {
			v = *cl[i]
		}
		day := exchangeDay(ts[i], gmtOffset)
		if prev, ok := byDay[day]; ok && prev.ts > ts[i] {
			continue
		}
		byDay[day] = bar{ts: ts[i], close: v}
	}

	s := Series{Symbol: symbol, Days: make([]time.Time, 0, len(byDay))}
	for day := range byDay {
		s.Days = append(s.Days, day)
	}
	sort.Slice(s.Days, func(i, j int) bool { return s.Days[i].Before(s.Days[j]) })
	s.Closes = make([]float64, len(s.Days))
	for i, day := range s.Days {
		s.Closes[i] = byDay[day].close
	}
	return s
}

// pickCloses prefers adjusted closes when Yahoo sent them for every bar.
func pickCloses(close, adjClose []*float64) []*float64 {
	if len(adjClose) > 0 && len(adjClose) >= len(close) {
		return adjClose
	}
	return close
}
