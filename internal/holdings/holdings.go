package holdings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"portfolioPlot/internal/portfolio"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// LegacyStartKey is the reserved entry marking the start of tracking in the
// legacy holdings format.
const LegacyStartKey = "Start_Date"

// recordFile is the typed on-disk format:
//
//	{"start_date": "2021-01-04", "holdings": {"AAPL": {"2021-09-01": 10}}}
type recordFile struct {
	StartDate string                                `json:"start_date"`
	Holdings  map[string]map[string]json.RawMessage `json:"holdings"`
}

// Load reads a holdings record from a JSON file.
func Load(path string) (*portfolio.HoldingsRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rec, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Info().Str("path", path).Int("tickers", len(rec.Shares)).
		Str("start", rec.StartDate.Format(portfolio.DayFormat)).Msg("holdings: loaded record")
	return rec, nil
}

// Parse decodes either the typed format or the legacy format, in which each
// ticker maps to {date: shares} and a Start_Date entry marks the start of
// tracking (per ticker or once at the top level).
func Parse(raw []byte) (*portfolio.HoldingsRecord, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("failed to parse holdings json: %w", err)
	}
	if _, ok := top["holdings"]; ok {
		return parseTyped(raw)
	}
	return parseLegacy(top)
}

func parseTyped(raw []byte) (*portfolio.HoldingsRecord, error) {
	var f recordFile
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse holdings json: %w", err)
	}
	if f.StartDate == "" {
		return nil, portfolio.ErrMissingStartMarker
	}
	start, err := portfolio.ParseDay(f.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	rec := &portfolio.HoldingsRecord{StartDate: start, Shares: map[string]map[time.Time]decimal.Decimal{}}
	for sym, counts := range f.Holdings {
		if err := addTicker(rec, sym, counts); err != nil {
			return nil, err
		}
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

func parseLegacy(top map[string]json.RawMessage) (*portfolio.HoldingsRecord, error) {
	rec := &portfolio.HoldingsRecord{Shares: map[string]map[time.Time]decimal.Decimal{}}
	var start string
	markers := 0

	if v, ok := top[LegacyStartKey]; ok {
		if err := json.Unmarshal(v, &start); err != nil {
			return nil, fmt.Errorf("%s: %w", LegacyStartKey, err)
		}
		markers++
		delete(top, LegacyStartKey)
	}

	perTicker := ""
	tagged := 0
	for sym, v := range top {
		var row map[string]json.RawMessage
		if err := json.Unmarshal(v, &row); err != nil {
			return nil, fmt.Errorf("holdings for %s: %w", sym, err)
		}
		if m, ok := row[LegacyStartKey]; ok {
			var s string
			if err := json.Unmarshal(m, &s); err != nil {
				return nil, fmt.Errorf("%s for %s: %w", LegacyStartKey, sym, err)
			}
			if perTicker != "" && s != perTicker {
				return nil, fmt.Errorf("%w: conflicting %s values %q and %q", portfolio.ErrMissingStartMarker, LegacyStartKey, perTicker, s)
			}
			perTicker = s
			tagged++
			delete(row, LegacyStartKey)
		}
		if err := addTicker(rec, sym, row); err != nil {
			return nil, err
		}
	}
	// the marker row is either on every ticker or on none
	if tagged > 0 && tagged < len(top) {
		return nil, fmt.Errorf("%w: %s set on %d of %d tickers", portfolio.ErrMissingStartMarker, LegacyStartKey, tagged, len(top))
	}
	if perTicker != "" {
		markers++
		start = perTicker
	}
	switch markers {
	case 0:
		return nil, portfolio.ErrMissingStartMarker
	case 2:
		return nil, fmt.Errorf("%w: %s given both at top level and per ticker", portfolio.ErrMissingStartMarker, LegacyStartKey)
	}

	d, err := portfolio.ParseDay(start)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", LegacyStartKey, err)
	}
	rec.StartDate = d
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

func addTicker(rec *portfolio.HoldingsRecord, sym string, counts map[string]json.RawMessage) error {
	ticker := portfolio.NormalizeTicker(sym)
	if ticker == "" {
		return fmt.Errorf("empty ticker in holdings")
	}
	if _, dup := rec.Shares[ticker]; dup {
		return fmt.Errorf("duplicate ticker %s in holdings", ticker)
	}
	byDay := make(map[time.Time]decimal.Decimal, len(counts))
	for day, n := range counts {
		d, err := portfolio.ParseDay(day)
		if err != nil {
			return fmt.Errorf("holdings for %s: %w", ticker, err)
		}
		if _, dup := byDay[d]; dup {
			return fmt.Errorf("holdings for %s list %s twice", ticker, d.Format(portfolio.DayFormat))
		}
		v, err := shareCount(n)
		if err != nil {
			return fmt.Errorf("holdings for %s on %s: %w", ticker, day, err)
		}
		byDay[d] = v
	}
	rec.Shares[ticker] = byDay
	return nil
}

// shareCount decodes one count. decimal reads null as zero, so a missing
// count is rejected here.
func shareCount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return decimal.Decimal{}, fmt.Errorf("missing share count")
	}
	var v decimal.Decimal
	if err := v.UnmarshalJSON(raw); err != nil {
		return decimal.Decimal{}, err
	}
	return v, nil
}
