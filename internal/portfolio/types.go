package portfolio

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DayFormat is the ISO-8601 layout used for dates in files and CSV output.
const DayFormat = "2006-01-02"

// permissive read layouts, tried in order
var dayLayouts = []string{DayFormat, "2006-1-2", "01/02/2006", time.RFC3339}

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// Day truncates t to its calendar day at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a calendar day in one of the accepted layouts.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want %s)", s, DayFormat)
}

// Exclusion removes one ticker from weighting and return aggregation.
type Exclusion struct {
	Symbol string `yaml:"symbol"`
	Reason string `yaml:"reason"`
}

// ExclusionSet is the configured set of excluded tickers. The zero value
// excludes nothing.
type ExclusionSet struct {
	entries map[string]Exclusion
}

// NewExclusionSet builds a set from the given entries. Symbols are normalized;
// entries with an empty symbol are ignored.
func NewExclusionSet(list ...Exclusion) ExclusionSet {
	set := ExclusionSet{entries: make(map[string]Exclusion, len(list))}
	for _, e := range list {
		e.Symbol = NormalizeTicker(e.Symbol)
		if e.Symbol == "" {
			continue
		}
		set.entries[e.Symbol] = e
	}
	return set
}

// Contains reports whether ticker is excluded.
func (s ExclusionSet) Contains(ticker string) bool {
	_, ok := s.entries[NormalizeTicker(ticker)]
	return ok
}

// Len returns the number of excluded tickers.
func (s ExclusionSet) Len() int { return len(s.entries) }

// List returns the exclusions sorted by symbol.
func (s ExclusionSet) List() []Exclusion {
	out := make([]Exclusion, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Filter returns the tickers not in the set, preserving order.
func (s ExclusionSet) Filter(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if !s.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

// HoldingsRecord is the share count of every ticker over time, plus the day
// tracking started.
type HoldingsRecord struct {
	StartDate time.Time
	Shares    map[string]map[time.Time]decimal.Decimal
}

// Tickers returns the record's tickers in ascending order.
func (r *HoldingsRecord) Tickers() []string {
	out := make([]string, 0, len(r.Shares))
	for t := range r.Shares {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Dates returns every date present in the record in ascending order.
func (r *HoldingsRecord) Dates() []time.Time {
	seen := map[time.Time]struct{}{}
	var out []time.Time
	for _, byDay := range r.Shares {
		for d := range byDay {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Validate checks that the record has a start date, that every ticker is
// defined on every date, and that share counts are non-negative.
func (r *HoldingsRecord) Validate() error {
	if r.StartDate.IsZero() {
		return ErrMissingStartMarker
	}
	dates := r.Dates()
	for _, t := range r.Tickers() {
		if t == "" {
			return fmt.Errorf("holdings record has an empty ticker")
		}
		byDay := r.Shares[t]
		for _, d := range dates {
			n, ok := byDay[d]
			if !ok {
				return fmt.Errorf("holdings for %s missing on %s", t, d.Format(DayFormat))
			}
			if n.IsNegative() {
				return fmt.Errorf("%w: negative share count %s for %s on %s", ErrDegenerateWeights, n, t, d.Format(DayFormat))
			}
		}
	}
	return nil
}
