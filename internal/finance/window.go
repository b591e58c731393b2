package finance

import (
	"fmt"
	"strconv"
	"strings"
)

// Window is a normalized request window: the Yahoo range to download and,
// for shorthand periods like "10d", how many calendar days to keep.
type Window struct {
	Range      string
	Interval   string
	TargetDays int // 0 keeps everything Yahoo returns
}

var yahooRanges = map[string]bool{
	"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

var yahooIntervals = map[string]bool{"1d": true, "5d": true, "1wk": true, "1mo": true, "3mo": true}

// ParseWindow validates a period and a sampling interval. The period is a
// Yahoo range ("ytd", "1y", "max", ...) or a shorthand count of days, weeks,
// months or years ("10d", "3w", "9m", "2y"). Intraday intervals are rejected:
// returns are computed over daily closes.
func ParseWindow(period, interval string) (Window, error) {
	itv := strings.ToLower(strings.TrimSpace(interval))
	if itv == "" {
		itv = "1d"
	}
	if !yahooIntervals[itv] {
		return Window{}, fmt.Errorf("invalid interval: %s (use 1d, 5d, 1wk, 1mo or 3mo)", interval)
	}

	p := strings.ToLower(strings.TrimSpace(period))
	if p == "" {
		return Window{Range: "ytd", Interval: itv}, nil
	}
	if yahooRanges[p] {
		return Window{Range: p, Interval: itv}, nil
	}
	rng, days, err := parseShorthand(p)
	if err != nil {
		return Window{}, err
	}
	return Window{Range: rng, Interval: itv, TargetDays: days}, nil
}

// parseShorthand maps "Nd", "Nw", "Nm", "Ny" onto the smallest Yahoo range
// that covers it, and the number of calendar days to keep.
func parseShorthand(window string) (string, int, error) {
	if len(window) < 2 {
		return "", 0, fmt.Errorf("invalid period format: %s (use ytd, 1y, or a count like 10d, 3w, 6m, 2y)", window)
	}
	unit := window[len(window)-1]
	n, err := strconv.Atoi(window[:len(window)-1])
	if err != nil || n <= 0 {
		return "", 0, fmt.Errorf("invalid period format: %s (use ytd, 1y, or a count like 10d, 3w, 6m, 2y)", window)
	}

	var days int
	switch unit {
	case 'd':
		days = n
	case 'w':
		days = n * 7
	case 'm':
		days = n * 30 // Approximate days
	case 'y':
		days = n * 365 // Approximate days
	default:
		return "", 0, fmt.Errorf("invalid period format: %s (use ytd, 1y, or a count like 10d, 3w, 6m, 2y)", window)
	}

	switch {
	case days <= 5:
		return "5d", days, nil
	case days <= 30:
		return "1mo", days, nil
	case days <= 90:
		return "3mo", days, nil
	case days <= 180:
		return "6mo", days, nil
	case days <= 365:
		return "1y", days, nil
	case days <= 2*365:
		return "2y", days, nil
	case days <= 5*365:
		return "5y", days, nil
	case days <= 10*365:
		return "10y", days, nil
	default:
		return "max", days, nil
	}
}
