package finance

import (
	"time"

	"portfolioPlot/internal/portfolio"
)

// getEasternTime returns America/New_York location, falling back to fixed EST if tzdata is missing.
func getEasternTime() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// exchangeDay maps a bar timestamp to its trading day on the exchange.
// Yahoo stamps daily bars at the session open, so the exchange's gmtoffset
// (seconds east of UTC) picks the right calendar day. Without an offset the
// bar is read in Eastern Time.
func exchangeDay(ts int64, gmtOffset int) time.Time {
	loc := getEasternTime()
	if gmtOffset != 0 {
		loc = time.FixedZone("exchange", gmtOffset)
	}
	return portfolio.Day(time.Unix(ts, 0).In(loc))
}
