package finance

import "time"

// getEasternTime returns America/New_York location, falling back to fixed EST if tzdata is missing.
func getEasternTime() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// exchangeLocation resolves the exchange timezone Yahoo reports, defaulting to New York.
func exchangeLocation(name string) *time.Location {
	if name == "" {
		return getEasternTime()
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return getEasternTime()
	}
	return loc
}

// tradingDay maps a bar timestamp to its calendar date in the exchange timezone.
func tradingDay(ts int64, loc *time.Location) time.Time {
	y, m, d := time.Unix(ts, 0).In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dayKey truncates t to its UTC calendar date.
func dayKey(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
