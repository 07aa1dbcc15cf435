package domain

import "time"

// LocalDayBounds returns the UTC half-open range [start, end) covering the local
// calendar day that is daysAgo days before the local day containing now.
func LocalDayBounds(now time.Time, offsetHours, daysAgo int) (start, end time.Time) {
	lc := localClock(now, offsetHours)
	localMidnight := time.Date(lc.Year(), lc.Month(), lc.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -daysAgo)
	start = localMidnight.Add(-time.Duration(offsetHours) * time.Hour)
	return start, start.Add(24 * time.Hour)
}

// LocalDate returns the local calendar date of t as YYYY-MM-DD.
func LocalDate(t time.Time, offsetHours int) string {
	return localClock(t, offsetHours).Format("2006-01-02")
}
