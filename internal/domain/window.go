package domain

import (
	"fmt"
	"time"
)

const minutesPerDay = 24 * 60

// LocalTimeOf formats t shifted by a fixed hour offset as HH:MM.
func LocalTimeOf(t time.Time, offsetHours int) string {
	return localClock(t, offsetHours).Format("15:04")
}

// localClock returns t shifted into the user's fixed offset, expressed in UTC.
// Calendar fields of the result are the user's local wall clock.
func localClock(t time.Time, offsetHours int) time.Time {
	return t.UTC().Add(time.Duration(offsetHours) * time.Hour)
}

// InActivePeriod reports whether local time is inside the [start, end) window.
// A window with start >= end wraps past midnight: [start..24h) U [0..end).
// Malformed input never suppresses reminders: it yields true.
func InActivePeriod(local, start, end string) bool {
	localM, err := ParseClock(local)
	if err != nil {
		return true
	}
	fromM, err := ParseClock(start)
	if err != nil {
		return true
	}
	toM, err := ParseClock(end)
	if err != nil {
		return true
	}
	if fromM < toM {
		return localM >= fromM && localM < toM
	}
	return localM >= fromM || localM < toM
}

// InQuietHours reports whether local time falls within any quiet period.
// Bounds are inclusive on both ends. Malformed periods are ignored.
func InQuietHours(local string, quiet []QuietPeriod) bool {
	localM, err := ParseClock(local)
	if err != nil {
		return false
	}
	for _, q := range quiet {
		fromM, err1 := ParseClock(q.Start)
		toM, err2 := ParseClock(q.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if fromM <= toM {
			if localM >= fromM && localM <= toM {
				return true
			}
			continue
		}
		if localM >= fromM || localM <= toM {
			return true
		}
	}
	return false
}

// NotificationPermitted combines the active window and quiet hours for p at now.
func NotificationPermitted(now time.Time, p *Profile) bool {
	local := LocalTimeOf(now, p.TZOffset)
	return InActivePeriod(local, p.ActiveStart, p.ActiveEnd) && !InQuietHours(local, p.QuietHours)
}

// NextActiveStart returns the UTC instant of tomorrow's local active-window start.
// A malformed start falls back to local midnight.
func NextActiveStart(now time.Time, offsetHours int, activeStart string) time.Time {
	startM, err := ParseClock(activeStart)
	if err != nil {
		startM = 0
	}
	lc := localClock(now, offsetHours)
	midnight := time.Date(lc.Year(), lc.Month(), lc.Day(), 0, 0, 0, 0, time.UTC)
	next := midnight.Add(24*time.Hour + time.Duration(startM)*time.Minute)
	return next.Add(-time.Duration(offsetHours) * time.Hour)
}

// FormatOffset renders a fixed offset as "UTC+8" / "UTC-3".
func FormatOffset(offsetHours int) string {
	if offsetHours < 0 {
		return fmt.Sprintf("UTC%d", offsetHours)
	}
	return fmt.Sprintf("UTC+%d", offsetHours)
}
