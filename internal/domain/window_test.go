package domain

import (
	"testing"
	"time"
)

func mustUTC(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse time %q: %v", s, err)
	}
	return ts.UTC()
}

func TestInActivePeriod_NormalWindow(t *testing.T) {
	if !InActivePeriod("08:00", "08:00", "22:00") {
		t.Fatalf("start bound must be inclusive")
	}
	if InActivePeriod("22:00", "08:00", "22:00") {
		t.Fatalf("end bound must be exclusive")
	}
	if InActivePeriod("07:59", "08:00", "22:00") {
		t.Fatalf("07:59 is before the window")
	}
}

func TestInActivePeriod_MidnightWrap(t *testing.T) {
	if !InActivePeriod("23:30", "22:00", "08:00") {
		t.Fatalf("23:30 must be inside 22:00-08:00")
	}
	if !InActivePeriod("07:59", "22:00", "08:00") {
		t.Fatalf("07:59 must be inside 22:00-08:00")
	}
	if InActivePeriod("12:00", "22:00", "08:00") {
		t.Fatalf("12:00 must be outside 22:00-08:00")
	}
}

func TestInActivePeriod_EqualBoundsCoverWholeDay(t *testing.T) {
	if !InActivePeriod("03:00", "09:00", "09:00") {
		t.Fatalf("start == end wraps and covers the whole day")
	}
}

func TestInActivePeriod_FailOpen(t *testing.T) {
	cases := [][3]string{
		{"12:00", "bad", "22:00"},
		{"12:00", "08:00", "25:00"},
		{"nope", "08:00", "22:00"},
		{"12:00", "", ""},
	}
	for _, c := range cases {
		if !InActivePeriod(c[0], c[1], c[2]) {
			t.Fatalf("malformed input %v must fail open", c)
		}
	}
}

func TestInQuietHours(t *testing.T) {
	quiet := []QuietPeriod{{Start: "12:00", End: "13:00"}, {Start: "23:00", End: "06:00"}}

	if !InQuietHours("12:00", quiet) || !InQuietHours("13:00", quiet) {
		t.Fatalf("quiet bounds must be inclusive")
	}
	if InQuietHours("13:01", quiet) {
		t.Fatalf("13:01 is not quiet")
	}
	if !InQuietHours("02:00", quiet) || !InQuietHours("06:00", quiet) {
		t.Fatalf("wrapping quiet period must cover early morning")
	}
	if InQuietHours("10:00", nil) {
		t.Fatalf("empty list is never quiet")
	}
	if InQuietHours("10:00", []QuietPeriod{{Start: "x", End: "y"}}) {
		t.Fatalf("malformed quiet period must be ignored")
	}
}

func TestNotificationPermitted_QuietHoursWin(t *testing.T) {
	p := &Profile{
		ActiveStart: "08:00",
		ActiveEnd:   "22:00",
		TZOffset:    8,
		QuietHours:  []QuietPeriod{{Start: "12:00", End: "13:30"}},
	}
	// 04:30 UTC = 12:30 UTC+8: active and quiet at the same time.
	if NotificationPermitted(mustUTC(t, "2024-01-01T04:30:00Z"), p) {
		t.Fatalf("quiet hours must suppress inside the active period")
	}
	// 06:00 UTC = 14:00 local.
	if !NotificationPermitted(mustUTC(t, "2024-01-01T06:00:00Z"), p) {
		t.Fatalf("14:00 local must be permitted")
	}
}

func TestLocalTimeOf_NegativeOffset(t *testing.T) {
	got := LocalTimeOf(mustUTC(t, "2024-01-01T02:15:00Z"), -5)
	if got != "21:15" {
		t.Fatalf("want 21:15, got %s", got)
	}
}

func TestNextActiveStart(t *testing.T) {
	// 2024-01-01 15:00 UTC = 23:00 local (UTC+8); tomorrow local 08:00 = 2024-01-02 00:00 UTC.
	got := NextActiveStart(mustUTC(t, "2024-01-01T15:00:00Z"), 8, "08:00")
	want := mustUTC(t, "2024-01-02T00:00:00Z")
	if !got.Equal(want) {
		t.Fatalf("want %s, got %s", want, got)
	}

	// 2024-01-01 16:30 UTC is already 2024-01-02 00:30 local, so "tomorrow" is the 3rd.
	got = NextActiveStart(mustUTC(t, "2024-01-01T16:30:00Z"), 8, "08:00")
	want = mustUTC(t, "2024-01-03T00:00:00Z")
	if !got.Equal(want) {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestFormatOffset(t *testing.T) {
	if FormatOffset(8) != "UTC+8" || FormatOffset(-3) != "UTC-3" || FormatOffset(0) != "UTC+0" {
		t.Fatalf("unexpected offset formatting")
	}
}
