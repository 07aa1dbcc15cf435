package domain

import "testing"

func TestLocalDayBounds_PositiveOffset(t *testing.T) {
	record := mustUTC(t, "2024-01-01T16:30:00Z") // 2024-01-02 00:30 at UTC+8

	// Evaluated at local 2024-01-02 10:00.
	start, end := LocalDayBounds(mustUTC(t, "2024-01-02T02:00:00Z"), 8, 0)
	if record.Before(start) || !record.Before(end) {
		t.Fatalf("record must fall into local 2024-01-02: [%s, %s)", start, end)
	}

	// Evaluated at local 2024-01-01 10:00.
	start, end = LocalDayBounds(mustUTC(t, "2024-01-01T02:00:00Z"), 8, 0)
	if !record.Before(start) && record.Before(end) {
		t.Fatalf("record must not fall into local 2024-01-01: [%s, %s)", start, end)
	}
	if !start.Equal(mustUTC(t, "2023-12-31T16:00:00Z")) {
		t.Fatalf("unexpected start %s", start)
	}
}

func TestLocalDayBounds_NegativeOffsetAndDaysAgo(t *testing.T) {
	// 2024-03-10 03:00 UTC = 2024-03-09 22:00 at UTC-5.
	now := mustUTC(t, "2024-03-10T03:00:00Z")
	start, end := LocalDayBounds(now, -5, 0)
	if !start.Equal(mustUTC(t, "2024-03-09T05:00:00Z")) || !end.Equal(mustUTC(t, "2024-03-10T05:00:00Z")) {
		t.Fatalf("unexpected today bounds [%s, %s)", start, end)
	}
	start, _ = LocalDayBounds(now, -5, 2)
	if !start.Equal(mustUTC(t, "2024-03-07T05:00:00Z")) {
		t.Fatalf("unexpected bounds two days ago: %s", start)
	}
}

func TestLocalDate(t *testing.T) {
	if got := LocalDate(mustUTC(t, "2024-01-01T16:30:00Z"), 8); got != "2024-01-02" {
		t.Fatalf("want 2024-01-02, got %s", got)
	}
}
