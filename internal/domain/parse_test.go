package domain

import (
	"errors"
	"testing"
)

func TestParseBounded(t *testing.T) {
	if v, err := ParseTZOffset("+8"); err != nil || v != 8 {
		t.Fatalf("want 8, got %d (%v)", v, err)
	}
	if _, err := ParseTZOffset("15"); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("want ErrOutOfRange, got %v", err)
	}
	if _, err := ParseGoal("abc"); !errors.Is(err, ErrInvalidNumber) {
		t.Fatalf("want ErrInvalidNumber, got %v", err)
	}
	if _, err := ParseInterval(""); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("want ErrEmptyInput, got %v", err)
	}
	if _, err := ParseAmount("0"); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("zero amount must be rejected")
	}
}

func TestParseTimeRange_Normalizes(t *testing.T) {
	from, to, err := ParseTimeRange("8:05", "22:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if from != "08:05" || to != "22:00" {
		t.Fatalf("got %s-%s", from, to)
	}
	if _, _, err := ParseTimeRange("24:00", "01:00"); !errors.Is(err, ErrInvalidClock) {
		t.Fatalf("want ErrInvalidClock, got %v", err)
	}
}

func TestAddQuietPeriod(t *testing.T) {
	qs, err := AddQuietPeriod(nil, QuietPeriod{Start: "13:00", End: "14:00"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	qs, err = AddQuietPeriod(qs, QuietPeriod{Start: "9:00", End: "10:00"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(qs) != 2 || qs[0].Start != "09:00" {
		t.Fatalf("periods must be ordered by start: %+v", qs)
	}
	if _, err := AddQuietPeriod(qs, QuietPeriod{Start: "13:30", End: "15:00"}); !errors.Is(err, ErrQuietOverlap) {
		t.Fatalf("want ErrQuietOverlap, got %v", err)
	}
	// Wrapping period overlapping the morning one.
	if _, err := AddQuietPeriod(qs, QuietPeriod{Start: "23:00", End: "09:30"}); !errors.Is(err, ErrQuietOverlap) {
		t.Fatalf("want ErrQuietOverlap for wrapping period, got %v", err)
	}
	qs, err = AddQuietPeriod(qs, QuietPeriod{Start: "23:00", End: "06:00"})
	if err != nil {
		t.Fatalf("add wrapping: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("want 3 periods, got %d", len(qs))
	}
}

func TestAddQuietPeriod_Limit(t *testing.T) {
	var qs []QuietPeriod
	for i := 0; i < MaxQuietPeriods; i++ {
		var err error
		qs, err = AddQuietPeriod(qs, QuietPeriod{Start: FormatMinutes(i * 60), End: FormatMinutes(i*60 + 30)})
		if err != nil {
			t.Fatalf("add #%d: %v", i, err)
		}
	}
	if _, err := AddQuietPeriod(qs, QuietPeriod{Start: "20:00", End: "21:00"}); !errors.Is(err, ErrTooManyQuiet) {
		t.Fatalf("want ErrTooManyQuiet, got %v", err)
	}
}
