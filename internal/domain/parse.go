package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptyInput    = errors.New("empty input")
	ErrInvalidNumber = errors.New("invalid number")
	ErrOutOfRange    = errors.New("value out of range")
	ErrInvalidClock  = errors.New("expected HH:MM")
	ErrQuietOverlap  = errors.New("quiet period overlaps an existing one")
	ErrTooManyQuiet  = errors.New("too many quiet periods")
)

// Input bounds enforced at the command boundary.
const (
	MaxGoalML          = 20000
	MaxIntervalMin     = 24 * 60
	MinTZOffset        = -12
	MaxTZOffset        = 14
	MaxIntakeML        = 5000
	MaxBackfillMinutes = 24 * 60
)

// ParseGoal parses a daily goal in ml: 1..MaxGoalML.
func ParseGoal(s string) (int, error) {
	return parseBounded(s, 1, MaxGoalML)
}

// ParseInterval parses a reminder interval in minutes: 1..MaxIntervalMin.
func ParseInterval(s string) (int, error) {
	return parseBounded(s, 1, MaxIntervalMin)
}

// ParseTZOffset parses a fixed UTC offset in hours, e.g. "8", "+8", "-3".
func ParseTZOffset(s string) (int, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	return parseBounded(s, MinTZOffset, MaxTZOffset)
}

// ParseAmount parses an intake amount in ml: 1..MaxIntakeML.
func ParseAmount(s string) (int, error) {
	return parseBounded(s, 1, MaxIntakeML)
}

// ParseBackfillMinutes parses how many minutes ago a past intake happened.
func ParseBackfillMinutes(s string) (int, error) {
	return parseBounded(s, 0, MaxBackfillMinutes)
}

// ParseStep parses a gradient step: 1..MaxGradientSteps.
func ParseStep(s string) (int, error) {
	return parseBounded(s, 1, MaxGradientSteps)
}

func parseBounded(s string, lo, hi int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyInput
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidNumber, s)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%w: %d not in %d..%d", ErrOutOfRange, n, lo, hi)
	}
	return n, nil
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, ErrInvalidClock
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: invalid hour", ErrInvalidClock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: invalid minute", ErrInvalidClock)
	}
	return h*60 + m, nil
}

// ParseTimeRange validates two HH:MM values and returns them normalized.
func ParseTimeRange(from, to string) (string, string, error) {
	fromM, err := ParseClock(from)
	if err != nil {
		return "", "", fmt.Errorf("from: %w", err)
	}
	toM, err := ParseClock(to)
	if err != nil {
		return "", "", fmt.Errorf("to: %w", err)
	}
	return FormatMinutes(fromM), FormatMinutes(toM), nil
}

// FormatMinutes returns HH:MM for minutes since midnight (00:00..23:59).
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	h := mins / 60
	m := mins % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// AddQuietPeriod appends q to existing, keeping the set non-overlapping and ordered by start.
func AddQuietPeriod(existing []QuietPeriod, q QuietPeriod) ([]QuietPeriod, error) {
	if len(existing) >= MaxQuietPeriods {
		return nil, fmt.Errorf("%w: max %d", ErrTooManyQuiet, MaxQuietPeriods)
	}
	start, end, err := ParseTimeRange(q.Start, q.End)
	if err != nil {
		return nil, err
	}
	q = QuietPeriod{Start: start, End: end}
	for _, e := range existing {
		if periodsOverlap(e, q) {
			return nil, fmt.Errorf("%w: %s-%s", ErrQuietOverlap, e.Start, e.End)
		}
	}
	out := make([]QuietPeriod, 0, len(existing)+1)
	inserted := false
	for _, e := range existing {
		if !inserted && q.Start < e.Start {
			out = append(out, q)
			inserted = true
		}
		out = append(out, e)
	}
	if !inserted {
		out = append(out, q)
	}
	return out, nil
}

// segments splits an inclusive, possibly wrapping period into non-wrapping minute ranges.
func segments(q QuietPeriod) [][2]int {
	fromM, err1 := ParseClock(q.Start)
	toM, err2 := ParseClock(q.End)
	if err1 != nil || err2 != nil {
		return nil
	}
	if fromM <= toM {
		return [][2]int{{fromM, toM}}
	}
	return [][2]int{{fromM, minutesPerDay - 1}, {0, toM}}
}

func periodsOverlap(a, b QuietPeriod) bool {
	for _, sa := range segments(a) {
		for _, sb := range segments(b) {
			if sa[0] <= sb[1] && sb[0] <= sa[1] {
				return true
			}
		}
	}
	return false
}
