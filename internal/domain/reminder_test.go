package domain

import (
	"strings"
	"testing"
)

func TestReminderText_Progress(t *testing.T) {
	p := &Profile{DailyGoalML: 2000}
	got := ReminderText(p, 1, 500)
	if !strings.Contains(got, "500/2000 (25%)") {
		t.Fatalf("progress missing: %q", got)
	}
	if !strings.Contains(got, "Remaining: 1500ml") {
		t.Fatalf("remaining missing: %q", got)
	}
	if !strings.HasPrefix(got, DefaultReminderText) {
		t.Fatalf("default headline expected: %q", got)
	}
}

func TestProgress_OverGoal(t *testing.T) {
	percent, remaining := Progress(2600, 2000)
	if percent != 130 || remaining != 0 {
		t.Fatalf("got %d%% / %d", percent, remaining)
	}
}

func TestReminderHeadline_Gradient(t *testing.T) {
	texts := map[int]string{1: "first", 3: "third"}
	if got := ReminderHeadline(texts, 1); got != "first" {
		t.Fatalf("step 1: %q", got)
	}
	if got := ReminderHeadline(texts, 2); got != "first" {
		t.Fatalf("step 2 falls back to step 1: %q", got)
	}
	if got := ReminderHeadline(texts, 7); got != "third" {
		t.Fatalf("step 7 falls back to step 3: %q", got)
	}
	if got := ReminderHeadline(map[int]string{4: "late"}, 2); got != DefaultReminderText {
		t.Fatalf("no lower step configured: %q", got)
	}
}
