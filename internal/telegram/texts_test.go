package telegram

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ykvlv/hydration-bot/internal/domain"
	"github.com/ykvlv/hydration-bot/internal/hydration"
)

func TestClassifySendError(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		unreachable bool
	}{
		{"blocked", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}, true},
		{"deactivated", &tgbotapi.Error{Code: 403, Message: "Forbidden: user is deactivated"}, true},
		{"chat not found", &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, true},
		{"wrapped", fmt.Errorf("send: %w", &tgbotapi.Error{Code: 403, Message: "Forbidden"}), true},
		{"bad markup", &tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities"}, false},
		{"flood", &tgbotapi.Error{Code: 429, Message: "Too Many Requests: retry after 5"}, false},
		{"network", errors.New("dial tcp: i/o timeout"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := classifySendError(c.err)
			if got == nil {
				t.Fatal("error must be preserved")
			}
			if errors.Is(got, domain.ErrUnreachable) != c.unreachable {
				t.Fatalf("unreachable = %v, want %v (%v)", !c.unreachable, c.unreachable, got)
			}
		})
	}
	if classifySendError(nil) != nil {
		t.Fatal("nil must stay nil")
	}
}

func TestSplitRange(t *testing.T) {
	for _, in := range []string{"08:00 22:00", "08:00-22:00", "08:00–22:00", " 08:00  -  22:00 "} {
		got := splitRange(in)
		if len(got) != 2 || got[0] != "08:00" || got[1] != "22:00" {
			t.Fatalf("splitRange(%q) = %q", in, got)
		}
	}
	if got := splitRange("08:00"); len(got) != 1 {
		t.Fatalf("single: %q", got)
	}
}

func TestEncouragementBands(t *testing.T) {
	cases := map[int]string{
		0:   "Keep going",
		49:  "Keep going",
		50:  "halfway",
		79:  "halfway",
		80:  "Almost there",
		99:  "Almost there",
		100: "Goal reached",
		180: "Goal reached",
	}
	for percent, want := range cases {
		if got := encouragement(percent); !strings.Contains(got, want) {
			t.Fatalf("encouragement(%d) = %q, want %q", percent, got, want)
		}
	}
}

func TestFormatStats(t *testing.T) {
	st := hydration.Stats{
		Profile: &domain.Profile{DailyGoalML: 2000},
		TodayML: 1700,
		Days: []domain.DayTotal{
			{Date: "2024-01-07", TotalML: 1700},
			{Date: "2024-01-06", TotalML: 2100},
			{Date: "2024-01-05", TotalML: 0},
		},
	}
	got := formatStats(st)
	for _, want := range []string{
		"Today: 1700/2000 (85%)",
		"Remaining: 300ml",
		"Last 3 days",
		"✅ 2024-01-06: 2100ml (105%)",
		"2024-01-05: 0ml (0%)",
		"Almost there",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
}

func TestFormatIntake(t *testing.T) {
	res := hydration.IntakeResult{
		Record:  domain.IntakeRecord{AmountML: 250},
		TodayML: 750,
		GoalML:  2000,
	}
	if got := formatIntake(res); !strings.Contains(got, "Logged 250ml") || !strings.Contains(got, "750/2000 (37%)") || !strings.Contains(got, "Remaining: 1250ml") {
		t.Fatalf("formatIntake: %q", got)
	}
	res.TodayML = 2000
	if got := formatIntake(res); !strings.Contains(got, "Daily goal reached") {
		t.Fatalf("formatIntake at goal: %q", got)
	}
}

func TestReminderState(t *testing.T) {
	p := &domain.Profile{TZOffset: 8}
	paused := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		st   hydration.Status
		want string
	}{
		{hydration.Status{Profile: p, Every: time.Hour}, "every 60 min"},
		{hydration.Status{Profile: p, PausedUntil: &paused}, "paused until 2024-01-02 08:00"},
		{hydration.Status{Profile: &domain.Profile{Disabled: true}}, "stopped"},
		{hydration.Status{Profile: p, Blacklisted: true, Every: time.Hour}, "blocked"},
		{hydration.Status{Profile: p}, "not scheduled"},
	}
	for _, c := range cases {
		if got := reminderState(c.st); !strings.Contains(got, c.want) {
			t.Fatalf("reminderState = %q, want %q", got, c.want)
		}
	}
}

func TestWithPauseNote(t *testing.T) {
	until := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	got := withPauseNote("⏲️ Reminders every 45 min.", until, 8)
	if !strings.HasPrefix(got, "⏲️ Reminders every 45 min.") {
		t.Fatalf("confirmation lost: %q", got)
	}
	if !strings.Contains(got, "paused until 2024-01-02 08:00") || !strings.Contains(got, "/resume") {
		t.Fatalf("pause note: %q", got)
	}
	if strings.Contains(got, "starting now") {
		t.Fatalf("must not promise an immediate start: %q", got)
	}
}
