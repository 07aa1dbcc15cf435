package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ykvlv/hydration-bot/internal/domain"
	"github.com/ykvlv/hydration-bot/internal/hydration"
)

// UI texts in English
const (
	startText = "👋 Hi! I am your hydration buddy.\n\n" +
		"I will remind you to drink water during your active hours and keep track of your daily goal.\n" +
		"Send a number (e.g. 250) whenever you drink. /help lists everything I can do."
	helpText = "💧 Commands\n\n" +
		"250 — log 250ml\n" +
		"/back 250 30 — log 250ml drunk 30 minutes ago\n" +
		"/stats — today and the last 7 days\n" +
		"/status — your settings and next reminder\n" +
		"/settings — change settings with buttons\n\n" +
		"/goal 2500 — daily goal in ml\n" +
		"/interval 60 — minutes between reminders\n" +
		"/timezone +8 — UTC offset in hours\n" +
		"/time 08:00 22:00 — active hours\n" +
		"/quiet 12:00 13:00 — add quiet hours, /quiet clear to remove all\n" +
		"/text 2 Drink up! — text of the 2nd reminder in a row, /text clear to reset\n\n" +
		"/pause — no reminders until tomorrow\n" +
		"/stop — turn reminders off, /resume — turn them back on\n" +
		"/reset — forget your drinks and texts, keep settings\n" +
		"/deleteme — delete all your data"
	statusTitle   = "🧾 Your current settings:"
	statusFmt     = "• Daily goal: %dml\n• Interval: %d min\n• Active hours: %s–%s\n• Timezone: %s\n• Quiet hours: %s\n• Reminders: %s\n• Today: %d/%d (%d%%)\n• Last drink: %s"
	rescheduleMsg = "⚠️ Saved, but the reminder timer could not be reset. It will be rebuilt on your next message."
	genericError  = "Something went wrong. Please try again later."
	deleteConfirm = "⚠️ This deletes your profile and the whole drink history. Continue?"
	maxTextLen    = 512
)

// mainMenuKeyboard builds the reply keyboard. The toggle shows /resume while
// reminders are stopped and /pause otherwise.
func mainMenuKeyboard(stopped bool) tgbotapi.ReplyKeyboardMarkup {
	toggle := "/pause"
	if stopped {
		toggle = "/resume"
	}
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("250"),
			tgbotapi.NewKeyboardButton("500"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/stats"),
			tgbotapi.NewKeyboardButton("/status"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/settings"),
			tgbotapi.NewKeyboardButton(toggle),
		),
	)
}

// Inline keyboards
func settingsInlineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Goal", "set_goal"),
			tgbotapi.NewInlineKeyboardButtonData("⏲️ Interval", "set_interval"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🕘 Active hours", "set_hours"),
			tgbotapi.NewInlineKeyboardButtonData("🌍 Timezone", "set_tz"),
		),
	)
}

func goalPresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("1500ml", "goal:1500"),
			tgbotapi.NewInlineKeyboardButtonData("2000ml", "goal:2000"),
			tgbotapi.NewInlineKeyboardButtonData("2500ml", "goal:2500"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("3000ml", "goal:3000"),
			tgbotapi.NewInlineKeyboardButtonData("✍️ Custom…", "goal:custom"),
		),
	)
}

func intervalPresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("30m", "interval:30"),
			tgbotapi.NewInlineKeyboardButtonData("45m", "interval:45"),
			tgbotapi.NewInlineKeyboardButtonData("1h", "interval:60"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("1h30m", "interval:90"),
			tgbotapi.NewInlineKeyboardButtonData("2h", "interval:120"),
			tgbotapi.NewInlineKeyboardButtonData("✍️ Custom…", "interval:custom"),
		),
	)
}

func hoursPresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("08:00–22:00", "hours:08:00-22:00"),
			tgbotapi.NewInlineKeyboardButtonData("09:00–21:00", "hours:09:00-21:00"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("07:00–23:00", "hours:07:00-23:00"),
			tgbotapi.NewInlineKeyboardButtonData("✍️ Custom…", "hours:custom"),
		),
	)
}

func tzPresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("UTC+0", "tz:0"),
			tgbotapi.NewInlineKeyboardButtonData("UTC+3", "tz:3"),
			tgbotapi.NewInlineKeyboardButtonData("UTC+5", "tz:5"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("UTC+8", "tz:8"),
			tgbotapi.NewInlineKeyboardButtonData("UTC-5", "tz:-5"),
			tgbotapi.NewInlineKeyboardButtonData("✍️ Custom…", "tz:custom"),
		),
	)
}

func deleteConfirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete everything", "delete:confirm"),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "delete:cancel"),
		),
	)
}

func formatQuiet(quiet []domain.QuietPeriod) string {
	if len(quiet) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(quiet))
	for _, q := range quiet {
		parts = append(parts, q.Start+"–"+q.End)
	}
	return strings.Join(parts, ", ")
}

// reminderState describes why reminders are or are not running.
func reminderState(st hydration.Status) string {
	p := st.Profile
	switch {
	case st.Blacklisted:
		return "⛔ blocked by the administrator"
	case p.Disabled:
		return "🛑 stopped (/resume to turn on)"
	case st.PausedUntil != nil:
		return fmt.Sprintf("⏸ paused until %s %s",
			domain.LocalDate(*st.PausedUntil, p.TZOffset),
			domain.LocalTimeOf(*st.PausedUntil, p.TZOffset))
	case st.Every > 0:
		return fmt.Sprintf("✅ every %d min", int(st.Every.Minutes()))
	default:
		return "— not scheduled (send /start)"
	}
}

func formatStatus(st hydration.Status) string {
	p := st.Profile
	percent, _ := domain.Progress(st.TodayML, p.DailyGoalML)
	last := "—"
	if st.LastIntake != nil {
		last = domain.LocalDate(*st.LastIntake, p.TZOffset) + " " + domain.LocalTimeOf(*st.LastIntake, p.TZOffset)
	}
	return fmt.Sprintf("%s\n\n"+statusFmt,
		statusTitle,
		p.DailyGoalML,
		p.IntervalMin,
		p.ActiveStart, p.ActiveEnd,
		domain.FormatOffset(p.TZOffset),
		formatQuiet(p.QuietHours),
		reminderState(st),
		st.TodayML, p.DailyGoalML, percent,
		last,
	)
}

// encouragement picks a line by today's progress band.
func encouragement(percent int) string {
	switch {
	case percent < 50:
		return "💪 Keep going, every sip counts!"
	case percent < 80:
		return "👍 Good progress, you are over halfway there!"
	case percent < 100:
		return "🔥 Almost there, just a little more!"
	default:
		return "🎉 Goal reached! Great job!"
	}
}

func formatStats(st hydration.Stats) string {
	goal := st.Profile.DailyGoalML
	var b strings.Builder
	percent, remaining := domain.Progress(st.TodayML, goal)
	fmt.Fprintf(&b, "📊 Today: %d/%d (%d%%)\nRemaining: %dml\n\n", st.TodayML, goal, percent, remaining)
	fmt.Fprintf(&b, "📅 Last %d days:\n", len(st.Days))
	for _, d := range st.Days {
		p, _ := domain.Progress(d.TotalML, goal)
		mark := "  "
		if p >= 100 {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s %s: %dml (%d%%)\n", mark, d.Date, d.TotalML, p)
	}
	b.WriteString("\n")
	b.WriteString(encouragement(percent))
	return b.String()
}

func formatIntake(res hydration.IntakeResult) string {
	percent, remaining := domain.Progress(res.TodayML, res.GoalML)
	msg := fmt.Sprintf("✅ Logged %dml.\n📊 Today: %d/%d (%d%%)", res.Record.AmountML, res.TodayML, res.GoalML, percent)
	if remaining == 0 {
		return msg + "\n🎉 Daily goal reached!"
	}
	return msg + fmt.Sprintf("\nRemaining: %dml", remaining)
}

// withPauseNote tells a paused user that a saved change waits for the pause to end.
func withPauseNote(ok string, until time.Time, offset int) string {
	return fmt.Sprintf("%s\n\n⏸ Reminders stay paused until %s %s. /resume brings them back now.",
		ok, domain.LocalDate(until, offset), domain.LocalTimeOf(until, offset))
}
