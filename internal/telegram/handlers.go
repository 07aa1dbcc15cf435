package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/hydration-bot/internal/domain"
	"github.com/ykvlv/hydration-bot/internal/hydration"
)

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Debug("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (r *Router) sendWithMarkup(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Debug("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// reply sends ok, or explains err. A saved change whose timer reset failed is
// still confirmed, with a warning.
func (r *Router) reply(chatID int64, op string, err error, ok string) {
	switch {
	case err == nil:
		r.sendText(chatID, ok)
	case errors.Is(err, hydration.ErrReschedule):
		r.log.Warn(op+": timer not reset", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, ok+"\n\n"+rescheduleMsg)
	default:
		r.log.Error(op+" failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, genericError)
	}
}

// splitRange splits "08:00 22:00", "08:00-22:00" or "08:00–22:00".
func splitRange(s string) []string {
	return strings.FieldsFunc(s, func(c rune) bool {
		return c == ' ' || c == '-' || c == '–' || c == '—'
	})
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, chatID int64) {
	p, err := r.svc.Start(ctx, chatID)
	if err != nil && !errors.Is(err, hydration.ErrReschedule) {
		r.log.Error("Start failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, "Profile initialization error. Please try again later.")
		return
	}
	body := fmt.Sprintf("%s\n\n🎯 Goal: %dml a day\n⏲️ Reminder every %d min between %s and %s (%s)",
		startText, p.DailyGoalML, p.IntervalMin, p.ActiveStart, p.ActiveEnd, domain.FormatOffset(p.TZOffset))
	if err != nil {
		body += "\n\n" + rescheduleMsg
	}
	r.sendWithMarkup(chatID, body, mainMenuKeyboard(p.Disabled))
}

func (r *Router) handleStatus(ctx context.Context, chatID int64) {
	st, err := r.svc.Status(ctx, chatID)
	if err != nil {
		r.log.Error("Status failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, "Error reading your settings.")
		return
	}
	r.sendWithMarkup(chatID, formatStatus(st), mainMenuKeyboard(st.Profile.Disabled))
}

func (r *Router) handleSettings(ctx context.Context, chatID int64) {
	st, err := r.svc.Status(ctx, chatID)
	if err != nil {
		r.log.Error("Status failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, "Error opening settings.")
		return
	}
	r.sendWithMarkup(chatID, formatStatus(st)+"\n\nWhat do you want to configure?", settingsInlineKeyboard())
}

// --- Settings ---

func (r *Router) handleGoal(ctx context.Context, chatID int64, args string) {
	r.applyOrAsk(ctx, chatID, args, pendingGoal, "Enter your daily goal in ml, e.g. 2500")
}

func (r *Router) handleInterval(ctx context.Context, chatID int64, args string) {
	r.applyOrAsk(ctx, chatID, args, pendingInterval, "Enter the interval in minutes (1–1440), e.g. 45")
}

func (r *Router) handleTZ(ctx context.Context, chatID int64, args string) {
	r.applyOrAsk(ctx, chatID, args, pendingTZ, "Enter your UTC offset in hours (-12..14), e.g. +8")
}

func (r *Router) handleHours(ctx context.Context, chatID int64, args string) {
	r.applyOrAsk(ctx, chatID, args, pendingHours, "Enter active hours as HH:MM HH:MM, e.g. 08:00 22:00")
}

// applyOrAsk applies args right away, or prompts for them when the command came bare.
func (r *Router) applyOrAsk(ctx context.Context, chatID int64, args, pending, prompt string) {
	if args == "" {
		r.sendText(chatID, prompt)
		r.setPending(chatID, pending)
		return
	}
	r.applyPending(ctx, chatID, pending, args)
}

// applyPending validates a settings value and saves it.
func (r *Router) applyPending(ctx context.Context, chatID int64, pending, val string) {
	var (
		upd domain.ProfileUpdate
		ok  string
	)
	switch pending {
	case pendingGoal:
		v, err := domain.ParseGoal(strings.TrimSuffix(strings.ToLower(val), "ml"))
		if err != nil {
			r.sendText(chatID, fmt.Sprintf("Invalid goal. Enter a number of ml from 1 to %d.", domain.MaxGoalML))
			return
		}
		upd.DailyGoalML = &v
		ok = fmt.Sprintf("🎯 Daily goal set to %dml.", v)

	case pendingInterval:
		v, err := domain.ParseInterval(val)
		if err != nil {
			r.sendText(chatID, fmt.Sprintf("Invalid interval. Enter minutes from 1 to %d.", domain.MaxIntervalMin))
			return
		}
		upd.IntervalMin = &v
		ok = fmt.Sprintf("⏲️ Reminders every %d min.", v)

	case pendingTZ:
		v, err := domain.ParseTZOffset(strings.TrimPrefix(strings.ToUpper(val), "UTC"))
		if err != nil {
			r.sendText(chatID, fmt.Sprintf("Invalid offset. Enter whole hours from %d to +%d, e.g. +8.", domain.MinTZOffset, domain.MaxTZOffset))
			return
		}
		upd.TZOffset = &v
		ok = "🌍 Timezone set to " + domain.FormatOffset(v) + "."

	case pendingHours:
		parts := splitRange(val)
		if len(parts) != 2 {
			r.sendText(chatID, "Invalid format. Example: 08:00 22:00")
			return
		}
		from, to, err := domain.ParseTimeRange(parts[0], parts[1])
		if err != nil {
			r.sendText(chatID, "Invalid format. Example: 08:00 22:00")
			return
		}
		upd.ActiveStart, upd.ActiveEnd = &from, &to
		ok = "🕘 Active hours set to " + from + "–" + to + "."

	default:
		return
	}
	p, err := r.svc.UpdateSettings(ctx, chatID, upd)
	until, paused := r.svc.PausedUntil(chatID)
	switch {
	case paused && p != nil:
		ok = withPauseNote(ok, until, p.TZOffset)
	case pending == pendingInterval:
		ok = strings.TrimSuffix(ok, ".") + ", starting now."
	}
	r.reply(chatID, "UpdateSettings", err, ok)
}

func (r *Router) handleQuiet(ctx context.Context, chatID int64, args string) {
	if args == "" {
		p, err := r.svc.Touch(ctx, chatID)
		if err != nil {
			r.reply(chatID, "Touch", err, "")
			return
		}
		r.sendText(chatID, fmt.Sprintf("🤫 Quiet hours: %s\n\nAdd one with /quiet 12:00 13:00, remove all with /quiet clear (max %d).",
			formatQuiet(p.QuietHours), domain.MaxQuietPeriods))
		return
	}
	if strings.EqualFold(args, "clear") {
		_, err := r.svc.ClearQuietHours(ctx, chatID)
		r.reply(chatID, "ClearQuietHours", err, "🔔 Quiet hours removed.")
		return
	}

	parts := splitRange(args)
	if len(parts) != 2 {
		r.sendText(chatID, "Invalid format. Example: /quiet 12:00 13:00")
		return
	}
	from, to, err := domain.ParseTimeRange(parts[0], parts[1])
	if err != nil {
		r.sendText(chatID, "Invalid format. Example: /quiet 12:00 13:00")
		return
	}
	p, err := r.svc.AddQuietPeriod(ctx, chatID, domain.QuietPeriod{Start: from, End: to})
	switch {
	case errors.Is(err, domain.ErrQuietOverlap):
		r.sendText(chatID, "That overlaps one of your quiet periods. /quiet shows them.")
	case errors.Is(err, domain.ErrTooManyQuiet):
		r.sendText(chatID, fmt.Sprintf("You can have at most %d quiet periods. /quiet clear removes them all.", domain.MaxQuietPeriods))
	case err != nil && !errors.Is(err, hydration.ErrReschedule):
		r.reply(chatID, "AddQuietPeriod", err, "")
	default:
		r.reply(chatID, "AddQuietPeriod", err, "🤫 Quiet hours: "+formatQuiet(p.QuietHours))
	}
}

func (r *Router) handleText(ctx context.Context, chatID int64, args string) {
	if strings.EqualFold(args, "clear") {
		err := r.svc.ClearReminderTexts(ctx, chatID)
		r.reply(chatID, "ClearReminderTexts", err, "📝 Reminder texts reset to default.")
		return
	}
	fields := strings.SplitN(args, " ", 2)
	if len(fields) != 2 || strings.TrimSpace(fields[1]) == "" {
		r.sendText(chatID, fmt.Sprintf("Usage: /text N message, where N is the reminder number in a row (1–%d). /text clear resets all.", domain.MaxGradientSteps))
		return
	}
	step, err := domain.ParseStep(fields[0])
	if err != nil {
		r.sendText(chatID, fmt.Sprintf("N must be from 1 to %d.", domain.MaxGradientSteps))
		return
	}
	text := strings.TrimSpace(fields[1])
	if utf8.RuneCountInString(text) > maxTextLen {
		r.sendText(chatID, fmt.Sprintf("Too long. Please keep it under %d characters.", maxTextLen))
		return
	}
	err = r.svc.SetReminderText(ctx, chatID, step, text)
	r.reply(chatID, "SetReminderText", err, fmt.Sprintf("📝 Text for reminder #%d saved.", step))
}

// --- Intake ---

func (r *Router) recordIntake(ctx context.Context, chatID int64, amount, minutesAgo int) {
	res, err := r.svc.RecordIntake(ctx, chatID, amount, minutesAgo)
	if err != nil && !errors.Is(err, hydration.ErrReschedule) {
		r.reply(chatID, "RecordIntake", err, "")
		return
	}
	ok := formatIntake(res)
	if minutesAgo > 0 {
		ok = strings.Replace(ok, "\n", fmt.Sprintf(" (%d min ago)\n", minutesAgo), 1)
	}
	r.reply(chatID, "RecordIntake", err, ok)
}

func (r *Router) handleBack(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		r.sendText(chatID, "Usage: /back amount minutesAgo, e.g. /back 250 30")
		return
	}
	amount, err := domain.ParseAmount(strings.TrimSuffix(strings.ToLower(fields[0]), "ml"))
	if err != nil {
		r.sendText(chatID, fmt.Sprintf("Amount must be from 1 to %d ml.", domain.MaxIntakeML))
		return
	}
	mins, err := domain.ParseBackfillMinutes(fields[1])
	if err != nil {
		r.sendText(chatID, fmt.Sprintf("Minutes ago must be from 0 to %d.", domain.MaxBackfillMinutes))
		return
	}
	r.recordIntake(ctx, chatID, amount, mins)
}

func (r *Router) handleStats(ctx context.Context, chatID int64) {
	st, err := r.svc.Stats(ctx, chatID)
	if err != nil {
		r.reply(chatID, "Stats", err, "")
		return
	}
	r.sendText(chatID, formatStats(st))
}

// --- Free-form dispatcher (custom inputs and drink amounts) ---

func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	if pending := r.takePending(chatID); pending != "" {
		r.applyPending(ctx, chatID, pending, text)
		return
	}
	if text == "" {
		return
	}
	raw := strings.TrimSpace(strings.TrimSuffix(strings.ToLower(text), "ml"))
	if _, err := strconv.Atoi(raw); err != nil {
		r.sendText(chatID, "Send a number (e.g. 250) to log a drink, or /help for commands.")
		return
	}
	amount, err := domain.ParseAmount(raw)
	if err != nil {
		r.sendText(chatID, fmt.Sprintf("Amount must be from 1 to %d ml.", domain.MaxIntakeML))
		return
	}
	r.recordIntake(ctx, chatID, amount, 0)
}

// --- Pause / Stop / Resume ---

func (r *Router) handlePause(ctx context.Context, chatID int64) {
	resumeAt, err := r.svc.PauseForToday(ctx, chatID)
	if err != nil {
		r.log.Error("pause failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, "Failed to pause.")
		return
	}
	st, err := r.svc.Status(ctx, chatID)
	if err != nil {
		r.sendText(chatID, "⏸ Paused until tomorrow.")
		return
	}
	off := st.Profile.TZOffset
	r.sendText(chatID, fmt.Sprintf("⏸ Paused. Reminders resume on %s at %s. /resume brings them back now.",
		domain.LocalDate(resumeAt, off), domain.LocalTimeOf(resumeAt, off)))
}

func (r *Router) handleStop(ctx context.Context, chatID int64) {
	if err := r.svc.SetDisabled(ctx, chatID, true); err != nil && !errors.Is(err, hydration.ErrReschedule) {
		r.log.Error("stop failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, "Failed to stop reminders.")
		return
	}
	r.sendWithMarkup(chatID, "🛑 Reminders are off. Your data is kept, /resume turns them back on.", mainMenuKeyboard(true))
}

func (r *Router) handleResume(ctx context.Context, chatID int64) {
	err := r.svc.SetDisabled(ctx, chatID, false)
	if err != nil && !errors.Is(err, hydration.ErrReschedule) {
		r.log.Error("resume failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, "Failed to resume.")
		return
	}
	text := "✅ Reminders are back on."
	if err != nil {
		text += "\n\n" + rescheduleMsg
	}
	r.sendWithMarkup(chatID, text, mainMenuKeyboard(false))
}

// --- Reset / Delete ---

func (r *Router) handleReset(ctx context.Context, chatID int64) {
	err := r.svc.ResetSelf(ctx, chatID)
	r.reply(chatID, "ResetSelf", err, "🧹 Your drink history and custom texts were cleared. Settings are kept.")
}

func (r *Router) handleDeleteMe(chatID int64) {
	r.sendWithMarkup(chatID, deleteConfirm, deleteConfirmKeyboard())
}

func (r *Router) handleDeleteConfirmed(ctx context.Context, chatID int64) {
	if err := r.svc.DeleteUser(ctx, chatID); err != nil {
		r.reply(chatID, "DeleteUser", err, "")
		return
	}
	r.sendWithMarkup(chatID, "🗑 All your data has been deleted. Send /start any time to begin again.",
		tgbotapi.NewRemoveKeyboard(true))
}

// --- Admin ---

func (r *Router) handleBan(ctx context.Context, from *tgbotapi.User, chatID int64, args string, ban bool) {
	if from == nil || !r.isAdmin(from.ID) {
		r.sendText(chatID, "Unknown command. See /help.")
		return
	}
	fields := strings.Fields(args)
	if len(fields) == 0 {
		r.sendText(chatID, "Usage: /ban userID [reason] or /unban userID")
		return
	}
	target, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		r.sendText(chatID, "Invalid user ID.")
		return
	}
	reason := strings.Join(fields[1:], " ")
	err = r.svc.SetBlacklisted(ctx, target, ban, reason)
	ok := fmt.Sprintf("⛔ User %d blacklisted.", target)
	if !ban {
		ok = fmt.Sprintf("✅ User %d removed from the blacklist.", target)
	}
	r.reply(chatID, "SetBlacklisted", err, ok)
}
