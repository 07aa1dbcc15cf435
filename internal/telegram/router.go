package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/hydration-bot/internal/domain"
	"github.com/ykvlv/hydration-bot/internal/hydration"
)

// Pending state keys used in conversational flows.
const (
	pendingGoal     = "await_goal_text"
	pendingInterval = "await_interval_text"
	pendingHours    = "await_hours_text"
	pendingTZ       = "await_tz_text"
)

// Router wires Telegram updates to handlers and holds minimal in-memory state.
type Router struct {
	bot    *tgbotapi.BotAPI
	log    *zap.Logger
	svc    *hydration.Service
	admins map[int64]struct{}
	state  map[int64]string // chatID -> pending state
	mu     sync.Mutex
}

// NewRouter creates a new Telegram router. adminIDs may use /ban and /unban.
// The router is the service's message sender, so the service is attached
// afterwards with SetService.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, adminIDs []int64) *Router {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Router{
		bot:    bot,
		log:    log,
		admins: admins,
		state:  make(map[int64]string),
	}
}

// SetService attaches the service that handles commands.
func (r *Router) SetService(svc *hydration.Service) {
	r.svc = svc
}

// setPending sets a pending state for a chat (non-persistent, in-memory).
func (r *Router) setPending(chatID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = s
}

// takePending returns and clears the pending state for a chat.
func (r *Router) takePending(chatID int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state[chatID]
	delete(r.state, chatID)
	return s
}

func (r *Router) isAdmin(userID int64) bool {
	_, ok := r.admins[userID]
	return ok
}

// HandleUpdate routes a single update to appropriate handler.
// Every message and button press counts as interaction, whatever it asks for.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if chatID, ok := interactionChat(upd); ok {
		if _, err := r.svc.Touch(ctx, chatID); err != nil {
			r.log.Warn("mark interaction failed", zap.Int64("chatID", chatID), zap.Error(err))
		}
	}

	// Text messages
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID
		if !msg.IsCommand() {
			r.handleFreeForm(ctx, chatID, strings.TrimSpace(msg.Text))
			return
		}
		// A command cancels any half-finished custom input.
		r.takePending(chatID)
		args := strings.TrimSpace(msg.CommandArguments())

		switch msg.Command() {
		case "start":
			r.handleStart(ctx, chatID)
		case "help":
			r.sendText(chatID, helpText)
		case "status":
			r.handleStatus(ctx, chatID)
		case "settings":
			r.handleSettings(ctx, chatID)
		case "goal":
			r.handleGoal(ctx, chatID, args)
		case "interval":
			r.handleInterval(ctx, chatID, args)
		case "timezone":
			r.handleTZ(ctx, chatID, args)
		case "time":
			r.handleHours(ctx, chatID, args)
		case "quiet":
			r.handleQuiet(ctx, chatID, args)
		case "text":
			r.handleText(ctx, chatID, args)
		case "back":
			r.handleBack(ctx, chatID, args)
		case "stats":
			r.handleStats(ctx, chatID)
		case "pause":
			r.handlePause(ctx, chatID)
		case "stop":
			r.handleStop(ctx, chatID)
		case "resume":
			r.handleResume(ctx, chatID)
		case "reset":
			r.handleReset(ctx, chatID)
		case "deleteme":
			r.handleDeleteMe(chatID)
		case "ban":
			r.handleBan(ctx, msg.From, chatID, args, true)
		case "unban":
			r.handleBan(ctx, msg.From, chatID, args, false)
		default:
			r.sendText(chatID, "Unknown command. See /help.")
		}
		return
	}

	// Callback queries (inline buttons)
	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil {
			return
		}
		data := cb.Data
		chatID := cb.Message.Chat.ID
		_ = r.answerCallback(cb.ID, "")

		switch {
		// Settings sections
		case data == "set_goal":
			r.sendWithMarkup(chatID, "Choose a daily goal (or Custom to enter your own):", goalPresetsKeyboard())
		case strings.HasPrefix(data, "goal:"):
			r.handlePresetCallback(ctx, chatID, strings.TrimPrefix(data, "goal:"), pendingGoal, "Enter your daily goal in ml, e.g. 2500")

		case data == "set_interval":
			r.sendWithMarkup(chatID, "Choose an interval (or Custom to enter your own):", intervalPresetsKeyboard())
		case strings.HasPrefix(data, "interval:"):
			r.handlePresetCallback(ctx, chatID, strings.TrimPrefix(data, "interval:"), pendingInterval, "Enter the interval in minutes (1–1440), e.g. 45")

		case data == "set_hours":
			r.sendWithMarkup(chatID, "Choose active hours (or Custom):", hoursPresetsKeyboard())
		case strings.HasPrefix(data, "hours:"):
			r.handlePresetCallback(ctx, chatID, strings.TrimPrefix(data, "hours:"), pendingHours, "Enter active hours as HH:MM HH:MM, e.g. 08:00 22:00")

		case data == "set_tz":
			r.sendWithMarkup(chatID, "Choose your UTC offset (or Custom):", tzPresetsKeyboard())
		case strings.HasPrefix(data, "tz:"):
			r.handlePresetCallback(ctx, chatID, strings.TrimPrefix(data, "tz:"), pendingTZ, "Enter your UTC offset in hours (-12..14), e.g. +8")

		case data == "delete:confirm":
			r.handleDeleteConfirmed(ctx, chatID)
		case data == "delete:cancel":
			r.sendText(chatID, "Nothing was deleted.")

		default:
			// Unknown callback: ignore silently
		}
	}
}

// interactionChat returns the chat whose activity an update shows. Confirming
// deletion is left out so the profile is not recreated just before it goes.
func interactionChat(upd tgbotapi.Update) (int64, bool) {
	switch {
	case upd.Message != nil && upd.Message.Chat != nil:
		return upd.Message.Chat.ID, true
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil && upd.CallbackQuery.Message.Chat != nil:
		if upd.CallbackQuery.Data == "delete:confirm" {
			return 0, false
		}
		return upd.CallbackQuery.Message.Chat.ID, true
	}
	return 0, false
}

// handlePresetCallback applies a preset value or starts the custom-input flow.
func (r *Router) handlePresetCallback(ctx context.Context, chatID int64, val, pending, prompt string) {
	if val == "custom" {
		r.sendText(chatID, prompt)
		r.setPending(chatID, pending)
		return
	}
	r.applyPending(ctx, chatID, pending, val)
}

// SendMessage sends a plain text message to the given chat and gives up when
// ctx is done. The request itself is bounded by the bot's HTTP client timeout.
// This makes Router satisfy scheduler.Sender and reaper.Sender.
func (r *Router) SendMessage(ctx context.Context, chatID int64, text string) error {
	errc := make(chan error, 1)
	go func() {
		_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
		errc <- err
	}()
	select {
	case err := <-errc:
		return classifySendError(err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// classifySendError marks failures after which the chat can never be reached again.
func classifySendError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	desc := strings.ToLower(apiErr.Message)
	switch {
	case apiErr.Code == 403:
		// Bot blocked or user deactivated.
		return fmt.Errorf("%w: %s", domain.ErrUnreachable, apiErr.Message)
	case apiErr.Code == 400 && (strings.Contains(desc, "chat not found") || strings.Contains(desc, "user not found")):
		return fmt.Errorf("%w: %s", domain.ErrUnreachable, apiErr.Message)
	default:
		return err
	}
}
