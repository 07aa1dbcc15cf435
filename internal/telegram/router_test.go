package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ykvlv/hydration-bot/internal/domain"
	"github.com/ykvlv/hydration-bot/internal/hydration"
	"github.com/ykvlv/hydration-bot/internal/scheduler"
	"github.com/ykvlv/hydration-bot/internal/store"
)

// fakeTelegram answers every Bot API call with success and records sent texts.
type fakeTelegram struct {
	mu   sync.Mutex
	sent map[string][]string // chat_id -> texts
}

const okBody = `{"ok":true,"result":{"message_id":1,"id":1,"is_bot":true,"first_name":"bot","username":"hydration_bot","chat":{"id":1,"type":"private"}}}`

func (f *fakeTelegram) Do(req *http.Request) (*http.Response, error) {
	if err := req.ParseForm(); err != nil {
		return nil, err
	}
	if strings.HasSuffix(req.URL.Path, "/sendMessage") {
		f.mu.Lock()
		chat := req.PostForm.Get("chat_id")
		f.sent[chat] = append(f.sent[chat], req.PostForm.Get("text"))
		f.mu.Unlock()
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(okBody)),
		Request:    req,
	}, nil
}

func (f *fakeTelegram) last(t *testing.T, chatID int64) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := f.sent[strconv.FormatInt(chatID, 10)]
	if len(texts) == 0 {
		t.Fatalf("nothing sent to %d", chatID)
	}
	return texts[len(texts)-1]
}

// 12:00 local at UTC+8.
var routerStart = time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC)

type routerFixture struct {
	router *Router
	repo   *store.SQLiteRepo
	tg     *fakeTelegram
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	tg := &fakeTelegram{sent: make(map[string][]string)}
	bot, err := tgbotapi.NewBotAPIWithClient("test-token", tgbotapi.APIEndpoint, tg)
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "router.db"), domain.Settings{
		DailyGoalML: 2000,
		IntervalMin: 60,
		ActiveStart: "08:00",
		ActiveEnd:   "22:00",
		TZOffset:    8,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	clock := clockwork.NewFakeClockAt(routerStart)
	r := NewRouter(bot, zap.NewNop(), nil)
	sched := scheduler.New(repo, repo, r, zap.NewNop(), clock)
	r.SetService(hydration.New(repo, repo, sched, clock, zap.NewNop()))
	t.Cleanup(func() {
		sched.Stop()
		_ = repo.Close()
	})
	return &routerFixture{router: r, repo: repo, tg: tg}
}

// seedIdle creates a profile last seen ten days ago.
func (f *routerFixture) seedIdle(t *testing.T, chatID int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.repo.GetOrCreateProfile(ctx, chatID); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.repo.MarkInteraction(ctx, chatID, routerStart.AddDate(0, 0, -10)); err != nil {
		t.Fatalf("mark: %v", err)
	}
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID, Type: "private"},
		From: &tgbotapi.User{ID: chatID},
	}
	if strings.HasPrefix(text, "/") {
		name := strings.SplitN(text, " ", 2)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID, Type: "private"}},
	}}
}

func TestHandleUpdate_EveryActionMarksInteraction(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		upd  func(chatID int64) tgbotapi.Update
	}{
		{"help", func(id int64) tgbotapi.Update { return textUpdate(id, "/help") }},
		{"unknown command", func(id int64) tgbotapi.Update { return textUpdate(id, "/nope") }},
		{"delete prompt", func(id int64) tgbotapi.Update { return textUpdate(id, "/deleteme") }},
		{"rejected text", func(id int64) tgbotapi.Update { return textUpdate(id, "hello") }},
		{"settings menu", func(id int64) tgbotapi.Update { return callbackUpdate(id, "set_goal") }},
		{"custom preset", func(id int64) tgbotapi.Update { return callbackUpdate(id, "interval:custom") }},
		{"delete cancel", func(id int64) tgbotapi.Update { return callbackUpdate(id, "delete:cancel") }},
	}
	for i, c := range cases {
		chatID := int64(100 + i)
		f.seedIdle(t, chatID)
		f.router.HandleUpdate(ctx, c.upd(chatID))

		p, err := f.repo.GetProfile(ctx, chatID)
		if err != nil {
			t.Fatalf("%s: get: %v", c.name, err)
		}
		if !p.LastInteractionAt.Equal(routerStart) {
			t.Fatalf("%s: last interaction = %v, want %v", c.name, p.LastInteractionAt, routerStart)
		}
	}
}

func TestHandleUpdate_DeleteConfirmDoesNotRecreateProfile(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()
	f.seedIdle(t, 7)

	f.router.HandleUpdate(ctx, callbackUpdate(7, "delete:confirm"))
	if _, err := f.repo.GetProfile(ctx, 7); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("profile must be gone, got %v", err)
	}
	if got := f.tg.last(t, 7); !strings.Contains(got, "deleted") {
		t.Fatalf("confirmation: %q", got)
	}
}

func TestInteractionChat(t *testing.T) {
	if id, ok := interactionChat(textUpdate(5, "/help")); !ok || id != 5 {
		t.Fatalf("message: %d, %v", id, ok)
	}
	if id, ok := interactionChat(callbackUpdate(6, "set_tz")); !ok || id != 6 {
		t.Fatalf("callback: %d, %v", id, ok)
	}
	if _, ok := interactionChat(callbackUpdate(6, "delete:confirm")); ok {
		t.Fatalf("delete:confirm must not count")
	}
	if _, ok := interactionChat(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{Data: "set_tz"}}); ok {
		t.Fatalf("callback without message must not count")
	}
	if _, ok := interactionChat(tgbotapi.Update{}); ok {
		t.Fatalf("empty update must not count")
	}
}

func TestInterval_ConfirmationMentionsPause(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	f.router.HandleUpdate(ctx, textUpdate(7, "/start"))
	f.router.HandleUpdate(ctx, textUpdate(7, "/interval 45"))
	if got := f.tg.last(t, 7); !strings.Contains(got, "every 45 min, starting now") {
		t.Fatalf("unpaused confirmation: %q", got)
	}

	f.router.HandleUpdate(ctx, textUpdate(7, "/pause"))
	f.router.HandleUpdate(ctx, textUpdate(7, "/interval 30"))
	got := f.tg.last(t, 7)
	if strings.Contains(got, "starting now") {
		t.Fatalf("paused user was promised an immediate start: %q", got)
	}
	// Paused at 12:00 local, reminders return at tomorrow's 08:00.
	if !strings.Contains(got, "every 30 min") || !strings.Contains(got, "paused until 2024-01-02 08:00") {
		t.Fatalf("paused confirmation: %q", got)
	}
}
