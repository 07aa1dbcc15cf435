package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ykvlv/hydration-bot/internal/config"
	"github.com/ykvlv/hydration-bot/internal/hydration"
	"github.com/ykvlv/hydration-bot/internal/reaper"
	"github.com/ykvlv/hydration-bot/internal/scheduler"
	"github.com/ykvlv/hydration-bot/internal/store"
	"github.com/ykvlv/hydration-bot/internal/telegram"
)

type App struct {
	cfg   config.Config
	log   *zap.Logger
	bot   *tgbotapi.BotAPI
	clock clockwork.Clock

	httpSrv   *http.Server
	repo      *store.SQLiteRepo
	blacklist store.Blacklist
	redis     *store.RedisBlacklist
	sched     *scheduler.Scheduler
	router    *telegram.Router
	reaper    *reaper.Reaper
}

// pollTimeout is the long-polling window in seconds. The Bot API client timeout
// must outlast it, and it bounds every other request.
const (
	pollTimeout   = 30
	clientTimeout = 45 * time.Second
)

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	client := &http.Client{Timeout: clientTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	return &App{cfg: cfg, log: log, bot: bot, clock: clockwork.NewRealClock()}, nil
}

// open builds storage, the scheduler and everything that depends on them.
func (a *App) open(ctx context.Context) error {
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath, a.cfg.Defaults())
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.blacklist = repo
	a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))

	if a.cfg.BlacklistBackend == config.BackendRedis {
		rb, err := store.OpenRedisBlacklist(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
		if err != nil {
			a.log.Error("open redis failed", zap.String("addr", a.cfg.RedisAddr), zap.Error(err))
			return err
		}
		a.redis = rb
		a.blacklist = rb
		a.log.Info("redis blacklist ready", zap.String("addr", a.cfg.RedisAddr))
	}

	a.router = telegram.NewRouter(a.bot, a.log, a.cfg.AdminIDs)
	a.sched = scheduler.New(repo, a.blacklist, a.router, a.log, a.clock)
	a.router.SetService(hydration.New(repo, a.blacklist, a.sched, a.clock, a.log))
	a.reaper = reaper.New(repo, a.router, a.sched, a.clock, a.log, a.cfg.InactivityDays)

	a.httpSrv = &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      newHTTPHandler(a.sched, repo, a.clock.Now),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting hydration-bot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("blacklist", a.cfg.BlacklistBackend),
		zap.Int("admins", len(a.cfg.AdminIDs)),
	)

	if err := a.open(ctx); err != nil {
		a.close()
		return err
	}

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var bg sync.WaitGroup
	bg.Add(1)
	go func() {
		defer bg.Done()
		a.reaper.Run(ctx)
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.bot.StopReceivingUpdates()

			// Create a short-lived shutdown context and cancel it immediately after use.
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()
			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}

			bg.Wait()
			a.close()
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

// close stops timers before closing the stores they read from.
func (a *App) close() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close error", zap.Error(err))
		}
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.log.Warn("sqlite close error", zap.Error(err))
		}
	}
}
