package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ykvlv/hydration-bot/internal/domain"
	"github.com/ykvlv/hydration-bot/internal/store"
)

// reminderTimer is one live recurring timer. Its goroutine is the only place
// firings happen for the user while it is installed.
type reminderTimer struct {
	period  time.Duration
	ticker  clockwork.Ticker
	stop    chan struct{}
	retired atomic.Bool
	count   *atomic.Int64
}

// cancel stops future firings. A firing already begun runs to completion in
// the background.
func (t *reminderTimer) cancel() {
	close(t.stop)
	t.retire()
}

// retire takes the timer out of the live count exactly once.
func (t *reminderTimer) retire() {
	if t.retired.CompareAndSwap(false, true) {
		t.count.Add(-1)
	}
}

// live reports whether the timer is still scheduled. A goroutine exits on its
// own once the user is no longer eligible.
func (t *reminderTimer) live() bool {
	return !t.retired.Load()
}

func (t *reminderTimer) stopped() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}

type fireResult int

const (
	fireSkipped fireResult = iota
	fireDelivered
	fireStop
)

// install starts a new timer. The ticker is created before the goroutine so
// the first firing is exactly one period after this call.
func (s *Scheduler) install(userID int64, sl *slot, period time.Duration) {
	t := &reminderTimer{
		period: period,
		ticker: s.clock.NewTicker(period),
		stop:   make(chan struct{}),
		count:  &s.live,
	}
	s.live.Add(1)
	sl.timer.Store(t)
	s.wg.Add(1)
	go s.run(userID, sl, t)
}

// run drives one timer until it is cancelled or the user becomes ineligible.
func (s *Scheduler) run(userID int64, sl *slot, t *reminderTimer) {
	defer s.wg.Done()
	defer t.retire()
	defer t.ticker.Stop()

	// streak counts reminders delivered since this timer was installed.
	streak := 0
	for {
		select {
		case <-t.stop:
			return
		case <-s.ctx.Done():
			return
		case <-t.ticker.Chan():
			switch s.fireExclusive(userID, sl, t, streak+1) {
			case fireDelivered:
				streak++
			case fireStop:
				return
			}
		}
	}
}

// fireExclusive waits for any firing of a replaced timer to finish, then fires
// unless this timer was cancelled meanwhile. Cancellation wins over a tick that
// raced with it.
func (s *Scheduler) fireExclusive(userID int64, sl *slot, t *reminderTimer, step int) fireResult {
	sl.firing.Lock()
	defer sl.firing.Unlock()
	if t.stopped() || s.ctx.Err() != nil {
		return fireStop
	}
	return s.fire(userID, step)
}

// fire performs one firing: reload state, check the window, send progress.
func (s *Scheduler) fire(userID int64, step int) fireResult {
	ctx, cancel := context.WithTimeout(s.ctx, s.fireTimeout)
	defer cancel()

	log := s.log.With(zap.Int64("chatID", userID))
	now := s.clock.Now().UTC()

	p, err := s.repo.GetProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		log.Info("profile gone, reminders stopped")
		return fireStop
	}
	if err != nil {
		log.Error("GetProfile failed", zap.Error(err))
		return fireSkipped
	}
	blacklisted, err := s.blacklist.IsBlacklisted(ctx, userID)
	if err != nil {
		log.Error("IsBlacklisted failed", zap.Error(err))
		return fireSkipped
	}
	if !domain.Eligible(p, blacklisted) {
		log.Info("user no longer eligible, reminders stopped")
		return fireStop
	}
	if !domain.NotificationPermitted(now, p) {
		log.Debug("outside active window, skipping",
			zap.String("local", domain.LocalTimeOf(now, p.TZOffset)),
		)
		return fireSkipped
	}

	total, err := s.repo.TotalForLocalDay(ctx, userID, p.TZOffset, 0, now)
	if err != nil {
		log.Error("TotalForLocalDay failed", zap.Error(err))
		return fireSkipped
	}
	if err := s.sender.SendMessage(ctx, userID, domain.ReminderText(p, step, total)); err != nil {
		log.Error("send failed", zap.Error(err))
		return fireSkipped
	}
	if err := s.repo.SetLastRemind(ctx, userID, now); err != nil {
		log.Warn("SetLastRemind failed", zap.Error(err))
	}
	log.Info("reminder sent", zap.Int("step", step), zap.Int("totalML", total))
	return fireDelivered
}
