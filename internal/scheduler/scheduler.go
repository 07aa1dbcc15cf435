package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ykvlv/hydration-bot/internal/domain"
	"github.com/ykvlv/hydration-bot/internal/store"
)

// ErrStopped is returned by operations invoked after Stop.
var ErrStopped = errors.New("scheduler stopped")

// Sender is a minimal interface the scheduler needs to send a text message.
// telegram.Router implements this (method: SendMessage). Implementations must
// return once ctx is done.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Repo is the subset of storage a firing reads from and writes to.
type Repo interface {
	GetProfile(ctx context.Context, userID int64) (*domain.Profile, error)
	SetLastRemind(ctx context.Context, userID int64, at time.Time) error
	TotalForLocalDay(ctx context.Context, userID int64, tzOffset, daysAgo int, now time.Time) (int, error)
}

// Scheduler owns one recurring reminder timer per eligible user.
// Timers live in memory only; after a restart a user gets a timer again
// on the next call to Ensure.
type Scheduler struct {
	repo        Repo
	blacklist   store.Blacklist
	sender      Sender
	log         *zap.Logger
	clock       clockwork.Clock
	fireTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	live   atomic.Int64

	mu      sync.Mutex
	slots   map[int64]*slot
	stopped bool
}

// slot is the per-user registry entry. mu serializes every state change of
// one user so the old timer is always cancelled before a new one is installed.
// firing is held for the duration of one firing; a replacement timer waits on
// it, so firings of one user never overlap even while an old send is in flight.
// timer is written under mu and read lock-free.
type slot struct {
	mu          sync.Mutex
	firing      sync.Mutex
	timer       atomic.Pointer[reminderTimer]
	wake        clockwork.Timer
	pausedUntil time.Time
	pauseGen    uint64
	gone        bool
}

// New creates a Scheduler. Call Stop to release its timers.
func New(repo Repo, blacklist store.Blacklist, sender Sender, log *zap.Logger, clock clockwork.Clock) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		repo:        repo,
		blacklist:   blacklist,
		sender:      sender,
		log:         log.Named("scheduler"),
		clock:       clock,
		fireTimeout: 30 * time.Second,
		ctx:         ctx,
		cancel:      cancel,
		slots:       make(map[int64]*slot),
	}
}

// withSlot runs fn with the user's slot locked, creating the slot on demand.
func (s *Scheduler) withSlot(userID int64, fn func(sl *slot) error) error {
	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return ErrStopped
		}
		sl, ok := s.slots[userID]
		if !ok {
			sl = &slot{}
			s.slots[userID] = sl
		}
		s.mu.Unlock()

		sl.mu.Lock()
		if sl.gone {
			// Forgotten between lookup and lock; fetch a fresh slot.
			sl.mu.Unlock()
			continue
		}
		if s.isStopped() {
			sl.mu.Unlock()
			return ErrStopped
		}
		err := fn(sl)
		sl.mu.Unlock()
		return err
	}
}

func (s *Scheduler) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Ensure installs, replaces or removes the user's reminder timer according to
// the current profile. An eligible user always gets a fresh timer, so the next
// firing is one full interval from now. On a storage error the existing timer
// is left untouched.
func (s *Scheduler) Ensure(ctx context.Context, userID int64) error {
	return s.withSlot(userID, func(sl *slot) error {
		return s.ensureLocked(ctx, userID, sl)
	})
}

// Resume clears a pending pause and ensures the timer.
func (s *Scheduler) Resume(ctx context.Context, userID int64) error {
	return s.withSlot(userID, func(sl *slot) error {
		s.clearPause(sl)
		return s.ensureLocked(ctx, userID, sl)
	})
}

func (s *Scheduler) ensureLocked(ctx context.Context, userID int64, sl *slot) error {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load profile: %w", err)
	}
	blacklisted := false
	if p != nil {
		if blacklisted, err = s.blacklist.IsBlacklisted(ctx, userID); err != nil {
			return fmt.Errorf("check blacklist: %w", err)
		}
	}

	if !domain.Eligible(p, blacklisted) {
		if sl.timer.Load() != nil {
			s.log.Info("reminders removed", zap.Int64("chatID", userID))
		}
		s.cancelTimer(sl)
		s.clearPause(sl)
		return nil
	}
	if sl.pausedUntil.After(s.clock.Now()) {
		s.cancelTimer(sl)
		return nil
	}

	s.cancelTimer(sl)
	s.install(userID, sl, p.Cadence())
	s.log.Debug("reminder timer installed",
		zap.Int64("chatID", userID),
		zap.Duration("every", p.Cadence()),
	)
	return nil
}

// PauseUntil removes the user's timer and schedules a one-shot wake-up at
// resumeAt that resumes reminders.
func (s *Scheduler) PauseUntil(_ context.Context, userID int64, resumeAt time.Time) error {
	return s.withSlot(userID, func(sl *slot) error {
		s.cancelTimer(sl)
		s.clearPause(sl)

		sl.pauseGen++
		gen := sl.pauseGen
		sl.pausedUntil = resumeAt
		d := resumeAt.Sub(s.clock.Now())
		if d < 0 {
			d = 0
		}
		sl.wake = s.clock.AfterFunc(d, func() { s.wakeUp(userID, gen) })

		s.log.Info("reminders paused",
			zap.Int64("chatID", userID),
			zap.Time("until", resumeAt),
		)
		return nil
	})
}

func (s *Scheduler) wakeUp(userID int64, gen uint64) {
	if s.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.fireTimeout)
	defer cancel()

	err := s.withSlot(userID, func(sl *slot) error {
		if sl.pauseGen != gen || sl.pausedUntil.IsZero() {
			// Superseded by a newer pause or an explicit resume.
			return nil
		}
		s.clearPause(sl)
		return s.ensureLocked(ctx, userID, sl)
	})
	if err != nil && !errors.Is(err, ErrStopped) {
		s.log.Error("resume after pause failed", zap.Int64("chatID", userID), zap.Error(err))
	}
}

// Forget removes the user's timer, any pending wake-up and the registry entry.
func (s *Scheduler) Forget(userID int64) {
	s.mu.Lock()
	sl, ok := s.slots[userID]
	if ok {
		delete(s.slots, userID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	sl.mu.Lock()
	s.cancelTimer(sl)
	s.clearPause(sl)
	sl.gone = true
	sl.mu.Unlock()
}

// Period returns the cadence of the user's live timer. It never waits for a
// state change or a firing in progress.
func (s *Scheduler) Period(userID int64) (time.Duration, bool) {
	s.mu.Lock()
	sl, ok := s.slots[userID]
	s.mu.Unlock()
	if !ok {
		return 0, false
	}
	t := sl.timer.Load()
	if t == nil || !t.live() {
		return 0, false
	}
	return t.period, true
}

// PausedUntil returns the pending resume time of a paused user.
func (s *Scheduler) PausedUntil(userID int64) (time.Time, bool) {
	s.mu.Lock()
	sl, ok := s.slots[userID]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.pausedUntil.IsZero() {
		return time.Time{}, false
	}
	return sl.pausedUntil, true
}

// ActiveCount returns the number of live timers.
func (s *Scheduler) ActiveCount() int {
	return int(s.live.Load())
}

// Stop cancels every timer and pending wake-up and waits for running firings
// to finish. Firings in progress see their context cancelled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	slots := make([]*slot, 0, len(s.slots))
	for _, sl := range s.slots {
		slots = append(slots, sl)
	}
	s.mu.Unlock()

	s.cancel()
	for _, sl := range slots {
		sl.mu.Lock()
		s.cancelTimer(sl)
		s.clearPause(sl)
		sl.mu.Unlock()
	}
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) cancelTimer(sl *slot) {
	if t := sl.timer.Swap(nil); t != nil {
		t.cancel()
	}
}

func (s *Scheduler) clearPause(sl *slot) {
	if sl.wake != nil {
		sl.wake.Stop()
		sl.wake = nil
	}
	sl.pausedUntil = time.Time{}
}
