// Package hydration is the command-facing layer: every user or admin action
// goes through Service, which persists the change and then brings the user's
// reminder timer in line before returning.
package hydration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ykvlv/hydration-bot/internal/domain"
	"github.com/ykvlv/hydration-bot/internal/scheduler"
	"github.com/ykvlv/hydration-bot/internal/store"
)

// ErrReschedule reports that a change was saved but the reminder timer could
// not be rebuilt; the previous timer, if any, is still running.
var ErrReschedule = errors.New("reminder not reset")

// StatsDays is the length of the history shown by Stats.
const StatsDays = 7

// Store is the persistence the service needs.
type Store interface {
	store.Profiles
	store.Ledger
}

// Service implements user and admin operations.
type Service struct {
	repo      Store
	blacklist store.Blacklist
	sched     *scheduler.Scheduler
	clock     clockwork.Clock
	log       *zap.Logger
}

// New creates a Service.
func New(repo Store, blacklist store.Blacklist, sched *scheduler.Scheduler, clock clockwork.Clock, log *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		blacklist: blacklist,
		sched:     sched,
		clock:     clock,
		log:       log.Named("hydration"),
	}
}

// IntakeResult is the outcome of logging a drink.
type IntakeResult struct {
	Record  domain.IntakeRecord
	TodayML int
	GoalML  int
}

// Status is a snapshot of a user's settings and scheduling state.
type Status struct {
	Profile     *domain.Profile
	Blacklisted bool
	Every       time.Duration // zero when no timer is live
	PausedUntil *time.Time
	LastIntake  *time.Time
	TodayML     int
}

// Stats is today's total plus the recent daily history.
type Stats struct {
	Profile *domain.Profile
	TodayML int
	Days    []domain.DayTotal
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// Touch returns the user's profile, creating it on first contact, and marks the interaction.
func (s *Service) Touch(ctx context.Context, userID int64) (*domain.Profile, error) {
	p, err := s.repo.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create profile: %w", err)
	}
	if err := s.repo.MarkInteraction(ctx, userID, s.now()); err != nil {
		s.log.Warn("MarkInteraction failed", zap.Int64("chatID", userID), zap.Error(err))
	}
	return p, nil
}

// Start handles first contact: the profile exists and a timer runs afterwards.
func (s *Service) Start(ctx context.Context, userID int64) (*domain.Profile, error) {
	p, err := s.Touch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, ok := s.sched.Period(userID); !ok {
		if err := s.sched.Ensure(ctx, userID); err != nil {
			return p, fmt.Errorf("%w: %v", ErrReschedule, err)
		}
	}
	return p, nil
}

// UpdateSettings applies a partial settings change; cadence-affecting changes rebuild the timer.
func (s *Service) UpdateSettings(ctx context.Context, userID int64, upd domain.ProfileUpdate) (*domain.Profile, error) {
	if _, err := s.Touch(ctx, userID); err != nil {
		return nil, err
	}
	p, err := s.repo.UpdateProfile(ctx, userID, upd)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if upd.AffectsCadence() {
		if err := s.sched.Ensure(ctx, userID); err != nil {
			s.log.Error("ensure after settings change failed", zap.Int64("chatID", userID), zap.Error(err))
			return p, fmt.Errorf("%w: %v", ErrReschedule, err)
		}
	}
	return p, nil
}

// AddQuietPeriod adds a quiet period that must not overlap the existing ones.
func (s *Service) AddQuietPeriod(ctx context.Context, userID int64, q domain.QuietPeriod) (*domain.Profile, error) {
	p, err := s.Touch(ctx, userID)
	if err != nil {
		return nil, err
	}
	quiet, err := domain.AddQuietPeriod(p.QuietHours, q)
	if err != nil {
		return nil, err
	}
	return s.UpdateSettings(ctx, userID, domain.ProfileUpdate{QuietHours: &quiet})
}

// ClearQuietHours removes every quiet period.
func (s *Service) ClearQuietHours(ctx context.Context, userID int64) (*domain.Profile, error) {
	empty := []domain.QuietPeriod{}
	return s.UpdateSettings(ctx, userID, domain.ProfileUpdate{QuietHours: &empty})
}

// SetReminderText sets the custom text for a gradient step.
func (s *Service) SetReminderText(ctx context.Context, userID int64, step int, text string) error {
	if _, err := s.Touch(ctx, userID); err != nil {
		return err
	}
	return s.repo.SetReminderText(ctx, userID, step, text)
}

// ClearReminderTexts restores the default reminder text for all steps.
func (s *Service) ClearReminderTexts(ctx context.Context, userID int64) error {
	if _, err := s.Touch(ctx, userID); err != nil {
		return err
	}
	return s.repo.ClearReminderTexts(ctx, userID)
}

// RecordIntake logs a drink minutesAgo minutes in the past (0 for now) and
// pushes the next reminder a full interval out. A failed reset does not undo the record.
func (s *Service) RecordIntake(ctx context.Context, userID int64, amountML, minutesAgo int) (IntakeResult, error) {
	p, err := s.Touch(ctx, userID)
	if err != nil {
		return IntakeResult{}, err
	}
	now := s.now()
	rec, err := s.repo.AppendIntake(ctx, userID, amountML, now.Add(-time.Duration(minutesAgo)*time.Minute))
	if err != nil {
		return IntakeResult{}, fmt.Errorf("append intake: %w", err)
	}
	res := IntakeResult{Record: rec, GoalML: p.DailyGoalML}
	if res.TodayML, err = s.repo.TotalForLocalDay(ctx, userID, p.TZOffset, 0, now); err != nil {
		return res, fmt.Errorf("today total: %w", err)
	}
	if err := s.sched.Ensure(ctx, userID); err != nil {
		s.log.Error("ensure after intake failed", zap.Int64("chatID", userID), zap.Error(err))
		return res, fmt.Errorf("%w: %v", ErrReschedule, err)
	}
	return res, nil
}

// Stats returns today's total and the last StatsDays local days.
func (s *Service) Stats(ctx context.Context, userID int64) (Stats, error) {
	p, err := s.Touch(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	days, err := s.repo.RecentDailyTotals(ctx, userID, p.TZOffset, StatsDays, s.now())
	if err != nil {
		return Stats{}, fmt.Errorf("recent totals: %w", err)
	}
	st := Stats{Profile: p, Days: days}
	if len(days) > 0 {
		st.TodayML = days[0].TotalML
	}
	return st, nil
}

// Status returns the user's settings together with timer state.
func (s *Service) Status(ctx context.Context, userID int64) (Status, error) {
	p, err := s.Touch(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	st := Status{Profile: p}
	if st.Blacklisted, err = s.blacklist.IsBlacklisted(ctx, userID); err != nil {
		return Status{}, fmt.Errorf("check blacklist: %w", err)
	}
	if every, ok := s.sched.Period(userID); ok {
		st.Every = every
	}
	if until, ok := s.sched.PausedUntil(userID); ok {
		st.PausedUntil = &until
	}
	if st.LastIntake, err = s.repo.LastIntakeTime(ctx, userID); err != nil {
		return Status{}, fmt.Errorf("last intake: %w", err)
	}
	if st.TodayML, err = s.repo.TotalForLocalDay(ctx, userID, p.TZOffset, 0, s.now()); err != nil {
		return Status{}, fmt.Errorf("today total: %w", err)
	}
	return st, nil
}

// PausedUntil reports when a paused user's reminders come back.
func (s *Service) PausedUntil(userID int64) (time.Time, bool) {
	return s.sched.PausedUntil(userID)
}

// PauseForToday stops reminders until tomorrow's local active-window start.
func (s *Service) PauseForToday(ctx context.Context, userID int64) (time.Time, error) {
	p, err := s.Touch(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	resumeAt := domain.NextActiveStart(s.now(), p.TZOffset, p.ActiveStart)
	if err := s.sched.PauseUntil(ctx, userID, resumeAt); err != nil {
		return time.Time{}, err
	}
	return resumeAt, nil
}

// SetDisabled opts the user out of (or back into) reminders.
func (s *Service) SetDisabled(ctx context.Context, userID int64, disabled bool) error {
	if _, err := s.Touch(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.SetDisabled(ctx, userID, disabled); err != nil {
		return fmt.Errorf("set disabled: %w", err)
	}
	var err error
	if disabled {
		err = s.sched.Ensure(ctx, userID)
	} else {
		err = s.sched.Resume(ctx, userID)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReschedule, err)
	}
	return nil
}

// SetBlacklisted is the operator action; it does not count as user interaction.
func (s *Service) SetBlacklisted(ctx context.Context, userID int64, blacklisted bool, reason string) error {
	if err := s.blacklist.SetBlacklisted(ctx, userID, blacklisted, reason); err != nil {
		return fmt.Errorf("set blacklisted: %w", err)
	}
	s.log.Info("blacklist changed",
		zap.Int64("chatID", userID),
		zap.Bool("blacklisted", blacklisted),
		zap.String("reason", reason),
	)
	if err := s.sched.Ensure(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrReschedule, err)
	}
	return nil
}

// ResetSelf erases the user's intake history and custom texts but keeps the settings.
func (s *Service) ResetSelf(ctx context.Context, userID int64) error {
	if _, err := s.Touch(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.DeleteIntakes(ctx, userID); err != nil {
		return fmt.Errorf("delete intakes: %w", err)
	}
	if err := s.repo.ClearReminderTexts(ctx, userID); err != nil {
		return fmt.Errorf("clear texts: %w", err)
	}
	if err := s.sched.Ensure(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrReschedule, err)
	}
	return nil
}

// DeleteUser removes the timer, the profile and every record of the user.
func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	s.sched.Forget(userID)
	if err := s.repo.DeleteProfileCascade(ctx, userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	s.log.Info("user deleted", zap.Int64("chatID", userID))
	return nil
}
