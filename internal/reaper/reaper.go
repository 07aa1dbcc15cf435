// Package reaper runs the daily inactivity sweep: users who have not
// interacted for a while get a warning, and users whose chat can no longer
// be reached are purged.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ykvlv/hydration-bot/internal/domain"
)

// WarningText is sent to users found inactive by a sweep.
const WarningText = "👋 We haven't heard from you in a while.\n\n" +
	"Your profile and drink history will be deleted within 24 hours unless you reply. " +
	"Send any message to keep them, or /deleteme to remove them now."

// Profiles is the storage the sweep needs.
type Profiles interface {
	ListInactiveSince(ctx context.Context, cutoff time.Time) ([]domain.Profile, error)
	MarkInteraction(ctx context.Context, userID int64, at time.Time) error
	DeleteProfileCascade(ctx context.Context, userID int64) error
}

// Sender delivers the warning. It wraps domain.ErrUnreachable when the chat is gone.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Forgetter drops a purged user's timer.
type Forgetter interface {
	Forget(userID int64)
}

// Reaper performs inactivity sweeps.
type Reaper struct {
	profiles  Profiles
	sender    Sender
	timers    Forgetter
	clock     clockwork.Clock
	log       *zap.Logger
	threshold time.Duration

	sendTimeout time.Duration
}

// New creates a Reaper that warns users inactive for at least inactiveDays days.
func New(profiles Profiles, sender Sender, timers Forgetter, clock clockwork.Clock, log *zap.Logger, inactiveDays int) *Reaper {
	return &Reaper{
		profiles:  profiles,
		sender:    sender,
		timers:    timers,
		clock:     clock,
		log:       log.Named("reaper"),
		threshold: time.Duration(inactiveDays) * 24 * time.Hour,

		sendTimeout: 30 * time.Second,
	}
}

// Result summarizes one sweep.
type Result struct {
	Warned int
	Purged int
	Failed int
}

// Sweep warns every inactive user once. A delivered warning counts as
// interaction; an unreachable chat is purged; any other failure leaves the
// user for the next sweep.
func (r *Reaper) Sweep(ctx context.Context) (Result, error) {
	var res Result
	sweepID := uuid.NewString()
	log := r.log.With(zap.String("sweep", sweepID))

	now := r.clock.Now().UTC()
	users, err := r.profiles.ListInactiveSince(ctx, now.Add(-r.threshold))
	if err != nil {
		return res, fmt.Errorf("list inactive: %w", err)
	}
	log.Info("sweep started", zap.Int("inactive", len(users)))

	for _, u := range users {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
		err := r.sender.SendMessage(sendCtx, u.UserID, WarningText)
		cancel()
		switch {
		case err == nil:
			if err := r.profiles.MarkInteraction(ctx, u.UserID, now); err != nil {
				log.Warn("MarkInteraction failed", zap.Int64("chatID", u.UserID), zap.Error(err))
			}
			res.Warned++
		case errors.Is(err, domain.ErrUnreachable):
			r.timers.Forget(u.UserID)
			if err := r.profiles.DeleteProfileCascade(ctx, u.UserID); err != nil {
				log.Error("purge failed", zap.Int64("chatID", u.UserID), zap.Error(err))
				res.Failed++
				continue
			}
			log.Info("unreachable user purged", zap.Int64("chatID", u.UserID))
			res.Purged++
		default:
			log.Warn("warning not delivered", zap.Int64("chatID", u.UserID), zap.Error(err))
			res.Failed++
		}
	}

	log.Info("sweep finished",
		zap.Int("warned", res.Warned),
		zap.Int("purged", res.Purged),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// Run sweeps at every 00:00 UTC until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	for {
		wait := untilMidnight(r.clock.Now())
		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(wait):
		}
		if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
			r.log.Error("sweep failed", zap.Error(err))
		}
	}
}

func untilMidnight(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return next.Sub(now)
}
