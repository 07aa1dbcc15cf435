package store

import (
	"context"
	"errors"
	"time"

	"github.com/ykvlv/hydration-bot/internal/domain"
)

// ErrNotFound is returned when a user profile does not exist.
var ErrNotFound = errors.New("not found")

// Profiles defines storage operations over user profiles.
type Profiles interface {
	GetOrCreateProfile(ctx context.Context, userID int64) (*domain.Profile, error)
	GetProfile(ctx context.Context, userID int64) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, upd domain.ProfileUpdate) (*domain.Profile, error)
	MarkInteraction(ctx context.Context, userID int64, at time.Time) error
	SetLastRemind(ctx context.Context, userID int64, at time.Time) error
	SetDisabled(ctx context.Context, userID int64, disabled bool) error
	SetReminderText(ctx context.Context, userID int64, step int, text string) error
	ClearReminderTexts(ctx context.Context, userID int64) error
	ListInactiveSince(ctx context.Context, cutoff time.Time) ([]domain.Profile, error)
	DeleteProfileCascade(ctx context.Context, userID int64) error
}

// Ledger defines storage operations over intake records.
type Ledger interface {
	AppendIntake(ctx context.Context, userID int64, amountML int, at time.Time) (domain.IntakeRecord, error)
	TotalForLocalDay(ctx context.Context, userID int64, tzOffset, daysAgo int, now time.Time) (int, error)
	RecentDailyTotals(ctx context.Context, userID int64, tzOffset, days int, now time.Time) ([]domain.DayTotal, error)
	LastIntakeTime(ctx context.Context, userID int64) (*time.Time, error)
	DeleteIntakes(ctx context.Context, userID int64) error
}

// Blacklist is the operator-imposed suppression store.
type Blacklist interface {
	SetBlacklisted(ctx context.Context, userID int64, blacklisted bool, reason string) error
	IsBlacklisted(ctx context.Context, userID int64) (bool, error)
}

// Repo is the full persistence capability backed by one database.
type Repo interface {
	Profiles
	Ledger
	Blacklist
	Close() error
}
