package domain

import (
	"errors"
	"time"
)

// MaxGradientSteps bounds how many custom reminder texts a user may configure.
const MaxGradientSteps = 10

// MaxQuietPeriods bounds the number of quiet periods per user.
const MaxQuietPeriods = 5

// ErrUnreachable marks a permanent delivery failure: the user blocked the bot
// or the chat no longer exists.
var ErrUnreachable = errors.New("user unreachable")

// QuietPeriod is a local time-of-day interval ("HH:MM") during which reminders are suppressed.
type QuietPeriod struct {
	Start string
	End   string
}

// Profile represents per-user hydration settings and suppression state.
type Profile struct {
	UserID            int64
	DailyGoalML       int
	IntervalMin       int    // reminder cadence in minutes
	ActiveStart       string // local HH:MM
	ActiveEnd         string // local HH:MM, may be earlier than ActiveStart (wraps midnight)
	TZOffset          int    // fixed UTC offset in hours, -12..14
	QuietHours        []QuietPeriod
	ReminderTexts     map[int]string // gradient step -> text
	Disabled          bool
	LastRemindAt      *time.Time // UTC, nullable
	LastInteractionAt time.Time  // UTC
	CreatedAt         time.Time  // UTC
}

// Settings are the defaults applied to a freshly created profile.
type Settings struct {
	DailyGoalML int
	IntervalMin int
	ActiveStart string
	ActiveEnd   string
	TZOffset    int
}

// ProfileUpdate carries a partial change; nil fields are left untouched.
type ProfileUpdate struct {
	DailyGoalML *int
	IntervalMin *int
	ActiveStart *string
	ActiveEnd   *string
	TZOffset    *int
	QuietHours  *[]QuietPeriod
}

// AffectsCadence reports whether applying u requires the reminder timer to be rebuilt.
func (u ProfileUpdate) AffectsCadence() bool {
	return u.IntervalMin != nil || u.ActiveStart != nil || u.ActiveEnd != nil ||
		u.TZOffset != nil || u.QuietHours != nil
}

// Cadence returns the reminder period, floored at one minute.
func (p *Profile) Cadence() time.Duration {
	if p.IntervalMin < 1 {
		return time.Minute
	}
	return time.Duration(p.IntervalMin) * time.Minute
}

// Eligible reports whether reminders should be scheduled for p.
func Eligible(p *Profile, blacklisted bool) bool {
	return p != nil && !p.Disabled && !blacklisted
}

// IntakeRecord is a single immutable intake event.
type IntakeRecord struct {
	ID         int64
	UserID     int64
	AmountML   int
	OccurredAt time.Time // UTC
}

// DayTotal is the intake sum of one local day.
type DayTotal struct {
	Date    string // local YYYY-MM-DD
	TotalML int
}
