package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ykvlv/hydration-bot/internal/domain"
)

const profileColumns = `user_id, daily_goal_ml, interval_min, active_start, active_end,
	tz_offset, disabled, last_remind_at, last_interaction_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(s rowScanner) (*domain.Profile, error) {
	var (
		p           domain.Profile
		disabledInt int
		lastRemind  sql.NullInt64
		lastSeen    int64
		createdAt   int64
	)
	if err := s.Scan(
		&p.UserID, &p.DailyGoalML, &p.IntervalMin, &p.ActiveStart, &p.ActiveEnd,
		&p.TZOffset, &disabledInt, &lastRemind, &lastSeen, &createdAt,
	); err != nil {
		return nil, err
	}
	p.Disabled = disabledInt != 0
	p.LastRemindAt = fromNullInt64(lastRemind)
	p.LastInteractionAt = fromUnix(lastSeen)
	p.CreatedAt = fromUnix(createdAt)
	return &p, nil
}

// GetOrCreateProfile returns the user's profile, inserting one with defaults on first contact.
func (r *SQLiteRepo) GetOrCreateProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	now := time.Now().UTC().Unix()
	d := r.defaults
	// INSERT OR IGNORE keeps exactly one row per user under concurrent first contact.
	if _, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (
			user_id, daily_goal_ml, interval_min, active_start, active_end,
			tz_offset, disabled, last_interaction_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		userID, d.DailyGoalML, d.IntervalMin, d.ActiveStart, d.ActiveEnd, d.TZOffset, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return r.GetProfile(ctx, userID)
}

// GetProfile returns a user's profile or ErrNotFound.
func (r *SQLiteRepo) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM users WHERE user_id = ?`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.QuietHours, err = r.quietHours(ctx, userID); err != nil {
		return nil, err
	}
	if p.ReminderTexts, err = r.reminderTexts(ctx, userID); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *SQLiteRepo) quietHours(ctx context.Context, userID int64) ([]domain.QuietPeriod, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT start_hm, end_hm FROM quiet_hours
		WHERE user_id = ?
		ORDER BY position ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.QuietPeriod
	for rows.Next() {
		var q domain.QuietPeriod
		if err := rows.Scan(&q.Start, &q.End); err != nil {
			return nil, err
		}
		res = append(res, q)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) reminderTexts(ctx context.Context, userID int64) (map[int]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT step, body FROM reminder_texts WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[int]string)
	for rows.Next() {
		var (
			step int
			body string
		)
		if err := rows.Scan(&step, &body); err != nil {
			return nil, err
		}
		res[step] = body
	}
	return res, rows.Err()
}

// UpdateProfile applies the non-nil fields of upd and returns the updated profile.
func (r *SQLiteRepo) UpdateProfile(ctx context.Context, userID int64, upd domain.ProfileUpdate) (*domain.Profile, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.DailyGoalML != nil {
		add("daily_goal_ml", *upd.DailyGoalML)
	}
	if upd.IntervalMin != nil {
		add("interval_min", *upd.IntervalMin)
	}
	if upd.ActiveStart != nil {
		add("active_start", *upd.ActiveStart)
	}
	if upd.ActiveEnd != nil {
		add("active_end", *upd.ActiveEnd)
	}
	if upd.TZOffset != nil {
		add("tz_offset", *upd.TZOffset)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if len(sets) > 0 {
		args = append(args, userID)
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE user_id = ?`, args...)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, ErrNotFound
		}
	}
	if upd.QuietHours != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM quiet_hours WHERE user_id = ?`, userID); err != nil {
			return nil, fmt.Errorf("clear quiet hours: %w", err)
		}
		for i, q := range *upd.QuietHours {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO quiet_hours (user_id, position, start_hm, end_hm)
				VALUES (?, ?, ?, ?)`,
				userID, i, q.Start, q.End,
			); err != nil {
				return nil, fmt.Errorf("insert quiet period: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetProfile(ctx, userID)
}

// MarkInteraction records the time of the user's latest action.
func (r *SQLiteRepo) MarkInteraction(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_interaction_at = ? WHERE user_id = ?`,
		at.UTC().Unix(), userID,
	)
	return err
}

// SetLastRemind stores the time the latest reminder was delivered.
func (r *SQLiteRepo) SetLastRemind(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_remind_at = ? WHERE user_id = ?`,
		toNullInt64(&at), userID,
	)
	return err
}

// SetDisabled toggles the user's opt-out flag.
func (r *SQLiteRepo) SetDisabled(ctx context.Context, userID int64, disabled bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET disabled = ? WHERE user_id = ?`,
		boolToInt(disabled), userID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetReminderText sets the custom text for one gradient step.
func (r *SQLiteRepo) SetReminderText(ctx context.Context, userID int64, step int, text string) error {
	if step < 1 || step > domain.MaxGradientSteps {
		return fmt.Errorf("%w: step %d", domain.ErrOutOfRange, step)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminder_texts (user_id, step, body) VALUES (?, ?, ?)
		ON CONFLICT(user_id, step) DO UPDATE SET body = excluded.body`,
		userID, step, text,
	)
	return err
}

// ClearReminderTexts removes all custom reminder texts of the user.
func (r *SQLiteRepo) ClearReminderTexts(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reminder_texts WHERE user_id = ?`, userID)
	return err
}

// ListInactiveSince returns enabled users whose last interaction is before cutoff.
func (r *SQLiteRepo) ListInactiveSince(ctx context.Context, cutoff time.Time) ([]domain.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM users
		WHERE disabled = 0
		  AND last_interaction_at < ?
		ORDER BY last_interaction_at ASC`,
		cutoff.UTC().Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}
	return res, rows.Err()
}

// DeleteProfileCascade removes the user and every row that references it.
func (r *SQLiteRepo) DeleteProfileCascade(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Children first, then the user row.
	for _, q := range []string{
		`DELETE FROM intake_records WHERE user_id = ?`,
		`DELETE FROM quiet_hours WHERE user_id = ?`,
		`DELETE FROM reminder_texts WHERE user_id = ?`,
		`DELETE FROM users WHERE user_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, userID); err != nil {
			return err
		}
	}
	return tx.Commit()
}
