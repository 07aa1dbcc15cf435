package store

import (
	"context"
	"time"
)

// SetBlacklisted adds or removes the user from the operator blacklist.
func (r *SQLiteRepo) SetBlacklisted(ctx context.Context, userID int64, blacklisted bool, reason string) error {
	if !blacklisted {
		_, err := r.db.ExecContext(ctx, `DELETE FROM blacklist WHERE user_id = ?`, userID)
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blacklist (user_id, reason, created_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET reason = excluded.reason`,
		userID, reason, time.Now().UTC().Unix(),
	)
	return err
}

// IsBlacklisted reports whether the user is on the operator blacklist.
func (r *SQLiteRepo) IsBlacklisted(ctx context.Context, userID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blacklist WHERE user_id = ?`, userID).Scan(&n)
	return n > 0, err
}
