package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ykvlv/hydration-bot/internal/domain"
)

// AppendIntake inserts an immutable intake record.
func (r *SQLiteRepo) AppendIntake(ctx context.Context, userID int64, amountML int, at time.Time) (domain.IntakeRecord, error) {
	if amountML <= 0 {
		return domain.IntakeRecord{}, fmt.Errorf("%w: amount %d", domain.ErrOutOfRange, amountML)
	}
	at = at.UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO intake_records (user_id, amount_ml, occurred_at)
		VALUES (?, ?, ?)`,
		userID, amountML, at.Unix(),
	)
	if err != nil {
		return domain.IntakeRecord{}, fmt.Errorf("insert intake: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.IntakeRecord{}, err
	}
	return domain.IntakeRecord{ID: id, UserID: userID, AmountML: amountML, OccurredAt: at}, nil
}

// TotalForLocalDay sums intake within the local day that is daysAgo days before now.
func (r *SQLiteRepo) TotalForLocalDay(ctx context.Context, userID int64, tzOffset, daysAgo int, now time.Time) (int, error) {
	start, end := domain.LocalDayBounds(now, tzOffset, daysAgo)
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(amount_ml) FROM intake_records
		WHERE user_id = ? AND occurred_at >= ? AND occurred_at < ?`,
		userID, start.Unix(), end.Unix(),
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}

// RecentDailyTotals returns one entry per local day for the last days days
// (today included), newest first. Days without intake are reported as zero.
func (r *SQLiteRepo) RecentDailyTotals(ctx context.Context, userID int64, tzOffset, days int, now time.Time) ([]domain.DayTotal, error) {
	if days <= 0 {
		return nil, nil
	}
	oldestStart, _ := domain.LocalDayBounds(now, tzOffset, days-1)
	_, todayEnd := domain.LocalDayBounds(now, tzOffset, 0)

	rows, err := r.db.QueryContext(ctx, `
		SELECT amount_ml, occurred_at FROM intake_records
		WHERE user_id = ? AND occurred_at >= ? AND occurred_at < ?`,
		userID, oldestStart.Unix(), todayEnd.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDate := make(map[string]int, days)
	for rows.Next() {
		var (
			amount int
			at     int64
		)
		if err := rows.Scan(&amount, &at); err != nil {
			return nil, err
		}
		byDate[domain.LocalDate(fromUnix(at), tzOffset)] += amount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	res := make([]domain.DayTotal, 0, days)
	for i := 0; i < days; i++ {
		start, _ := domain.LocalDayBounds(now, tzOffset, i)
		date := domain.LocalDate(start, tzOffset)
		res = append(res, domain.DayTotal{Date: date, TotalML: byDate[date]})
	}
	return res, nil
}

// LastIntakeTime returns the most recent intake time or nil when there is none.
func (r *SQLiteRepo) LastIntakeTime(ctx context.Context, userID int64) (*time.Time, error) {
	var last sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(occurred_at) FROM intake_records WHERE user_id = ?`, userID,
	).Scan(&last)
	if err != nil {
		return nil, err
	}
	return fromNullInt64(last), nil
}

// DeleteIntakes removes every intake record of the user.
func (r *SQLiteRepo) DeleteIntakes(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM intake_records WHERE user_id = ?`, userID)
	return err
}
