// Package repo provides the habit-log repository implementation
package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	perr "habitreward/internal/platform/errors"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/completion/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the habit-log repository
type Storage interface {
	ByID(ctx context.Context, logID int64) (domain.Log, error)
	ByDate(ctx context.Context, userID, habitID int64, date time.Time) (*domain.Log, error)
	Latest(ctx context.Context, userID, habitID int64) (*domain.Log, error)
	Between(ctx context.Context, userID, habitID int64, from, to time.Time) ([]domain.Log, error)
	List(ctx context.Context, userID int64, f domain.ListFilter) ([]domain.Log, error)
	RewardCountsOnDate(ctx context.Context, userID int64, date time.Time) (map[int64]int, error)
	Insert(ctx context.Context, l domain.Log) (domain.Log, error)
	UpdateStreak(ctx context.Context, logID int64, streak int) error
	Delete(ctx context.Context, logID int64) error
}

const logCols = `id, user_id, habit_id, reward_id, got_reward, streak_count, habit_weight, total_weight, last_completed_date, timestamp`

func scanLog(row repokit.Row) (domain.Log, error) {
	var l domain.Log
	err := row.Scan(&l.ID, &l.UserID, &l.HabitID, &l.RewardID, &l.GotReward,
		&l.StreakCount, &l.HabitWeight, &l.TotalWeight, &l.LastCompletedDate, &l.Timestamp)
	return l, err
}

// ByID implements Storage
func (s *pg) ByID(ctx context.Context, logID int64) (domain.Log, error) {
	l, err := scanLog(s.q.QueryRow(ctx,
		`SELECT `+logCols+` FROM habit_logs WHERE id = $1`, logID))
	if perr.IsNoRows(err) {
		return domain.Log{}, perr.Newf(perr.ErrorCodeLogNotFound, "log %d not found", logID)
	}
	if err != nil {
		return domain.Log{}, perr.FromPostgres(err, "load habit log")
	}
	return l, nil
}

// ByDate implements Storage, nil when no log credits the date
func (s *pg) ByDate(ctx context.Context, userID, habitID int64, date time.Time) (*domain.Log, error) {
	l, err := scanLog(s.q.QueryRow(ctx, `
		SELECT `+logCols+` FROM habit_logs
		WHERE user_id = $1 AND habit_id = $2 AND last_completed_date = $3`,
		userID, habitID, date))
	if perr.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.FromPostgres(err, "load habit log by date")
	}
	return &l, nil
}

// Latest implements Storage, nil when the habit has no logs
func (s *pg) Latest(ctx context.Context, userID, habitID int64) (*domain.Log, error) {
	l, err := scanLog(s.q.QueryRow(ctx, `
		SELECT `+logCols+` FROM habit_logs
		WHERE user_id = $1 AND habit_id = $2
		ORDER BY last_completed_date DESC, id DESC
		LIMIT 1`, userID, habitID))
	if perr.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.FromPostgres(err, "load latest habit log")
	}
	return &l, nil
}

// Between implements Storage, both bounds inclusive, ascending by date
func (s *pg) Between(ctx context.Context, userID, habitID int64, from, to time.Time) ([]domain.Log, error) {
	return s.scanAll(ctx, `
		SELECT `+logCols+` FROM habit_logs
		WHERE user_id = $1 AND habit_id = $2 AND last_completed_date BETWEEN $3 AND $4
		ORDER BY last_completed_date`, userID, habitID, from, to)
}

// List implements Storage, newest first
func (s *pg) List(ctx context.Context, userID int64, f domain.ListFilter) ([]domain.Log, error) {
	var sb strings.Builder
	var args []any
	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }

	sb.WriteString(`SELECT ` + logCols + ` FROM habit_logs WHERE user_id = ` + arg(userID))
	if f.HabitID != 0 {
		sb.WriteString(" AND habit_id = " + arg(f.HabitID))
	}
	if f.StartDate != nil {
		sb.WriteString(" AND last_completed_date >= " + arg(*f.StartDate))
	}
	if f.EndDate != nil {
		sb.WriteString(" AND last_completed_date <= " + arg(*f.EndDate))
	}
	sb.WriteString(" ORDER BY last_completed_date DESC, id DESC")
	if f.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(f.Limit))
	}
	if f.Offset > 0 {
		sb.WriteString(" OFFSET " + arg(f.Offset))
	}
	return s.scanAll(ctx, sb.String(), args...)
}

// RewardCountsOnDate implements Storage, per-reward counts of logs crediting
// a reward on the given date. Feeds the daily-claim quota filter
func (s *pg) RewardCountsOnDate(ctx context.Context, userID int64, date time.Time) (map[int64]int, error) {
	rows, err := s.q.Query(ctx, `
		SELECT reward_id, COUNT(*)
		FROM habit_logs
		WHERE user_id = $1 AND last_completed_date = $2 AND got_reward AND reward_id IS NOT NULL
		GROUP BY reward_id`, userID, date)
	if err != nil {
		return nil, perr.FromPostgres(err, "count reward claims")
	}
	defer rows.Close()

	out := map[int64]int{}
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// Insert implements Storage. The (user, habit, date) unique key turns a
// concurrent double completion into AlreadyCompleted
func (s *pg) Insert(ctx context.Context, l domain.Log) (domain.Log, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO habit_logs (user_id, habit_id, reward_id, got_reward, streak_count, habit_weight, total_weight, last_completed_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+logCols,
		l.UserID, l.HabitID, l.RewardID, l.GotReward, l.StreakCount, l.HabitWeight, l.TotalWeight, l.LastCompletedDate)
	out, err := scanLog(row)
	if perr.IsDuplicateKey(err) {
		return domain.Log{}, perr.Newf(perr.ErrorCodeAlreadyCompleted, "habit already completed for this date")
	}
	if err != nil {
		return domain.Log{}, perr.FromPostgres(err, "insert habit log")
	}
	return out, nil
}

// UpdateStreak implements Storage
func (s *pg) UpdateStreak(ctx context.Context, logID int64, streak int) error {
	if _, err := s.q.Exec(ctx,
		`UPDATE habit_logs SET streak_count = $2 WHERE id = $1`, logID, streak); err != nil {
		return perr.FromPostgres(err, "update log streak")
	}
	return nil
}

// Delete implements Storage
func (s *pg) Delete(ctx context.Context, logID int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM habit_logs WHERE id = $1`, logID)
	if err != nil {
		return perr.FromPostgres(err, "delete habit log")
	}
	if tag.RowsAffected() == 0 {
		return perr.Newf(perr.ErrorCodeLogNotFound, "log %d not found", logID)
	}
	return nil
}

func (s *pg) scanAll(ctx context.Context, sql string, args ...any) ([]domain.Log, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, perr.FromPostgres(err, "query habit logs")
	}
	defer rows.Close()

	var out []domain.Log
	for rows.Next() {
		var l domain.Log
		if err := rows.Scan(&l.ID, &l.UserID, &l.HabitID, &l.RewardID, &l.GotReward,
			&l.StreakCount, &l.HabitWeight, &l.TotalWeight, &l.LastCompletedDate, &l.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
