// Package repo provides read access to habit logs for streak computation
package repo

import (
	"context"
	"time"

	perr "habitreward/internal/platform/errors"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/streaks/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the streak read surface over habit logs
type Storage interface {
	LatestBefore(ctx context.Context, userID, habitID int64, before time.Time) (*domain.LogRef, error)
	Latest(ctx context.Context, userID, habitID int64) (*domain.LogRef, error)
	MaxStreak(ctx context.Context, userID, habitID int64) (int, error)
	Overview(ctx context.Context, userID int64) ([]domain.HabitStreak, error)
}

// LatestBefore implements Storage, nil when no log precedes the date
func (s *pg) LatestBefore(ctx context.Context, userID, habitID int64, before time.Time) (*domain.LogRef, error) {
	var ref domain.LogRef
	err := s.q.QueryRow(ctx, `
		SELECT last_completed_date, streak_count
		FROM habit_logs
		WHERE user_id = $1 AND habit_id = $2 AND last_completed_date < $3
		ORDER BY last_completed_date DESC
		LIMIT 1`, userID, habitID, before).Scan(&ref.Date, &ref.Streak)
	if perr.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.FromPostgres(err, "load preceding log")
	}
	return &ref, nil
}

// Latest implements Storage, nil when the habit has no logs
func (s *pg) Latest(ctx context.Context, userID, habitID int64) (*domain.LogRef, error) {
	var ref domain.LogRef
	err := s.q.QueryRow(ctx, `
		SELECT last_completed_date, streak_count
		FROM habit_logs
		WHERE user_id = $1 AND habit_id = $2
		ORDER BY last_completed_date DESC
		LIMIT 1`, userID, habitID).Scan(&ref.Date, &ref.Streak)
	if perr.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.FromPostgres(err, "load latest log")
	}
	return &ref, nil
}

// MaxStreak implements Storage. Stored streak counts are replayable from the
// log history, so their maximum is the longest streak ever reached
func (s *pg) MaxStreak(ctx context.Context, userID, habitID int64) (int, error) {
	var max int
	err := s.q.QueryRow(ctx, `
		SELECT COALESCE(MAX(streak_count), 0)
		FROM habit_logs
		WHERE user_id = $1 AND habit_id = $2`, userID, habitID).Scan(&max)
	if err != nil {
		return 0, perr.FromPostgres(err, "load max streak")
	}
	return max, nil
}

// Overview implements Storage, one row per active habit with its latest log
func (s *pg) Overview(ctx context.Context, userID int64) ([]domain.HabitStreak, error) {
	rows, err := s.q.Query(ctx, `
		SELECT h.id, h.name, COALESCE(l.streak_count, 0), l.last_completed_date
		FROM habits h
		LEFT JOIN LATERAL (
			SELECT streak_count, last_completed_date
			FROM habit_logs
			WHERE user_id = h.user_id AND habit_id = h.id
			ORDER BY last_completed_date DESC
			LIMIT 1
		) l ON TRUE
		WHERE h.user_id = $1 AND h.active
		ORDER BY h.created_at, h.id`, userID)
	if err != nil {
		return nil, perr.FromPostgres(err, "streak overview")
	}
	defer rows.Close()

	var out []domain.HabitStreak
	for rows.Next() {
		var hs domain.HabitStreak
		if err := rows.Scan(&hs.HabitID, &hs.HabitName, &hs.CurrentStreak, &hs.LastCompleted); err != nil {
			return nil, err
		}
		out = append(out, hs)
	}
	return out, rows.Err()
}
