// Package service provides the streaks service implementation
package service

import (
	"context"
	"time"

	"habitreward/internal/core/streak"
	"habitreward/internal/modkit/repokit"
	"habitreward/internal/platform/logger"

	habitsdomain "habitreward/internal/services/habits/domain"
	"habitreward/internal/services/streaks/domain"
	"habitreward/internal/services/streaks/repo"
)

// Service implements domain.ReaderPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
	Habits habitsdomain.ReaderPort
}

// New constructs a streaks service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Storage], habits habitsdomain.ReaderPort) *Service {
	return &Service{DB: db, Binder: binder, Habits: habits}
}

// StreakFor implements domain.ReaderPort. An unloadable habit breaks the
// streak rather than erroring, only log reads can fail
func (s *Service) StreakFor(ctx context.Context, userID, habitID int64, target time.Time) (int, error) {
	prior, err := s.Binder.Bind(s.DB).LatestBefore(ctx, userID, habitID, target)
	if err != nil {
		return 0, err
	}
	if prior == nil {
		return 1, nil
	}
	h, err := s.Habits.ByID(ctx, userID, habitID)
	if err != nil {
		return 1, nil
	}
	return s.next(ctx, h, prior, target), nil
}

// StreakForHabit is StreakFor with an already-loaded habit, used by the
// completion flow inside its own transaction boundary
func (s *Service) StreakForHabit(ctx context.Context, h habitsdomain.Habit, target time.Time) (int, error) {
	prior, err := s.Binder.Bind(s.DB).LatestBefore(ctx, h.UserID, h.ID, target)
	if err != nil {
		return 0, err
	}
	if prior == nil {
		return 1, nil
	}
	return s.next(ctx, h, prior, target), nil
}

func (s *Service) next(ctx context.Context, h habitsdomain.Habit, prior *domain.LogRef, target time.Time) int {
	p := &streak.Prior{Date: prior.Date, Count: prior.Streak}
	if streak.OutOfOrder(p, target) {
		logger.C(ctx).Warn().
			Int64("habit_id", h.ID).
			Time("prior_date", prior.Date).
			Time("target_date", target).
			Msg("streak computed against a later log, resetting to 1")
	}
	return streak.Next(p, streak.Leniency{
		AllowedSkipDays: h.AllowedSkipDays,
		ExemptWeekdays:  h.ExemptWeekdays,
	}, target)
}

// CurrentStreak implements domain.ReaderPort. It reflects the stored count
// of the latest log without projecting a new completion
func (s *Service) CurrentStreak(ctx context.Context, userID, habitID int64) (int, error) {
	latest, err := s.Binder.Bind(s.DB).Latest(ctx, userID, habitID)
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return 0, nil
	}
	return latest.Streak, nil
}

// Summary implements domain.ReaderPort, enforcing habit ownership
func (s *Service) Summary(ctx context.Context, userID, habitID int64) (domain.Summary, error) {
	if _, err := s.Habits.ByID(ctx, userID, habitID); err != nil {
		return domain.Summary{}, err
	}
	st := s.Binder.Bind(s.DB)
	latest, err := st.Latest(ctx, userID, habitID)
	if err != nil {
		return domain.Summary{}, err
	}
	longest, err := st.MaxStreak(ctx, userID, habitID)
	if err != nil {
		return domain.Summary{}, err
	}
	out := domain.Summary{LongestStreak: longest}
	if latest != nil {
		out.CurrentStreak = latest.Streak
		d := latest.Date
		out.LastCompleted = &d
	}
	return out, nil
}

// Overview implements domain.ReaderPort
func (s *Service) Overview(ctx context.Context, userID int64) ([]domain.HabitStreak, error) {
	return s.Binder.Bind(s.DB).Overview(ctx, userID)
}
