package service

import (
	"context"
	"testing"
	"time"

	"habitreward/internal/core/clock"
	perr "habitreward/internal/platform/errors"
	"habitreward/internal/platform/testkit"

	"habitreward/internal/modkit/repokit"
	habitsdomain "habitreward/internal/services/habits/domain"
	"habitreward/internal/services/streaks/domain"
	"habitreward/internal/services/streaks/repo"
)

type fakeLogs struct {
	// refs are kept sorted ascending by date
	refs []domain.LogRef
}

func (f *fakeLogs) LatestBefore(_ context.Context, _, _ int64, before time.Time) (*domain.LogRef, error) {
	for i := len(f.refs) - 1; i >= 0; i-- {
		if f.refs[i].Date.Before(before) {
			ref := f.refs[i]
			return &ref, nil
		}
	}
	return nil, nil
}

func (f *fakeLogs) Latest(_ context.Context, _, _ int64) (*domain.LogRef, error) {
	if len(f.refs) == 0 {
		return nil, nil
	}
	ref := f.refs[len(f.refs)-1]
	return &ref, nil
}

func (f *fakeLogs) MaxStreak(_ context.Context, _, _ int64) (int, error) {
	max := 0
	for _, r := range f.refs {
		if r.Streak > max {
			max = r.Streak
		}
	}
	return max, nil
}

func (f *fakeLogs) Overview(context.Context, int64) ([]domain.HabitStreak, error) {
	return nil, nil
}

type fakeHabits struct {
	habit habitsdomain.Habit
	fail  bool
}

func (f *fakeHabits) ByID(_ context.Context, userID, habitID int64) (habitsdomain.Habit, error) {
	if f.fail {
		return habitsdomain.Habit{}, perr.Newf(perr.ErrorCodeHabitNotFound, "habit %d not found", habitID)
	}
	if f.habit.UserID != userID {
		return habitsdomain.Habit{}, perr.NotOwnerf("habit %d belongs to another user", habitID)
	}
	return f.habit, nil
}

func (f *fakeHabits) ActiveByName(ctx context.Context, userID int64, _ string) (habitsdomain.Habit, error) {
	return f.ByID(ctx, userID, f.habit.ID)
}

func (f *fakeHabits) List(context.Context, int64, habitsdomain.ListFilter) ([]habitsdomain.Habit, error) {
	return []habitsdomain.Habit{f.habit}, nil
}

func newSvc(logs *fakeLogs, habits *fakeHabits) *Service {
	return New(&testkit.FakeTx{},
		repokit.BindFunc[repo.Storage](func(repokit.Queryer) repo.Storage { return logs }),
		habits)
}

func day(s string) time.Time {
	d, err := clock.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestStreakFor(t *testing.T) {
	t.Parallel()

	habit := habitsdomain.Habit{ID: 1, UserID: 1, Name: "run", AllowedSkipDays: 1, ExemptWeekdays: []int{6, 7}}
	ctx := context.Background()

	t.Run("no prior log", func(t *testing.T) {
		s := newSvc(&fakeLogs{}, &fakeHabits{habit: habit})
		got, err := s.StreakFor(ctx, 1, 1, day("2024-01-16"))
		if err != nil || got != 1 {
			t.Errorf("got %d, %v; want 1", got, err)
		}
	})

	t.Run("consecutive day", func(t *testing.T) {
		s := newSvc(&fakeLogs{refs: []domain.LogRef{{Date: day("2024-01-15"), Streak: 4}}}, &fakeHabits{habit: habit})
		got, err := s.StreakFor(ctx, 1, 1, day("2024-01-16"))
		if err != nil || got != 5 {
			t.Errorf("got %d, %v; want 5", got, err)
		}
	})

	t.Run("gap within skip budget", func(t *testing.T) {
		// 2024-01-16 Tue missed, one skip allowed
		s := newSvc(&fakeLogs{refs: []domain.LogRef{{Date: day("2024-01-15"), Streak: 4}}}, &fakeHabits{habit: habit})
		got, err := s.StreakFor(ctx, 1, 1, day("2024-01-17"))
		if err != nil || got != 5 {
			t.Errorf("got %d, %v; want 5", got, err)
		}
	})

	t.Run("weekend exempt gap", func(t *testing.T) {
		// Fri 2024-01-19 -> Tue 2024-01-23: Sat+Sun exempt, Mon uses the skip
		s := newSvc(&fakeLogs{refs: []domain.LogRef{{Date: day("2024-01-19"), Streak: 4}}}, &fakeHabits{habit: habit})
		got, err := s.StreakFor(ctx, 1, 1, day("2024-01-23"))
		if err != nil || got != 5 {
			t.Errorf("got %d, %v; want 5", got, err)
		}
	})

	t.Run("gap over budget resets", func(t *testing.T) {
		s := newSvc(&fakeLogs{refs: []domain.LogRef{{Date: day("2024-01-15"), Streak: 4}}}, &fakeHabits{habit: habit})
		got, err := s.StreakFor(ctx, 1, 1, day("2024-01-18"))
		if err != nil || got != 1 {
			t.Errorf("got %d, %v; want 1", got, err)
		}
	})

	t.Run("unloadable habit fails closed", func(t *testing.T) {
		s := newSvc(&fakeLogs{refs: []domain.LogRef{{Date: day("2024-01-15"), Streak: 4}}}, &fakeHabits{fail: true})
		got, err := s.StreakFor(ctx, 1, 1, day("2024-01-16"))
		if err != nil || got != 1 {
			t.Errorf("got %d, %v; want 1", got, err)
		}
	})

	t.Run("later log resets", func(t *testing.T) {
		s := newSvc(&fakeLogs{refs: []domain.LogRef{{Date: day("2024-01-15"), Streak: 4}}}, &fakeHabits{habit: habit})
		got, err := s.StreakFor(ctx, 1, 1, day("2024-01-15"))
		if err != nil || got != 1 {
			t.Errorf("got %d, %v; want 1", got, err)
		}
	})
}

func TestCurrentStreak(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	habit := habitsdomain.Habit{ID: 1, UserID: 1, Name: "run"}

	s := newSvc(&fakeLogs{}, &fakeHabits{habit: habit})
	if got, err := s.CurrentStreak(ctx, 1, 1); err != nil || got != 0 {
		t.Errorf("empty history: got %d, %v; want 0", got, err)
	}

	s = newSvc(&fakeLogs{refs: []domain.LogRef{
		{Date: day("2024-01-14"), Streak: 3},
		{Date: day("2024-01-15"), Streak: 4},
	}}, &fakeHabits{habit: habit})
	if got, err := s.CurrentStreak(ctx, 1, 1); err != nil || got != 4 {
		t.Errorf("got %d, %v; want 4", got, err)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	habit := habitsdomain.Habit{ID: 1, UserID: 1, Name: "run"}
	logs := &fakeLogs{refs: []domain.LogRef{
		{Date: day("2024-01-10"), Streak: 7},
		{Date: day("2024-01-15"), Streak: 1},
		{Date: day("2024-01-16"), Streak: 2},
	}}

	s := newSvc(logs, &fakeHabits{habit: habit})
	sum, err := s.Summary(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.CurrentStreak != 2 || sum.LongestStreak != 7 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.LastCompleted == nil || !sum.LastCompleted.Equal(day("2024-01-16")) {
		t.Errorf("last completed = %v", sum.LastCompleted)
	}

	if _, err := s.Summary(ctx, 2, 1); !perr.IsCode(err, perr.ErrorCodeNotOwner) {
		t.Errorf("got %v want NOT_OWNER", err)
	}
}
