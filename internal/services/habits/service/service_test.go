package service

import (
	"context"
	"testing"

	perr "habitreward/internal/platform/errors"
	"habitreward/internal/platform/testkit"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/habits/domain"
	"habitreward/internal/services/habits/repo"
)

type fakeStorage struct {
	habits map[int64]domain.Habit
	nextID int64
}

func (f *fakeStorage) ByID(_ context.Context, id int64) (domain.Habit, error) {
	if h, ok := f.habits[id]; ok {
		return h, nil
	}
	return domain.Habit{}, perr.Newf(perr.ErrorCodeHabitNotFound, "habit %d not found", id)
}

func (f *fakeStorage) ActiveByName(_ context.Context, userID int64, name string) (domain.Habit, error) {
	for _, h := range f.habits {
		if h.UserID == userID && h.Name == name && h.Active {
			return h, nil
		}
	}
	return domain.Habit{}, perr.Newf(perr.ErrorCodeHabitNotFound, "habit %q not found", name)
}

func (f *fakeStorage) List(_ context.Context, userID int64, fl domain.ListFilter) ([]domain.Habit, error) {
	var out []domain.Habit
	for _, h := range f.habits {
		if h.UserID != userID {
			continue
		}
		if fl.Active != nil && h.Active != *fl.Active {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (f *fakeStorage) Insert(_ context.Context, h domain.Habit) (domain.Habit, error) {
	for _, e := range f.habits {
		if e.UserID == h.UserID && e.Name == h.Name {
			return domain.Habit{}, perr.Newf(perr.ErrorCodeHabitExists, "habit %q already exists", h.Name)
		}
	}
	f.nextID++
	h.ID = f.nextID
	h.Active = true
	f.habits[h.ID] = h
	return h, nil
}

func (f *fakeStorage) Update(ctx context.Context, habitID int64, patch domain.Patch) (domain.Habit, error) {
	h, err := f.ByID(ctx, habitID)
	if err != nil {
		return domain.Habit{}, err
	}
	if patch.Name != nil {
		h.Name = *patch.Name
	}
	if patch.Weight != nil {
		h.Weight = *patch.Weight
	}
	if patch.ClearCategory {
		h.Category = nil
	} else if patch.Category != nil {
		h.Category = patch.Category
	}
	if patch.Active != nil {
		h.Active = *patch.Active
	}
	f.habits[habitID] = h
	return h, nil
}

func (f *fakeStorage) SetActive(_ context.Context, habitID int64, active bool) error {
	h, ok := f.habits[habitID]
	if !ok {
		return perr.Newf(perr.ErrorCodeHabitNotFound, "habit %d not found", habitID)
	}
	h.Active = active
	f.habits[habitID] = h
	return nil
}

func newSvc(f *fakeStorage) *Service {
	return New(&testkit.FakeTx{}, repokit.BindFunc[repo.Storage](func(repokit.Queryer) repo.Storage { return f }))
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	s := newSvc(&fakeStorage{habits: map[int64]domain.Habit{}})
	ctx := context.Background()

	cases := []struct {
		name string
		in   domain.CreateInput
		code perr.ErrorCode
	}{
		{"blank name", domain.CreateInput{Name: " ", Weight: 10}, perr.ErrorCodeValidation},
		{"weight too low", domain.CreateInput{Name: "run", Weight: 0}, perr.ErrorCodeValidation},
		{"weight too high", domain.CreateInput{Name: "run", Weight: 101}, perr.ErrorCodeValidation},
		{"skip days out of range", domain.CreateInput{Name: "run", Weight: 10, AllowedSkipDays: 8}, perr.ErrorCodeValidation},
		{"weekday out of range", domain.CreateInput{Name: "run", Weight: 10, ExemptWeekdays: []int{0}}, perr.ErrorCodeInvalidWeekdays},
		{"weekday duplicate", domain.CreateInput{Name: "run", Weight: 10, ExemptWeekdays: []int{6, 6}}, perr.ErrorCodeInvalidWeekdays},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Create(ctx, 1, tc.in)
			if !perr.IsCode(err, tc.code) {
				t.Errorf("got %v want code %s", err, tc.code)
			}
		})
	}
}

func TestCreateDuplicateName(t *testing.T) {
	t.Parallel()

	s := newSvc(&fakeStorage{habits: map[int64]domain.Habit{}})
	ctx := context.Background()

	if _, err := s.Create(ctx, 1, domain.CreateInput{Name: "run", Weight: 10}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := s.Create(ctx, 1, domain.CreateInput{Name: "run", Weight: 5})
	if !perr.IsCode(err, perr.ErrorCodeHabitExists) {
		t.Errorf("got %v want HABIT_EXISTS", err)
	}
}

func TestByIDOwnership(t *testing.T) {
	t.Parallel()

	f := &fakeStorage{habits: map[int64]domain.Habit{
		7: {ID: 7, UserID: 2, Name: "read", Weight: 10, Active: true},
	}}
	s := newSvc(f)

	if _, err := s.ByID(context.Background(), 1, 7); !perr.IsCode(err, perr.ErrorCodeNotOwner) {
		t.Errorf("got %v want NOT_OWNER", err)
	}
	if _, err := s.ByID(context.Background(), 2, 7); err != nil {
		t.Errorf("owner lookup failed: %v", err)
	}
	if _, err := s.ByID(context.Background(), 2, 99); !perr.IsCode(err, perr.ErrorCodeHabitNotFound) {
		t.Errorf("got %v want HABIT_NOT_FOUND", err)
	}
}

func TestSoftDeleteKeepsRow(t *testing.T) {
	t.Parallel()

	f := &fakeStorage{habits: map[int64]domain.Habit{
		7: {ID: 7, UserID: 2, Name: "read", Weight: 10, Active: true},
	}}
	s := newSvc(f)

	if err := s.SoftDelete(context.Background(), 2, 7); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	h, ok := f.habits[7]
	if !ok {
		t.Fatal("row was removed, soft delete must keep it")
	}
	if h.Active {
		t.Error("habit still active after soft delete")
	}
}
