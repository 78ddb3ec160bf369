// Package service provides the habits service implementation
package service

import (
	"context"
	"strings"

	perr "habitreward/internal/platform/errors"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/habits/domain"
	"habitreward/internal/services/habits/repo"
)

const (
	minWeight   = 1
	maxWeight   = 100
	maxSkipDays = 7
)

// Service implements domain.ReaderPort and domain.WriterPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
}

// New constructs a habits service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Storage]) *Service {
	return &Service{DB: db, Binder: binder}
}

// ByID implements domain.ReaderPort, enforcing ownership
func (s *Service) ByID(ctx context.Context, userID, habitID int64) (domain.Habit, error) {
	h, err := s.Binder.Bind(s.DB).ByID(ctx, habitID)
	if err != nil {
		return domain.Habit{}, err
	}
	if h.UserID != userID {
		return domain.Habit{}, perr.NotOwnerf("habit %d belongs to another user", habitID)
	}
	return h, nil
}

// ActiveByName implements domain.ReaderPort
func (s *Service) ActiveByName(ctx context.Context, userID int64, name string) (domain.Habit, error) {
	return s.Binder.Bind(s.DB).ActiveByName(ctx, userID, strings.TrimSpace(name))
}

// List implements domain.ReaderPort
func (s *Service) List(ctx context.Context, userID int64, f domain.ListFilter) ([]domain.Habit, error) {
	return s.Binder.Bind(s.DB).List(ctx, userID, f)
}

// Create implements domain.WriterPort
func (s *Service) Create(ctx context.Context, userID int64, in domain.CreateInput) (domain.Habit, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return domain.Habit{}, perr.Validationf("name must not be blank")
	}
	if err := validateWeight(in.Weight); err != nil {
		return domain.Habit{}, err
	}
	if err := validateSkipDays(in.AllowedSkipDays); err != nil {
		return domain.Habit{}, err
	}
	if err := validateWeekdays(in.ExemptWeekdays); err != nil {
		return domain.Habit{}, err
	}
	return s.Binder.Bind(s.DB).Insert(ctx, domain.Habit{
		UserID:          userID,
		Name:            in.Name,
		Weight:          in.Weight,
		Category:        in.Category,
		AllowedSkipDays: in.AllowedSkipDays,
		ExemptWeekdays:  in.ExemptWeekdays,
	})
}

// Update implements domain.WriterPort
func (s *Service) Update(ctx context.Context, userID, habitID int64, patch domain.Patch) (domain.Habit, error) {
	if _, err := s.ByID(ctx, userID, habitID); err != nil {
		return domain.Habit{}, err
	}
	if patch.Name != nil {
		n := strings.TrimSpace(*patch.Name)
		if n == "" {
			return domain.Habit{}, perr.Validationf("name must not be blank")
		}
		patch.Name = &n
	}
	if patch.Weight != nil {
		if err := validateWeight(*patch.Weight); err != nil {
			return domain.Habit{}, err
		}
	}
	if patch.AllowedSkipDays != nil {
		if err := validateSkipDays(*patch.AllowedSkipDays); err != nil {
			return domain.Habit{}, err
		}
	}
	if patch.ExemptWeekdays != nil {
		if err := validateWeekdays(*patch.ExemptWeekdays); err != nil {
			return domain.Habit{}, err
		}
	}
	return s.Binder.Bind(s.DB).Update(ctx, habitID, patch)
}

// SoftDelete implements domain.WriterPort. Logs referencing the habit persist
func (s *Service) SoftDelete(ctx context.Context, userID, habitID int64) error {
	if _, err := s.ByID(ctx, userID, habitID); err != nil {
		return err
	}
	return s.Binder.Bind(s.DB).SetActive(ctx, habitID, false)
}

func validateWeight(w int) error {
	if w < minWeight || w > maxWeight {
		return perr.Validationf("weight must be between %d and %d", minWeight, maxWeight)
	}
	return nil
}

func validateSkipDays(d int) error {
	if d < 0 || d > maxSkipDays {
		return perr.Validationf("allowed_skip_days must be between 0 and %d", maxSkipDays)
	}
	return nil
}

func validateWeekdays(days []int) error {
	var seen [8]bool
	for _, d := range days {
		if d < 1 || d > 7 || seen[d] {
			return perr.Newf(perr.ErrorCodeInvalidWeekdays, "exempt_weekdays must be unique values 1..7")
		}
		seen[d] = true
	}
	return nil
}
