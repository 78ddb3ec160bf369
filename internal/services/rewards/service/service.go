// Package service provides the rewards service implementation
package service

import (
	"context"
	"strings"

	perr "habitreward/internal/platform/errors"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/rewards/domain"
	"habitreward/internal/services/rewards/repo"
)

const maxRewardWeight = 100.0

// Service implements the reward ports
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
}

// New constructs a rewards service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Storage]) *Service {
	return &Service{DB: db, Binder: binder}
}

// ByID implements domain.ReaderPort, enforcing ownership
func (s *Service) ByID(ctx context.Context, userID, rewardID int64) (domain.Reward, error) {
	r, err := s.Binder.Bind(s.DB).ByID(ctx, rewardID)
	if err != nil {
		return domain.Reward{}, err
	}
	if r.UserID != userID {
		return domain.Reward{}, perr.NotOwnerf("reward %d belongs to another user", rewardID)
	}
	return r, nil
}

// ActiveForUser implements domain.ReaderPort
func (s *Service) ActiveForUser(ctx context.Context, userID int64) ([]domain.Reward, error) {
	return s.Binder.Bind(s.DB).ActiveForUser(ctx, userID)
}

// List implements domain.ReaderPort. The status filter is applied on the
// derived state because status never lives in a column
func (s *Service) List(ctx context.Context, userID int64, f domain.ListFilter) ([]domain.WithProgress, error) {
	if f.Type != "" && f.Type != domain.TypeRegular && f.Type != domain.TypeNone {
		return nil, perr.Validationf("unknown reward type %q", f.Type)
	}
	status := strings.ToUpper(strings.TrimSpace(f.Status))
	switch status {
	case "", domain.StatusPending, domain.StatusAchieved, domain.StatusClaimed:
	default:
		return nil, perr.Newf(perr.ErrorCodeInvalidStatus, "unknown status %q", f.Status)
	}

	all, err := s.Binder.Bind(s.DB).List(ctx, userID, domain.ListFilter{Type: f.Type})
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	out := make([]domain.WithProgress, 0, len(all))
	for _, wp := range all {
		st := domain.StatusPending
		if wp.Progress != nil {
			st = wp.Progress.Status()
		}
		if st == status {
			out = append(out, wp)
		}
	}
	return out, nil
}

// Create implements domain.WriterPort
func (s *Service) Create(ctx context.Context, userID int64, in domain.CreateInput) (domain.Reward, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return domain.Reward{}, perr.Validationf("name must not be blank")
	}
	if in.Type == "" {
		in.Type = domain.TypeRegular
	}
	if in.Type != domain.TypeRegular && in.Type != domain.TypeNone {
		return domain.Reward{}, perr.Validationf("type must be %q or %q", domain.TypeRegular, domain.TypeNone)
	}
	if in.Weight <= 0 || in.Weight > maxRewardWeight {
		return domain.Reward{}, perr.Validationf("weight must be greater than 0 and at most %v", maxRewardWeight)
	}
	if in.PiecesRequired < 1 {
		return domain.Reward{}, perr.Validationf("pieces_required must be at least 1")
	}
	if in.PieceValue != nil && *in.PieceValue < 0 {
		return domain.Reward{}, perr.Validationf("piece_value must not be negative")
	}
	if in.MaxDailyClaims != nil && *in.MaxDailyClaims < 0 {
		return domain.Reward{}, perr.Validationf("max_daily_claims must not be negative")
	}
	return s.Binder.Bind(s.DB).Insert(ctx, domain.Reward{
		UserID:         userID,
		Name:           in.Name,
		Type:           in.Type,
		Weight:         in.Weight,
		PiecesRequired: in.PiecesRequired,
		PieceValue:     in.PieceValue,
		MaxDailyClaims: in.MaxDailyClaims,
	})
}

// ProgressFor implements domain.ProgressPort
func (s *Service) ProgressFor(ctx context.Context, userID, rewardID int64) (*domain.Progress, error) {
	return s.Binder.Bind(s.DB).ProgressFor(ctx, userID, rewardID)
}

// MarkClaimed implements domain.ProgressPort. Ownership is checked first,
// then the claim runs in its own transaction so the progress row lock
// covers the state check and the flag flip
func (s *Service) MarkClaimed(ctx context.Context, userID, rewardID int64) (domain.Progress, error) {
	if _, err := s.ByID(ctx, userID, rewardID); err != nil {
		return domain.Progress{}, err
	}
	var p domain.Progress
	err := repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		var err error
		p, err = s.Binder.Bind(q).MarkClaimed(ctx, userID, rewardID)
		return err
	})
	return p, err
}
