// Package repo provides the rewards repository implementation
package repo

import (
	"context"
	"fmt"
	"strings"

	perr "habitreward/internal/platform/errors"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/rewards/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the rewards repository. Increment and Decrement are
// designed to run inside a caller-owned transaction via Bind
type Storage interface {
	ByID(ctx context.Context, rewardID int64) (domain.Reward, error)
	ActiveForUser(ctx context.Context, userID int64) ([]domain.Reward, error)
	List(ctx context.Context, userID int64, f domain.ListFilter) ([]domain.WithProgress, error)
	Insert(ctx context.Context, r domain.Reward) (domain.Reward, error)

	ProgressFor(ctx context.Context, userID, rewardID int64) (*domain.Progress, error)
	IncrementPieces(ctx context.Context, userID, rewardID int64) (domain.Progress, error)
	DecrementPieces(ctx context.Context, userID, rewardID int64) (*domain.Progress, error)
	MarkClaimed(ctx context.Context, userID, rewardID int64) (domain.Progress, error)
}

const rewardCols = `id, user_id, name, type, weight, pieces_required, piece_value, max_daily_claims, active, created_at`

func scanReward(row repokit.Row) (domain.Reward, error) {
	var r domain.Reward
	err := row.Scan(&r.ID, &r.UserID, &r.Name, &r.Type, &r.Weight, &r.PiecesRequired,
		&r.PieceValue, &r.MaxDailyClaims, &r.Active, &r.CreatedAt)
	return r, err
}

// ByID implements Storage
func (s *pg) ByID(ctx context.Context, rewardID int64) (domain.Reward, error) {
	r, err := scanReward(s.q.QueryRow(ctx,
		`SELECT `+rewardCols+` FROM rewards WHERE id = $1`, rewardID))
	if perr.IsNoRows(err) {
		return domain.Reward{}, perr.Newf(perr.ErrorCodeRewardNotFound, "reward %d not found", rewardID)
	}
	if err != nil {
		return domain.Reward{}, perr.FromPostgres(err, "load reward")
	}
	return r, nil
}

// ActiveForUser implements Storage
func (s *pg) ActiveForUser(ctx context.Context, userID int64) ([]domain.Reward, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+rewardCols+` FROM rewards WHERE user_id = $1 AND active ORDER BY id`, userID)
	if err != nil {
		return nil, perr.FromPostgres(err, "list active rewards")
	}
	defer rows.Close()

	var out []domain.Reward
	for rows.Next() {
		var r domain.Reward
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.Type, &r.Weight, &r.PiecesRequired,
			&r.PieceValue, &r.MaxDailyClaims, &r.Active, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// List implements Storage. Progress is joined in one pass so derived status
// never needs a second fetch
func (s *pg) List(ctx context.Context, userID int64, f domain.ListFilter) ([]domain.WithProgress, error) {
	var sb strings.Builder
	var args []any
	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }

	sb.WriteString(`
		SELECT r.id, r.user_id, r.name, r.type, r.weight, r.pieces_required,
		       r.piece_value, r.max_daily_claims, r.active, r.created_at,
		       p.id, p.pieces_earned, p.claimed
		FROM rewards r
		LEFT JOIN reward_progress p ON p.reward_id = r.id AND p.user_id = r.user_id
		WHERE r.user_id = ` + arg(userID))
	if f.Type != "" {
		sb.WriteString(" AND r.type = " + arg(f.Type))
	}
	sb.WriteString(" ORDER BY r.created_at, r.id")

	rows, err := s.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, perr.FromPostgres(err, "list rewards")
	}
	defer rows.Close()

	var out []domain.WithProgress
	for rows.Next() {
		var (
			r      domain.Reward
			pid    *int64
			earned *int
			clmd   *bool
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.Type, &r.Weight, &r.PiecesRequired,
			&r.PieceValue, &r.MaxDailyClaims, &r.Active, &r.CreatedAt,
			&pid, &earned, &clmd); err != nil {
			return nil, err
		}
		wp := domain.WithProgress{Reward: r}
		if pid != nil {
			wp.Progress = &domain.Progress{
				ID:             *pid,
				UserID:         r.UserID,
				RewardID:       r.ID,
				PiecesEarned:   *earned,
				Claimed:        *clmd,
				PiecesRequired: r.PiecesRequired,
			}
		}
		out = append(out, wp)
	}
	return out, rows.Err()
}

// Insert implements Storage
func (s *pg) Insert(ctx context.Context, r domain.Reward) (domain.Reward, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO rewards (user_id, name, type, weight, pieces_required, piece_value, max_daily_claims, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING `+rewardCols,
		r.UserID, r.Name, r.Type, r.Weight, r.PiecesRequired, r.PieceValue, r.MaxDailyClaims)
	out, err := scanReward(row)
	if perr.IsDuplicateKey(err) {
		return domain.Reward{}, perr.Newf(perr.ErrorCodeRewardExists, "reward %q already exists", r.Name)
	}
	if err != nil {
		return domain.Reward{}, perr.FromPostgres(err, "insert reward")
	}
	return out, nil
}

const progressCols = `p.id, p.user_id, p.reward_id, p.pieces_earned, p.claimed, r.pieces_required`

func scanProgress(row repokit.Row) (domain.Progress, error) {
	var p domain.Progress
	err := row.Scan(&p.ID, &p.UserID, &p.RewardID, &p.PiecesEarned, &p.Claimed, &p.PiecesRequired)
	return p, err
}

// ProgressFor implements Storage, nil when no row exists yet
func (s *pg) ProgressFor(ctx context.Context, userID, rewardID int64) (*domain.Progress, error) {
	p, err := scanProgress(s.q.QueryRow(ctx, `
		SELECT `+progressCols+`
		FROM reward_progress p
		JOIN rewards r ON r.id = p.reward_id
		WHERE p.user_id = $1 AND p.reward_id = $2`, userID, rewardID))
	if perr.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.FromPostgres(err, "load reward progress")
	}
	return &p, nil
}

// IncrementPieces implements Storage. The upsert returns the updated row with
// pieces_required cached from the reward in the same statement
func (s *pg) IncrementPieces(ctx context.Context, userID, rewardID int64) (domain.Progress, error) {
	p, err := scanProgress(s.q.QueryRow(ctx, `
		WITH up AS (
			INSERT INTO reward_progress (user_id, reward_id, pieces_earned, claimed)
			VALUES ($1, $2, 1, FALSE)
			ON CONFLICT (user_id, reward_id)
			DO UPDATE SET pieces_earned = reward_progress.pieces_earned + 1
			RETURNING id, user_id, reward_id, pieces_earned, claimed
		)
		SELECT p.id, p.user_id, p.reward_id, p.pieces_earned, p.claimed, r.pieces_required
		FROM up p JOIN rewards r ON r.id = p.reward_id`, userID, rewardID))
	if err != nil {
		return domain.Progress{}, perr.FromPostgres(err, "increment reward pieces")
	}
	return p, nil
}

// DecrementPieces implements Storage, nil when no progress row exists.
// A decrement always clears the claimed flag
func (s *pg) DecrementPieces(ctx context.Context, userID, rewardID int64) (*domain.Progress, error) {
	p, err := scanProgress(s.q.QueryRow(ctx, `
		WITH up AS (
			UPDATE reward_progress
			SET pieces_earned = GREATEST(0, pieces_earned - 1), claimed = FALSE
			WHERE user_id = $1 AND reward_id = $2
			RETURNING id, user_id, reward_id, pieces_earned, claimed
		)
		SELECT p.id, p.user_id, p.reward_id, p.pieces_earned, p.claimed, r.pieces_required
		FROM up p JOIN rewards r ON r.id = p.reward_id`, userID, rewardID))
	if perr.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.FromPostgres(err, "decrement reward pieces")
	}
	return &p, nil
}

// MarkClaimed implements Storage. The row is locked first so concurrent
// claims serialise on it
func (s *pg) MarkClaimed(ctx context.Context, userID, rewardID int64) (domain.Progress, error) {
	p, err := scanProgress(s.q.QueryRow(ctx, `
		SELECT `+progressCols+`
		FROM reward_progress p
		JOIN rewards r ON r.id = p.reward_id
		WHERE p.user_id = $1 AND p.reward_id = $2
		FOR UPDATE OF p`, userID, rewardID))
	if perr.IsNoRows(err) {
		return domain.Progress{}, perr.Newf(perr.ErrorCodeNotAchieved, "reward has no progress yet")
	}
	if err != nil {
		return domain.Progress{}, perr.FromPostgres(err, "load reward progress")
	}
	if p.Claimed {
		return domain.Progress{}, perr.Newf(perr.ErrorCodeAlreadyClaimed, "reward already claimed")
	}
	if p.PiecesEarned < p.PiecesRequired {
		return domain.Progress{}, perr.Newf(perr.ErrorCodeNotAchieved,
			"reward not achieved, %d of %d pieces", p.PiecesEarned, p.PiecesRequired)
	}
	if _, err := s.q.Exec(ctx,
		`UPDATE reward_progress SET claimed = TRUE WHERE id = $1`, p.ID); err != nil {
		return domain.Progress{}, perr.FromPostgres(err, "mark reward claimed")
	}
	p.Claimed = true
	return p, nil
}
