// Package repo provides the auth repositories for codes and API keys
package repo

import (
	"context"
	"time"

	perr "habitreward/internal/platform/errors"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/auth/domain"
)

type (
	codesPG     struct{ q repokit.Queryer }
	codesBinder struct{}
)

// NewCodesPG constructs a binder for the auth-code repo
func NewCodesPG() repokit.Binder[CodeStorage] { return codesBinder{} }

// Bind implements repokit.Binder
func (codesBinder) Bind(q repokit.Queryer) CodeStorage { return &codesPG{q: q} }

// CodeStorage defines the auth-code repository
type CodeStorage interface {
	CountIssuedSince(ctx context.Context, userID int64, since time.Time) (int, error)
	InvalidateAll(ctx context.Context, userID int64) error
	Insert(ctx context.Context, c domain.AuthCode) (domain.AuthCode, error)
	Consume(ctx context.Context, userID int64, code string, now time.Time) (bool, error)
	LatestActive(ctx context.Context, userID int64, now time.Time) (*domain.AuthCode, error)
	RegisterFailure(ctx context.Context, codeID int64, lockAt int, lockFor time.Duration) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

const codeCols = `id, user_id, code, created_at, expires_at, used, failed_attempts, locked_until, device_info`

// CountIssuedSince implements CodeStorage
func (s *codesPG) CountIssuedSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var n int
	err := s.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM auth_codes WHERE user_id = $1 AND created_at >= $2`,
		userID, since).Scan(&n)
	if err != nil {
		return 0, perr.FromPostgres(err, "count issued codes")
	}
	return n, nil
}

// InvalidateAll implements CodeStorage, burning every outstanding code
func (s *codesPG) InvalidateAll(ctx context.Context, userID int64) error {
	if _, err := s.q.Exec(ctx,
		`UPDATE auth_codes SET used = TRUE WHERE user_id = $1 AND NOT used`, userID); err != nil {
		return perr.FromPostgres(err, "invalidate codes")
	}
	return nil
}

// Insert implements CodeStorage
func (s *codesPG) Insert(ctx context.Context, c domain.AuthCode) (domain.AuthCode, error) {
	var out domain.AuthCode
	err := s.q.QueryRow(ctx, `
		INSERT INTO auth_codes (user_id, code, expires_at, device_info)
		VALUES ($1, $2, $3, $4)
		RETURNING `+codeCols,
		c.UserID, c.Code, c.ExpiresAt, c.DeviceInfo).
		Scan(&out.ID, &out.UserID, &out.Code, &out.CreatedAt, &out.ExpiresAt,
			&out.Used, &out.FailedAttempts, &out.LockedUntil, &out.DeviceInfo)
	if err != nil {
		return domain.AuthCode{}, perr.FromPostgres(err, "insert auth code")
	}
	return out, nil
}

// Consume implements CodeStorage. The update is conditional on used=false so
// only the first of two concurrent verifiers succeeds
func (s *codesPG) Consume(ctx context.Context, userID int64, code string, now time.Time) (bool, error) {
	tag, err := s.q.Exec(ctx, `
		UPDATE auth_codes SET used = TRUE
		WHERE user_id = $1 AND code = $2 AND NOT used AND expires_at > $3
		  AND (locked_until IS NULL OR locked_until <= $3)`,
		userID, code, now)
	if err != nil {
		return false, perr.FromPostgres(err, "consume auth code")
	}
	return tag.RowsAffected() > 0, nil
}

// LatestActive implements CodeStorage, nil when no live code exists
func (s *codesPG) LatestActive(ctx context.Context, userID int64, now time.Time) (*domain.AuthCode, error) {
	var c domain.AuthCode
	err := s.q.QueryRow(ctx, `
		SELECT `+codeCols+` FROM auth_codes
		WHERE user_id = $1 AND NOT used AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1`, userID, now).
		Scan(&c.ID, &c.UserID, &c.Code, &c.CreatedAt, &c.ExpiresAt,
			&c.Used, &c.FailedAttempts, &c.LockedUntil, &c.DeviceInfo)
	if perr.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.FromPostgres(err, "load active code")
	}
	return &c, nil
}

// RegisterFailure implements CodeStorage, incrementing the counter and
// locking the code once the threshold is reached
func (s *codesPG) RegisterFailure(ctx context.Context, codeID int64, lockAt int, lockFor time.Duration) error {
	if _, err := s.q.Exec(ctx, `
		UPDATE auth_codes
		SET failed_attempts = failed_attempts + 1,
		    locked_until = CASE WHEN failed_attempts + 1 >= $2 THEN NOW() + $3 ELSE locked_until END
		WHERE id = $1`,
		codeID, lockAt, lockFor); err != nil {
		return perr.FromPostgres(err, "register code failure")
	}
	return nil
}

// DeleteExpired implements CodeStorage
func (s *codesPG) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM auth_codes WHERE expires_at < $1`, now)
	if err != nil {
		return 0, perr.FromPostgres(err, "delete expired codes")
	}
	return tag.RowsAffected(), nil
}
