package repo

import (
	"context"
	"time"

	perr "habitreward/internal/platform/errors"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/auth/domain"
)

type (
	keysPG     struct{ q repokit.Queryer }
	keysBinder struct{}
)

// NewKeysPG constructs a binder for the API-key repo
func NewKeysPG() repokit.Binder[KeyStorage] { return keysBinder{} }

// Bind implements repokit.Binder
func (keysBinder) Bind(q repokit.Queryer) KeyStorage { return &keysPG{q: q} }

// KeyStorage defines the API-key repository
type KeyStorage interface {
	Insert(ctx context.Context, k domain.APIKey) (domain.APIKey, error)
	ByHash(ctx context.Context, hash string) (domain.APIKey, error)
	List(ctx context.Context, userID int64) ([]domain.APIKey, error)
	Revoke(ctx context.Context, userID, keyID int64) error
	TouchLastUsed(ctx context.Context, keyID int64, at time.Time) error
}

const keyCols = `id, user_id, key_hash, name, created_at, last_used_at, expires_at, active`

func scanKey(row repokit.Row) (domain.APIKey, error) {
	var k domain.APIKey
	err := row.Scan(&k.ID, &k.UserID, &k.KeyHash, &k.Name, &k.CreatedAt,
		&k.LastUsedAt, &k.ExpiresAt, &k.Active)
	return k, err
}

// Insert implements KeyStorage
func (s *keysPG) Insert(ctx context.Context, k domain.APIKey) (domain.APIKey, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO api_keys (user_id, key_hash, name, expires_at, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING `+keyCols,
		k.UserID, k.KeyHash, k.Name, k.ExpiresAt)
	out, err := scanKey(row)
	if perr.IsDuplicateKey(err) {
		return domain.APIKey{}, perr.Newf(perr.ErrorCodeConflict, "api key name %q already in use", k.Name)
	}
	if err != nil {
		return domain.APIKey{}, perr.FromPostgres(err, "insert api key")
	}
	return out, nil
}

// ByHash implements KeyStorage, active rows only
func (s *keysPG) ByHash(ctx context.Context, hash string) (domain.APIKey, error) {
	k, err := scanKey(s.q.QueryRow(ctx,
		`SELECT `+keyCols+` FROM api_keys WHERE key_hash = $1 AND active`, hash))
	if perr.IsNoRows(err) {
		return domain.APIKey{}, perr.Newf(perr.ErrorCodeInvalidAPIKey, "invalid api key")
	}
	if err != nil {
		return domain.APIKey{}, perr.FromPostgres(err, "load api key")
	}
	return k, nil
}

// List implements KeyStorage
func (s *keysPG) List(ctx context.Context, userID int64) ([]domain.APIKey, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+keyCols+` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, perr.FromPostgres(err, "list api keys")
	}
	defer rows.Close()

	var out []domain.APIKey
	for rows.Next() {
		var k domain.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.KeyHash, &k.Name, &k.CreatedAt,
			&k.LastUsedAt, &k.ExpiresAt, &k.Active); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// Revoke implements KeyStorage, ownership enforced in the predicate
func (s *keysPG) Revoke(ctx context.Context, userID, keyID int64) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE api_keys SET active = FALSE WHERE id = $1 AND user_id = $2`, keyID, userID)
	if err != nil {
		return perr.FromPostgres(err, "revoke api key")
	}
	if tag.RowsAffected() == 0 {
		return perr.Newf(perr.ErrorCodeNotFound, "api key %d not found", keyID)
	}
	return nil
}

// TouchLastUsed implements KeyStorage
func (s *keysPG) TouchLastUsed(ctx context.Context, keyID int64, at time.Time) error {
	if _, err := s.q.Exec(ctx,
		`UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, keyID, at); err != nil {
		return perr.FromPostgres(err, "touch api key")
	}
	return nil
}
