// Package repo provides the users repository implementation
package repo

import (
	"context"
	"fmt"
	"strings"

	perr "habitreward/internal/platform/errors"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/users/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the users repository
type Storage interface {
	ByID(ctx context.Context, id int64) (domain.User, error)
	ByTelegramID(ctx context.Context, telegramID int64) (domain.User, error)
	Insert(ctx context.Context, u domain.User) (domain.User, error)
	Update(ctx context.Context, userID int64, patch domain.ProfilePatch) (domain.User, error)
}

const userCols = `id, telegram_id, name, language, timezone, active, created_at`

func scanUser(row repokit.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.TelegramID, &u.Name, &u.Language, &u.Timezone, &u.Active, &u.CreatedAt)
	return u, err
}

// ByID implements Storage
func (s *pg) ByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(s.q.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if perr.IsNoRows(err) {
		return domain.User{}, perr.Newf(perr.ErrorCodeUserNotFound, "user %d not found", id)
	}
	if err != nil {
		return domain.User{}, perr.FromPostgres(err, "load user")
	}
	return u, nil
}

// ByTelegramID implements Storage
func (s *pg) ByTelegramID(ctx context.Context, telegramID int64) (domain.User, error) {
	u, err := scanUser(s.q.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE telegram_id = $1`, telegramID))
	if perr.IsNoRows(err) {
		return domain.User{}, perr.Newf(perr.ErrorCodeUserNotFound, "user not found")
	}
	if err != nil {
		return domain.User{}, perr.FromPostgres(err, "load user")
	}
	return u, nil
}

// Insert implements Storage
func (s *pg) Insert(ctx context.Context, u domain.User) (domain.User, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO users (telegram_id, name, language, timezone, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING `+userCols,
		u.TelegramID, u.Name, u.Language, u.Timezone)
	out, err := scanUser(row)
	if err != nil {
		return domain.User{}, perr.FromPostgres(err, "insert user")
	}
	return out, nil
}

// Update implements Storage
func (s *pg) Update(ctx context.Context, userID int64, patch domain.ProfilePatch) (domain.User, error) {
	var sb strings.Builder
	var args []any
	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }

	sb.WriteString("UPDATE users SET ")
	sets := 0
	set := func(col string, v any) {
		if sets > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col + " = " + arg(v))
		sets++
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Language != nil {
		set("language", *patch.Language)
	}
	if patch.Timezone != nil {
		set("timezone", *patch.Timezone)
	}
	if sets == 0 {
		return s.ByID(ctx, userID)
	}
	sb.WriteString(" WHERE id = " + arg(userID) + " RETURNING " + userCols)

	u, err := scanUser(s.q.QueryRow(ctx, sb.String(), args...))
	if err != nil {
		return domain.User{}, perr.FromPostgres(err, "update user")
	}
	return u, nil
}
