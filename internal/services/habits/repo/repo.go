// Package repo provides the habits repository implementation
package repo

import (
	"context"
	"fmt"
	"strings"

	perr "habitreward/internal/platform/errors"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/habits/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the habits repository
type Storage interface {
	ByID(ctx context.Context, habitID int64) (domain.Habit, error)
	ActiveByName(ctx context.Context, userID int64, name string) (domain.Habit, error)
	List(ctx context.Context, userID int64, f domain.ListFilter) ([]domain.Habit, error)
	Insert(ctx context.Context, h domain.Habit) (domain.Habit, error)
	Update(ctx context.Context, habitID int64, patch domain.Patch) (domain.Habit, error)
	SetActive(ctx context.Context, habitID int64, active bool) error
}

const habitCols = `id, user_id, name, weight, category, allowed_skip_days, exempt_weekdays, active, created_at`

func scanHabit(row repokit.Row) (domain.Habit, error) {
	var h domain.Habit
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Weight, &h.Category,
		&h.AllowedSkipDays, &h.ExemptWeekdays, &h.Active, &h.CreatedAt)
	return h, err
}

// ByID implements Storage
func (s *pg) ByID(ctx context.Context, habitID int64) (domain.Habit, error) {
	h, err := scanHabit(s.q.QueryRow(ctx,
		`SELECT `+habitCols+` FROM habits WHERE id = $1`, habitID))
	if perr.IsNoRows(err) {
		return domain.Habit{}, perr.Newf(perr.ErrorCodeHabitNotFound, "habit %d not found", habitID)
	}
	if err != nil {
		return domain.Habit{}, perr.FromPostgres(err, "load habit")
	}
	return h, nil
}

// ActiveByName implements Storage
func (s *pg) ActiveByName(ctx context.Context, userID int64, name string) (domain.Habit, error) {
	h, err := scanHabit(s.q.QueryRow(ctx,
		`SELECT `+habitCols+` FROM habits WHERE user_id = $1 AND name = $2 AND active`, userID, name))
	if perr.IsNoRows(err) {
		return domain.Habit{}, perr.Newf(perr.ErrorCodeHabitNotFound, "habit %q not found", name)
	}
	if err != nil {
		return domain.Habit{}, perr.FromPostgres(err, "load habit")
	}
	return h, nil
}

// List implements Storage
func (s *pg) List(ctx context.Context, userID int64, f domain.ListFilter) ([]domain.Habit, error) {
	var sb strings.Builder
	var args []any
	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }

	sb.WriteString(`SELECT ` + habitCols + ` FROM habits WHERE user_id = ` + arg(userID))
	if f.Active != nil {
		sb.WriteString(" AND active = " + arg(*f.Active))
	}
	if f.Category != "" {
		sb.WriteString(" AND category = " + arg(f.Category))
	}
	sb.WriteString(" ORDER BY created_at, id")

	rows, err := s.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, perr.FromPostgres(err, "list habits")
	}
	defer rows.Close()

	var out []domain.Habit
	for rows.Next() {
		var h domain.Habit
		if err := rows.Scan(&h.ID, &h.UserID, &h.Name, &h.Weight, &h.Category,
			&h.AllowedSkipDays, &h.ExemptWeekdays, &h.Active, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Insert implements Storage
func (s *pg) Insert(ctx context.Context, h domain.Habit) (domain.Habit, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO habits (user_id, name, weight, category, allowed_skip_days, exempt_weekdays, active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING `+habitCols,
		h.UserID, h.Name, h.Weight, h.Category, h.AllowedSkipDays, h.ExemptWeekdays)
	out, err := scanHabit(row)
	if perr.IsDuplicateKey(err) {
		return domain.Habit{}, perr.Newf(perr.ErrorCodeHabitExists, "habit %q already exists", h.Name)
	}
	if err != nil {
		return domain.Habit{}, perr.FromPostgres(err, "insert habit")
	}
	return out, nil
}

// Update implements Storage
func (s *pg) Update(ctx context.Context, habitID int64, patch domain.Patch) (domain.Habit, error) {
	var sb strings.Builder
	var args []any
	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }

	sb.WriteString("UPDATE habits SET ")
	sets := 0
	set := func(col, expr string) {
		if sets > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col + " = " + expr)
		sets++
	}
	if patch.Name != nil {
		set("name", arg(*patch.Name))
	}
	if patch.Weight != nil {
		set("weight", arg(*patch.Weight))
	}
	if patch.ClearCategory {
		set("category", "NULL")
	} else if patch.Category != nil {
		set("category", arg(*patch.Category))
	}
	if patch.AllowedSkipDays != nil {
		set("allowed_skip_days", arg(*patch.AllowedSkipDays))
	}
	if patch.ExemptWeekdays != nil {
		set("exempt_weekdays", arg(*patch.ExemptWeekdays))
	}
	if patch.Active != nil {
		set("active", arg(*patch.Active))
	}
	if sets == 0 {
		return s.ByID(ctx, habitID)
	}
	sb.WriteString(" WHERE id = " + arg(habitID) + " RETURNING " + habitCols)

	h, err := scanHabit(s.q.QueryRow(ctx, sb.String(), args...))
	if perr.IsDuplicateKey(err) {
		return domain.Habit{}, perr.Newf(perr.ErrorCodeHabitExists, "habit name already in use")
	}
	if perr.IsNoRows(err) {
		return domain.Habit{}, perr.Newf(perr.ErrorCodeHabitNotFound, "habit %d not found", habitID)
	}
	if err != nil {
		return domain.Habit{}, perr.FromPostgres(err, "update habit")
	}
	return h, nil
}

// SetActive implements Storage
func (s *pg) SetActive(ctx context.Context, habitID int64, active bool) error {
	tag, err := s.q.Exec(ctx, `UPDATE habits SET active = $2 WHERE id = $1`, habitID, active)
	if err != nil {
		return perr.FromPostgres(err, "set habit active")
	}
	if tag.RowsAffected() == 0 {
		return perr.Newf(perr.ErrorCodeHabitNotFound, "habit %d not found", habitID)
	}
	return nil
}
