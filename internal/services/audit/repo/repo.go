// Package repo provides the audit repository implementation
package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	perr "habitreward/internal/platform/errors"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/audit/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the audit repository
type Storage interface {
	Insert(ctx context.Context, rec domain.Record) (domain.Entry, error)
	Timeline(ctx context.Context, userID int64, f domain.TimelineFilter) ([]domain.Entry, error)
	TraceReward(ctx context.Context, userID, rewardID int64) ([]domain.Entry, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

const auditCols = `id, timestamp, user_id, kind, habit_id, reward_id, log_id, payload, error_message`

// Insert implements Storage
func (s *pg) Insert(ctx context.Context, rec domain.Record) (domain.Entry, error) {
	var e domain.Entry
	err := s.q.QueryRow(ctx, `
		INSERT INTO bot_audit_logs (user_id, kind, habit_id, reward_id, log_id, payload, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+auditCols,
		rec.UserID, rec.Kind, rec.HabitID, rec.RewardID, rec.LogID, rec.Payload, rec.ErrorMessage).
		Scan(&e.ID, &e.Timestamp, &e.UserID, &e.Kind, &e.HabitID, &e.RewardID, &e.LogID, &e.Payload, &e.ErrorMessage)
	if err != nil {
		return domain.Entry{}, perr.FromPostgres(err, "insert audit entry")
	}
	return e, nil
}

// Timeline implements Storage, newest first
func (s *pg) Timeline(ctx context.Context, userID int64, f domain.TimelineFilter) ([]domain.Entry, error) {
	var sb strings.Builder
	var args []any
	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }

	sb.WriteString(`SELECT ` + auditCols + ` FROM bot_audit_logs WHERE user_id = ` + arg(userID))
	if f.Kind != "" {
		sb.WriteString(" AND kind = " + arg(f.Kind))
	}
	sb.WriteString(" ORDER BY timestamp DESC, id DESC")
	if f.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(f.Limit))
	}
	if f.Offset > 0 {
		sb.WriteString(" OFFSET " + arg(f.Offset))
	}
	return s.scanAll(ctx, sb.String(), args...)
}

// TraceReward implements Storage, the full history touching one reward
func (s *pg) TraceReward(ctx context.Context, userID, rewardID int64) ([]domain.Entry, error) {
	return s.scanAll(ctx, `
		SELECT `+auditCols+` FROM bot_audit_logs
		WHERE user_id = $1 AND reward_id = $2
		ORDER BY timestamp, id`, userID, rewardID)
}

// DeleteBefore implements Storage
func (s *pg) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM bot_audit_logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, perr.FromPostgres(err, "audit cleanup")
	}
	return tag.RowsAffected(), nil
}

func (s *pg) scanAll(ctx context.Context, sql string, args ...any) ([]domain.Entry, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, perr.FromPostgres(err, "query audit entries")
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.UserID, &e.Kind, &e.HabitID,
			&e.RewardID, &e.LogID, &e.Payload, &e.ErrorMessage); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
