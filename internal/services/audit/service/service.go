// Package service provides the audit service implementation
package service

import (
	"context"
	"encoding/json"
	"time"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/platform/logger"
	"habitreward/internal/platform/store"

	"habitreward/internal/services/audit/domain"
	"habitreward/internal/services/audit/repo"
)

// DefaultRetainDays is the retention window applied when none is configured
const DefaultRetainDays = 90

// mirrorTable is the ClickHouse analytics table
const mirrorTable = "audit_events"

// Service implements the audit ports. Postgres is the source of truth,
// the ClickHouse mirror is best-effort and never fails the caller
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
	CH     store.Clickhouse
}

// New constructs an audit service. ch may be nil when analytics is disabled
func New(db repokit.TxRunner, binder repokit.Binder[repo.Storage], ch store.Clickhouse) *Service {
	return &Service{DB: db, Binder: binder, CH: ch}
}

// Log implements domain.WriterPort. Failures are logged and swallowed so an
// audit outage never breaks the operation being audited
func (s *Service) Log(ctx context.Context, rec domain.Record) {
	entry, err := s.Binder.Bind(s.DB).Insert(ctx, rec)
	if err != nil {
		logger.C(ctx).Error().Err(err).
			Str("kind", rec.Kind).
			Int64("user_id", rec.UserID).
			Msg("audit append failed")
		return
	}
	s.mirror(ctx, entry)
}

func (s *Service) mirror(ctx context.Context, e domain.Entry) {
	if s.CH == nil {
		return
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		payload = []byte("{}")
	}
	var errMsg string
	if e.ErrorMessage != nil {
		errMsg = *e.ErrorMessage
	}
	row := []any{e.ID, e.Timestamp, e.UserID, e.Kind,
		deref(e.HabitID), deref(e.RewardID), deref(e.LogID), string(payload), errMsg}
	if err := s.CH.Insert(ctx, mirrorTable, [][]any{row}); err != nil {
		logger.C(ctx).Warn().Err(err).Int64("entry_id", e.ID).Msg("audit mirror failed")
	}
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// Timeline implements domain.ReaderPort
func (s *Service) Timeline(ctx context.Context, userID int64, f domain.TimelineFilter) ([]domain.Entry, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return s.Binder.Bind(s.DB).Timeline(ctx, userID, f)
}

// TraceReward implements domain.ReaderPort
func (s *Service) TraceReward(ctx context.Context, userID, rewardID int64) ([]domain.Entry, error) {
	return s.Binder.Bind(s.DB).TraceReward(ctx, userID, rewardID)
}

// Cleanup implements domain.SweeperPort, deleting entries older than the
// retention window
func (s *Service) Cleanup(ctx context.Context, retainDays int) (int64, error) {
	if retainDays <= 0 {
		retainDays = DefaultRetainDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retainDays)
	return s.Binder.Bind(s.DB).DeleteBefore(ctx, cutoff)
}
