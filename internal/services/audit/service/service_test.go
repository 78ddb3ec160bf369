package service

import (
	"context"
	"errors"
	"testing"
	"time"

	perr "habitreward/internal/platform/errors"
	"habitreward/internal/platform/store"
	"habitreward/internal/platform/testkit"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/audit/domain"
	"habitreward/internal/services/audit/repo"
)

type fakeStorage struct {
	entries   []domain.Entry
	insertErr error
	cutoff    time.Time
}

func (f *fakeStorage) Insert(_ context.Context, rec domain.Record) (domain.Entry, error) {
	if f.insertErr != nil {
		return domain.Entry{}, f.insertErr
	}
	e := domain.Entry{
		ID:        int64(len(f.entries) + 1),
		Timestamp: time.Now().UTC(),
		UserID:    rec.UserID,
		Kind:      rec.Kind,
		HabitID:   rec.HabitID,
		RewardID:  rec.RewardID,
		LogID:     rec.LogID,
		Payload:   rec.Payload,
	}
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeStorage) Timeline(_ context.Context, userID int64, fl domain.TimelineFilter) ([]domain.Entry, error) {
	var out []domain.Entry
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if e.UserID != userID {
			continue
		}
		if fl.Kind != "" && e.Kind != fl.Kind {
			continue
		}
		out = append(out, e)
		if fl.Limit > 0 && len(out) == fl.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStorage) TraceReward(_ context.Context, userID, rewardID int64) ([]domain.Entry, error) {
	var out []domain.Entry
	for _, e := range f.entries {
		if e.UserID == userID && e.RewardID != nil && *e.RewardID == rewardID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStorage) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, nil
}

type fakeCH struct {
	rows [][]any
	fail bool
}

func (f *fakeCH) Insert(_ context.Context, _ string, rows [][]any) error {
	if f.fail {
		return errors.New("clickhouse down")
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeCH) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (f *fakeCH) Ping(context.Context) error                               { return nil }
func (f *fakeCH) Close() error                                             { return nil }

func newSvc(f *fakeStorage, ch store.Clickhouse) *Service {
	return New(&testkit.FakeTx{},
		repokit.BindFunc[repo.Storage](func(repokit.Queryer) repo.Storage { return f }), ch)
}

func TestLogMirrorsToClickhouse(t *testing.T) {
	t.Parallel()

	f := &fakeStorage{}
	ch := &fakeCH{}
	s := newSvc(f, ch)

	s.Log(context.Background(), domain.Record{
		UserID:  1,
		Kind:    domain.KindHabitCompleted,
		Payload: map[string]any{"habit_name": "run"},
	})
	if len(f.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(f.entries))
	}
	if len(ch.rows) != 1 {
		t.Fatalf("mirror rows = %d, want 1", len(ch.rows))
	}
}

func TestLogSwallowsFailures(t *testing.T) {
	t.Parallel()

	// insert failure must not panic or propagate
	s := newSvc(&fakeStorage{insertErr: perr.Newf(perr.ErrorCodeDB, "down")}, &fakeCH{})
	s.Log(context.Background(), domain.Record{UserID: 1, Kind: domain.KindError})

	// mirror failure keeps the postgres row
	f := &fakeStorage{}
	s = newSvc(f, &fakeCH{fail: true})
	s.Log(context.Background(), domain.Record{UserID: 1, Kind: domain.KindCommand})
	if len(f.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(f.entries))
	}

	// nil clickhouse is a valid deployment
	s = newSvc(&fakeStorage{}, nil)
	s.Log(context.Background(), domain.Record{UserID: 1, Kind: domain.KindCommand})
}

func TestCleanupDefaultRetention(t *testing.T) {
	t.Parallel()

	f := &fakeStorage{}
	s := newSvc(f, nil)

	n, err := s.Cleanup(context.Background(), 0)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted = %d, want 3", n)
	}
	want := time.Now().UTC().AddDate(0, 0, -DefaultRetainDays)
	if diff := f.cutoff.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want ~%v", f.cutoff, want)
	}
}
