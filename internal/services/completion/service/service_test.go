package service

import (
	"context"
	"math/rand"
	"sort"
	"testing"
	"time"

	"habitreward/internal/core/clock"
	"habitreward/internal/core/streak"
	perr "habitreward/internal/platform/errors"
	"habitreward/internal/platform/testkit"

	"habitreward/internal/modkit/repokit"
	auditdomain "habitreward/internal/services/audit/domain"
	"habitreward/internal/services/completion/domain"
	"habitreward/internal/services/completion/repo"
	habitsdomain "habitreward/internal/services/habits/domain"
	rewardsdomain "habitreward/internal/services/rewards/domain"
	rewardsrepo "habitreward/internal/services/rewards/repo"
	usersdomain "habitreward/internal/services/users/domain"
)

type fakeLogs struct {
	logs   map[int64]domain.Log
	nextID int64
}

func newFakeLogs() *fakeLogs { return &fakeLogs{logs: map[int64]domain.Log{}} }

func (f *fakeLogs) sorted() []domain.Log {
	out := make([]domain.Log, 0, len(f.logs))
	for _, l := range f.logs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastCompletedDate.Before(out[j].LastCompletedDate) })
	return out
}

func (f *fakeLogs) ByID(_ context.Context, id int64) (domain.Log, error) {
	if l, ok := f.logs[id]; ok {
		return l, nil
	}
	return domain.Log{}, perr.Newf(perr.ErrorCodeLogNotFound, "log %d not found", id)
}

func (f *fakeLogs) ByDate(_ context.Context, userID, habitID int64, date time.Time) (*domain.Log, error) {
	for _, l := range f.logs {
		if l.UserID == userID && l.HabitID == habitID && l.LastCompletedDate.Equal(date) {
			cp := l
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeLogs) Latest(_ context.Context, userID, habitID int64) (*domain.Log, error) {
	var best *domain.Log
	for _, l := range f.logs {
		if l.UserID != userID || l.HabitID != habitID {
			continue
		}
		if best == nil || l.LastCompletedDate.After(best.LastCompletedDate) {
			cp := l
			best = &cp
		}
	}
	return best, nil
}

func (f *fakeLogs) Between(_ context.Context, userID, habitID int64, from, to time.Time) ([]domain.Log, error) {
	var out []domain.Log
	for _, l := range f.sorted() {
		if l.UserID != userID || l.HabitID != habitID {
			continue
		}
		if l.LastCompletedDate.Before(from) || l.LastCompletedDate.After(to) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeLogs) List(_ context.Context, userID int64, fl domain.ListFilter) ([]domain.Log, error) {
	var out []domain.Log
	for _, l := range f.sorted() {
		if l.UserID != userID {
			continue
		}
		if fl.HabitID != 0 && l.HabitID != fl.HabitID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeLogs) RewardCountsOnDate(_ context.Context, userID int64, date time.Time) (map[int64]int, error) {
	out := map[int64]int{}
	for _, l := range f.logs {
		if l.UserID == userID && l.GotReward && l.RewardID != nil && l.LastCompletedDate.Equal(date) {
			out[*l.RewardID]++
		}
	}
	return out, nil
}

func (f *fakeLogs) Insert(ctx context.Context, l domain.Log) (domain.Log, error) {
	if dup, _ := f.ByDate(ctx, l.UserID, l.HabitID, l.LastCompletedDate); dup != nil {
		return domain.Log{}, perr.Newf(perr.ErrorCodeAlreadyCompleted, "habit already completed for this date")
	}
	f.nextID++
	l.ID = f.nextID
	l.Timestamp = time.Now().UTC()
	f.logs[l.ID] = l
	return l, nil
}

func (f *fakeLogs) UpdateStreak(_ context.Context, logID int64, streak int) error {
	l, ok := f.logs[logID]
	if !ok {
		return perr.Newf(perr.ErrorCodeLogNotFound, "log %d not found", logID)
	}
	l.StreakCount = streak
	f.logs[logID] = l
	return nil
}

func (f *fakeLogs) Delete(_ context.Context, logID int64) error {
	if _, ok := f.logs[logID]; !ok {
		return perr.Newf(perr.ErrorCodeLogNotFound, "log %d not found", logID)
	}
	delete(f.logs, logID)
	return nil
}

type progressKey struct{ userID, rewardID int64 }

type fakeRewards struct {
	rewards  map[int64]rewardsdomain.Reward
	progress map[progressKey]*rewardsdomain.Progress
}

func newFakeRewards(rs ...rewardsdomain.Reward) *fakeRewards {
	f := &fakeRewards{rewards: map[int64]rewardsdomain.Reward{}, progress: map[progressKey]*rewardsdomain.Progress{}}
	for _, r := range rs {
		f.rewards[r.ID] = r
	}
	return f
}

func (f *fakeRewards) ByID(_ context.Context, id int64) (rewardsdomain.Reward, error) {
	if r, ok := f.rewards[id]; ok {
		return r, nil
	}
	return rewardsdomain.Reward{}, perr.Newf(perr.ErrorCodeRewardNotFound, "reward %d not found", id)
}

func (f *fakeRewards) ActiveForUser(_ context.Context, userID int64) ([]rewardsdomain.Reward, error) {
	var out []rewardsdomain.Reward
	for _, r := range f.rewards {
		if r.UserID == userID && r.Active {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRewards) List(context.Context, int64, rewardsdomain.ListFilter) ([]rewardsdomain.WithProgress, error) {
	return nil, nil
}

func (f *fakeRewards) Insert(_ context.Context, r rewardsdomain.Reward) (rewardsdomain.Reward, error) {
	f.rewards[r.ID] = r
	return r, nil
}

func (f *fakeRewards) ProgressFor(_ context.Context, userID, rewardID int64) (*rewardsdomain.Progress, error) {
	if p, ok := f.progress[progressKey{userID, rewardID}]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRewards) IncrementPieces(ctx context.Context, userID, rewardID int64) (rewardsdomain.Progress, error) {
	r, err := f.ByID(ctx, rewardID)
	if err != nil {
		return rewardsdomain.Progress{}, err
	}
	k := progressKey{userID, rewardID}
	p, ok := f.progress[k]
	if !ok {
		p = &rewardsdomain.Progress{UserID: userID, RewardID: rewardID}
		f.progress[k] = p
	}
	p.PiecesEarned++
	p.PiecesRequired = r.PiecesRequired
	return *p, nil
}

func (f *fakeRewards) DecrementPieces(_ context.Context, userID, rewardID int64) (*rewardsdomain.Progress, error) {
	p, ok := f.progress[progressKey{userID, rewardID}]
	if !ok {
		return nil, nil
	}
	if p.PiecesEarned > 0 {
		p.PiecesEarned--
	}
	p.Claimed = false
	cp := *p
	return &cp, nil
}

func (f *fakeRewards) MarkClaimed(_ context.Context, userID, rewardID int64) (rewardsdomain.Progress, error) {
	return rewardsdomain.Progress{}, nil
}

type fakeUsers struct{ users map[int64]usersdomain.User }

func (f *fakeUsers) ByID(_ context.Context, id int64) (usersdomain.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return usersdomain.User{}, perr.Newf(perr.ErrorCodeUserNotFound, "user %d not found", id)
}

func (f *fakeUsers) ByTelegramID(_ context.Context, tgID int64) (usersdomain.User, error) {
	if u, ok := f.users[tgID]; ok {
		return u, nil
	}
	return usersdomain.User{}, perr.Newf(perr.ErrorCodeUserNotFound, "unknown telegram id")
}

type fakeHabits struct{ habits map[int64]habitsdomain.Habit }

func (f *fakeHabits) ByID(_ context.Context, userID, habitID int64) (habitsdomain.Habit, error) {
	h, ok := f.habits[habitID]
	if !ok {
		return habitsdomain.Habit{}, perr.Newf(perr.ErrorCodeHabitNotFound, "habit %d not found", habitID)
	}
	if h.UserID != userID {
		return habitsdomain.Habit{}, perr.NotOwnerf("habit %d belongs to another user", habitID)
	}
	return h, nil
}

func (f *fakeHabits) ActiveByName(_ context.Context, userID int64, name string) (habitsdomain.Habit, error) {
	for _, h := range f.habits {
		if h.UserID == userID && h.Name == name && h.Active {
			return h, nil
		}
	}
	return habitsdomain.Habit{}, perr.Newf(perr.ErrorCodeHabitNotFound, "habit %q not found", name)
}

func (f *fakeHabits) List(context.Context, int64, habitsdomain.ListFilter) ([]habitsdomain.Habit, error) {
	return nil, nil
}

// fakeStreaks replays the gap math over the fake log store
type fakeStreaks struct{ logs *fakeLogs }

func (f *fakeStreaks) StreakForHabit(_ context.Context, h habitsdomain.Habit, target time.Time) (int, error) {
	var prior *streak.Prior
	for _, l := range f.logs.sorted() {
		if l.UserID == h.UserID && l.HabitID == h.ID && l.LastCompletedDate.Before(target) {
			prior = &streak.Prior{Date: l.LastCompletedDate, Count: l.StreakCount}
		}
	}
	return streak.Next(prior, streak.Leniency{
		AllowedSkipDays: h.AllowedSkipDays,
		ExemptWeekdays:  h.ExemptWeekdays,
	}, target), nil
}

type auditRecorder struct{ records []auditdomain.Record }

func (a *auditRecorder) Log(_ context.Context, rec auditdomain.Record) {
	a.records = append(a.records, rec)
}

type fixture struct {
	svc     *Service
	logs    *fakeLogs
	rewards *fakeRewards
	audit   *auditRecorder
}

func newFixture(t *testing.T, habits map[int64]habitsdomain.Habit, rewards ...rewardsdomain.Reward) *fixture {
	t.Helper()
	logs := newFakeLogs()
	rw := newFakeRewards(rewards...)
	audit := &auditRecorder{}
	users := &fakeUsers{users: map[int64]usersdomain.User{
		100: {ID: 1, TelegramID: 100, Name: "ann", Timezone: "UTC", Active: true},
		200: {ID: 2, TelegramID: 200, Name: "off", Timezone: "UTC", Active: false},
	}}
	svc := New(&testkit.FakeTx{},
		repokit.BindFunc[repo.Storage](func(repokit.Queryer) repo.Storage { return logs }),
		repokit.BindFunc[rewardsrepo.Storage](func(repokit.Queryer) rewardsrepo.Storage { return rw }),
		users,
		&fakeHabits{habits: habits},
		&fakeStreaks{logs: logs},
		audit,
		rand.New(rand.NewSource(1)),
	)
	return &fixture{svc: svc, logs: logs, rewards: rw, audit: audit}
}

func defaultHabit() map[int64]habitsdomain.Habit {
	return map[int64]habitsdomain.Habit{
		10: {ID: 10, UserID: 1, Name: "run", Weight: 10, Active: true,
			CreatedAt: time.Now().UTC().AddDate(0, -1, 0)},
	}
}

func today() time.Time { return clock.UserToday("UTC") }

func TestCompleteValidationOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture(t, defaultHabit())

	if _, err := fx.svc.ProcessCompletion(ctx, 999, "run", nil, ""); !perr.IsCode(err, perr.ErrorCodeUserNotFound) {
		t.Errorf("unknown user: got %v", err)
	}
	if _, err := fx.svc.ProcessCompletion(ctx, 200, "run", nil, ""); !perr.IsCode(err, perr.ErrorCodeUserInactive) {
		t.Errorf("inactive user: got %v", err)
	}
	if _, err := fx.svc.ProcessCompletion(ctx, 100, "swim", nil, ""); !perr.IsCode(err, perr.ErrorCodeHabitNotFound) {
		t.Errorf("unknown habit: got %v", err)
	}

	future := clock.AddDays(today(), 1)
	if _, err := fx.svc.ProcessCompletion(ctx, 100, "run", &future, ""); !perr.IsCode(err, perr.ErrorCodeFutureDate) {
		t.Errorf("future date: got %v", err)
	}
	old := clock.AddDays(today(), -8)
	if _, err := fx.svc.ProcessCompletion(ctx, 100, "run", &old, ""); !perr.IsCode(err, perr.ErrorCodeTooOld) {
		t.Errorf("too old: got %v", err)
	}

	habits := defaultHabit()
	h := habits[10]
	h.CreatedAt = time.Now().UTC()
	habits[10] = h
	fresh := newFixture(t, habits)
	yday := clock.AddDays(today(), -1)
	if _, err := fresh.svc.ProcessCompletion(ctx, 100, "run", &yday, ""); !perr.IsCode(err, perr.ErrorCodeBeforeHabitCreation) {
		t.Errorf("before creation: got %v", err)
	}

	if _, err := fx.svc.ProcessCompletion(ctx, 100, "run", nil, ""); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if _, err := fx.svc.ProcessCompletion(ctx, 100, "run", nil, ""); !perr.IsCode(err, perr.ErrorCodeAlreadyCompleted) {
		t.Errorf("duplicate: got %v", err)
	}
}

// TestCompleteAcceptsWindowBoundaries pins the acceptance side of both date
// guards: exactly seven days back and exactly the creation date go through
func TestCompleteAcceptsWindowBoundaries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	fx := newFixture(t, defaultHabit())
	oldest := clock.AddDays(today(), -7)
	if res, err := fx.svc.ProcessCompletion(ctx, 100, "run", &oldest, ""); err != nil {
		t.Errorf("backdate to the window edge: %v", err)
	} else if !res.HabitConfirmed {
		t.Errorf("window-edge result = %+v", res)
	}

	habits := defaultHabit()
	h := habits[10]
	h.CreatedAt = time.Now().UTC().AddDate(0, 0, -3)
	habits[10] = h
	fresh := newFixture(t, habits)
	created := h.CreatedDate()
	if res, err := fresh.svc.ProcessCompletion(ctx, 100, "run", &created, ""); err != nil {
		t.Errorf("completion on the creation date: %v", err)
	} else if !res.HabitConfirmed {
		t.Errorf("creation-date result = %+v", res)
	}
}

func TestCompleteAwardsRewardAndProgress(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture(t, defaultHabit(),
		rewardsdomain.Reward{ID: 5, UserID: 1, Name: "coffee", Type: rewardsdomain.TypeRegular,
			Weight: 1, PiecesRequired: 3, Active: true})

	res, err := fx.svc.ProcessCompletion(ctx, 100, "run", nil, "")
	if err != nil {
		t.Fatalf("ProcessCompletion: %v", err)
	}
	if !res.HabitConfirmed || res.HabitName != "run" {
		t.Errorf("result = %+v", res)
	}
	if res.Streak != 1 {
		t.Errorf("streak = %d, want 1", res.Streak)
	}
	if !res.GotReward || res.Reward == nil || res.Reward.ID != 5 {
		t.Fatalf("single-reward pool must always win: %+v", res)
	}
	if res.Progress == nil || res.Progress.PiecesEarned != 1 || res.Progress.PiecesRequired != 3 {
		t.Errorf("progress = %+v", res.Progress)
	}
	if want := float64(10) * 1.1; res.TotalWeight != want {
		t.Errorf("total weight = %v, want %v", res.TotalWeight, want)
	}

	logs, _ := fx.logs.List(ctx, 1, domain.ListFilter{})
	if len(logs) != 1 || !logs[0].GotReward || logs[0].RewardID == nil || *logs[0].RewardID != 5 {
		t.Errorf("stored log = %+v", logs)
	}
	if len(fx.audit.records) != 1 || fx.audit.records[0].Kind != auditdomain.KindHabitCompleted {
		t.Errorf("audit = %+v", fx.audit.records)
	}
}

func TestCompleteWithExhaustedQuota(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	one := 1
	fx := newFixture(t, defaultHabit(),
		rewardsdomain.Reward{ID: 5, UserID: 1, Name: "coffee", Type: rewardsdomain.TypeRegular,
			Weight: 1, PiecesRequired: 1, MaxDailyClaims: &one, Active: true})

	// another habit already credited the reward today
	rid := int64(5)
	_, err := fx.logs.Insert(ctx, domain.Log{
		UserID: 1, HabitID: 99, RewardID: &rid, GotReward: true,
		StreakCount: 1, LastCompletedDate: today(),
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := fx.svc.ProcessCompletion(ctx, 100, "run", nil, "")
	if err != nil {
		t.Fatalf("ProcessCompletion: %v", err)
	}
	if res.GotReward || res.Reward != nil || res.Progress != nil {
		t.Errorf("exhausted pool must yield no reward: %+v", res)
	}
	p, _ := fx.rewards.ProgressFor(ctx, 1, 5)
	if p != nil {
		t.Errorf("progress must not move: %+v", p)
	}
}

func TestBackdateRecomputesSuffix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture(t, defaultHabit())

	// today was completed with streak 1 because yesterday was missing
	if _, err := fx.svc.ProcessCompletion(ctx, 100, "run", nil, ""); err != nil {
		t.Fatal(err)
	}
	yday := clock.AddDays(today(), -1)
	res, err := fx.svc.ProcessCompletion(ctx, 100, "run", &yday, "")
	if err != nil {
		t.Fatalf("backdate: %v", err)
	}
	if res.Streak != 1 {
		t.Errorf("backdated streak = %d, want 1", res.Streak)
	}

	logs, _ := fx.logs.List(ctx, 1, domain.ListFilter{HabitID: 10})
	byDate := map[string]int{}
	for _, l := range logs {
		byDate[clock.FormatDate(l.LastCompletedDate)] = l.StreakCount
	}
	if byDate[clock.FormatDate(yday)] != 1 {
		t.Errorf("yesterday streak = %d, want 1", byDate[clock.FormatDate(yday)])
	}
	if byDate[clock.FormatDate(today())] != 2 {
		t.Errorf("today streak after recompute = %d, want 2", byDate[clock.FormatDate(today())])
	}
}

func TestRevertByLogID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture(t, defaultHabit(),
		rewardsdomain.Reward{ID: 5, UserID: 1, Name: "coffee", Type: rewardsdomain.TypeRegular,
			Weight: 1, PiecesRequired: 5, Active: true})

	// three completions credit three pieces
	for d := 2; d >= 0; d-- {
		date := clock.AddDays(today(), -d)
		res, err := fx.svc.ProcessCompletion(ctx, 100, "run", &date, "")
		if err != nil {
			t.Fatalf("complete -%dd: %v", d, err)
		}
		if !res.GotReward {
			t.Fatalf("single-reward pool must win on -%dd", d)
		}
	}
	logs, _ := fx.logs.List(ctx, 1, domain.ListFilter{})
	lastLog := logs[len(logs)-1].ID

	res, err := fx.svc.RevertByLogID(ctx, 1, lastLog)
	if err != nil {
		t.Fatalf("RevertByLogID: %v", err)
	}
	if !res.Success || !res.RewardReverted || res.RewardName == nil || *res.RewardName != "coffee" {
		t.Errorf("revert result = %+v", res)
	}
	if res.Progress == nil || res.Progress.PiecesEarned != 2 || res.Progress.Claimed {
		t.Errorf("progress after revert = %+v", res.Progress)
	}
	if _, err := fx.logs.ByID(ctx, lastLog); !perr.IsCode(err, perr.ErrorCodeLogNotFound) {
		t.Error("log must be deleted")
	}

	var reverted *auditdomain.Record
	for i := range fx.audit.records {
		if fx.audit.records[i].Kind == auditdomain.KindHabitReverted {
			reverted = &fx.audit.records[i]
		}
	}
	if reverted == nil {
		t.Fatal("missing revert audit entry")
	}
}

func TestRevertLatestNothingToRevert(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, defaultHabit())
	_, err := fx.svc.RevertLatest(context.Background(), 100, 10)
	if !perr.IsCode(err, perr.ErrorCodeNothingToRevert) {
		t.Errorf("got %v want NOTHING_TO_REVERT", err)
	}
}

func TestBatchCompleteMixedResults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture(t, defaultHabit())

	res, err := fx.svc.BatchComplete(ctx, 1, []domain.BatchItem{
		{HabitID: 10},
		{HabitID: 77},
	})
	if err != nil {
		t.Fatalf("BatchComplete: %v", err)
	}
	if len(res.Results) != 1 || len(res.Errors) != 1 {
		t.Fatalf("results = %d, errors = %d", len(res.Results), len(res.Errors))
	}
	if res.Errors[0].HabitID != 77 || res.Errors[0].Code != string(perr.ErrorCodeHabitNotFound) {
		t.Errorf("batch error = %+v", res.Errors[0])
	}
}
