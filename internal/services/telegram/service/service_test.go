package service

import (
	"context"
	"strings"
	"testing"
	"time"

	perr "habitreward/internal/platform/errors"

	"habitreward/internal/core/clock"
	authdomain "habitreward/internal/services/auth/domain"
	completiondomain "habitreward/internal/services/completion/domain"
	habitsdomain "habitreward/internal/services/habits/domain"
	rewardsdomain "habitreward/internal/services/rewards/domain"
	"habitreward/internal/services/telegram/domain"
	usersdomain "habitreward/internal/services/users/domain"
)

type fakeUsers struct{ registered []int64 }

func (f *fakeUsers) ByID(_ context.Context, id int64) (usersdomain.User, error) {
	if id == 1 {
		return usersdomain.User{ID: 1, TelegramID: 100, Name: "Alice", Active: true}, nil
	}
	return usersdomain.User{}, perr.Newf(perr.ErrorCodeUserNotFound, "user %d not found", id)
}

func (f *fakeUsers) ByTelegramID(_ context.Context, tgID int64) (usersdomain.User, error) {
	if tgID == 100 {
		return usersdomain.User{ID: 1, TelegramID: 100, Name: "Alice", Active: true}, nil
	}
	return usersdomain.User{}, perr.Newf(perr.ErrorCodeUserNotFound, "unknown telegram id")
}

func (f *fakeUsers) Register(_ context.Context, tgID int64, name, _ string) (usersdomain.User, error) {
	f.registered = append(f.registered, tgID)
	return usersdomain.User{ID: 9, TelegramID: tgID, Name: name, Active: true}, nil
}

func (f *fakeUsers) UpdateProfile(context.Context, int64, usersdomain.ProfilePatch) (usersdomain.User, error) {
	panic("not used")
}

type fakeHabits struct{}

func (fakeHabits) ByID(_ context.Context, userID, habitID int64) (habitsdomain.Habit, error) {
	if habitID == 10 {
		return habitsdomain.Habit{ID: 10, UserID: userID, Name: "run", Active: true}, nil
	}
	return habitsdomain.Habit{}, perr.Newf(perr.ErrorCodeHabitNotFound, "habit %d not found", habitID)
}

func (fakeHabits) ActiveByName(_ context.Context, userID int64, name string) (habitsdomain.Habit, error) {
	if name == "run" {
		return habitsdomain.Habit{ID: 10, UserID: userID, Name: "run", Active: true}, nil
	}
	return habitsdomain.Habit{}, perr.Newf(perr.ErrorCodeHabitNotFound, "habit %q not found", name)
}

func (fakeHabits) List(context.Context, int64, habitsdomain.ListFilter) ([]habitsdomain.Habit, error) {
	return nil, nil
}

type engineCall struct {
	habitName string
	target    *time.Time
	habitID   int64
}

type fakeEngine struct {
	calls      []engineCall
	completion completiondomain.CompletionResult
	revert     completiondomain.RevertResult
	err        error
}

func (f *fakeEngine) ProcessCompletion(_ context.Context, _ int64, habitName string, target *time.Time, _ string) (completiondomain.CompletionResult, error) {
	f.calls = append(f.calls, engineCall{habitName: habitName, target: target})
	if f.err != nil {
		return completiondomain.CompletionResult{}, f.err
	}
	return f.completion, nil
}

func (f *fakeEngine) CompleteByID(context.Context, int64, int64, *time.Time) (completiondomain.CompletionResult, error) {
	panic("not used")
}

func (f *fakeEngine) BatchComplete(context.Context, int64, []completiondomain.BatchItem) (completiondomain.BatchResult, error) {
	panic("not used")
}

func (f *fakeEngine) RevertLatest(_ context.Context, _ int64, habitID int64) (completiondomain.RevertResult, error) {
	f.calls = append(f.calls, engineCall{habitID: habitID})
	if f.err != nil {
		return completiondomain.RevertResult{}, f.err
	}
	return f.revert, nil
}

func (f *fakeEngine) RevertByLogID(context.Context, int64, int64) (completiondomain.RevertResult, error) {
	panic("not used")
}

type fakeCodes struct {
	issued []int64
	err    error
}

func (f *fakeCodes) IssueCode(_ context.Context, tgID int64, _ *string) (authdomain.IssueResult, error) {
	f.issued = append(f.issued, tgID)
	if f.err != nil {
		return authdomain.IssueResult{}, f.err
	}
	if tgID != 100 {
		return authdomain.IssueResult{SilentOk: true}, nil
	}
	return authdomain.IssueResult{Code: "123456"}, nil
}

func (f *fakeCodes) VerifyCode(context.Context, int64, string) (usersdomain.User, error) {
	panic("not used")
}

func (f *fakeCodes) CleanupExpired(context.Context) (int64, error) { panic("not used") }

func update(tgID int64, text string) domain.Update {
	return domain.Update{
		UpdateID: 1,
		Message: &domain.Message{
			MessageID: 5,
			From:      &domain.Peer{ID: tgID, FirstName: "Alice"},
			Chat:      domain.Chat{ID: tgID},
			Text:      text,
		},
	}
}

func TestHandleUpdateIgnoresNoise(t *testing.T) {
	t.Parallel()

	s := New(&fakeUsers{}, &fakeUsers{}, fakeHabits{}, &fakeEngine{}, &fakeCodes{})
	ctx := context.Background()

	cases := []struct {
		name string
		in   domain.Update
	}{
		{"no message", domain.Update{UpdateID: 1}},
		{"no sender", domain.Update{Message: &domain.Message{Text: "/done run"}}},
		{"bot sender", domain.Update{Message: &domain.Message{From: &domain.Peer{ID: 1, IsBot: true}, Text: "/done run"}}},
		{"plain text", update(100, "hello there")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.HandleUpdate(ctx, tc.in); got != nil {
				t.Errorf("reply = %+v, want nil", got)
			}
		})
	}
}

func TestHandleDone(t *testing.T) {
	t.Parallel()

	progress := rewardsdomain.Progress{PiecesEarned: 3, PiecesRequired: 3}
	eng := &fakeEngine{completion: completiondomain.CompletionResult{
		HabitConfirmed: true,
		HabitName:      "run",
		Streak:         4,
		GotReward:      true,
		Reward:         &rewardsdomain.Reward{Name: "coffee"},
		Progress:       &progress,
	}}
	s := New(&fakeUsers{}, &fakeUsers{}, fakeHabits{}, eng, &fakeCodes{})

	got := s.HandleUpdate(context.Background(), update(100, "/done morning run 2024-03-01"))
	if got == nil || got.ChatID != 100 {
		t.Fatalf("reply = %+v", got)
	}
	if len(eng.calls) != 1 {
		t.Fatalf("calls = %+v", eng.calls)
	}
	call := eng.calls[0]
	if call.habitName != "morning run" {
		t.Errorf("habit = %q, want %q", call.habitName, "morning run")
	}
	if call.target == nil || clock.FormatDate(*call.target) != "2024-03-01" {
		t.Errorf("target = %v", call.target)
	}
	for _, want := range []string{"run logged", "Streak: 4", `"coffee"`, "3/3", "claim it"} {
		if !strings.Contains(got.Text, want) {
			t.Errorf("reply %q misses %q", got.Text, want)
		}
	}
}

func TestHandleDoneWithoutDate(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{completion: completiondomain.CompletionResult{HabitName: "run", Streak: 1}}
	s := New(&fakeUsers{}, &fakeUsers{}, fakeHabits{}, eng, &fakeCodes{})

	got := s.HandleUpdate(context.Background(), update(100, "/done run"))
	if got == nil || strings.Contains(got.Text, "Usage") {
		t.Fatalf("reply = %+v", got)
	}
	if eng.calls[0].target != nil {
		t.Errorf("target = %v, want nil", eng.calls[0].target)
	}
}

func TestHandleDoneErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{"already completed", perr.Newf(perr.ErrorCodeAlreadyCompleted, "dup"), "already logged"},
		{"unknown habit", perr.Newf(perr.ErrorCodeHabitNotFound, "nope"), "couldn't find"},
		{"unknown user", perr.Newf(perr.ErrorCodeUserNotFound, "nope"), "/start"},
		{"db down", perr.Newf(perr.ErrorCodeDB, "boom"), "Something went wrong"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := New(&fakeUsers{}, &fakeUsers{}, fakeHabits{}, &fakeEngine{err: tc.err}, &fakeCodes{})
			got := s.HandleUpdate(context.Background(), update(100, "/done run"))
			if got == nil || !strings.Contains(got.Text, tc.want) {
				t.Errorf("reply = %+v, want substring %q", got, tc.want)
			}
		})
	}
}

func TestHandleUndo(t *testing.T) {
	t.Parallel()

	name := "coffee"
	eng := &fakeEngine{revert: completiondomain.RevertResult{
		Success: true, HabitName: "run", RewardReverted: true, RewardName: &name,
	}}
	s := New(&fakeUsers{}, &fakeUsers{}, fakeHabits{}, eng, &fakeCodes{})

	got := s.HandleUpdate(context.Background(), update(100, "/undo run"))
	if got == nil {
		t.Fatal("no reply")
	}
	if eng.calls[0].habitID != 10 {
		t.Errorf("habit id = %d, want 10", eng.calls[0].habitID)
	}
	if !strings.Contains(got.Text, "Reverted") || !strings.Contains(got.Text, `"coffee"`) {
		t.Errorf("reply = %q", got.Text)
	}

	if got := s.HandleUpdate(context.Background(), update(100, "/undo swim")); !strings.Contains(got.Text, "couldn't find") {
		t.Errorf("unknown habit reply = %q", got.Text)
	}
}

func TestHandleCodeNeverConfirmsAccounts(t *testing.T) {
	t.Parallel()

	codes := &fakeCodes{}
	s := New(&fakeUsers{}, &fakeUsers{}, fakeHabits{}, &fakeEngine{}, codes)
	ctx := context.Background()

	known := s.HandleUpdate(ctx, update(100, "/code"))
	unknown := s.HandleUpdate(ctx, update(999, "/code"))
	if known == nil || unknown == nil || known.Text != unknown.Text {
		t.Errorf("replies differ: %+v vs %+v", known, unknown)
	}
	if len(codes.issued) != 2 {
		t.Errorf("issued = %v", codes.issued)
	}
}

func TestHandleStartRegisters(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{}
	s := New(users, users, fakeHabits{}, &fakeEngine{}, &fakeCodes{})

	got := s.HandleUpdate(context.Background(), update(555, "/start"))
	if got == nil || !strings.Contains(got.Text, "/done") {
		t.Fatalf("reply = %+v", got)
	}
	if len(users.registered) != 1 || users.registered[0] != 555 {
		t.Errorf("registered = %v", users.registered)
	}
}

func TestCommandSuffixAndUnknown(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{completion: completiondomain.CompletionResult{HabitName: "run", Streak: 1}}
	s := New(&fakeUsers{}, &fakeUsers{}, fakeHabits{}, eng, &fakeCodes{})
	ctx := context.Background()

	if got := s.HandleUpdate(ctx, update(100, "/done@habitbot run")); got == nil || strings.Contains(got.Text, "Unknown") {
		t.Errorf("mention suffix reply = %+v", got)
	}
	if got := s.HandleUpdate(ctx, update(100, "/frobnicate")); got == nil || !strings.Contains(got.Text, "Unknown command") {
		t.Errorf("unknown command reply = %+v", got)
	}
}
