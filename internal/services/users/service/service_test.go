package service

import (
	"context"
	"testing"

	perr "habitreward/internal/platform/errors"
	"habitreward/internal/platform/testkit"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/users/domain"
	"habitreward/internal/services/users/repo"
)

type fakeStorage struct {
	users   map[int64]domain.User
	updated *domain.ProfilePatch
}

func (f *fakeStorage) ByID(_ context.Context, id int64) (domain.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return domain.User{}, perr.Newf(perr.ErrorCodeUserNotFound, "user %d not found", id)
}

func (f *fakeStorage) ByTelegramID(_ context.Context, tid int64) (domain.User, error) {
	for _, u := range f.users {
		if u.TelegramID == tid {
			return u, nil
		}
	}
	return domain.User{}, perr.Newf(perr.ErrorCodeUserNotFound, "user not found")
}

func (f *fakeStorage) Insert(_ context.Context, u domain.User) (domain.User, error) {
	u.ID = int64(len(f.users) + 1)
	u.Active = true
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStorage) Update(ctx context.Context, userID int64, patch domain.ProfilePatch) (domain.User, error) {
	f.updated = &patch
	u, err := f.ByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Language != nil {
		u.Language = *patch.Language
	}
	if patch.Timezone != nil {
		u.Timezone = *patch.Timezone
	}
	f.users[userID] = u
	return u, nil
}

func newSvc(f *fakeStorage) *Service {
	return New(&testkit.FakeTx{}, repokit.BindFunc[repo.Storage](func(repokit.Queryer) repo.Storage { return f }))
}

func TestNormalizeLanguage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"en-US", "en"},
		{"ru-RU", "ru"},
		{"kk", "kk"},
		{"", "en"},
		{"KKZ", "kk"},
	}
	for _, tc := range cases {
		if got := NormalizeLanguage(tc.in); got != tc.want {
			t.Errorf("NormalizeLanguage(%q) = %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	t.Parallel()

	f := &fakeStorage{users: map[int64]domain.User{
		1: {ID: 1, TelegramID: 100, Name: "Dana", Language: "en", Timezone: "UTC", Active: true},
	}}
	s := newSvc(f)

	blank := "   "
	if _, err := s.UpdateProfile(context.Background(), 1, domain.ProfilePatch{Name: &blank}); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Errorf("blank name: got %v want validation error", err)
	}

	bad := "xx"
	if _, err := s.UpdateProfile(context.Background(), 1, domain.ProfilePatch{Language: &bad}); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Errorf("unsupported language: got %v want validation error", err)
	}

	zone := "Atlantis/Lost"
	if _, err := s.UpdateProfile(context.Background(), 1, domain.ProfilePatch{Timezone: &zone}); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Errorf("bad timezone: got %v want validation error", err)
	}
}

func TestUpdateProfileNormalizesLanguage(t *testing.T) {
	t.Parallel()

	f := &fakeStorage{users: map[int64]domain.User{
		1: {ID: 1, Name: "Dana", Language: "en", Timezone: "UTC", Active: true},
	}}
	s := newSvc(f)

	lang := "RU-ru"
	u, err := s.UpdateProfile(context.Background(), 1, domain.ProfilePatch{Language: &lang})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if u.Language != "ru" {
		t.Errorf("language = %q want ru", u.Language)
	}
}

func TestRegisterIdempotent(t *testing.T) {
	t.Parallel()

	f := &fakeStorage{users: map[int64]domain.User{}}
	s := newSvc(f)

	a, err := s.Register(context.Background(), 555, "Dana", "en-GB")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	b, err := s.Register(context.Background(), 555, "Someone Else", "ru")
	if err != nil {
		t.Fatalf("second Register: %v", err)
	}
	if a.ID != b.ID {
		t.Errorf("re-registration created a new user: %d vs %d", a.ID, b.ID)
	}
	if a.Language != "en" {
		t.Errorf("language = %q want en", a.Language)
	}
	if a.Timezone != "UTC" {
		t.Errorf("timezone = %q want UTC", a.Timezone)
	}
}
