// Package service provides the users service implementation
package service

import (
	"context"
	"strings"

	perr "habitreward/internal/platform/errors"

	"golang.org/x/text/language"

	"habitreward/internal/core/clock"
	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/users/domain"
	"habitreward/internal/services/users/repo"
)

// supported interface languages
var supportedLanguages = map[string]bool{"en": true, "ru": true, "kk": true}

// Service implements domain.ReaderPort and domain.WriterPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
}

// New constructs a users service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Storage]) *Service {
	return &Service{DB: db, Binder: binder}
}

// ByID implements domain.ReaderPort
func (s *Service) ByID(ctx context.Context, id int64) (domain.User, error) {
	return s.Binder.Bind(s.DB).ByID(ctx, id)
}

// ByTelegramID implements domain.ReaderPort
func (s *Service) ByTelegramID(ctx context.Context, telegramID int64) (domain.User, error) {
	return s.Binder.Bind(s.DB).ByTelegramID(ctx, telegramID)
}

// Register creates a user for a telegram identity, idempotent on telegram id
func (s *Service) Register(ctx context.Context, telegramID int64, name, lang string) (domain.User, error) {
	st := s.Binder.Bind(s.DB)
	if u, err := st.ByTelegramID(ctx, telegramID); err == nil {
		return u, nil
	}
	u := domain.User{
		TelegramID: telegramID,
		Name:       strings.TrimSpace(name),
		Language:   NormalizeLanguage(lang),
		Timezone:   "UTC",
	}
	out, err := st.Insert(ctx, u)
	if perr.IsDuplicateKey(perr.Root(err)) {
		// concurrent registration, the existing row wins
		return st.ByTelegramID(ctx, telegramID)
	}
	return out, err
}

// UpdateProfile implements domain.WriterPort
func (s *Service) UpdateProfile(ctx context.Context, userID int64, patch domain.ProfilePatch) (domain.User, error) {
	if patch.Name != nil {
		n := strings.TrimSpace(*patch.Name)
		if n == "" {
			return domain.User{}, perr.Validationf("name must not be blank")
		}
		patch.Name = &n
	}
	if patch.Language != nil {
		l := NormalizeLanguage(*patch.Language)
		if !supportedLanguages[l] {
			return domain.User{}, perr.Validationf("unsupported language %q", *patch.Language)
		}
		patch.Language = &l
	}
	if patch.Timezone != nil && !clock.ValidateZone(*patch.Timezone) {
		return domain.User{}, perr.Validationf("unknown timezone %q", *patch.Timezone)
	}
	return s.Binder.Bind(s.DB).Update(ctx, userID, patch)
}

// NormalizeLanguage reduces a BCP-47 style tag to its lowercase base
// falls back to the first two lowercased characters when the tag does not parse
func NormalizeLanguage(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "en"
	}
	if tag, err := language.Parse(s); err == nil {
		if base, conf := tag.Base(); conf != language.No {
			return base.String()
		}
	}
	s = strings.ToLower(s)
	if len(s) > 2 {
		s = s[:2]
	}
	return s
}
