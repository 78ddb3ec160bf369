package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	perr "habitreward/internal/platform/errors"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/auth/domain"
	"habitreward/internal/services/auth/repo"
	usersdomain "habitreward/internal/services/users/domain"
)

// keyPrefix marks raw API keys so leaked strings are recognizable
const keyPrefix = "hrk_"

// Keys implements domain.KeyPort. last_used_at writes are buffered in memory
// and flushed by the janitor so hot keys do not hammer the row
type Keys struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.KeyStorage]
	Users  usersdomain.ReaderPort

	mu       sync.Mutex
	lastUsed map[int64]time.Time

	nowFn func() time.Time
}

// NewKeys constructs the API-key service
func NewKeys(db repokit.TxRunner, binder repokit.Binder[repo.KeyStorage], users usersdomain.ReaderPort) *Keys {
	return &Keys{
		DB: db, Binder: binder, Users: users,
		lastUsed: map[int64]time.Time{},
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateKey implements domain.KeyPort. The raw key is returned exactly once
func (s *Keys) CreateKey(ctx context.Context, userID int64, name string, expiresAt *time.Time) (domain.APIKey, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.APIKey{}, "", perr.Validationf("name must not be blank")
	}
	if expiresAt != nil && expiresAt.Before(s.nowFn()) {
		return domain.APIKey{}, "", perr.Validationf("expires_at must be in the future")
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return domain.APIKey{}, "", perr.Newf(perr.ErrorCodeUnknown, "generate key: %v", err)
	}
	raw := keyPrefix + base64.RawURLEncoding.EncodeToString(buf)

	k, err := s.Binder.Bind(s.DB).Insert(ctx, domain.APIKey{
		UserID:    userID,
		KeyHash:   hashKey(raw),
		Name:      name,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return domain.APIKey{}, "", err
	}
	return k, raw, nil
}

func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// VerifyKey implements domain.KeyPort
func (s *Keys) VerifyKey(ctx context.Context, rawKey string) (usersdomain.User, error) {
	invalid := perr.Newf(perr.ErrorCodeInvalidAPIKey, "invalid api key")

	if !strings.HasPrefix(rawKey, keyPrefix) {
		return usersdomain.User{}, invalid
	}
	k, err := s.Binder.Bind(s.DB).ByHash(ctx, hashKey(rawKey))
	if err != nil {
		return usersdomain.User{}, err
	}
	now := s.nowFn()
	if k.ExpiresAt != nil && !k.ExpiresAt.After(now) {
		return usersdomain.User{}, invalid
	}
	u, err := s.Users.ByID(ctx, k.UserID)
	if err != nil {
		return usersdomain.User{}, invalid
	}
	if !u.Active {
		return usersdomain.User{}, perr.Newf(perr.ErrorCodeUserInactive, "user is deactivated")
	}

	s.mu.Lock()
	s.lastUsed[k.ID] = now
	s.mu.Unlock()
	return u, nil
}

// ListKeys implements domain.KeyPort
func (s *Keys) ListKeys(ctx context.Context, userID int64) ([]domain.APIKey, error) {
	return s.Binder.Bind(s.DB).List(ctx, userID)
}

// RevokeKey implements domain.KeyPort
func (s *Keys) RevokeKey(ctx context.Context, userID, keyID int64) error {
	return s.Binder.Bind(s.DB).Revoke(ctx, userID, keyID)
}

// FlushLastUsed implements domain.KeyPort, draining the buffer to storage.
// Called by the janitor sweeper
func (s *Keys) FlushLastUsed(ctx context.Context) (int, error) {
	s.mu.Lock()
	pending := s.lastUsed
	s.lastUsed = map[int64]time.Time{}
	s.mu.Unlock()

	st := s.Binder.Bind(s.DB)
	flushed := 0
	for id, at := range pending {
		if err := st.TouchLastUsed(ctx, id, at); err != nil {
			// put the failed write back for the next sweep
			s.mu.Lock()
			if _, ok := s.lastUsed[id]; !ok {
				s.lastUsed[id] = at
			}
			s.mu.Unlock()
			return flushed, err
		}
		flushed++
	}
	return flushed, nil
}
