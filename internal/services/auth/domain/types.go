// Package domain defines the types and interfaces for the auth service
package domain

import (
	"context"
	"time"

	usersdomain "habitreward/internal/services/users/domain"
)

// Token types
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AuthCode is a single-use login code. The code is stored in clear because
// it lives for five minutes
type AuthCode struct {
	ID             int64
	UserID         int64
	Code           string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	Used           bool
	FailedAttempts int
	LockedUntil    *time.Time
	DeviceInfo     *string
}

// APIKey is a long-lived bearer credential. Only the SHA-256 of the raw key
// is stored, the raw key is shown exactly once at creation
type APIKey struct {
	ID         int64
	UserID     int64
	KeyHash    string
	Name       string
	CreatedAt  time.Time
	LastUsedAt *time.Time
	ExpiresAt  *time.Time
	Active     bool
}

// TokenPair is the result of a successful code verification
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Claims are the verified contents of a token
type Claims struct {
	UserID     int64
	TelegramID int64
	Type       string
}

// IssueResult reports the outcome of a code issuance. SilentOk means the
// request was swallowed without revealing whether the telegram id exists
type IssueResult struct {
	SilentOk bool
	Code     string
	Expiry   time.Time
}

// CodePort issues and consumes login codes
type CodePort interface {
	IssueCode(ctx context.Context, telegramID int64, deviceInfo *string) (IssueResult, error)
	VerifyCode(ctx context.Context, telegramID int64, code string) (usersdomain.User, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

// KeyPort manages long-lived API keys
type KeyPort interface {
	CreateKey(ctx context.Context, userID int64, name string, expiresAt *time.Time) (APIKey, string, error)
	VerifyKey(ctx context.Context, rawKey string) (usersdomain.User, error)
	ListKeys(ctx context.Context, userID int64) ([]APIKey, error)
	RevokeKey(ctx context.Context, userID, keyID int64) error
	FlushLastUsed(ctx context.Context) (int, error)
}

// TokenPort mints and verifies stateless signed tokens
type TokenPort interface {
	Issue(u usersdomain.User) (TokenPair, error)
	Access(u usersdomain.User) (string, error)
	Verify(token, expectedType string) (Claims, error)
}
