package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	perr "habitreward/internal/platform/errors"
	"habitreward/internal/platform/logger"

	"habitreward/internal/modkit/repokit"
	"habitreward/internal/services/auth/domain"
	"habitreward/internal/services/auth/repo"
	usersdomain "habitreward/internal/services/users/domain"
)

const (
	codeLifetime   = 5 * time.Minute
	codesPerHour   = 3
	failedAttempts = 5
	lockDuration   = 15 * time.Minute
)

// Sender delivers a message to a chat. Delivery failure never rolls back
// code creation, the user can simply request another code
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Codes implements domain.CodePort
type Codes struct {
	DB        repokit.TxRunner
	Binder    repokit.Binder[repo.CodeStorage]
	Users     usersdomain.ReaderPort
	Transport Sender

	nowFn  func() time.Time
	codeFn func() (string, error)
}

// NewCodes constructs the auth-code service. transport may be nil when the
// caller delivers codes itself
func NewCodes(db repokit.TxRunner, binder repokit.Binder[repo.CodeStorage], users usersdomain.ReaderPort, transport Sender) *Codes {
	return &Codes{
		DB: db, Binder: binder, Users: users, Transport: transport,
		nowFn:  func() time.Time { return time.Now().UTC() },
		codeFn: randomCode,
	}
}

// randomCode draws a uniform zero-padded 6-digit string
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// IssueCode implements domain.CodePort. An unknown or inactive telegram id
// yields SilentOk so the surface cannot be used to enumerate accounts
func (s *Codes) IssueCode(ctx context.Context, telegramID int64, deviceInfo *string) (domain.IssueResult, error) {
	u, err := s.Users.ByTelegramID(ctx, telegramID)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeUserNotFound) {
			return domain.IssueResult{SilentOk: true}, nil
		}
		return domain.IssueResult{}, err
	}
	if !u.Active {
		return domain.IssueResult{SilentOk: true}, nil
	}

	now := s.nowFn()
	issued, err := s.Binder.Bind(s.DB).CountIssuedSince(ctx, u.ID, now.Add(-time.Hour))
	if err != nil {
		return domain.IssueResult{}, err
	}
	if issued >= codesPerHour {
		return domain.IssueResult{}, perr.RateLimitedf("too many login codes requested, try again later")
	}

	code, err := s.codeFn()
	if err != nil {
		return domain.IssueResult{}, perr.Newf(perr.ErrorCodeUnknown, "generate code: %v", err)
	}

	// invalidation and insert share a transaction so a concurrent verify
	// never sees a window without a valid code
	var stored domain.AuthCode
	err = repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		st := s.Binder.Bind(q)
		if err := st.InvalidateAll(ctx, u.ID); err != nil {
			return err
		}
		var err error
		stored, err = st.Insert(ctx, domain.AuthCode{
			UserID:     u.ID,
			Code:       code,
			ExpiresAt:  now.Add(codeLifetime),
			DeviceInfo: deviceInfo,
		})
		return err
	})
	if err != nil {
		return domain.IssueResult{}, err
	}

	if s.Transport != nil {
		msg := fmt.Sprintf("Your login code: %s (valid for %d minutes)", code, int(codeLifetime.Minutes()))
		if err := s.Transport.SendMessage(ctx, u.TelegramID, msg); err != nil {
			logger.C(ctx).Warn().Err(err).Int64("telegram_id", u.TelegramID).Msg("auth code delivery failed")
		}
	}
	return domain.IssueResult{Code: stored.Code, Expiry: stored.ExpiresAt}, nil
}

// VerifyCode implements domain.CodePort. The consume update is conditional,
// concurrent verifiers of the same code see at most one success
func (s *Codes) VerifyCode(ctx context.Context, telegramID int64, code string) (usersdomain.User, error) {
	invalid := perr.Newf(perr.ErrorCodeInvalidCode, "invalid or expired code")

	u, err := s.Users.ByTelegramID(ctx, telegramID)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeUserNotFound) {
			return usersdomain.User{}, invalid
		}
		return usersdomain.User{}, err
	}
	if !u.Active {
		return usersdomain.User{}, invalid
	}

	now := s.nowFn()
	st := s.Binder.Bind(s.DB)
	ok, err := st.Consume(ctx, u.ID, code, now)
	if err != nil {
		return usersdomain.User{}, err
	}
	if ok {
		return u, nil
	}

	// count the miss against the live code, locking it at the threshold
	if latest, err := st.LatestActive(ctx, u.ID, now); err == nil && latest != nil {
		if err := st.RegisterFailure(ctx, latest.ID, failedAttempts, lockDuration); err != nil {
			logger.C(ctx).Warn().Err(err).Int64("user_id", u.ID).Msg("recording failed code attempt")
		}
	}
	return usersdomain.User{}, invalid
}

// CleanupExpired implements domain.CodePort
func (s *Codes) CleanupExpired(ctx context.Context) (int64, error) {
	return s.Binder.Bind(s.DB).DeleteExpired(ctx, s.nowFn())
}
