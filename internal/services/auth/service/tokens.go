// Package service implements auth codes, API keys and signed tokens
package service

import (
	"crypto/rand"
	"encoding/hex"
	stderrs "errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	perr "habitreward/internal/platform/errors"
	"habitreward/internal/platform/logger"

	"habitreward/internal/services/auth/domain"
	usersdomain "habitreward/internal/services/users/domain"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

// Tokens implements domain.TokenPort with HMAC-SHA-256 signed JWTs
type Tokens struct {
	secret []byte
}

// NewTokens builds the token service. An empty secret generates an ephemeral
// process key, every token dies with the process, so it screams about it
func NewTokens(secret string) *Tokens {
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			logger.Get().Panic().Err(err).Msg("cannot generate ephemeral signing key")
		}
		logger.Get().Warn().
			Msg("API_SECRET_KEY is not set, using an ephemeral signing key: all tokens become invalid on restart")
		return &Tokens{secret: []byte(hex.EncodeToString(buf))}
	}
	return &Tokens{secret: []byte(secret)}
}

// Issue implements domain.TokenPort, minting an access+refresh pair
func (t *Tokens) Issue(u usersdomain.User) (domain.TokenPair, error) {
	access, err := t.sign(u, domain.TokenTypeAccess, accessTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := t.sign(u, domain.TokenTypeRefresh, refreshTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Access implements domain.TokenPort, minting a fresh access token
func (t *Tokens) Access(u usersdomain.User) (string, error) {
	return t.sign(u, domain.TokenTypeAccess, accessTTL)
}

func (t *Tokens) sign(u usersdomain.User, typ string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":         strconv.FormatInt(u.ID, 10),
		"telegram_id": u.TelegramID,
		"type":        typ,
		"iat":         now.Unix(),
		"exp":         now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", perr.Newf(perr.ErrorCodeUnknown, "sign token: %v", err)
	}
	return signed, nil
}

// Verify implements domain.TokenPort, rejecting expired tokens, bad
// signatures and type mismatches
func (t *Tokens) Verify(token, expectedType string) (domain.Claims, error) {
	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if stderrs.Is(err, jwt.ErrTokenExpired) {
			return domain.Claims{}, perr.Newf(perr.ErrorCodeTokenExpired, "token expired")
		}
		return domain.Claims{}, perr.Newf(perr.ErrorCodeInvalidToken, "invalid token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return domain.Claims{}, perr.Newf(perr.ErrorCodeInvalidToken, "invalid token")
	}
	typ, _ := claims["type"].(string)
	if typ != expectedType {
		return domain.Claims{}, perr.Newf(perr.ErrorCodeInvalidTokenType, "expected %s token", expectedType)
	}
	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return domain.Claims{}, perr.Newf(perr.ErrorCodeInvalidToken, "invalid subject")
	}

	out := domain.Claims{UserID: userID, Type: typ}
	if tg, ok := claims["telegram_id"].(float64); ok {
		out.TelegramID = int64(tg)
	}
	return out, nil
}
