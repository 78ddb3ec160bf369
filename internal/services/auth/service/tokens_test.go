package service

import (
	"testing"
	"time"

	perr "habitreward/internal/platform/errors"

	"habitreward/internal/services/auth/domain"
	usersdomain "habitreward/internal/services/users/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	tk := NewTokens("test-secret")
	u := usersdomain.User{ID: 42, TelegramID: 777}

	pair, err := tk.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := tk.Verify(pair.AccessToken, domain.TokenTypeAccess)
	if err != nil {
		t.Fatalf("Verify access: %v", err)
	}
	if claims.UserID != 42 || claims.TelegramID != 777 || claims.Type != domain.TokenTypeAccess {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := tk.Verify(pair.RefreshToken, domain.TokenTypeRefresh); err != nil {
		t.Errorf("Verify refresh: %v", err)
	}
}

func TestTokenTypeMismatch(t *testing.T) {
	t.Parallel()

	tk := NewTokens("test-secret")
	pair, err := tk.Issue(usersdomain.User{ID: 1})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tk.Verify(pair.RefreshToken, domain.TokenTypeAccess); !perr.IsCode(err, perr.ErrorCodeInvalidTokenType) {
		t.Errorf("refresh as access: got %v", err)
	}
	if _, err := tk.Verify(pair.AccessToken, domain.TokenTypeRefresh); !perr.IsCode(err, perr.ErrorCodeInvalidTokenType) {
		t.Errorf("access as refresh: got %v", err)
	}
}

func TestTokenRejections(t *testing.T) {
	t.Parallel()

	tk := NewTokens("test-secret")

	if _, err := tk.Verify("not-a-token", domain.TokenTypeAccess); !perr.IsCode(err, perr.ErrorCodeInvalidToken) {
		t.Errorf("garbage: got %v", err)
	}

	// signed with a different secret
	other := NewTokens("other-secret")
	foreign, err := other.Access(usersdomain.User{ID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tk.Verify(foreign, domain.TokenTypeAccess); !perr.IsCode(err, perr.ErrorCodeInvalidToken) {
		t.Errorf("wrong signer: got %v", err)
	}

	expired, err := tk.sign(usersdomain.User{ID: 1}, domain.TokenTypeAccess, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tk.Verify(expired, domain.TokenTypeAccess); !perr.IsCode(err, perr.ErrorCodeTokenExpired) {
		t.Errorf("expired: got %v", err)
	}
}

func TestEphemeralSecretStillSigns(t *testing.T) {
	t.Parallel()

	tk := NewTokens("")
	access, err := tk.Access(usersdomain.User{ID: 9})
	if err != nil {
		t.Fatalf("Access: %v", err)
	}
	claims, err := tk.Verify(access, domain.TokenTypeAccess)
	if err != nil || claims.UserID != 9 {
		t.Errorf("claims = %+v, err = %v", claims, err)
	}
}
