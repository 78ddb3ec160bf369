package http

import (
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "habitreward/internal/platform/errors"
	phttp "habitreward/internal/platform/net/http"
	"habitreward/internal/services/auth/domain"
	svc "habitreward/internal/services/auth/service"
	usersdomain "habitreward/internal/services/users/domain"

	"github.com/go-chi/chi/v5"
)

type fakeUsers struct{ users map[int64]usersdomain.User }

func (f *fakeUsers) ByID(_ context.Context, id int64) (usersdomain.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return usersdomain.User{}, perr.Newf(perr.ErrorCodeUserNotFound, "user %d not found", id)
}

func (f *fakeUsers) ByTelegramID(context.Context, int64) (usersdomain.User, error) {
	panic("not used")
}

func newAuthServer(t *testing.T, users *fakeUsers, tokens *svc.Tokens) *httptest.Server {
	t.Helper()
	h := &Handlers{Tokens: tokens, Users: users}
	mux := chi.NewRouter()
	h.Register(phttp.AdaptChi(mux))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postRefresh(t *testing.T, url, token string) *stdhttp.Response {
	t.Helper()
	body := fmt.Sprintf(`{"refresh_token": %q}`, token)
	resp, err := stdhttp.Post(url+"/refresh", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeErrCode(t *testing.T, resp *stdhttp.Response) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body.Error.Code
}

// TestRefreshRejectsStaleAccountsWith401 pins the contract that a refresh
// with a valid token always answers 401 when the account cannot serve it,
// whether the user vanished or was deactivated
func TestRefreshRejectsStaleAccountsWith401(t *testing.T) {
	tokens := svc.NewTokens("test-secret")
	active := usersdomain.User{ID: 1, TelegramID: 100, Name: "ann", Active: true}
	inactive := usersdomain.User{ID: 2, TelegramID: 200, Name: "off", Active: false}
	gone := usersdomain.User{ID: 3, TelegramID: 300, Name: "ghost", Active: true}

	users := &fakeUsers{users: map[int64]usersdomain.User{1: active, 2: inactive}}
	srv := newAuthServer(t, users, tokens)

	mint := func(u usersdomain.User) string {
		pair, err := tokens.Issue(u)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		return pair.RefreshToken
	}

	resp := postRefresh(t, srv.URL, mint(gone))
	if resp.StatusCode != stdhttp.StatusUnauthorized {
		t.Errorf("vanished user: status = %d, want 401", resp.StatusCode)
	}
	if code := decodeErrCode(t, resp); code != "USER_NOT_FOUND" {
		t.Errorf("vanished user: code = %q", code)
	}
	resp.Body.Close() //nolint:errcheck

	resp = postRefresh(t, srv.URL, mint(inactive))
	if resp.StatusCode != stdhttp.StatusUnauthorized {
		t.Errorf("deactivated user: status = %d, want 401", resp.StatusCode)
	}
	if code := decodeErrCode(t, resp); code != "USER_INACTIVE" {
		t.Errorf("deactivated user: code = %q", code)
	}
	resp.Body.Close() //nolint:errcheck

	resp = postRefresh(t, srv.URL, mint(active))
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("active user: status = %d, want 200", resp.StatusCode)
	}
	var ok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ok); err != nil {
		t.Fatal(err)
	}
	if ok.AccessToken == "" || ok.TokenType != "bearer" {
		t.Errorf("body = %+v", ok)
	}
	if _, err := tokens.Verify(ok.AccessToken, domain.TokenTypeAccess); err != nil {
		t.Errorf("minted access token does not verify: %v", err)
	}
}
