// Package http provides HTTP transport for the auth service
package http

import (
	stdhttp "net/http"
	"strconv"
	"time"

	"habitreward/internal/modkit/httpkit"
	perr "habitreward/internal/platform/errors"
	phttp "habitreward/internal/platform/net/http"
	"habitreward/internal/services/auth/domain"
	svc "habitreward/internal/services/auth/service"
	usersdomain "habitreward/internal/services/users/domain"
)

// Handlers carries the auth sub-services
type Handlers struct {
	Codes  *svc.Codes
	Keys   *svc.Keys
	Tokens *svc.Tokens
	Users  usersdomain.ReaderPort

	// RequestCodeLimiter damps code-issuance abuse at the transport level,
	// on top of the per-account hourly budget. Nil disables it
	RequestCodeLimiter func(stdhttp.Handler) stdhttp.Handler
}

// Register mounts the public auth endpoints
func (h *Handlers) Register(r httpkit.Router) {
	if h.RequestCodeLimiter != nil {
		r.Group(func(gr httpkit.Router) {
			gr.Use(h.RequestCodeLimiter)
			httpkit.PostJSON[RequestCodeRequest](gr, "/request-code", h.requestCode)
		})
	} else {
		httpkit.PostJSON[RequestCodeRequest](r, "/request-code", h.requestCode)
	}
	httpkit.PostJSON[VerifyCodeRequest](r, "/verify-code", h.verifyCode)
	httpkit.PostJSON[RefreshRequest](r, "/refresh", h.refresh)
	httpkit.PostJSON[RefreshRequest](r, "/logout", h.logout)
	httpkit.Post(r, "/login", h.deprecatedLogin)
}

// RegisterKeys mounts the authenticated API-key endpoints
func (h *Handlers) RegisterKeys(r httpkit.Router) {
	httpkit.Get(r, "/", h.listKeys)
	httpkit.PostJSON[CreateKeyRequest](r, "/", h.createKey)
	httpkit.Delete(r, "/{id}", h.revokeKey)
}

// RequestCodeRequest is the code issuance body
type RequestCodeRequest struct {
	TelegramID int64   `json:"telegram_id" validate:"required,min=1"`
	DeviceInfo *string `json:"device_info" validate:"omitempty,max=256"`
}

// VerifyCodeRequest is the code verification body
type VerifyCodeRequest struct {
	TelegramID int64  `json:"telegram_id" validate:"required,min=1"`
	Code       string `json:"code" validate:"required,len=6,numeric"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// CreateKeyRequest is the API-key creation body
type CreateKeyRequest struct {
	Name      string  `json:"name" validate:"required,max=128"`
	ExpiresAt *string `json:"expires_at" validate:"omitempty"`
}

// KeyResponse is the wire shape of an API key, hash omitted
type KeyResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	CreatedAt  string  `json:"created_at"`
	LastUsedAt *string `json:"last_used_at"`
	ExpiresAt  *string `json:"expires_at"`
	Active     bool    `json:"active"`
}

func toKeyResponse(k domain.APIKey) KeyResponse {
	out := KeyResponse{
		ID:        k.ID,
		Name:      k.Name,
		CreatedAt: k.CreatedAt.UTC().Format(time.RFC3339),
		Active:    k.Active,
	}
	if k.LastUsedAt != nil {
		v := k.LastUsedAt.UTC().Format(time.RFC3339)
		out.LastUsedAt = &v
	}
	if k.ExpiresAt != nil {
		v := k.ExpiresAt.UTC().Format(time.RFC3339)
		out.ExpiresAt = &v
	}
	return out
}

// requestCode always answers with the same message for existing and unknown
// accounts, only the rate limit surfaces as an error
func (h *Handlers) requestCode(r *stdhttp.Request, in RequestCodeRequest) (any, error) {
	if _, err := h.Codes.IssueCode(r.Context(), in.TelegramID, in.DeviceInfo); err != nil {
		return nil, err
	}
	return map[string]string{"message": "if the account exists, a code has been sent"}, nil
}

func (h *Handlers) verifyCode(r *stdhttp.Request, in VerifyCodeRequest) (any, error) {
	u, err := h.Codes.VerifyCode(r.Context(), in.TelegramID, in.Code)
	if err != nil {
		return nil, err
	}
	pair, err := h.Tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "bearer",
	}, nil
}

func (h *Handlers) refresh(r *stdhttp.Request, in RefreshRequest) (any, error) {
	claims, err := h.Tokens.Verify(in.RefreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	u, err := h.Users.ByID(r.Context(), claims.UserID)
	if err != nil {
		// a valid refresh token for a vanished account is an auth failure,
		// not a lookup miss
		if perr.IsCode(err, perr.ErrorCodeUserNotFound) {
			return nil, perr.WithStatus(err, stdhttp.StatusUnauthorized)
		}
		return nil, err
	}
	if !u.Active {
		return nil, perr.WithStatus(
			perr.Newf(perr.ErrorCodeUserInactive, "user is deactivated"),
			stdhttp.StatusUnauthorized)
	}
	access, err := h.Tokens.Access(u)
	if err != nil {
		return nil, err
	}
	return map[string]string{"access_token": access, "token_type": "bearer"}, nil
}

// logout validates the refresh token and acknowledges. Tokens are stateless,
// the client discards its copy
func (h *Handlers) logout(r *stdhttp.Request, in RefreshRequest) (any, error) {
	if _, err := h.Tokens.Verify(in.RefreshToken, domain.TokenTypeRefresh); err != nil {
		return nil, err
	}
	return map[string]string{"message": "logged out"}, nil
}

func (h *Handlers) deprecatedLogin(*stdhttp.Request) (any, error) {
	return nil, perr.Newf(perr.ErrorCodeDeprecatedLogin, "password login is gone, request a code instead")
}

func (h *Handlers) listKeys(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	keys, err := h.Keys.ListKeys(r.Context(), uid)
	if err != nil {
		return nil, err
	}
	out := make([]KeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, toKeyResponse(k))
	}
	return map[string]any{"api_keys": out}, nil
}

func (h *Handlers) createKey(r *stdhttp.Request, in CreateKeyRequest) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	var expiresAt *time.Time
	if in.ExpiresAt != nil && *in.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, *in.ExpiresAt)
		if err != nil {
			return nil, perr.Validationf("invalid expires_at %q", *in.ExpiresAt)
		}
		expiresAt = &t
	}
	k, raw, err := h.Keys.CreateKey(r.Context(), uid, in.Name, expiresAt)
	if err != nil {
		return nil, err
	}
	body := map[string]any{"api_key": toKeyResponse(k), "key": raw}
	return httpkit.Created(body), nil
}

func (h *Handlers) revokeKey(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	raw := phttp.Param(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, perr.Validationf("invalid id %q", raw)
	}
	if err := h.Keys.RevokeKey(r.Context(), uid, id); err != nil {
		return nil, err
	}
	return map[string]string{"message": "api key revoked"}, nil
}
