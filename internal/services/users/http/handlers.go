// Package http provides HTTP transport for the users service
package http

import (
	stdhttp "net/http"
	"time"

	"habitreward/internal/modkit/httpkit"
	"habitreward/internal/platform/net/http/bind"
	"habitreward/internal/services/users/domain"
	svc "habitreward/internal/services/users/service"
)

// Register mounts users endpoints on the given router
func Register(r httpkit.Router, s *svc.Service) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/me", h.me)
	httpkit.PatchJSON[PatchMeRequest](r, "/me", h.patchMe)
}

type handlers struct{ svc *svc.Service }

// UserResponse is the wire shape of a user
type UserResponse struct {
	ID         int64  `json:"id"`
	TelegramID int64  `json:"telegram_id"`
	Name       string `json:"name"`
	Language   string `json:"language"`
	Timezone   string `json:"timezone"`
	Active     bool   `json:"active"`
	CreatedAt  string `json:"created_at"`
}

// PatchMeRequest is the profile update body
type PatchMeRequest struct {
	Name     bind.Opt[string] `json:"name" validate:"omitempty"`
	Language bind.Opt[string] `json:"language"`
	Timezone bind.Opt[string] `json:"timezone"`
}

func toUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		TelegramID: u.TelegramID,
		Name:       u.Name,
		Language:   u.Language,
		Timezone:   u.Timezone,
		Active:     u.Active,
		CreatedAt:  u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *handlers) me(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	u, err := h.svc.ByID(r.Context(), uid)
	if err != nil {
		return nil, err
	}
	return toUserResponse(u), nil
}

func (h *handlers) patchMe(r *stdhttp.Request, in PatchMeRequest) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	u, err := h.svc.UpdateProfile(r.Context(), uid, domain.ProfilePatch{
		Name:     in.Name.Ptr(),
		Language: in.Language.Ptr(),
		Timezone: in.Timezone.Ptr(),
	})
	if err != nil {
		return nil, err
	}
	return toUserResponse(u), nil
}
