// Package http provides HTTP transport for the rewards service
package http

import (
	stdhttp "net/http"
	"strconv"
	"time"

	"habitreward/internal/modkit/httpkit"
	perr "habitreward/internal/platform/errors"
	phttp "habitreward/internal/platform/net/http"
	"habitreward/internal/services/rewards/domain"
	svc "habitreward/internal/services/rewards/service"
)

// Register mounts rewards endpoints on the given router
func Register(r httpkit.Router, s *svc.Service) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/", h.list)
	httpkit.PostJSON[CreateRequest](r, "/", h.create)
	httpkit.Post(r, "/{id}/claim", h.claim)
}

type handlers struct{ svc *svc.Service }

// RewardResponse is the wire shape of a reward with its progress
type RewardResponse struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	Weight         float64           `json:"weight"`
	PiecesRequired int               `json:"pieces_required"`
	PieceValue     *float64          `json:"piece_value"`
	MaxDailyClaims *int              `json:"max_daily_claims"`
	Active         bool              `json:"active"`
	CreatedAt      string            `json:"created_at"`
	Progress       *ProgressResponse `json:"progress,omitempty"`
	Status         string            `json:"status"`
}

// ProgressResponse is the wire shape of the accumulator
type ProgressResponse struct {
	PiecesEarned   int  `json:"pieces_earned"`
	PiecesRequired int  `json:"pieces_required"`
	Claimed        bool `json:"claimed"`
}

// CreateRequest is the reward create body
type CreateRequest struct {
	Name           string   `json:"name" validate:"required,max=128"`
	Type           string   `json:"type" validate:"omitempty,oneof=regular none"`
	Weight         float64  `json:"weight" validate:"required,gt=0,max=100"`
	PiecesRequired int      `json:"pieces_required" validate:"required,min=1"`
	PieceValue     *float64 `json:"piece_value" validate:"omitempty,min=0"`
	MaxDailyClaims *int     `json:"max_daily_claims" validate:"omitempty,min=0"`
}

func toRewardResponse(r domain.Reward, p *domain.Progress) RewardResponse {
	out := RewardResponse{
		ID:             r.ID,
		Name:           r.Name,
		Type:           r.Type,
		Weight:         r.Weight,
		PiecesRequired: r.PiecesRequired,
		PieceValue:     r.PieceValue,
		MaxDailyClaims: r.MaxDailyClaims,
		Active:         r.Active,
		CreatedAt:      r.CreatedAt.UTC().Format(time.RFC3339),
		Status:         domain.StatusPending,
	}
	if p != nil {
		out.Progress = &ProgressResponse{
			PiecesEarned:   p.PiecesEarned,
			PiecesRequired: p.PiecesRequired,
			Claimed:        p.Claimed,
		}
		out.Status = p.Status()
	}
	return out
}

func pathID(r *stdhttp.Request, name string) (int64, error) {
	raw := phttp.Param(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, perr.Validationf("invalid %s %q", name, raw)
	}
	return id, nil
}

func (h *handlers) list(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	q := r.URL.Query()
	rewards, err := h.svc.List(r.Context(), uid, domain.ListFilter{
		Type:   q.Get("type"),
		Status: q.Get("status"),
	})
	if err != nil {
		return nil, err
	}
	out := make([]RewardResponse, 0, len(rewards))
	for _, wp := range rewards {
		out = append(out, toRewardResponse(wp.Reward, wp.Progress))
	}
	return map[string]any{"rewards": out}, nil
}

func (h *handlers) create(r *stdhttp.Request, in CreateRequest) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	rw, err := h.svc.Create(r.Context(), uid, domain.CreateInput{
		Name:           in.Name,
		Type:           in.Type,
		Weight:         in.Weight,
		PiecesRequired: in.PiecesRequired,
		PieceValue:     in.PieceValue,
		MaxDailyClaims: in.MaxDailyClaims,
	})
	if err != nil {
		return nil, err
	}
	return httpkit.Created(toRewardResponse(rw, nil)), nil
}

func (h *handlers) claim(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	p, err := h.svc.MarkClaimed(r.Context(), uid, id)
	if err != nil {
		return nil, err
	}
	rw, err := h.svc.ByID(r.Context(), uid, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message": "reward claimed",
		"reward":  toRewardResponse(rw, &p),
	}, nil
}
