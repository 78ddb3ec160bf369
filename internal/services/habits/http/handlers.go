// Package http provides HTTP transport for the habits service
package http

import (
	stdhttp "net/http"
	"strconv"
	"time"

	"habitreward/internal/modkit/httpkit"
	perr "habitreward/internal/platform/errors"
	phttp "habitreward/internal/platform/net/http"
	"habitreward/internal/platform/net/http/bind"
	"habitreward/internal/services/habits/domain"
	svc "habitreward/internal/services/habits/service"
)

// Register mounts habits endpoints on the given router
func Register(r httpkit.Router, s *svc.Service) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/", h.list)
	httpkit.PostJSON[CreateRequest](r, "/", h.create)
	httpkit.PatchJSON[PatchRequest](r, "/{id}", h.patch)
	httpkit.Delete(r, "/{id}", h.remove)
}

type handlers struct{ svc *svc.Service }

// HabitResponse is the wire shape of a habit
type HabitResponse struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Weight          int     `json:"weight"`
	Category        *string `json:"category"`
	AllowedSkipDays int     `json:"allowed_skip_days"`
	ExemptWeekdays  []int   `json:"exempt_weekdays"`
	Active          bool    `json:"active"`
	CreatedAt       string  `json:"created_at"`
}

// CreateRequest is the habit create body
type CreateRequest struct {
	Name            string  `json:"name" validate:"required,max=128"`
	Weight          int     `json:"weight" validate:"required,min=1,max=100"`
	Category        *string `json:"category" validate:"omitempty,max=64"`
	AllowedSkipDays int     `json:"allowed_skip_days" validate:"min=0,max=7"`
	ExemptWeekdays  []int   `json:"exempt_weekdays" validate:"iso_weekdays"`
}

// PatchRequest is the partial habit update body
type PatchRequest struct {
	Name            bind.Opt[string] `json:"name"`
	Weight          bind.Opt[int]    `json:"weight"`
	Category        bind.Opt[string] `json:"category"`
	AllowedSkipDays bind.Opt[int]    `json:"allowed_skip_days"`
	ExemptWeekdays  bind.Opt[[]int]  `json:"exempt_weekdays"`
	Active          bind.Opt[bool]   `json:"active"`
}

func toHabitResponse(h domain.Habit) HabitResponse {
	out := HabitResponse{
		ID:              h.ID,
		Name:            h.Name,
		Weight:          h.Weight,
		Category:        h.Category,
		AllowedSkipDays: h.AllowedSkipDays,
		ExemptWeekdays:  h.ExemptWeekdays,
		Active:          h.Active,
		CreatedAt:       h.CreatedAt.UTC().Format(time.RFC3339),
	}
	if out.ExemptWeekdays == nil {
		out.ExemptWeekdays = []int{}
	}
	return out
}

// PathID parses an {id} path segment
func PathID(r *stdhttp.Request, name string) (int64, error) {
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
	var f domain.ListFilter
	q := r.URL.Query()
	if v := q.Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, perr.Validationf("invalid active flag %q", v)
		}
		f.Active = &b
	}
	f.Category = q.Get("category")

	habits, err := h.svc.List(r.Context(), uid, f)
	if err != nil {
		return nil, err
	}
	out := make([]HabitResponse, 0, len(habits))
	for _, hb := range habits {
		out = append(out, toHabitResponse(hb))
	}
	return map[string]any{"habits": out}, nil
}

func (h *handlers) create(r *stdhttp.Request, in CreateRequest) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	hb, err := h.svc.Create(r.Context(), uid, domain.CreateInput{
		Name:            in.Name,
		Weight:          in.Weight,
		Category:        in.Category,
		AllowedSkipDays: in.AllowedSkipDays,
		ExemptWeekdays:  in.ExemptWeekdays,
	})
	if err != nil {
		return nil, err
	}
	return httpkit.Created(toHabitResponse(hb)), nil
}

func (h *handlers) patch(r *stdhttp.Request, in PatchRequest) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	id, err := PathID(r, "id")
	if err != nil {
		return nil, err
	}
	patch := domain.Patch{
		Name:            in.Name.Ptr(),
		Weight:          in.Weight.Ptr(),
		AllowedSkipDays: in.AllowedSkipDays.Ptr(),
		ExemptWeekdays:  in.ExemptWeekdays.Ptr(),
		Active:          in.Active.Ptr(),
	}
	if in.Category.Set {
		if in.Category.Null {
			patch.ClearCategory = true
		} else {
			patch.Category = in.Category.Ptr()
		}
	}
	hb, err := h.svc.Update(r.Context(), uid, id, patch)
	if err != nil {
		return nil, err
	}
	return toHabitResponse(hb), nil
}

func (h *handlers) remove(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	id, err := PathID(r, "id")
	if err != nil {
		return nil, err
	}
	if err := h.svc.SoftDelete(r.Context(), uid, id); err != nil {
		return nil, err
	}
	return map[string]string{"message": "habit deleted"}, nil
}
