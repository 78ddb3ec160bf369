// Package http provides HTTP transport for the streaks service
package http

import (
	stdhttp "net/http"
	"strconv"

	"habitreward/internal/core/clock"
	"habitreward/internal/modkit/httpkit"
	perr "habitreward/internal/platform/errors"
	phttp "habitreward/internal/platform/net/http"
	"habitreward/internal/services/streaks/domain"
	svc "habitreward/internal/services/streaks/service"
)

// Register mounts streaks endpoints on the given router
func Register(r httpkit.Router, s *svc.Service) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/", h.overview)
	httpkit.Get(r, "/{habit_id}", h.summary)
}

type handlers struct{ svc *svc.Service }

// OverviewEntry is one habit's row in the streak overview
type OverviewEntry struct {
	HabitID       int64   `json:"habit_id"`
	HabitName     string  `json:"habit_name"`
	CurrentStreak int     `json:"current_streak"`
	LastCompleted *string `json:"last_completed"`
}

// SummaryResponse is the single-habit streak view
type SummaryResponse struct {
	CurrentStreak int     `json:"current_streak"`
	LongestStreak int     `json:"longest_streak"`
	LastCompleted *string `json:"last_completed"`
}

func (h *handlers) overview(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	rows, err := h.svc.Overview(r.Context(), uid)
	if err != nil {
		return nil, err
	}
	out := make([]OverviewEntry, 0, len(rows))
	for _, hs := range rows {
		e := OverviewEntry{
			HabitID:       hs.HabitID,
			HabitName:     hs.HabitName,
			CurrentStreak: hs.CurrentStreak,
		}
		if hs.LastCompleted != nil {
			d := clock.FormatDate(*hs.LastCompleted)
			e.LastCompleted = &d
		}
		out = append(out, e)
	}
	return map[string]any{"streaks": out}, nil
}

func (h *handlers) summary(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	raw := phttp.Param(r, "habit_id")
	habitID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || habitID <= 0 {
		return nil, perr.Validationf("invalid habit_id %q", raw)
	}
	sum, err := h.svc.Summary(r.Context(), uid, habitID)
	if err != nil {
		return nil, err
	}
	return toSummaryResponse(sum), nil
}

func toSummaryResponse(s domain.Summary) SummaryResponse {
	out := SummaryResponse{
		CurrentStreak: s.CurrentStreak,
		LongestStreak: s.LongestStreak,
	}
	if s.LastCompleted != nil {
		d := clock.FormatDate(*s.LastCompleted)
		out.LastCompleted = &d
	}
	return out
}
