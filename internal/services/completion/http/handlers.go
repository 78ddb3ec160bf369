// Package http provides HTTP transport for completions, reverts and logs
package http

import (
	stdhttp "net/http"
	"strconv"
	"time"

	"habitreward/internal/core/clock"
	"habitreward/internal/modkit/httpkit"
	perr "habitreward/internal/platform/errors"
	phttp "habitreward/internal/platform/net/http"
	"habitreward/internal/services/completion/domain"
	svc "habitreward/internal/services/completion/service"
	rewardsdomain "habitreward/internal/services/rewards/domain"
)

// Register mounts completion endpoints. Paths are absolute because the
// routes span the habits and habit-logs surfaces
func Register(r httpkit.Router, s *svc.Service) {
	h := &handlers{svc: s}

	httpkit.PostJSON[CompleteRequest](r, "/habits/{id}/complete", h.complete)
	httpkit.PostJSON[BatchRequest](r, "/habits/batch-complete", h.batch)
	httpkit.Get(r, "/habit-logs", h.list)
	httpkit.Delete(r, "/habit-logs/{id}", h.revert)
}

type handlers struct{ svc *svc.Service }

// CompleteRequest is the single completion body
type CompleteRequest struct {
	TargetDate *string `json:"target_date" validate:"omitempty,datetime=2006-01-02"`
}

// BatchEntry is one habit of a batch completion
type BatchEntry struct {
	HabitID    int64   `json:"habit_id" validate:"required,min=1"`
	TargetDate *string `json:"target_date" validate:"omitempty,datetime=2006-01-02"`
}

// BatchRequest is the batch completion body
type BatchRequest struct {
	Completions []BatchEntry `json:"completions" validate:"required,min=1,max=50,dive"`
}

// CompletionResponse is the wire shape of a completion result
type CompletionResponse struct {
	HabitConfirmed bool               `json:"habit_confirmed"`
	HabitName      string             `json:"habit_name"`
	Streak         int                `json:"streak"`
	GotReward      bool               `json:"got_reward"`
	TotalWeight    float64            `json:"total_weight"`
	Reward         *RewardSlice       `json:"reward,omitempty"`
	Progress       *ProgressSlice     `json:"cumulative_progress,omitempty"`
}

// RewardSlice is the reward subset shown in completion results
type RewardSlice struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProgressSlice is the progress subset shown in completion results
type ProgressSlice struct {
	PiecesEarned   int    `json:"pieces_earned"`
	PiecesRequired int    `json:"pieces_required"`
	Claimed        bool   `json:"claimed"`
	Status         string `json:"status"`
}

// RevertResponse is the wire shape of a revert result
type RevertResponse struct {
	Success        bool           `json:"success"`
	HabitName      string         `json:"habit_name"`
	RewardReverted bool           `json:"reward_reverted"`
	RewardName     *string        `json:"reward_name,omitempty"`
	Progress       *ProgressSlice `json:"reward_progress,omitempty"`
}

// LogResponse is the wire shape of a habit log
type LogResponse struct {
	ID                int64   `json:"id"`
	HabitID           int64   `json:"habit_id"`
	RewardID          *int64  `json:"reward_id"`
	GotReward         bool    `json:"got_reward"`
	StreakCount       int     `json:"streak_count"`
	HabitWeight       int     `json:"habit_weight"`
	TotalWeight       float64 `json:"total_weight"`
	LastCompletedDate string  `json:"last_completed_date"`
	Timestamp         string  `json:"timestamp"`
}

func toProgressSlice(p *rewardsdomain.Progress) *ProgressSlice {
	if p == nil {
		return nil
	}
	return &ProgressSlice{
		PiecesEarned:   p.PiecesEarned,
		PiecesRequired: p.PiecesRequired,
		Claimed:        p.Claimed,
		Status:         p.Status(),
	}
}

func toCompletionResponse(res domain.CompletionResult) CompletionResponse {
	out := CompletionResponse{
		HabitConfirmed: res.HabitConfirmed,
		HabitName:      res.HabitName,
		Streak:         res.Streak,
		GotReward:      res.GotReward,
		TotalWeight:    res.TotalWeight,
		Progress:       toProgressSlice(res.Progress),
	}
	if res.Reward != nil {
		out.Reward = &RewardSlice{ID: res.Reward.ID, Name: res.Reward.Name}
	}
	return out
}

func toLogResponse(l domain.Log) LogResponse {
	return LogResponse{
		ID:                l.ID,
		HabitID:           l.HabitID,
		RewardID:          l.RewardID,
		GotReward:         l.GotReward,
		StreakCount:       l.StreakCount,
		HabitWeight:       l.HabitWeight,
		TotalWeight:       l.TotalWeight,
		LastCompletedDate: clock.FormatDate(l.LastCompletedDate),
		Timestamp:         l.Timestamp.UTC().Format(time.RFC3339),
	}
}

func parseTargetDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	d, err := clock.ParseDate(*raw)
	if err != nil {
		return nil, perr.Validationf("invalid target_date %q", *raw)
	}
	return &d, nil
}

func pathID(r *stdhttp.Request, name string) (int64, error) {
	raw := phttp.Param(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, perr.Validationf("invalid %s %q", name, raw)
	}
	return id, nil
}

func (h *handlers) complete(r *stdhttp.Request, in CompleteRequest) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	habitID, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	target, err := parseTargetDate(in.TargetDate)
	if err != nil {
		return nil, err
	}
	res, err := h.svc.CompleteByID(r.Context(), uid, habitID, target)
	if err != nil {
		return nil, err
	}
	return toCompletionResponse(res), nil
}

func (h *handlers) batch(r *stdhttp.Request, in BatchRequest) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	items := make([]domain.BatchItem, 0, len(in.Completions))
	for _, e := range in.Completions {
		target, err := parseTargetDate(e.TargetDate)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.BatchItem{HabitID: e.HabitID, TargetDate: target})
	}
	res, err := h.svc.BatchComplete(r.Context(), uid, items)
	if err != nil {
		return nil, err
	}

	results := make([]CompletionResponse, 0, len(res.Results))
	for _, cr := range res.Results {
		results = append(results, toCompletionResponse(cr))
	}
	errs := make([]map[string]any, 0, len(res.Errors))
	for _, be := range res.Errors {
		errs = append(errs, map[string]any{
			"habit_id": be.HabitID,
			"code":     be.Code,
			"message":  be.Message,
		})
	}
	return map[string]any{"results": results, "errors": errs}, nil
}

func (h *handlers) list(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	q := r.URL.Query()
	var f domain.ListFilter
	if v := q.Get("habit_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return nil, perr.Validationf("invalid habit_id %q", v)
		}
		f.HabitID = id
	}
	for name, dst := range map[string]**time.Time{"start_date": &f.StartDate, "end_date": &f.EndDate} {
		if v := q.Get(name); v != "" {
			d, err := clock.ParseDate(v)
			if err != nil {
				return nil, perr.Validationf("invalid %s %q", name, v)
			}
			*dst = &d
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, perr.Validationf("invalid limit %q", v)
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, perr.Validationf("invalid offset %q", v)
		}
		f.Offset = n
	}

	logs, err := h.svc.List(r.Context(), uid, f)
	if err != nil {
		return nil, err
	}
	out := make([]LogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, toLogResponse(l))
	}
	return map[string]any{"logs": out}, nil
}

func (h *handlers) revert(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	logID, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	res, err := h.svc.RevertByLogID(r.Context(), uid, logID)
	if err != nil {
		return nil, err
	}
	return RevertResponse{
		Success:        res.Success,
		HabitName:      res.HabitName,
		RewardReverted: res.RewardReverted,
		RewardName:     res.RewardName,
		Progress:       toProgressSlice(res.Progress),
	}, nil
}
