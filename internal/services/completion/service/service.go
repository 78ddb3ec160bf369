// Package service implements the completion and revert engines
package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"habitreward/internal/core/clock"
	"habitreward/internal/core/draw"
	"habitreward/internal/core/streak"
	perr "habitreward/internal/platform/errors"
	"habitreward/internal/platform/logger"

	"habitreward/internal/modkit/repokit"
	auditdomain "habitreward/internal/services/audit/domain"
	"habitreward/internal/services/completion/domain"
	"habitreward/internal/services/completion/repo"
	habitsdomain "habitreward/internal/services/habits/domain"
	rewardsdomain "habitreward/internal/services/rewards/domain"
	rewardsrepo "habitreward/internal/services/rewards/repo"
	usersdomain "habitreward/internal/services/users/domain"
)

// backdateWindowDays is how far back a completion may be credited
const backdateWindowDays = 7

// StreakSource projects the streak a completion on target would carry
type StreakSource interface {
	StreakForHabit(ctx context.Context, h habitsdomain.Habit, target time.Time) (int, error)
}

// Service implements domain.EnginePort and domain.LogReaderPort
type Service struct {
	DB      repokit.TxRunner
	Logs    repokit.Binder[repo.Storage]
	Rewards repokit.Binder[rewardsrepo.Storage]
	Users   usersdomain.ReaderPort
	Habits  habitsdomain.ReaderPort
	Streaks StreakSource
	Audit   auditdomain.WriterPort

	mu  sync.Mutex
	rng *rand.Rand
}

// New constructs the completion service. rng may be nil outside tests
func New(
	db repokit.TxRunner,
	logs repokit.Binder[repo.Storage],
	rewards repokit.Binder[rewardsrepo.Storage],
	users usersdomain.ReaderPort,
	habits habitsdomain.ReaderPort,
	streaks StreakSource,
	audit auditdomain.WriterPort,
	rng *rand.Rand,
) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		DB: db, Logs: logs, Rewards: rewards,
		Users: users, Habits: habits, Streaks: streaks, Audit: audit,
		rng: rng,
	}
}

// ProcessCompletion implements domain.EnginePort for the chat surface.
// The habit is resolved by name among the user's active habits
func (s *Service) ProcessCompletion(ctx context.Context, telegramID int64, habitName string, targetDate *time.Time, timezone string) (domain.CompletionResult, error) {
	u, err := s.activeUserByTelegramID(ctx, telegramID)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	h, err := s.Habits.ActiveByName(ctx, u.ID, habitName)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	if timezone == "" {
		timezone = u.Timezone
	}
	return s.complete(ctx, u, h, targetDate, timezone)
}

// CompleteByID implements domain.EnginePort for the REST surface
func (s *Service) CompleteByID(ctx context.Context, userID, habitID int64, targetDate *time.Time) (domain.CompletionResult, error) {
	u, err := s.activeUserByID(ctx, userID)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	h, err := s.Habits.ByID(ctx, userID, habitID)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	if !h.Active {
		return domain.CompletionResult{}, perr.Newf(perr.ErrorCodeHabitNotFound, "habit %d not found", habitID)
	}
	return s.complete(ctx, u, h, targetDate, u.Timezone)
}

// BatchComplete implements domain.EnginePort. Items fail independently,
// each error is reported per item instead of aborting the batch
func (s *Service) BatchComplete(ctx context.Context, userID int64, items []domain.BatchItem) (domain.BatchResult, error) {
	u, err := s.activeUserByID(ctx, userID)
	if err != nil {
		return domain.BatchResult{}, err
	}
	var out domain.BatchResult
	for _, it := range items {
		res, err := func() (domain.CompletionResult, error) {
			h, err := s.Habits.ByID(ctx, userID, it.HabitID)
			if err != nil {
				return domain.CompletionResult{}, err
			}
			if !h.Active {
				return domain.CompletionResult{}, perr.Newf(perr.ErrorCodeHabitNotFound, "habit %d not found", it.HabitID)
			}
			return s.complete(ctx, u, h, it.TargetDate, u.Timezone)
		}()
		if err != nil {
			out.Errors = append(out.Errors, domain.BatchError{
				HabitID: it.HabitID,
				Code:    string(perr.CodeOf(err)),
				Message: err.Error(),
			})
			continue
		}
		out.Results = append(out.Results, res)
	}
	return out, nil
}

func (s *Service) complete(ctx context.Context, u usersdomain.User, h habitsdomain.Habit, targetDate *time.Time, timezone string) (domain.CompletionResult, error) {
	today := clock.UserToday(timezone)
	target := today
	if targetDate != nil {
		target = clock.DateOf(*targetDate)
	}

	switch {
	case target.After(today):
		return domain.CompletionResult{}, perr.Newf(perr.ErrorCodeFutureDate, "cannot complete a habit for a future date")
	case target.Before(clock.AddDays(today, -backdateWindowDays)):
		return domain.CompletionResult{}, perr.Newf(perr.ErrorCodeTooOld, "date is more than %d days in the past", backdateWindowDays)
	case target.Before(h.CreatedDate()):
		return domain.CompletionResult{}, perr.Newf(perr.ErrorCodeBeforeHabitCreation, "date precedes habit creation")
	}
	if existing, err := s.Logs.Bind(s.DB).ByDate(ctx, u.ID, h.ID, target); err != nil {
		return domain.CompletionResult{}, err
	} else if existing != nil {
		return domain.CompletionResult{}, perr.Newf(perr.ErrorCodeAlreadyCompleted, "habit already completed for this date")
	}

	// streak math and the random draw happen outside the transaction so a
	// retry never re-rolls the dice
	streakN, err := s.Streaks.StreakForHabit(ctx, h, target)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	reward, err := s.selectReward(ctx, u.ID, h.Weight, streakN, today)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	gotReward := !reward.IsNone()
	totalWeight := draw.TotalWeight(h.Weight, streakN)

	var progress *rewardsdomain.Progress
	var inserted domain.Log
	err = repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		if gotReward {
			p, err := s.Rewards.Bind(q).IncrementPieces(ctx, u.ID, reward.ID)
			if err != nil {
				return err
			}
			progress = &p
		}
		l := domain.Log{
			UserID:            u.ID,
			HabitID:           h.ID,
			GotReward:         gotReward,
			StreakCount:       streakN,
			HabitWeight:       h.Weight,
			TotalWeight:       totalWeight,
			LastCompletedDate: target,
		}
		if gotReward {
			l.RewardID = &reward.ID
		}
		var err error
		inserted, err = s.Logs.Bind(q).Insert(ctx, l)
		return err
	})
	if err != nil {
		return domain.CompletionResult{}, err
	}

	if target.Before(today) {
		if err := s.recomputeSuffix(ctx, h, target, today); err != nil {
			logger.C(ctx).Error().Err(err).
				Int64("habit_id", h.ID).
				Time("target_date", target).
				Msg("streak suffix recomputation failed")
		}
	}

	s.auditCompleted(ctx, u.ID, h, inserted, reward, progress)

	res := domain.CompletionResult{
		HabitConfirmed: true,
		HabitName:      h.Name,
		Streak:         streakN,
		GotReward:      gotReward,
		TotalWeight:    totalWeight,
		Progress:       progress,
	}
	if gotReward {
		r := reward
		res.Reward = &r
	}
	return res, nil
}

// selectReward draws from the user's active rewards, excluding those whose
// daily claim quota is already exhausted. An empty pool yields the sentinel
func (s *Service) selectReward(ctx context.Context, userID int64, habitWeight, streakN int, today time.Time) (rewardsdomain.Reward, error) {
	active, err := s.Rewards.Bind(s.DB).ActiveForUser(ctx, userID)
	if err != nil {
		return rewardsdomain.Reward{}, err
	}
	counts, err := s.Logs.Bind(s.DB).RewardCountsOnDate(ctx, userID, today)
	if err != nil {
		return rewardsdomain.Reward{}, err
	}

	pool := active[:0:0]
	for _, r := range active {
		if r.MaxDailyClaims != nil && *r.MaxDailyClaims > 0 && counts[r.ID] >= *r.MaxDailyClaims {
			continue
		}
		pool = append(pool, r)
	}
	if len(pool) == 0 {
		return rewardsdomain.SentinelNone(), nil
	}

	cands := make([]draw.Candidate, len(pool))
	for i, r := range pool {
		cands[i] = draw.Candidate{ID: r.ID, Weight: r.Weight}
	}
	s.mu.Lock()
	idx, ok := draw.Weighted(s.rng, cands, draw.TotalWeight(habitWeight, streakN))
	s.mu.Unlock()
	if !ok {
		return rewardsdomain.SentinelNone(), nil
	}
	return pool[idx], nil
}

// recomputeSuffix replays streak counts for all logs from target through
// today so a back-filled date propagates into later streaks
func (s *Service) recomputeSuffix(ctx context.Context, h habitsdomain.Habit, target, today time.Time) error {
	logs, err := s.Logs.Bind(s.DB).Between(ctx, h.UserID, h.ID, target, today)
	if err != nil {
		return err
	}
	lg := s.Logs.Bind(s.DB)
	var prevDate time.Time
	var prevStreak int
	for i, l := range logs {
		var want int
		if i == 0 {
			// the backdated log itself, seeded from history before target
			want, err = s.Streaks.StreakForHabit(ctx, h, l.LastCompletedDate)
			if err != nil {
				return err
			}
		} else {
			want = nextStreak(prevDate, prevStreak, h, l.LastCompletedDate)
		}
		if want != l.StreakCount {
			if err := lg.UpdateStreak(ctx, l.ID, want); err != nil {
				return err
			}
		}
		prevDate, prevStreak = l.LastCompletedDate, want
	}
	return nil
}

func nextStreak(prevDate time.Time, prevStreak int, h habitsdomain.Habit, target time.Time) int {
	return streak.Next(&streak.Prior{Date: prevDate, Count: prevStreak}, streak.Leniency{
		AllowedSkipDays: h.AllowedSkipDays,
		ExemptWeekdays:  h.ExemptWeekdays,
	}, target)
}

// RevertLatest implements domain.EnginePort, undoing the most recent log
func (s *Service) RevertLatest(ctx context.Context, telegramID int64, habitID int64) (domain.RevertResult, error) {
	u, err := s.activeUserByTelegramID(ctx, telegramID)
	if err != nil {
		return domain.RevertResult{}, err
	}
	h, err := s.Habits.ByID(ctx, u.ID, habitID)
	if err != nil {
		return domain.RevertResult{}, err
	}
	l, err := s.Logs.Bind(s.DB).Latest(ctx, u.ID, h.ID)
	if err != nil {
		return domain.RevertResult{}, err
	}
	if l == nil {
		return domain.RevertResult{}, perr.Newf(perr.ErrorCodeNothingToRevert, "no completions to revert for %q", h.Name)
	}
	return s.revert(ctx, u.ID, h.Name, *l)
}

// RevertByLogID implements domain.EnginePort, undoing a specific log
func (s *Service) RevertByLogID(ctx context.Context, userID, logID int64) (domain.RevertResult, error) {
	u, err := s.activeUserByID(ctx, userID)
	if err != nil {
		return domain.RevertResult{}, err
	}
	l, err := s.Logs.Bind(s.DB).ByID(ctx, logID)
	if err != nil {
		return domain.RevertResult{}, err
	}
	if l.UserID != u.ID {
		return domain.RevertResult{}, perr.NotOwnerf("log %d belongs to another user", logID)
	}
	h, err := s.Habits.ByID(ctx, u.ID, l.HabitID)
	if err != nil {
		return domain.RevertResult{}, err
	}
	return s.revert(ctx, u.ID, h.Name, l)
}

// revert deletes the log and rolls back reward progress in one transaction.
// Later streak counts are intentionally left untouched
func (s *Service) revert(ctx context.Context, userID int64, habitName string, l domain.Log) (domain.RevertResult, error) {
	var progress *rewardsdomain.Progress
	err := repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		if err := s.Logs.Bind(q).Delete(ctx, l.ID); err != nil {
			return err
		}
		if l.GotReward && l.RewardID != nil {
			p, err := s.Rewards.Bind(q).DecrementPieces(ctx, userID, *l.RewardID)
			if err != nil {
				return err
			}
			progress = p
		}
		return nil
	})
	if err != nil {
		return domain.RevertResult{}, err
	}

	res := domain.RevertResult{
		Success:        true,
		HabitName:      habitName,
		RewardReverted: progress != nil,
		Progress:       progress,
	}
	if l.RewardID != nil {
		if r, err := s.Rewards.Bind(s.DB).ByID(ctx, *l.RewardID); err == nil {
			res.RewardName = &r.Name
		}
	}
	s.auditReverted(ctx, userID, l, res)
	return res, nil
}

// List implements domain.LogReaderPort. A habit filter is ownership-checked
func (s *Service) List(ctx context.Context, userID int64, f domain.ListFilter) ([]domain.Log, error) {
	if f.HabitID != 0 {
		if _, err := s.Habits.ByID(ctx, userID, f.HabitID); err != nil {
			return nil, err
		}
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return s.Logs.Bind(s.DB).List(ctx, userID, f)
}

func (s *Service) activeUserByTelegramID(ctx context.Context, telegramID int64) (usersdomain.User, error) {
	u, err := s.Users.ByTelegramID(ctx, telegramID)
	if err != nil {
		return usersdomain.User{}, err
	}
	return requireActive(u)
}

func (s *Service) activeUserByID(ctx context.Context, userID int64) (usersdomain.User, error) {
	u, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return usersdomain.User{}, err
	}
	return requireActive(u)
}

func requireActive(u usersdomain.User) (usersdomain.User, error) {
	if !u.Active {
		return usersdomain.User{}, perr.Newf(perr.ErrorCodeUserInactive, "user is deactivated")
	}
	return u, nil
}

func (s *Service) auditCompleted(ctx context.Context, userID int64, h habitsdomain.Habit, l domain.Log, reward rewardsdomain.Reward, progress *rewardsdomain.Progress) {
	payload := map[string]any{
		"habit_name":   h.Name,
		"streak":       l.StreakCount,
		"total_weight": l.TotalWeight,
	}
	if l.GotReward {
		payload["selected_reward_name"] = reward.Name
	}
	if progress != nil {
		payload["reward_progress"] = map[string]any{
			"pieces_earned":   progress.PiecesEarned,
			"pieces_required": progress.PiecesRequired,
			"claimed":         progress.Claimed,
		}
	}
	s.Audit.Log(ctx, auditdomain.Record{
		UserID:   userID,
		Kind:     auditdomain.KindHabitCompleted,
		HabitID:  &h.ID,
		RewardID: l.RewardID,
		LogID:    &l.ID,
		Payload:  payload,
	})
}

func (s *Service) auditReverted(ctx context.Context, userID int64, l domain.Log, res domain.RevertResult) {
	payload := map[string]any{
		"habit_name":      res.HabitName,
		"reward_reverted": res.RewardReverted,
	}
	if res.Progress != nil {
		payload["pieces_earned_before"] = res.Progress.PiecesEarned + 1
		payload["reward_progress"] = map[string]any{
			"pieces_earned":   res.Progress.PiecesEarned,
			"pieces_required": res.Progress.PiecesRequired,
		}
	}
	s.Audit.Log(ctx, auditdomain.Record{
		UserID:   userID,
		Kind:     auditdomain.KindHabitReverted,
		HabitID:  &l.HabitID,
		RewardID: l.RewardID,
		LogID:    &l.ID,
		Payload:  payload,
	})
}
