// Package domain defines the types and interfaces for the completion service
package domain

import (
	"context"
	"time"

	rewardsdomain "habitreward/internal/services/rewards/domain"
)

// Log is one immutable completion record. Inserted by the completion engine,
// deleted only by the revert engine
type Log struct {
	ID                int64
	UserID            int64
	HabitID           int64
	RewardID          *int64
	GotReward         bool
	StreakCount       int
	HabitWeight       int
	TotalWeight       float64
	LastCompletedDate time.Time
	Timestamp         time.Time
}

// CompletionResult is the outcome of a processed completion
type CompletionResult struct {
	HabitConfirmed bool
	HabitName      string
	Streak         int
	GotReward      bool
	TotalWeight    float64
	Reward         *rewardsdomain.Reward
	Progress       *rewardsdomain.Progress
}

// RevertResult is the outcome of a reverted completion
type RevertResult struct {
	Success        bool
	HabitName      string
	RewardReverted bool
	RewardName     *string
	Progress       *rewardsdomain.Progress
}

// BatchItem is one entry of a batch completion request
type BatchItem struct {
	HabitID    int64
	TargetDate *time.Time
}

// BatchError pairs a failed batch entry with its error code and message
type BatchError struct {
	HabitID int64
	Code    string
	Message string
}

// BatchResult carries per-item outcomes of a batch completion
type BatchResult struct {
	Results []CompletionResult
	Errors  []BatchError
}

// ListFilter narrows log listings
type ListFilter struct {
	HabitID   int64
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// EnginePort is the completion and revert surface consumed by REST and the
// chat webhook
type EnginePort interface {
	ProcessCompletion(ctx context.Context, telegramID int64, habitName string, targetDate *time.Time, timezone string) (CompletionResult, error)
	CompleteByID(ctx context.Context, userID, habitID int64, targetDate *time.Time) (CompletionResult, error)
	BatchComplete(ctx context.Context, userID int64, items []BatchItem) (BatchResult, error)
	RevertLatest(ctx context.Context, telegramID int64, habitID int64) (RevertResult, error)
	RevertByLogID(ctx context.Context, userID, logID int64) (RevertResult, error)
}

// LogReaderPort lists completion logs
type LogReaderPort interface {
	List(ctx context.Context, userID int64, f ListFilter) ([]Log, error)
}
