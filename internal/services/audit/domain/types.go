// Package domain defines the types and interfaces for the audit service
package domain

import (
	"context"
	"time"
)

// Event kinds
const (
	KindCommand        = "command"
	KindHabitCompleted = "habit_completed"
	KindRewardClaimed  = "reward_claimed"
	KindHabitReverted  = "habit_completed_reverted"
	KindButtonClick    = "button_click"
	KindError          = "error"
)

// Entry is one append-only audit record
type Entry struct {
	ID           int64
	Timestamp    time.Time
	UserID       int64
	Kind         string
	HabitID      *int64
	RewardID     *int64
	LogID        *int64
	Payload      map[string]any
	ErrorMessage *string
}

// Record is the input for a new entry
type Record struct {
	UserID       int64
	Kind         string
	HabitID      *int64
	RewardID     *int64
	LogID        *int64
	Payload      map[string]any
	ErrorMessage *string
}

// TimelineFilter narrows timeline queries
type TimelineFilter struct {
	Kind   string
	Limit  int
	Offset int
}

// WriterPort appends audit entries. Log never fails the caller's operation,
// a write failure is logged and swallowed
type WriterPort interface {
	Log(ctx context.Context, rec Record)
}

// ReaderPort queries the trail
type ReaderPort interface {
	Timeline(ctx context.Context, userID int64, f TimelineFilter) ([]Entry, error)
	TraceReward(ctx context.Context, userID, rewardID int64) ([]Entry, error)
}

// SweeperPort removes entries past retention
type SweeperPort interface {
	Cleanup(ctx context.Context, retainDays int) (int64, error)
}
