// Package domain defines the types and interfaces for the streaks service
package domain

import (
	"context"
	"time"
)

// LogRef is the slice of a habit log the streak math needs
type LogRef struct {
	Date   time.Time
	Streak int
}

// HabitStreak is one row of the per-user streak overview
type HabitStreak struct {
	HabitID       int64
	HabitName     string
	CurrentStreak int
	LastCompleted *time.Time
}

// Summary is the detailed view for a single habit
type Summary struct {
	CurrentStreak int
	LongestStreak int
	LastCompleted *time.Time
}

// ReaderPort computes streaks for other modules
type ReaderPort interface {
	StreakFor(ctx context.Context, userID, habitID int64, target time.Time) (int, error)
	CurrentStreak(ctx context.Context, userID, habitID int64) (int, error)
	Summary(ctx context.Context, userID, habitID int64) (Summary, error)
	Overview(ctx context.Context, userID int64) ([]HabitStreak, error)
}
