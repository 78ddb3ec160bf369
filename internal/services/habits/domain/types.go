// Package domain defines the types and interfaces for the habits service
package domain

import "time"

// Habit is a daily trackable behavior owned by one user
type Habit struct {
	ID              int64
	UserID          int64
	Name            string
	Weight          int
	Category        *string
	AllowedSkipDays int
	// ExemptWeekdays holds ISO weekday numbers 1=Mon..7=Sun that never count as misses
	ExemptWeekdays []int
	Active         bool
	CreatedAt      time.Time
}

// CreatedDate is the calendar date of the habit's creation, dates before it are not loggable
func (h Habit) CreatedDate() time.Time {
	y, m, d := h.CreatedAt.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CreateInput carries the fields for a new habit
type CreateInput struct {
	Name            string
	Weight          int
	Category        *string
	AllowedSkipDays int
	ExemptWeekdays  []int
}

// Patch carries partial habit updates. Nil leaves a field as is,
// ClearCategory nulls the category regardless of Category
type Patch struct {
	Name            *string
	Weight          *int
	Category        *string
	ClearCategory   bool
	AllowedSkipDays *int
	ExemptWeekdays  *[]int
	Active          *bool
}

// ListFilter narrows habit listings
type ListFilter struct {
	Active   *bool
	Category string
}
