// Package domain defines the types and interfaces for the rewards service
package domain

import "time"

// Reward types
const (
	TypeRegular = "regular"
	TypeNone    = "none"
)

// Progress statuses derived from the accumulator
const (
	StatusPending  = "PENDING"
	StatusAchieved = "ACHIEVED"
	StatusClaimed  = "CLAIMED"
)

// SentinelNoneID marks the in-memory "none" reward, it is never persisted
const SentinelNoneID int64 = 0

// Reward is a prize the user can draw
type Reward struct {
	ID             int64
	UserID         int64
	Name           string
	Type           string
	Weight         float64
	PiecesRequired int
	PieceValue     *float64
	MaxDailyClaims *int
	Active         bool
	CreatedAt      time.Time
}

// IsNone reports whether the reward never credits progress
func (r Reward) IsNone() bool { return r.Type == TypeNone || r.ID == SentinelNoneID }

// SentinelNone is the in-memory reward returned when no eligible reward exists
func SentinelNone() Reward {
	return Reward{ID: SentinelNoneID, Name: "none", Type: TypeNone, Weight: 1.0, PiecesRequired: 1}
}

// Progress is the per-user-per-reward accumulator. PiecesRequired is cached
// from the reward at load time so status derivation never refetches
type Progress struct {
	ID             int64
	UserID         int64
	RewardID       int64
	PiecesEarned   int
	Claimed        bool
	PiecesRequired int
}

// Status derives the progress state
func (p Progress) Status() string {
	switch {
	case p.Claimed:
		return StatusClaimed
	case p.PiecesEarned >= p.PiecesRequired:
		return StatusAchieved
	default:
		return StatusPending
	}
}

// CreateInput carries the fields for a new reward
type CreateInput struct {
	Name           string
	Type           string
	Weight         float64
	PiecesRequired int
	PieceValue     *float64
	MaxDailyClaims *int
}

// ListFilter narrows reward listings
type ListFilter struct {
	Type   string
	Status string
}

// WithProgress pairs a reward with its accumulator for listings
type WithProgress struct {
	Reward   Reward
	Progress *Progress
}
