package domain

import "context"

// ReaderPort resolves habits for other modules
type ReaderPort interface {
	ByID(ctx context.Context, userID, habitID int64) (Habit, error)
	ActiveByName(ctx context.Context, userID int64, name string) (Habit, error)
	List(ctx context.Context, userID int64, f ListFilter) ([]Habit, error)
}

// WriterPort mutates habits
type WriterPort interface {
	Create(ctx context.Context, userID int64, in CreateInput) (Habit, error)
	Update(ctx context.Context, userID, habitID int64, patch Patch) (Habit, error)
	SoftDelete(ctx context.Context, userID, habitID int64) error
}
