package domain

import "context"

// ReaderPort resolves rewards for other modules
type ReaderPort interface {
	ByID(ctx context.Context, userID, rewardID int64) (Reward, error)
	ActiveForUser(ctx context.Context, userID int64) ([]Reward, error)
	List(ctx context.Context, userID int64, f ListFilter) ([]WithProgress, error)
}

// WriterPort mutates rewards
type WriterPort interface {
	Create(ctx context.Context, userID int64, in CreateInput) (Reward, error)
}

// ProgressPort is the cumulative-progress tracker used by the completion
// and revert engines. Increment and Decrement are called inside the caller's
// transaction through a bound repository, this port is the out-of-tx form
type ProgressPort interface {
	ProgressFor(ctx context.Context, userID, rewardID int64) (*Progress, error)
	MarkClaimed(ctx context.Context, userID, rewardID int64) (Progress, error)
}
