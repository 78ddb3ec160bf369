package domain

import "context"

// ReaderPort resolves users for other modules
type ReaderPort interface {
	ByID(ctx context.Context, id int64) (User, error)
	ByTelegramID(ctx context.Context, telegramID int64) (User, error)
}

// WriterPort mutates user profiles
type WriterPort interface {
	UpdateProfile(ctx context.Context, userID int64, patch ProfilePatch) (User, error)
	Register(ctx context.Context, telegramID int64, name, language string) (User, error)
}
