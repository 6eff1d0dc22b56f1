package user

import (
	"context"
	"time"
)

// Repository stores users.
type Repository interface {
	// Create returns ErrUsernameTaken for a duplicate username.
	Create(ctx context.Context, u *User) error

	// GetByID returns ErrUserNotFound when absent.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetForUpdate is GetByID that also locks the row until the enclosing
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (*User, error)

	// GetByUsername returns ErrUserNotFound when absent.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Update persists progression fields. Returns ErrUserNotFound when absent.
	Update(ctx context.Context, u *User) error

	// ListLapsedStreaks returns the IDs of users with a positive streak whose
	// last completion is before cutoff, ordered by ID.
	ListLapsedStreaks(ctx context.Context, cutoff time.Time) ([]string, error)
}
