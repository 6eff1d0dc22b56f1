package task

import "context"

// Repository stores tasks.
type Repository interface {
	Create(ctx context.Context, t *Task) error

	// GetByID returns ErrTaskNotFound when absent.
	GetByID(ctx context.Context, id string) (*Task, error)

	// GetForUpdate is GetByID that also locks the row until the enclosing
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Task, error)

	// ListByOwner returns a user's tasks, newest first.
	ListByOwner(ctx context.Context, userID string) ([]*Task, error)

	// Update persists completion fields. Returns ErrTaskNotFound when absent.
	Update(ctx context.Context, t *Task) error
}
