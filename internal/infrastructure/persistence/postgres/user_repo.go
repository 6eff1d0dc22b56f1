package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	q Querier
}

var _ user.Repository = (*UserRepository)(nil)

const userColumns = `id, username, password_hash, points, level, streak, last_task_date, created_at, updated_at`

// Create creates a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.Exec(ctx, query,
		u.ID,
		u.Username,
		u.PasswordHash,
		u.Points,
		u.Level,
		u.Streak,
		u.LastTaskDate,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrUsernameTaken
		}
		return translateError("user", "Create", err)
	}
	return nil
}

// GetByID returns a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.q.QueryRow(ctx, query, id))
}

// GetForUpdate returns a user by ID and locks the row.
func (r *UserRepository) GetForUpdate(ctx context.Context, id string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return r.scanUser(r.q.QueryRow(ctx, query, id))
}

// GetByUsername returns a user by username, ignoring case.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1)`
	return r.scanUser(r.q.QueryRow(ctx, query, username))
}

// Update persists progression fields.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users SET
			points = $1,
			level = $2,
			streak = $3,
			last_task_date = $4,
			updated_at = $5
		WHERE id = $6
	`

	result, err := r.q.Exec(ctx, query,
		u.Points,
		u.Level,
		u.Streak,
		u.LastTaskDate,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		return translateError("user", "Update", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// ListLapsedStreaks returns candidates for the decay sweep.
func (r *UserRepository) ListLapsedStreaks(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `
		SELECT id FROM users
		WHERE streak > 0 AND last_task_date < $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, translateError("user", "ListLapsedStreaks", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, translateError("user", "ListLapsedStreaks", err)
	}
	return ids, nil
}

func (r *UserRepository) scanUser(row pgx.Row) (*user.User, error) {
	var (
		u    user.User
		last *time.Time
	)

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.Points,
		&u.Level,
		&u.Streak,
		&last,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, translateError("user", "Scan", err)
	}

	u.LastTaskDate = last
	return &u, nil
}
