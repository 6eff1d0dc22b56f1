package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// TaskRepository implements task.Repository for PostgreSQL.
type TaskRepository struct {
	q Querier
}

var _ task.Repository = (*TaskRepository)(nil)

const taskColumns = `id, user_id, title, description, due_date, points, completed, completion_date, created_at`

// Create creates a new task.
func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.Exec(ctx, query,
		t.ID,
		t.UserID,
		t.Title,
		t.Description,
		t.DueDate,
		t.Points,
		t.Completed,
		t.CompletionDate,
		t.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrUserNotFound
		}
		return translateError("task", "Create", err)
	}
	return nil
}

// GetByID returns a task by ID.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return r.scanTask(r.q.QueryRow(ctx, query, id))
}

// GetForUpdate returns a task by ID and locks the row.
func (r *TaskRepository) GetForUpdate(ctx context.Context, id string) (*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 FOR UPDATE`
	return r.scanTask(r.q.QueryRow(ctx, query, id))
}

// ListByOwner returns a user's tasks, newest first.
func (r *TaskRepository) ListByOwner(ctx context.Context, userID string) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, translateError("task", "ListByOwner", err)
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("task", "ListByOwner", err)
	}
	return tasks, nil
}

// Update persists completion fields. Completion never reverts, so the
// statement only moves completed forward.
func (r *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	query := `
		UPDATE tasks SET
			completed = completed OR $1,
			completion_date = COALESCE(completion_date, $2)
		WHERE id = $3
	`

	result, err := r.q.Exec(ctx, query, t.Completed, t.CompletionDate, t.ID)
	if err != nil {
		return translateError("task", "Update", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t    task.Task
		due  *time.Time
		done *time.Time
	)

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&due,
		&t.Points,
		&t.Completed,
		&done,
		&t.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrTaskNotFound
		}
		return nil, translateError("task", "Scan", err)
	}

	t.DueDate = due
	t.CompletionDate = done
	return &t, nil
}
