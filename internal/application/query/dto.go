// Package query contains read operations (CQRS - Queries).
package query

import (
	"time"

	"github.com/taskquest/taskquest/internal/domain/badge"
	"github.com/taskquest/taskquest/internal/domain/task"
	"github.com/taskquest/taskquest/internal/domain/user"
	"github.com/taskquest/taskquest/pkg/timeutil"
)

// UserDTO is the public view of a user. It never carries the password hash.
type UserDTO struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Points       int        `json:"points"`
	Level        int        `json:"level"`
	Streak       int        `json:"streak"`
	LastTaskDate *time.Time `json:"last_task_date"`
}

// NewUserDTO converts a user.
func NewUserDTO(u *user.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Username:     u.Username,
		Points:       u.Points,
		Level:        u.Level,
		Streak:       u.Streak,
		LastTaskDate: u.LastTaskDate,
	}
}

// TaskDTO is the public view of a task.
type TaskDTO struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	DueDate        string     `json:"due_date,omitempty"`
	Points         int        `json:"points"`
	Completed      bool       `json:"completed"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	Overdue        bool       `json:"overdue"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewTaskDTO converts a task; now decides whether it is overdue.
func NewTaskDTO(t *task.Task, now time.Time) TaskDTO {
	dto := TaskDTO{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Points:         t.Points,
		Completed:      t.Completed,
		CompletionDate: t.CompletionDate,
		Overdue:        t.IsOverdue(now),
		CreatedAt:      t.CreatedAt,
	}
	if t.DueDate != nil {
		dto.DueDate = timeutil.FormatDateStr(*t.DueDate)
	}
	return dto
}

// BadgeDTO is a badge definition.
type BadgeDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	Requirement int    `json:"requirement"`
}

// NewBadgeDTO converts a badge definition.
func NewBadgeDTO(b *badge.Badge) BadgeDTO {
	return BadgeDTO{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		Kind:        string(b.Kind),
		Requirement: b.Requirement,
	}
}

// EarnedBadgeDTO is a badge a user owns.
type EarnedBadgeDTO struct {
	BadgeDTO
	EarnedAt time.Time `json:"earned_at"`
}
