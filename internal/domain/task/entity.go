// Package task contains the Task entity. A task belongs to one user and moves
// once from pending to completed.
package task

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/pkg/timeutil"
)

const (
	// DefaultPoints is the reward when none is given.
	DefaultPoints = 10

	// Lengths are in characters, matching the VARCHAR columns.
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// Task is a unit of work a user can complete for points.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	DueDate     *time.Time

	// Completed never reverts; CompletionDate is set together with it.
	Completed      bool
	CompletionDate *time.Time

	Points    int
	CreatedAt time.Time
}

// NewTask creates a pending task. Zero points means DefaultPoints.
func NewTask(userID, title, description string, dueDate *time.Time, points int, now time.Time) (*Task, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	switch {
	case userID == "":
		return nil, shared.Validation("task", "Create", "owner is required")
	case title == "":
		return nil, shared.Validation("task", "Create", "title is required")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return nil, shared.Validation("task", "Create", "title is too long")
	case utf8.RuneCountInString(description) > MaxDescriptionLength:
		return nil, shared.Validation("task", "Create", "description is too long")
	case points < 0:
		return nil, shared.ErrInvalidPoints
	}

	if points == 0 {
		points = DefaultPoints
	}

	return &Task{
		ID:          shared.NewID(),
		UserID:      userID,
		Title:       title,
		Description: description,
		DueDate:     dueDate,
		Points:      points,
		CreatedAt:   now,
	}, nil
}

// ParseDueDate parses a YYYY-MM-DD due date in loc. An empty string means
// no due date.
func ParseDueDate(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := timeutil.ParseDate(raw, loc)
	if err != nil {
		return nil, shared.WrapError("task", "ParseDueDate", shared.ErrValidation, "due date must be YYYY-MM-DD", err)
	}
	return &d, nil
}

// IsOwnedBy reports whether userID owns the task.
func (t *Task) IsOwnedBy(userID string) bool {
	return userID != "" && t.UserID == userID
}

// Complete marks the task completed at at. It returns false, changing
// nothing, when the task was already completed.
func (t *Task) Complete(at time.Time) bool {
	if t.Completed {
		return false
	}
	t.Completed = true
	done := at
	t.CompletionDate = &done
	return true
}

// IsOverdue reports whether a pending task's due date lies before now's date.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.Completed || t.DueDate == nil {
		return false
	}
	return timeutil.DaysBetween(*t.DueDate, now) > 0
}
