package command

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskquest/taskquest/internal/application/port"
	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/internal/domain/task"
	"github.com/taskquest/taskquest/pkg/logger"
	"github.com/taskquest/taskquest/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD TASK COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// AddTaskCommand creates a pending task for UserID.
type AddTaskCommand struct {
	UserID      string `validate:"required"`
	Title       string `validate:"required,max=100"`
	Description string `validate:"max=500"`

	// DueDate is YYYY-MM-DD or empty.
	DueDate string

	// Points defaults to task.DefaultPoints when zero.
	Points int `validate:"gte=0"`
}

// AddTaskHandler handles the AddTaskCommand.
type AddTaskHandler struct {
	uow       port.UnitOfWork
	clock     timeutil.Clock
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewAddTaskHandler creates a new AddTaskHandler.
func NewAddTaskHandler(uow port.UnitOfWork, clock timeutil.Clock, publisher shared.EventPublisher, log *zap.Logger) *AddTaskHandler {
	if clock == nil {
		clock = timeutil.SystemClock(time.UTC)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AddTaskHandler{
		uow:       uow,
		clock:     clock,
		publisher: publisher,
		logger:    log.With(logger.Component("add_task")),
	}
}

// Handle executes the add task command. Nothing is stored when any input is
// invalid.
func (h *AddTaskHandler) Handle(ctx context.Context, cmd AddTaskCommand) (*task.Task, error) {
	if err := validateCommand("task", "Create", cmd); err != nil {
		return nil, err
	}

	now := h.clock()
	due, err := task.ParseDueDate(cmd.DueDate, now.Location())
	if err != nil {
		return nil, err
	}

	t, err := task.NewTask(cmd.UserID, cmd.Title, cmd.Description, due, cmd.Points, now)
	if err != nil {
		return nil, err
	}

	err = h.uow.Do(ctx, func(ctx context.Context, r port.Repos) error {
		if _, err := r.Users.GetByID(ctx, cmd.UserID); err != nil {
			return err
		}
		return r.Tasks.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	h.logger.Debug("task added", logger.TaskID(t.ID), logger.UserID(t.UserID), logger.Points(t.Points))
	publishAll(h.publisher, h.logger, []shared.Event{shared.NewTaskCreatedEvent(t.UserID, t.ID, t.Points, now)})

	return t, nil
}
