package command

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/taskquest/taskquest/internal/application/port"
	"github.com/taskquest/taskquest/internal/domain/badge"
	"github.com/taskquest/taskquest/internal/domain/progression"
	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/internal/domain/task"
	"github.com/taskquest/taskquest/internal/domain/user"
	"github.com/taskquest/taskquest/pkg/logger"
	"github.com/taskquest/taskquest/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE TASK COMMAND
// Turns a task completion into progress: points, level, streak and badges,
// all committed in one transaction.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteTaskCommand identifies the task and the user acting on it.
type CompleteTaskCommand struct {
	TaskID string
	UserID string
}

// CompleteTaskResult is the state after the command.
type CompleteTaskResult struct {
	Task *task.Task
	User *user.User

	// NewBadges are the badges awarded by this completion only.
	NewBadges []*badge.Badge

	// AlreadyCompleted is set when the call was a no-op.
	AlreadyCompleted bool

	// Events were published after commit.
	Events []shared.Event
}

// CompleteTaskConfig tunes retries of lost store races.
type CompleteTaskConfig struct {
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// OneStreakPerDay selects the once-per-day streak rule for a user.
	// Nil keeps the literal rule where every completion increments.
	OneStreakPerDay func(userID string) bool
}

// DefaultCompleteTaskConfig returns default configuration.
func DefaultCompleteTaskConfig() CompleteTaskConfig {
	return CompleteTaskConfig{
		MaxRetries:     5,
		RetryBaseDelay: 20 * time.Millisecond,
		RetryMaxDelay:  500 * time.Millisecond,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CompleteTaskHandler handles the CompleteTaskCommand.
type CompleteTaskHandler struct {
	uow       port.UnitOfWork
	clock     timeutil.Clock
	publisher shared.EventPublisher
	observer  port.CompletionObserver
	logger    *zap.Logger
	config    CompleteTaskConfig
}

// NewCompleteTaskHandler creates a new CompleteTaskHandler. publisher,
// observer and log may be nil.
func NewCompleteTaskHandler(
	uow port.UnitOfWork,
	clock timeutil.Clock,
	publisher shared.EventPublisher,
	observer port.CompletionObserver,
	log *zap.Logger,
	config CompleteTaskConfig,
) *CompleteTaskHandler {
	if config.MaxRetries < 1 {
		config.MaxRetries = DefaultCompleteTaskConfig().MaxRetries
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = DefaultCompleteTaskConfig().RetryBaseDelay
	}
	if config.RetryMaxDelay < config.RetryBaseDelay {
		config.RetryMaxDelay = config.RetryBaseDelay
	}
	if clock == nil {
		clock = timeutil.SystemClock(time.UTC)
	}
	if observer == nil {
		observer = port.NopObserver{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &CompleteTaskHandler{
		uow:       uow,
		clock:     clock,
		publisher: publisher,
		observer:  observer,
		logger:    log.With(logger.Component("complete_task")),
		config:    config,
	}
}

// Handle executes the complete task command. Lost races against concurrent
// writers are retried with exponential backoff; when retries run out the
// error is transient (shared.ErrServiceUnavailable).
func (h *CompleteTaskHandler) Handle(ctx context.Context, cmd CompleteTaskCommand) (*CompleteTaskResult, error) {
	taskID, err := shared.ParseID(cmd.TaskID)
	if err != nil {
		return nil, shared.ErrTaskNotFound
	}

	start := time.Now()
	defer func() { h.observer.CompletionDuration(time.Since(start)) }()

	var (
		result   *CompleteTaskResult
		attempts int
	)
	operation := func() error {
		attempts++
		res, err := h.attempt(ctx, taskID, cmd.UserID)
		if err != nil {
			if shared.IsConflict(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = res
		return nil
	}

	notify := func(err error, wait time.Duration) {
		h.observer.CompletionConflict()
		h.logger.Warn("completion conflicted, retrying",
			logger.TaskID(taskID),
			logger.UserID(cmd.UserID),
			logger.Attempt(attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(operation, h.retryPolicy(ctx), notify); err != nil {
		if shared.IsConflict(err) {
			h.observer.CompletionConflict()
			return nil, shared.WrapError("task", "Complete", shared.ErrServiceUnavailable,
				"task completion is busy, try again", err)
		}
		return nil, err
	}

	h.publish(result.Events)

	if !result.AlreadyCompleted {
		h.logger.Info("task completed",
			logger.TaskID(result.Task.ID),
			logger.UserID(result.User.ID),
			logger.Points(result.User.Points),
			logger.Level(result.User.Level),
			logger.Streak(result.User.Streak),
			zap.Int("new_badges", len(result.NewBadges)),
		)
	}

	return result, nil
}

func (h *CompleteTaskHandler) retryPolicy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = h.config.RetryBaseDelay
	eb.MaxInterval = h.config.RetryMaxDelay
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(h.config.MaxRetries-1)), ctx)
}

// attempt runs one transactional try. The task row is locked before the
// user row in every code path that takes both.
func (h *CompleteTaskHandler) attempt(ctx context.Context, taskID, actingUserID string) (*CompleteTaskResult, error) {
	var result *CompleteTaskResult

	err := h.uow.Do(ctx, func(ctx context.Context, r port.Repos) error {
		t, err := r.Tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if !t.IsOwnedBy(actingUserID) {
			return shared.ErrTaskNotOwned
		}

		u, err := r.Users.GetForUpdate(ctx, t.UserID)
		if err != nil {
			return err
		}

		if t.Completed {
			result = &CompleteTaskResult{Task: t, User: u, AlreadyCompleted: true}
			return nil
		}

		now := h.clock()
		t.Complete(now)

		outcome, err := u.RecordCompletion(t.Points, now, h.streakRule(u.ID))
		if err != nil {
			return err
		}

		newBadges, err := awardBadges(ctx, r.Badges, u, now)
		if err != nil {
			return err
		}

		if err := r.Tasks.Update(ctx, t); err != nil {
			return err
		}
		if err := r.Users.Update(ctx, u); err != nil {
			return err
		}

		result = &CompleteTaskResult{
			Task:      t,
			User:      u,
			NewBadges: newBadges,
			Events:    completionEvents(t, u, outcome, newBadges, now),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *CompleteTaskHandler) streakRule(userID string) user.StreakRule {
	if h.config.OneStreakPerDay != nil && h.config.OneStreakPerDay(userID) {
		return progression.EvaluateStreakOncePerDay
	}
	return progression.EvaluateStreak
}

// awardBadges evaluates the catalog against the user's updated state and
// stores a fact for each newly earned badge.
func awardBadges(ctx context.Context, repo badge.Repository, u *user.User, at time.Time) ([]*badge.Badge, error) {
	defs, err := repo.ListDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	owned, err := repo.ListEarned(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	eligible := badge.Evaluate(badge.Progress{Points: u.Points, Streak: u.Streak}, defs, owned)

	awarded := make([]*badge.Badge, 0, len(eligible))
	for _, b := range eligible {
		created, err := repo.Award(ctx, badge.NewUserBadge(u.ID, b.ID, at))
		if err != nil {
			return nil, err
		}
		if created {
			awarded = append(awarded, b)
		}
	}
	return awarded, nil
}

func completionEvents(t *task.Task, u *user.User, out user.CompletionOutcome, badges []*badge.Badge, at time.Time) []shared.Event {
	events := []shared.Event{
		shared.NewTaskCompletedEvent(u.ID, t.ID, t.Points, at),
		shared.NewPointsAwardedEvent(u.ID, out.PointsAdded, u.Points, at),
	}
	if out.LeveledUp(u) {
		events = append(events, shared.NewLevelUpEvent(u.ID, out.PreviousLevel, u.Level, at))
	}
	if out.StreakReset {
		events = append(events, shared.NewStreakResetEvent(u.ID, out.PreviousStreak, shared.StreakResetOnCompletion, at))
	}
	if u.Streak != out.PreviousStreak {
		events = append(events, shared.NewStreakUpdatedEvent(u.ID, out.PreviousStreak, u.Streak, at))
	}
	for _, b := range badges {
		events = append(events, shared.NewBadgeEarnedEvent(u.ID, b.ID, b.Name, at))
	}
	return events
}

func (h *CompleteTaskHandler) publish(events []shared.Event) {
	publishAll(h.publisher, h.logger, events)
}

// publishAll delivers events after commit. Delivery failures are logged and
// never undo the committed state.
func publishAll(publisher shared.EventPublisher, log *zap.Logger, events []shared.Event) {
	if publisher == nil {
		return
	}
	for _, event := range events {
		if err := publisher.Publish(event); err != nil {
			log.Warn("event publish failed",
				zap.String("event_type", string(event.EventType())),
				zap.Error(err),
			)
		}
	}
}
