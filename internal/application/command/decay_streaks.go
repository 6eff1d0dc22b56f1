package command

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskquest/taskquest/internal/application/port"
	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/pkg/logger"
	"github.com/taskquest/taskquest/pkg/timeutil"
)

// DecayStreaksResult summarizes one sweep.
type DecayStreaksResult struct {
	Candidates int
	Reset      int
	Failed     int
}

// DecayStreaksHandler zeroes the streaks of users who skipped a calendar day,
// the same rule the dashboard applies on read. Each user is handled in its
// own unit of work so one failure does not block the rest.
type DecayStreaksHandler struct {
	uow       port.UnitOfWork
	clock     timeutil.Clock
	publisher shared.EventPublisher
	logger    *zap.Logger
	enabled   func(userID string) bool
}

// NewDecayStreaksHandler creates a new DecayStreaksHandler. A nil enabled
// func decays every user.
func NewDecayStreaksHandler(
	uow port.UnitOfWork,
	clock timeutil.Clock,
	publisher shared.EventPublisher,
	log *zap.Logger,
	enabled func(userID string) bool,
) *DecayStreaksHandler {
	if clock == nil {
		clock = timeutil.SystemClock(time.UTC)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DecayStreaksHandler{
		uow:       uow,
		clock:     clock,
		publisher: publisher,
		logger:    log.With(logger.Component("decay_streaks")),
		enabled:   enabled,
	}
}

// Handle runs one sweep.
func (h *DecayStreaksHandler) Handle(ctx context.Context) (*DecayStreaksResult, error) {
	now := h.clock()
	cutoff := timeutil.StartOfDay(now).AddDate(0, 0, -1)

	var ids []string
	err := h.uow.Do(ctx, func(ctx context.Context, r port.Repos) error {
		var err error
		ids, err = r.Users.ListLapsedStreaks(ctx, cutoff)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &DecayStreaksResult{Candidates: len(ids)}
	var events []shared.Event

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if h.enabled != nil && !h.enabled(id) {
			continue
		}

		var (
			previous int
			changed  bool
		)
		err := h.uow.Do(ctx, func(ctx context.Context, r port.Repos) error {
			u, err := r.Users.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			previous, changed = u.ApplyDecay(now)
			if !changed {
				return nil
			}
			return r.Users.Update(ctx, u)
		})
		if err != nil {
			res.Failed++
			h.logger.Warn("streak decay failed", logger.UserID(id), zap.Error(err))
			continue
		}
		if changed {
			res.Reset++
			events = append(events, shared.NewStreakResetEvent(id, previous, shared.StreakResetOnDecay, now))
		}
	}

	publishAll(h.publisher, h.logger, events)

	h.logger.Info("streak decay sweep finished",
		zap.Int("candidates", res.Candidates),
		zap.Int("reset", res.Reset),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
