package query

import (
	"context"
	"sort"
	"time"

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
// GET DASHBOARD QUERY
// The user's tasks, earned badges and progress. Reading the dashboard also
// clears a streak that lapsed since the last completion.
// ══════════════════════════════════════════════════════════════════════════════

// GetDashboardQuery identifies the user.
type GetDashboardQuery struct {
	UserID string
}

// DashboardDTO is the dashboard view.
type DashboardDTO struct {
	User              UserDTO          `json:"user"`
	Tasks             []TaskDTO        `json:"tasks"`
	Badges            []EarnedBadgeDTO `json:"badges"`
	ProgressBucket    int              `json:"progress_bucket"`
	PointsToNextLevel int              `json:"points_to_next_level"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// GetDashboardHandler handles the GetDashboardQuery.
type GetDashboardHandler struct {
	uow       port.UnitOfWork
	clock     timeutil.Clock
	publisher shared.EventPublisher
	logger    *zap.Logger

	// decay reports whether stale streaks are cleared for a user.
	// Nil means always.
	decay func(userID string) bool
}

// NewGetDashboardHandler creates a new GetDashboardHandler.
func NewGetDashboardHandler(
	uow port.UnitOfWork,
	clock timeutil.Clock,
	publisher shared.EventPublisher,
	log *zap.Logger,
	decay func(userID string) bool,
) *GetDashboardHandler {
	if clock == nil {
		clock = timeutil.SystemClock(time.UTC)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GetDashboardHandler{
		uow:       uow,
		clock:     clock,
		publisher: publisher,
		logger:    log.With(logger.Component("dashboard")),
		decay:     decay,
	}
}

// Handle executes the query.
func (h *GetDashboardHandler) Handle(ctx context.Context, q GetDashboardQuery) (*DashboardDTO, error) {
	if q.UserID == "" {
		return nil, shared.ErrUserNotFound
	}

	now := h.clock()
	applyDecay := h.decay == nil || h.decay(q.UserID)

	var (
		u          *user.User
		tasks      []*task.Task
		defs       []*badge.Badge
		earned     []*badge.UserBadge
		prevStreak int
		decayed    bool
	)

	err := h.uow.Do(ctx, func(ctx context.Context, r port.Repos) error {
		var err error
		if applyDecay {
			u, err = r.Users.GetForUpdate(ctx, q.UserID)
		} else {
			u, err = r.Users.GetByID(ctx, q.UserID)
		}
		if err != nil {
			return err
		}

		if applyDecay {
			prevStreak, decayed = u.ApplyDecay(now)
			if decayed {
				if err := r.Users.Update(ctx, u); err != nil {
					return err
				}
			}
		}

		if tasks, err = r.Tasks.ListByOwner(ctx, u.ID); err != nil {
			return err
		}
		if defs, err = r.Badges.ListDefinitions(ctx); err != nil {
			return err
		}
		earned, err = r.Badges.ListEarned(ctx, u.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if decayed {
		h.logger.Info("streak decayed", logger.UserID(u.ID), zap.Int("previous_streak", prevStreak))
		if h.publisher != nil {
			event := shared.NewStreakResetEvent(u.ID, prevStreak, shared.StreakResetOnDecay, now)
			if err := h.publisher.Publish(event); err != nil {
				h.logger.Warn("event publish failed", zap.Error(err))
			}
		}
	}

	return buildDashboard(u, tasks, defs, earned, now), nil
}

func buildDashboard(u *user.User, tasks []*task.Task, defs []*badge.Badge, earned []*badge.UserBadge, now time.Time) *DashboardDTO {
	dto := &DashboardDTO{
		User:              NewUserDTO(u),
		Tasks:             make([]TaskDTO, 0, len(tasks)),
		Badges:            make([]EarnedBadgeDTO, 0, len(earned)),
		ProgressBucket:    progression.ProgressBucket(u.Points),
		PointsToNextLevel: progression.PointsToNextLevel(u.Points),
		GeneratedAt:       now,
	}

	for _, t := range tasks {
		dto.Tasks = append(dto.Tasks, NewTaskDTO(t, now))
	}

	byID := make(map[string]*badge.Badge, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	for _, ub := range earned {
		def, ok := byID[ub.BadgeID]
		if !ok {
			continue
		}
		dto.Badges = append(dto.Badges, EarnedBadgeDTO{BadgeDTO: NewBadgeDTO(def), EarnedAt: ub.EarnedAt})
	}
	sort.SliceStable(dto.Badges, func(i, j int) bool {
		return dto.Badges[i].EarnedAt.Before(dto.Badges[j].EarnedAt)
	})

	return dto
}
