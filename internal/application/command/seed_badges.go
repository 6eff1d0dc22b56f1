package command

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskquest/taskquest/internal/application/port"
	"github.com/taskquest/taskquest/internal/domain/badge"
	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/pkg/logger"
)

// SeedBadgesHandler makes sure every catalog definition exists, matching by
// name. Running it again creates nothing.
type SeedBadgesHandler struct {
	uow    port.UnitOfWork
	logger *zap.Logger
}

// NewSeedBadgesHandler creates a new SeedBadgesHandler.
func NewSeedBadgesHandler(uow port.UnitOfWork, log *zap.Logger) *SeedBadgesHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SeedBadgesHandler{uow: uow, logger: log.With(logger.Component("seed_badges"))}
}

// Handle seeds catalog and returns how many definitions were created.
func (h *SeedBadgesHandler) Handle(ctx context.Context, catalog []badge.Definition) (int, error) {
	created := 0
	for _, def := range catalog {
		b, err := badge.NewBadge(def.Name, def.Description, def.Requirement, def.Kind)
		if err != nil {
			return created, err
		}

		err = h.uow.Do(ctx, func(ctx context.Context, r port.Repos) error {
			if _, err := r.Badges.GetByName(ctx, b.Name); err == nil {
				return nil
			} else if !shared.IsNotFound(err) {
				return err
			}
			// false means a concurrent seeder got there first.
			ok, err := r.Badges.CreateDefinition(ctx, b)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
			return nil
		})
		if err != nil {
			return created, err
		}
	}

	h.logger.Info("badge catalog seeded", zap.Int("created", created), zap.Int("catalog", len(catalog)))
	return created, nil
}
