package command

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskquest/taskquest/internal/application/port"
	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/internal/domain/user"
	"github.com/taskquest/taskquest/pkg/logger"
	"github.com/taskquest/taskquest/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand creates an account with zero progress.
type RegisterUserCommand struct {
	Username string `validate:"required,max=80"`

	// bcrypt only reads the first 72 bytes.
	Password string `validate:"required,min=6,max=72"`
}

// RegisterUserHandler handles the RegisterUserCommand.
type RegisterUserHandler struct {
	uow        port.UnitOfWork
	clock      timeutil.Clock
	publisher  shared.EventPublisher
	logger     *zap.Logger
	bcryptCost int
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(uow port.UnitOfWork, clock timeutil.Clock, publisher shared.EventPublisher, log *zap.Logger, bcryptCost int) *RegisterUserHandler {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if clock == nil {
		clock = timeutil.SystemClock(time.UTC)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RegisterUserHandler{
		uow:        uow,
		clock:      clock,
		publisher:  publisher,
		logger:     log.With(logger.Component("register_user")),
		bcryptCost: bcryptCost,
	}
}

// Handle executes the register user command.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*user.User, error) {
	if err := validateCommand("user", "Register", cmd); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), h.bcryptCost)
	if err != nil {
		return nil, shared.WrapError("user", "Register", shared.ErrValidation, "password cannot be used", err)
	}

	now := h.clock()
	u, err := user.NewUser(cmd.Username, string(hash), now)
	if err != nil {
		return nil, err
	}

	err = h.uow.Do(ctx, func(ctx context.Context, r port.Repos) error {
		if _, err := r.Users.GetByUsername(ctx, u.Username); err == nil {
			return shared.ErrUsernameTaken
		} else if !shared.IsNotFound(err) {
			return err
		}
		return r.Users.Create(ctx, u)
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("user registered", logger.UserID(u.ID), logger.Username(u.Username))
	publishAll(h.publisher, h.logger, []shared.Event{shared.NewUserRegisteredEvent(u.ID, u.Username, now)})

	return u, nil
}
