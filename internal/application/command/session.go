package command

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskquest/taskquest/internal/application/port"
	"github.com/taskquest/taskquest/internal/domain/shared"
	"github.com/taskquest/taskquest/internal/domain/user"
	"github.com/taskquest/taskquest/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOGIN / LOGOUT COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// LoginCommand carries credentials.
type LoginCommand struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// LoginResult is an authenticated session.
type LoginResult struct {
	Token     string
	User      *user.User
	ExpiresIn time.Duration
}

// SessionHandler handles login, logout and token resolution.
type SessionHandler struct {
	uow      port.UnitOfWork
	sessions port.SessionStore
	ttl      time.Duration
	logger   *zap.Logger

	// Compared against when the username is unknown so both failure paths
	// cost one bcrypt comparison.
	dummyHash []byte
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(uow port.UnitOfWork, sessions port.SessionStore, ttl time.Duration, log *zap.Logger) *SessionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("taskquest-dummy-password"), bcrypt.MinCost)
	return &SessionHandler{
		uow:       uow,
		sessions:  sessions,
		ttl:       ttl,
		logger:    log.With(logger.Component("session")),
		dummyHash: dummy,
	}
}

// Login verifies credentials and opens a session. Unknown users and wrong
// passwords fail with the same error.
func (h *SessionHandler) Login(ctx context.Context, cmd LoginCommand) (*LoginResult, error) {
	if err := validateCommand("user", "Login", cmd); err != nil {
		return nil, err
	}

	var u *user.User
	err := h.uow.Do(ctx, func(ctx context.Context, r port.Repos) error {
		var err error
		u, err = r.Users.GetByUsername(ctx, strings.TrimSpace(cmd.Username))
		return err
	})
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}

	if u == nil {
		_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(cmd.Password))
		h.logger.Info("login rejected", logger.Username(cmd.Username), zap.String("reason", "unknown_user"))
		return nil, shared.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(cmd.Password)); err != nil {
		h.logger.Info("login rejected", logger.UserID(u.ID), zap.String("reason", "invalid_password"))
		return nil, shared.ErrInvalidCredentials
	}

	token, err := h.sessions.Create(ctx, u.ID, h.ttl)
	if err != nil {
		return nil, err
	}

	h.logger.Info("user logged in", logger.UserID(u.ID))
	return &LoginResult{Token: token, User: u, ExpiresIn: h.ttl}, nil
}

// Logout closes the session behind token.
func (h *SessionHandler) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return h.sessions.Delete(ctx, token)
}

// Resolve returns the user ID a token belongs to.
func (h *SessionHandler) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", shared.ErrSessionNotFound
	}
	return h.sessions.Resolve(ctx, token)
}
