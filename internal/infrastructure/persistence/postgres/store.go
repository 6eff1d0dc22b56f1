package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/taskquest/taskquest/internal/application/port"
)

// Store is the PostgreSQL unit of work. Each Do runs in one read-committed
// transaction; rows read for update are locked with SELECT ... FOR UPDATE
// until the transaction ends.
type Store struct {
	conn *Connection
}

var _ port.UnitOfWork = (*Store)(nil)

// NewStore creates a Store over conn.
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn}
}

// Do implements port.UnitOfWork.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, r port.Repos) error) error {
	if timeout := s.conn.config.QueryTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(ctx, reposFor(tx))
	})
	return translateError("store", "Do", err)
}

// Ping implements the health check contract.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func reposFor(q Querier) port.Repos {
	return port.Repos{
		Users:  &UserRepository{q: q},
		Tasks:  &TaskRepository{q: q},
		Badges: &BadgeRepository{q: q},
	}
}
