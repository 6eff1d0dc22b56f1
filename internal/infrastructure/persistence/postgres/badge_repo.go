package postgres

import (
	"context"

	"github.com/taskquest/taskquest/internal/domain/badge"
	"github.com/taskquest/taskquest/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// BadgeRepository implements badge.Repository for PostgreSQL.
type BadgeRepository struct {
	q Querier
}

var _ badge.Repository = (*BadgeRepository)(nil)

// ListDefinitions returns the full catalog.
func (r *BadgeRepository) ListDefinitions(ctx context.Context) ([]*badge.Badge, error) {
	query := `
		SELECT id, name, description, requirement, kind
		FROM badges
		ORDER BY kind, requirement, name
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, translateError("badge", "ListDefinitions", err)
	}
	defer rows.Close()

	var defs []*badge.Badge
	for rows.Next() {
		var (
			b    badge.Badge
			kind string
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Requirement, &kind); err != nil {
			return nil, translateError("badge", "ListDefinitions", err)
		}
		b.Kind = badge.Kind(kind)
		defs = append(defs, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("badge", "ListDefinitions", err)
	}
	return defs, nil
}

// GetByName returns a definition by name.
func (r *BadgeRepository) GetByName(ctx context.Context, name string) (*badge.Badge, error) {
	query := `SELECT id, name, description, requirement, kind FROM badges WHERE name = $1`

	var (
		b    badge.Badge
		kind string
	)
	err := r.q.QueryRow(ctx, query, name).Scan(&b.ID, &b.Name, &b.Description, &b.Requirement, &kind)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrBadgeNotFound
		}
		return nil, translateError("badge", "GetByName", err)
	}
	b.Kind = badge.Kind(kind)
	return &b, nil
}

// CreateDefinition creates a badge definition unless the name is taken.
// The conflict is absorbed by the insert so the surrounding transaction
// stays usable when a concurrent seeder wins the race.
func (r *BadgeRepository) CreateDefinition(ctx context.Context, b *badge.Badge) (bool, error) {
	query := `
		INSERT INTO badges (id, name, description, requirement, kind)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, query, b.ID, b.Name, b.Description, b.Requirement, string(b.Kind))
	if err != nil {
		return false, translateError("badge", "CreateDefinition", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListEarned returns the facts for one user, oldest first.
func (r *BadgeRepository) ListEarned(ctx context.Context, userID string) ([]*badge.UserBadge, error) {
	query := `
		SELECT id, user_id, badge_id, earned_at
		FROM user_badges
		WHERE user_id = $1
		ORDER BY earned_at, id
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, translateError("badge", "ListEarned", err)
	}
	defer rows.Close()

	var earned []*badge.UserBadge
	for rows.Next() {
		var ub badge.UserBadge
		if err := rows.Scan(&ub.ID, &ub.UserID, &ub.BadgeID, &ub.EarnedAt); err != nil {
			return nil, translateError("badge", "ListEarned", err)
		}
		earned = append(earned, &ub)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("badge", "ListEarned", err)
	}
	return earned, nil
}

// Award stores the fact unless the pair already exists.
func (r *BadgeRepository) Award(ctx context.Context, ub *badge.UserBadge) (bool, error) {
	query := `
		INSERT INTO user_badges (id, user_id, badge_id, earned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`

	result, err := r.q.Exec(ctx, query, ub.ID, ub.UserID, ub.BadgeID, ub.EarnedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return false, shared.ErrBadgeNotFound
		}
		return false, translateError("badge", "Award", err)
	}
	return result.RowsAffected() == 1, nil
}
