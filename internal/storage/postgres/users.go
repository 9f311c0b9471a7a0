// Package postgres implements the user and tenant stores on pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/callcocam/gatekeeper/internal/storage"
	"github.com/callcocam/gatekeeper/pkg/guard"
	"github.com/callcocam/gatekeeper/pkg/pg"
	"github.com/callcocam/gatekeeper/pkg/rbac"
)

// UserStore implements guard.UserStore plus the store-level landlord and
// tenant filters, so provider lookups stay single queries.
type UserStore struct {
	pool       *pgxpool.Pool
	authorizer rbac.Authorizer
}

func NewUserStore(pool *pgxpool.Pool, authorizer rbac.Authorizer) *UserStore {
	return &UserStore{pool: pool, authorizer: authorizer}
}

const userColumns = `u.id, u.email, u.name, u.password_hash, u.is_landlord, u.roles, u.permissions,
	coalesce(array_agg(tu.tenant_id) FILTER (WHERE tu.tenant_id IS NOT NULL), '{}') AS tenant_ids`

const userFromClause = `FROM users u LEFT JOIN tenant_users tu ON tu.user_id = u.id`

func (s *UserStore) scanUser(ctx context.Context, where string, args ...any) (guard.User, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE %s GROUP BY u.id`, userColumns, userFromClause, where)

	var rec storage.UserRecord
	row := s.pool.QueryRow(ctx, query, args...)
	if err := row.Scan(&rec.ID, &rec.Email, &rec.Name, &rec.PasswordHash,
		&rec.IsLandlord, &rec.Roles, &rec.Permissions, &rec.TenantIDs); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, guard.ErrUserNotFound
		}
		return nil, fmt.Errorf("postgres: query user: %w", err)
	}
	return storage.NewUser(rec, s.authorizer), nil
}

func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (guard.User, error) {
	return s.scanUser(ctx, `u.id = $1`, id)
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (guard.User, error) {
	return s.scanUser(ctx, `lower(u.email) = lower($1)`, email)
}

// FindLandlordByEmail filters to landlord-capable users in the query.
func (s *UserStore) FindLandlordByEmail(ctx context.Context, email string) (guard.User, error) {
	return s.scanUser(ctx,
		`lower(u.email) = lower($1) AND (u.is_landlord OR u.roles && ARRAY['landlord','super-admin','admin'])`,
		email)
}

// FindByEmailInTenant filters to members of one tenant in the query.
func (s *UserStore) FindByEmailInTenant(ctx context.Context, email string, tenantID uuid.UUID) (guard.User, error) {
	return s.scanUser(ctx,
		`lower(u.email) = lower($1) AND EXISTS (
			SELECT 1 FROM tenant_users m WHERE m.user_id = u.id AND m.tenant_id = $2)`,
		email, tenantID)
}

// AddToTenant records a user's membership in a tenant.
func (s *UserStore) AddToTenant(ctx context.Context, userID, tenantID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenant_users (tenant_id, user_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`, tenantID, userID)
	if err != nil {
		return fmt.Errorf("postgres: add membership: %w", err)
	}
	return nil
}

// Create inserts a user and its memberships.
func (s *UserStore) Create(ctx context.Context, rec storage.UserRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, email, name, password_hash, is_landlord, roles, permissions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Email, rec.Name, rec.PasswordHash, rec.IsLandlord, rec.Roles, rec.Permissions)
	if err != nil {
		return fmt.Errorf("postgres: insert user: %w", err)
	}
	for _, tenantID := range rec.TenantIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO tenant_users (tenant_id, user_id) VALUES ($1, $2)`,
			tenantID, rec.ID); err != nil {
			return fmt.Errorf("postgres: insert membership: %w", err)
		}
	}
	return tx.Commit(ctx)
}
