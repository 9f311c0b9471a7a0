package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/callcocam/gatekeeper/pkg/pg"
	"github.com/callcocam/gatekeeper/pkg/tenant"
)

// TenantStore implements tenant.Provider and guard.TenantLister.
type TenantStore struct {
	pool *pgxpool.Pool
}

func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{pool: pool}
}

const tenantColumns = `id, slug, domain, name, status, plan, max_users, max_storage_mb,
	expires_at, created_at, updated_at`

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var t tenant.Tenant
	if err := row.Scan(&t.ID, &t.Slug, &t.Domain, &t.Name, &t.Status, &t.Plan,
		&t.MaxUsers, &t.MaxStorageMB, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("postgres: scan tenant: %w", err)
	}
	return &t, nil
}

func (s *TenantStore) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM tenants WHERE id = $1`, tenantColumns), id)
	return scanTenant(row)
}

func (s *TenantStore) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM tenants WHERE slug = $1`, tenantColumns), slug)
	return scanTenant(row)
}

func (s *TenantStore) GetByDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM tenants WHERE lower(domain) = lower($1)`, tenantColumns), domain)
	return scanTenant(row)
}

func (s *TenantStore) ListActive(ctx context.Context) ([]*tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM tenants
		WHERE status = 'active' AND (expires_at IS NULL OR expires_at > now())
		ORDER BY name`, tenantColumns))
	if err != nil {
		return nil, fmt.Errorf("postgres: list tenants: %w", err)
	}
	defer rows.Close()

	var out []*tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create inserts a tenant.
func (s *TenantStore) Create(ctx context.Context, t *tenant.Tenant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenants (id, slug, domain, name, status, plan, max_users, max_storage_mb, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Slug, t.Domain, t.Name, t.Status, t.Plan, t.MaxUsers, t.MaxStorageMB, t.ExpiresAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("postgres: tenant slug or domain already taken: %w", err)
		}
		return fmt.Errorf("postgres: insert tenant: %w", err)
	}
	return nil
}

// UpdateStatus transitions a tenant's lifecycle status.
func (s *TenantStore) UpdateStatus(ctx context.Context, id uuid.UUID, status tenant.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenants SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("postgres: update tenant status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}
