package gatekeeper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/callcocam/gatekeeper/internal/storage/postgres"
	"github.com/callcocam/gatekeeper/pkg/logger"
	"github.com/callcocam/gatekeeper/pkg/pg"
	"github.com/callcocam/gatekeeper/pkg/rbac"
	"github.com/callcocam/gatekeeper/pkg/redis"
	"github.com/callcocam/gatekeeper/pkg/session"
)

// PostgresBackend bundles the pgx-backed stores a production deployment
// plugs into Dependencies.
type PostgresBackend struct {
	Pool     *pgxpool.Pool
	Users    *postgres.UserStore
	Tenants  *postgres.TenantStore
	Sessions *session.PGStore
}

// Close releases the underlying connection pool.
func (b *PostgresBackend) Close() {
	b.Pool.Close()
}

// Dependencies returns the backend wired into the facade's dependency
// set. Sessions stay in Postgres too; override SessionStore afterwards
// to move them elsewhere.
func (b *PostgresBackend) Dependencies() Dependencies {
	return Dependencies{
		Users:        b.Users,
		Tenants:      b.Tenants,
		TenantLister: b.Tenants,
		SessionStore: b.Sessions,
	}
}

// OpenPostgres connects to Postgres, applies pending migrations and
// returns ready-to-use stores. The authorizer expands role names into
// effective permissions when users are loaded; pass nil to grant only
// direct permissions.
func OpenPostgres(ctx context.Context, cfg pg.Config, authorizer rbac.Authorizer, log *slog.Logger) (*PostgresBackend, error) {
	if log == nil {
		log = logger.Noop()
	}
	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gatekeeper: connect postgres: %w", err)
	}
	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
		pool.Close()
		return nil, fmt.Errorf("gatekeeper: migrate: %w", err)
	}
	return &PostgresBackend{
		Pool:     pool,
		Users:    postgres.NewUserStore(pool, authorizer),
		Tenants:  postgres.NewTenantStore(pool),
		Sessions: session.NewPGStore(pool),
	}, nil
}

// OpenRedisSessions connects to Redis and returns a session store for
// Dependencies.SessionStore. Deployments that keep identities in
// Postgres but want session reads off the primary use this.
func OpenRedisSessions(ctx context.Context, cfg redis.Config) (*session.RedisStore, error) {
	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gatekeeper: connect redis: %w", err)
	}
	return session.NewRedisStore(client, "gatekeeper"), nil
}
