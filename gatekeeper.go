package gatekeeper

import (
	"log/slog"
	"net/http"
	"time"

	authapi "github.com/callcocam/gatekeeper/modules/gatekeeper"

	"github.com/callcocam/gatekeeper/pkg/audit"
	"github.com/callcocam/gatekeeper/pkg/guard"
	"github.com/callcocam/gatekeeper/pkg/logger"
	"github.com/callcocam/gatekeeper/pkg/session"
	"github.com/callcocam/gatekeeper/pkg/tenant"
	"github.com/callcocam/gatekeeper/pkg/throttle"
)

const defaultStatsTTL = 5 * time.Minute

// Dependencies are the application-provided backends the facade wires
// together. Users and Tenants are required.
type Dependencies struct {
	Users   guard.UserStore
	Tenants tenant.Provider

	// TenantLister lets globally privileged landlords enumerate every
	// active tenant. Optional; without it the accessible set is derived
	// from grants and memberships.
	TenantLister guard.TenantLister

	// SessionStore defaults to an in-memory store.
	SessionStore session.Store

	// ThrottleStore backs the login attempt limiter. Defaults to an
	// in-memory store when throttling is enabled.
	ThrottleStore throttle.Store

	Logger *slog.Logger
	Audit  audit.Logger
}

// Gatekeeper bundles the session manager, both guards, and the
// orchestrator behind a single constructor.
type Gatekeeper struct {
	cfg      Config
	sessions *session.Manager
	auth     *guard.Orchestrator
	tenants  tenant.Provider
	limiter  *throttle.Limiter
	log      *slog.Logger
}

// New wires a complete authentication stack from configuration and the
// application's storage backends.
func New(cfg Config, deps Dependencies) *Gatekeeper {
	if deps.Users == nil {
		panic("gatekeeper: Dependencies.Users is required")
	}
	if deps.Tenants == nil {
		panic("gatekeeper: Dependencies.Tenants is required")
	}

	log := deps.Logger
	if log == nil {
		log = logger.Noop()
	}

	sessionOpts := []session.Option{session.WithConfig(cfg.Session)}
	if deps.SessionStore != nil {
		sessionOpts = append(sessionOpts, session.WithStore(deps.SessionStore))
	}
	sessions := session.NewManager(sessionOpts...)

	guardOpts := []guard.GuardOption{
		guard.WithLogger(log),
		guard.WithPermissiveFallback(cfg.HTTP.PermissiveFallback),
	}
	if deps.Audit != nil {
		guardOpts = append(guardOpts, guard.WithAudit(deps.Audit))
	}
	if cfg.HTTP.StatsTTL > 0 {
		guardOpts = append(guardOpts, guard.WithStatsTTL(cfg.HTTP.StatsTTL))
	}

	providerOpts := []guard.ProviderOption{guard.WithProviderLogger(log)}

	landlordGuard := guard.NewLandlordGuard(
		guard.NewLandlordProvider(deps.Users, providerOpts...),
		sessions.Store(), deps.Tenants, guardOpts...)
	if deps.TenantLister != nil {
		landlordGuard = landlordGuard.WithTenantLister(deps.TenantLister)
	}

	tenantGuard := guard.NewTenantGuard(
		guard.NewTenantProvider(deps.Users, providerOpts...),
		sessions.Store(), deps.Tenants, guardOpts...)

	orchOpts := []guard.OrchestratorOption{
		guard.WithOrchestratorLogger(log),
		guard.WithOrchestratorPermissiveFallback(cfg.HTTP.PermissiveFallback),
	}
	if deps.Audit != nil {
		orchOpts = append(orchOpts, guard.WithOrchestratorAudit(deps.Audit))
	}

	var limiter *throttle.Limiter
	if cfg.Throttle.Attempts > 0 && cfg.Throttle.Window > 0 {
		store := deps.ThrottleStore
		if store == nil {
			store = throttle.NewMemoryStore()
		}
		var err error
		limiter, err = throttle.NewLimiter(store, cfg.Throttle)
		if err != nil {
			panic("gatekeeper: " + err.Error())
		}
	}

	return &Gatekeeper{
		cfg:      cfg,
		sessions: sessions,
		limiter:  limiter,
		auth: guard.NewOrchestrator(landlordGuard, tenantGuard,
			sessions.Store(), deps.Tenants, orchOpts...),
		tenants: deps.Tenants,
		log:     log,
	}
}

// Sessions exposes the session manager for custom routes.
func (g *Gatekeeper) Sessions() *session.Manager { return g.sessions }

// Auth exposes the guard orchestrator.
func (g *Gatekeeper) Auth() *guard.Orchestrator { return g.auth }

// Landlord is a shortcut to the landlord guard.
func (g *Gatekeeper) Landlord() *guard.LandlordGuard { return g.auth.Landlord() }

// Tenant is a shortcut to the tenant guard.
func (g *Gatekeeper) Tenant() *guard.TenantGuard { return g.auth.Tenant() }

// Resolver builds the tenant resolution chain from configuration.
func (g *Gatekeeper) Resolver() tenant.Resolver {
	return g.cfg.Resolution.resolver()
}

// TenantMiddleware resolves the request tenant and loads it into the
// request context. Caller options are applied after the configured cache
// settings and win on conflict.
func (g *Gatekeeper) TenantMiddleware(opts ...tenant.Option) func(http.Handler) http.Handler {
	base := make([]tenant.Option, 0, len(opts)+1)
	if g.cfg.Cache.Enabled {
		base = append(base, tenant.WithCacheTTL(g.cfg.Cache.TTL))
	} else {
		base = append(base, tenant.WithCache(tenant.NoopCache()))
	}
	base = append(base, opts...)
	return tenant.Middleware(g.Resolver(), g.tenants, base...)
}

// RequireLandlord gates a route group to verified landlord sessions.
func (g *Gatekeeper) RequireLandlord() func(http.Handler) http.Handler {
	return g.auth.RequireLandlord(g.cfg.HTTP.MiddlewareConfig())
}

// RequireTenant gates a route group to sessions authenticated for the
// resolved tenant.
func (g *Gatekeeper) RequireTenant() func(http.Handler) http.Handler {
	return g.auth.RequireTenant(g.cfg.HTTP.MiddlewareConfig())
}

// Handler mounts the full authentication API, including the session and
// tenant resolution pipeline. Mount it at the application root.
func (g *Gatekeeper) Handler() http.Handler {
	opts := []authapi.ServiceOption{authapi.WithServiceLogger(g.log)}
	if g.limiter != nil {
		opts = append(opts, authapi.WithLoginThrottle(g.limiter))
	}
	svc := authapi.NewService(g.cfg.HTTP, g.auth, g.sessions, opts...)
	return authapi.Router(authapi.RouterOptions{
		Auth:             svc,
		Sessions:         g.sessions,
		TenantResolution: g.TenantMiddleware(),
	})
}
