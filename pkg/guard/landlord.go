package guard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/callcocam/gatekeeper/pkg/audit"
	"github.com/callcocam/gatekeeper/pkg/logger"
	"github.com/callcocam/gatekeeper/pkg/scope"
	"github.com/callcocam/gatekeeper/pkg/scopes"
	"github.com/callcocam/gatekeeper/pkg/session"
	"github.com/callcocam/gatekeeper/pkg/tenant"
)

// TenantLister enumerates active tenants for landlord-side listings.
type TenantLister interface {
	ListActive(ctx context.Context) ([]*tenant.Tenant, error)
}

// LandlordStats is the landlord dashboard summary.
type LandlordStats struct {
	UserID            uuid.UUID `json:"user_id"`
	AccessibleTenants int       `json:"accessible_tenants"`
	Impersonating     bool      `json:"impersonating"`
	DebugMode         bool      `json:"debug_mode"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// LandlordGuard authenticates operator-side users and drives tenant
// impersonation. It never grants tenant membership; an impersonating
// landlord stays a landlord.
type LandlordGuard struct {
	core    guardCore
	tenants tenant.Provider
	lister  TenantLister

	statsMu sync.Mutex
	stats   *ttlValue[LandlordStats]
}

func NewLandlordGuard(provider IdentityProvider, sessions session.Store, tenants tenant.Provider, opts ...GuardOption) *LandlordGuard {
	if tenants == nil {
		panic("guard: landlord guard requires a tenant provider")
	}
	return &LandlordGuard{
		core:    newGuardCore(ContextLandlord, SessionKeyLandlordUser, provider, sessions, opts),
		tenants: tenants,
	}
}

// WithTenantLister attaches a tenant enumerator used by
// GetAccessibleTenants for users with global authority.
func (g *LandlordGuard) WithTenantLister(lister TenantLister) *LandlordGuard {
	g.lister = lister
	return g
}

func (g *LandlordGuard) Kind() Context { return g.core.Kind() }

func (g *LandlordGuard) Check(sess *session.Session) bool { return g.core.Check(sess) }

func (g *LandlordGuard) UserID(sess *session.Session) (uuid.UUID, bool) {
	return g.core.UserID(sess)
}

func (g *LandlordGuard) User(ctx context.Context, sess *session.Session) (User, bool) {
	return g.core.User(ctx, sess)
}

// Attempt validates credentials and establishes the landlord context.
func (g *LandlordGuard) Attempt(ctx context.Context, sess *session.Session, creds Credentials) bool {
	_, email, _ := creds.Identifier()
	g.auditAttempt(ctx, sess, email)

	user, err := g.core.provider.RetrieveByCredentials(ctx, creds)
	if err != nil {
		g.auditLoginFailure(ctx, sess, email, err)
		return false
	}
	if !g.core.provider.ValidateCredentials(ctx, user, creds) {
		g.auditLoginFailure(ctx, sess, user.Email(), ErrUserNotFound)
		return false
	}

	g.login(ctx, sess, user)
	return true
}

// LoginByID establishes the landlord context for an already-verified
// user, as during a context switch. Authority is still re-checked
// through the provider.
func (g *LandlordGuard) LoginByID(ctx context.Context, sess *session.Session, id uuid.UUID) bool {
	user, err := g.core.provider.RetrieveByID(ctx, id)
	if err != nil {
		g.core.logger.WarnContext(ctx, "landlord login by id refused",
			logger.UserID(id.String()), logger.Error(err))
		return false
	}
	g.login(ctx, sess, user)
	return true
}

func (g *LandlordGuard) login(ctx context.Context, sess *session.Session, user User) {
	id := user.ID()
	sess.UserID = &id
	sess.Set(SessionKeyContext, string(ContextLandlord))
	sess.Set(SessionKeyLandlordUser, UserSnapshot{
		ID:         id,
		Name:       user.Name(),
		Email:      user.Email(),
		IsLandlord: true,
		LoginAt:    time.Now(),
	})
	// A fresh landlord login never inherits tenant state.
	sess.Delete(SessionKeyTenantUser)
	sess.Delete(SessionKeyCurrentTenant)
	sess.Delete(SessionKeyCurrentTenantID)
	sess.Delete(SessionKeyImpersonation)
	g.invalidateStats()
	g.core.save(ctx, sess)

	g.core.logger.InfoContext(ctx, "landlord login",
		logger.UserID(id.String()), logger.Email(user.Email()))
	_ = g.core.audit.Log(ctx, audit.ActionLogin,
		audit.WithActor(id.String(), user.Email()),
		audit.WithSession(sess.ID.String()),
		audit.WithMetadata("guard", string(ContextLandlord)))
}

// Logout tears down the landlord context. An active impersonation is
// stopped first so no tenant binding survives the logout.
func (g *LandlordGuard) Logout(ctx context.Context, sess *session.Session) bool {
	if !g.Check(sess) {
		return false
	}
	snap, _ := g.core.snapshot(sess)

	if g.Impersonating(sess) {
		g.StopTenantImpersonation(ctx, sess)
	}
	sess.Delete(SessionKeyDebugMode)
	g.core.clearOwn(sess)
	sess.UserID = nil
	g.invalidateStats()
	g.core.save(ctx, sess)

	_ = g.core.audit.Log(ctx, audit.ActionLogout,
		audit.WithActor(snap.ID.String(), snap.Email),
		audit.WithSession(sess.ID.String()),
		audit.WithMetadata("guard", string(ContextLandlord)))
	return true
}

// CanAccessTenant grants through global authority first, then an
// explicit tenant.{id}.access permission, then tenant membership.
func (g *LandlordGuard) CanAccessTenant(ctx context.Context, sess *session.Session, tenantID uuid.UUID) bool {
	user, ok := g.User(ctx, sess)
	if !ok {
		return false
	}
	return canAccessTenant(user, tenantID)
}

func canAccessTenant(user User, tenantID uuid.UUID) bool {
	if HasGlobalAuthority(user) {
		return true
	}
	if ph, ok := user.(PermissionHolder); ok {
		grant := scopes.TenantAccessScope(tenantID.String())
		if ph.HasPermission(grant) || scopes.HasScope(ph.Permissions(), grant) {
			return true
		}
	}
	if m, ok := user.(TenantMember); ok && m.BelongsToTenant(tenantID) {
		return true
	}
	return false
}

// ImpersonateTenant starts viewing a tenant as the landlord. All
// validation happens before any session write, so a refused call leaves
// the session untouched.
func (g *LandlordGuard) ImpersonateTenant(ctx context.Context, sess *session.Session, tenantID uuid.UUID) bool {
	user, ok := g.User(ctx, sess)
	if !ok {
		return false
	}
	if !canAccessTenant(user, tenantID) {
		g.core.logger.WarnContext(ctx, "impersonation refused",
			logger.UserID(user.ID().String()), logger.TenantID(tenantID.String()))
		_ = g.core.audit.LogFailure(ctx, audit.ActionImpersonationStart, ErrUserNotFound,
			audit.WithActor(user.ID().String(), user.Email()),
			audit.WithTenant(tenantID.String()),
			audit.WithSession(sess.ID.String()))
		return false
	}
	t, err := g.tenants.GetByID(ctx, tenantID)
	if err != nil {
		_ = g.core.audit.LogFailure(ctx, audit.ActionImpersonationStart, err,
			audit.WithActor(user.ID().String(), user.Email()),
			audit.WithTenant(tenantID.String()),
			audit.WithSession(sess.ID.String()))
		return false
	}

	sess.Set(SessionKeyImpersonation, ImpersonationRecord{
		TenantID:        t.ID,
		TenantName:      t.Name,
		StartedAt:       time.Now(),
		OriginalContext: ContextLandlord,
	})
	sess.Set(SessionKeyCurrentTenant, t.Summary())
	sess.Set(SessionKeyCurrentTenantID, t.ID.String())
	if sc, ok := scope.FromContext(ctx); ok {
		sc.Enable()
		sc.Bind(scope.DefaultTenantKey, t.ID.String())
	}
	g.invalidateStats()
	g.core.save(ctx, sess)

	g.core.logger.InfoContext(ctx, "impersonation started",
		logger.UserID(user.ID().String()), logger.TenantID(t.ID.String()))
	_ = g.core.audit.Log(ctx, audit.ActionImpersonationStart,
		audit.WithActor(user.ID().String(), user.Email()),
		audit.WithTenant(t.ID.String()),
		audit.WithSession(sess.ID.String()),
		audit.WithMetadata("tenant_name", t.Name))
	return true
}

// StopTenantImpersonation restores the pure landlord view.
func (g *LandlordGuard) StopTenantImpersonation(ctx context.Context, sess *session.Session) bool {
	rec, ok := g.ImpersonationTarget(sess)
	if !ok {
		return false
	}
	snap, _ := g.core.snapshot(sess)

	sess.Delete(SessionKeyImpersonation)
	sess.Delete(SessionKeyCurrentTenant)
	sess.Delete(SessionKeyCurrentTenantID)
	if sc, ok := scope.FromContext(ctx); ok {
		sc.Reset()
	}
	g.invalidateStats()
	g.core.save(ctx, sess)

	_ = g.core.audit.Log(ctx, audit.ActionImpersonationStop,
		audit.WithActor(snap.ID.String(), snap.Email),
		audit.WithTenant(rec.TenantID.String()),
		audit.WithSession(sess.ID.String()))
	return true
}

// Impersonating reports whether this landlord session is viewing a tenant.
func (g *LandlordGuard) Impersonating(sess *session.Session) bool {
	_, ok := g.ImpersonationTarget(sess)
	return ok
}

// ImpersonationTarget returns the active impersonation record, if any.
func (g *LandlordGuard) ImpersonationTarget(sess *session.Session) (ImpersonationRecord, bool) {
	if !g.Check(sess) {
		return ImpersonationRecord{}, false
	}
	return sessionValue[ImpersonationRecord](sess, SessionKeyImpersonation)
}

// GetAccessibleTenants lists the tenants this landlord may access.
// Global authority yields every active tenant when a lister is wired;
// otherwise the list comes from tenant.{id}.access grants and memberships.
func (g *LandlordGuard) GetAccessibleTenants(ctx context.Context, sess *session.Session) []*tenant.Tenant {
	user, ok := g.User(ctx, sess)
	if !ok {
		return nil
	}

	if HasGlobalAuthority(user) && g.lister != nil {
		all, err := g.lister.ListActive(ctx)
		if err != nil {
			g.core.logger.ErrorContext(ctx, "tenant listing failed", logger.Error(err))
			return nil
		}
		return all
	}

	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	if ph, ok := user.(PermissionHolder); ok {
		for _, raw := range scopes.TenantIDsFromScopes(ph.Permissions()) {
			if id, err := uuid.Parse(raw); err == nil {
				if _, dup := seen[id]; !dup {
					seen[id] = struct{}{}
					ids = append(ids, id)
				}
			}
		}
	}
	if m, ok := user.(TenantMember); ok {
		for _, id := range m.TenantIDs() {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	var out []*tenant.Tenant
	for _, id := range ids {
		t, err := g.tenants.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if t.IsActive() {
			out = append(out, t)
		}
	}
	return out
}

// SetDebugMode toggles verbose landlord diagnostics. Super-admin only.
func (g *LandlordGuard) SetDebugMode(ctx context.Context, sess *session.Session, enabled bool) bool {
	user, ok := g.User(ctx, sess)
	if !ok || !IsSuperAdmin(user) {
		return false
	}
	if enabled {
		sess.Set(SessionKeyDebugMode, true)
	} else {
		sess.Delete(SessionKeyDebugMode)
	}
	g.invalidateStats()
	g.core.save(ctx, sess)
	return true
}

// DebugMode reports whether diagnostics are enabled for this session.
func (g *LandlordGuard) DebugMode(sess *session.Session) bool {
	if !g.Check(sess) {
		return false
	}
	v, ok := sess.GetBool(SessionKeyDebugMode)
	return ok && v
}

// Stats computes the landlord summary, cached for the configured TTL.
func (g *LandlordGuard) Stats(ctx context.Context, sess *session.Session) (LandlordStats, bool) {
	id, ok := g.UserID(sess)
	if !ok {
		return LandlordStats{}, false
	}
	now := time.Now()
	g.statsMu.Lock()
	if cached, hit := g.stats.get(now); hit && cached.UserID == id {
		g.statsMu.Unlock()
		return cached, true
	}
	g.statsMu.Unlock()

	stats := LandlordStats{
		UserID:            id,
		AccessibleTenants: len(g.GetAccessibleTenants(ctx, sess)),
		Impersonating:     g.Impersonating(sess),
		DebugMode:         g.DebugMode(sess),
		GeneratedAt:       now,
	}
	g.statsMu.Lock()
	g.stats = newTTLValue(stats, now, g.core.statsTTL)
	g.statsMu.Unlock()
	return stats, true
}

func (g *LandlordGuard) invalidateStats() {
	g.statsMu.Lock()
	g.stats = nil
	g.statsMu.Unlock()
}

func (g *LandlordGuard) auditAttempt(ctx context.Context, sess *session.Session, email string) {
	opts := []audit.EventOption{
		audit.WithMetadata("guard", string(ContextLandlord)),
		audit.WithSession(sess.ID.String()),
	}
	if email != "" {
		opts = append(opts, audit.WithActor("", email))
	}
	_ = g.core.audit.Log(ctx, audit.ActionLoginAttempt, opts...)
}

func (g *LandlordGuard) auditLoginFailure(ctx context.Context, sess *session.Session, email string, err error) {
	_ = g.core.audit.LogFailure(ctx, audit.ActionLogin, err,
		audit.WithActor("", email),
		audit.WithSession(sess.ID.String()),
		audit.WithMetadata("guard", string(ContextLandlord)))
}
