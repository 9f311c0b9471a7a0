package guard

import (
	"context"
	"log/slog"
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

// TenantStats is the tenant dashboard summary.
type TenantStats struct {
	UserID      uuid.UUID `json:"user_id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	TenantName  string    `json:"tenant_name"`
	Plan        string    `json:"plan,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// TenantGuard authenticates users inside a tenant and keeps the
// session's tenant binding in step with the data scope.
type TenantGuard struct {
	core    guardCore
	tenants tenant.Provider

	statsMu sync.Mutex
	stats   *ttlValue[TenantStats]
}

func NewTenantGuard(provider IdentityProvider, sessions session.Store, tenants tenant.Provider, opts ...GuardOption) *TenantGuard {
	if tenants == nil {
		panic("guard: tenant guard requires a tenant provider")
	}
	return &TenantGuard{
		core:    newGuardCore(ContextTenant, SessionKeyTenantUser, provider, sessions, opts),
		tenants: tenants,
	}
}

func (g *TenantGuard) Kind() Context { return g.core.Kind() }

func (g *TenantGuard) Check(sess *session.Session) bool { return g.core.Check(sess) }

func (g *TenantGuard) UserID(sess *session.Session) (uuid.UUID, bool) {
	return g.core.UserID(sess)
}

// User resolves through the provider under the session's current tenant,
// so a user removed from the tenant reads as unauthenticated.
func (g *TenantGuard) User(ctx context.Context, sess *session.Session) (User, bool) {
	t := g.CurrentTenant(ctx, sess)
	if t != nil {
		ctx = tenant.WithTenant(ctx, t)
	}
	return g.core.User(ctx, sess)
}

// Attempt validates credentials inside the current tenant. An inactive
// tenant refuses the attempt before the password is ever checked.
func (g *TenantGuard) Attempt(ctx context.Context, sess *session.Session, creds Credentials) bool {
	_, email, _ := creds.Identifier()
	g.auditAttempt(ctx, sess, email)

	t := g.CurrentTenant(ctx, sess)
	if t == nil {
		g.auditLoginFailure(ctx, sess, email, nil, ErrNoTenant)
		return false
	}
	if !t.IsActive() {
		g.core.logger.WarnContext(ctx, "login refused for inactive tenant",
			logger.TenantID(t.ID.String()), logger.Email(email))
		g.auditLoginFailure(ctx, sess, email, t, tenant.ErrInactiveTenant)
		return false
	}

	ctx = tenant.WithTenant(ctx, t)
	user, err := g.core.provider.RetrieveByCredentials(ctx, creds)
	if err != nil {
		g.auditLoginFailure(ctx, sess, email, t, err)
		return false
	}
	if !g.core.provider.ValidateCredentials(ctx, user, creds) {
		g.auditLoginFailure(ctx, sess, user.Email(), t, ErrUserNotFound)
		return false
	}

	g.login(ctx, sess, user, t)
	return true
}

// LoginByID establishes the tenant context for a user already authorized
// by the caller, as during a landlord-to-tenant switch. Membership is
// intentionally not re-checked here; Attempt and User enforce it.
func (g *TenantGuard) LoginByID(ctx context.Context, sess *session.Session, id uuid.UUID, t *tenant.Tenant) bool {
	if t == nil || !t.IsActive() {
		return false
	}
	user, err := g.core.provider.RetrieveByID(tenant.WithTenant(ctx, t), id)
	if err != nil {
		return false
	}
	g.login(ctx, sess, user, t)
	return true
}

func (g *TenantGuard) login(ctx context.Context, sess *session.Session, user User, t *tenant.Tenant) {
	id := user.ID()
	tenantID := t.ID
	sess.UserID = &id
	sess.Set(SessionKeyContext, string(ContextTenant))
	sess.Set(SessionKeyTenantUser, UserSnapshot{
		ID:       id,
		Name:     user.Name(),
		Email:    user.Email(),
		IsTenant: true,
		TenantID: &tenantID,
		LoginAt:  time.Now(),
	})
	sess.Set(SessionKeyCurrentTenant, t.Summary())
	sess.Set(SessionKeyCurrentTenantID, t.ID.String())
	// A tenant login never coexists with landlord state.
	sess.Delete(SessionKeyLandlordUser)
	sess.Delete(SessionKeyImpersonation)
	sess.Delete(SessionKeyDebugMode)
	if sc, ok := scope.FromContext(ctx); ok {
		sc.Enable()
		sc.Bind(scope.DefaultTenantKey, t.ID.String())
	}
	g.invalidateStats()
	g.core.save(ctx, sess)

	g.core.logger.InfoContext(ctx, "tenant login",
		logger.UserID(id.String()), logger.TenantID(t.ID.String()))
	_ = g.core.audit.Log(ctx, audit.ActionLogin,
		audit.WithActor(id.String(), user.Email()),
		audit.WithTenant(t.ID.String()),
		audit.WithSession(sess.ID.String()),
		audit.WithMetadata("guard", string(ContextTenant)))
}

// Logout tears down the tenant context, including the tenant binding
// and the request's data scope.
func (g *TenantGuard) Logout(ctx context.Context, sess *session.Session) bool {
	if !g.Check(sess) {
		return false
	}
	snap, _ := g.core.snapshot(sess)

	sess.Delete(SessionKeyCurrentTenant)
	sess.Delete(SessionKeyCurrentTenantID)
	g.core.clearOwn(sess)
	sess.UserID = nil
	if sc, ok := scope.FromContext(ctx); ok {
		sc.Reset()
	}
	g.invalidateStats()
	g.core.save(ctx, sess)

	_ = g.core.audit.Log(ctx, audit.ActionLogout,
		audit.WithActor(snap.ID.String(), snap.Email),
		audit.WithSession(sess.ID.String()),
		audit.WithMetadata("guard", string(ContextTenant)))
	return true
}

// CurrentTenant resolves the working tenant in priority order: the
// request context, the session binding, then the data scope.
func (g *TenantGuard) CurrentTenant(ctx context.Context, sess *session.Session) *tenant.Tenant {
	if t, ok := tenant.FromContext(ctx); ok {
		return t
	}
	if sess != nil {
		if raw, ok := sess.GetString(SessionKeyCurrentTenantID); ok {
			if id, err := uuid.Parse(raw); err == nil {
				if t, err := g.tenants.GetByID(ctx, id); err == nil {
					return t
				}
			}
		}
	}
	if sc, ok := scope.FromContext(ctx); ok {
		if raw, bound := sc.TenantID(); bound {
			if id, err := uuid.Parse(raw); err == nil {
				if t, err := g.tenants.GetByID(ctx, id); err == nil {
					return t
				}
			}
		}
	}
	return nil
}

// SwitchTenant moves an authenticated session to another tenant the
// user belongs to. The scope is rebound before the session is saved.
func (g *TenantGuard) SwitchTenant(ctx context.Context, sess *session.Session, tenantID uuid.UUID) bool {
	snap, ok := g.core.snapshot(sess)
	if !ok || !g.Check(sess) {
		return false
	}
	target, err := g.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return false
	}
	if !target.IsActive() {
		return false
	}
	user, err := g.core.provider.RetrieveByID(tenant.WithTenant(ctx, target), snap.ID)
	if err != nil {
		g.core.logger.WarnContext(ctx, "tenant switch refused",
			logger.UserID(snap.ID.String()), logger.TenantID(tenantID.String()), logger.Error(err))
		_ = g.core.audit.LogFailure(ctx, audit.ActionTenantSwitch, err,
			audit.WithActor(snap.ID.String(), snap.Email),
			audit.WithTenant(tenantID.String()),
			audit.WithSession(sess.ID.String()))
		return false
	}

	var from string
	if snap.TenantID != nil {
		from = snap.TenantID.String()
	}
	g.core.logger.InfoContext(ctx, "tenant switch",
		logger.UserID(user.ID().String()),
		logger.Group("transition", slog.String("from", from), slog.String("to", target.ID.String())))

	g.login(ctx, sess, user, target)
	_ = g.core.audit.Log(ctx, audit.ActionTenantSwitch,
		audit.WithActor(user.ID().String(), user.Email()),
		audit.WithTenant(target.ID.String()),
		audit.WithSession(sess.ID.String()),
		audit.WithMetadata("from_tenant", from))
	return true
}

// CanPerformAction grants when the user holds either the bare action or
// its tenant-qualified form for the current tenant. Users without
// permission data follow the permissive fallback policy.
func (g *TenantGuard) CanPerformAction(ctx context.Context, sess *session.Session, action string) bool {
	if action == "" {
		return false
	}
	user, ok := g.User(ctx, sess)
	if !ok {
		return false
	}
	perms := []string{action}
	if t := g.CurrentTenant(ctx, sess); t != nil {
		perms = append(perms, scopes.TenantQualified(action, t.ID.String()))
	}
	return userHasPermission(user, g.core.permissive, perms...)
}

// Stats computes the tenant summary, cached for the configured TTL.
func (g *TenantGuard) Stats(ctx context.Context, sess *session.Session) (TenantStats, bool) {
	id, ok := g.UserID(sess)
	if !ok {
		return TenantStats{}, false
	}
	t := g.CurrentTenant(ctx, sess)
	if t == nil {
		return TenantStats{}, false
	}

	now := time.Now()
	g.statsMu.Lock()
	if cached, hit := g.stats.get(now); hit && cached.UserID == id && cached.TenantID == t.ID {
		g.statsMu.Unlock()
		return cached, true
	}
	stats := TenantStats{
		UserID:      id,
		TenantID:    t.ID,
		TenantName:  t.Name,
		Plan:        t.Plan,
		GeneratedAt: now,
	}
	g.stats = newTTLValue(stats, now, g.core.statsTTL)
	g.statsMu.Unlock()
	return stats, true
}

func (g *TenantGuard) invalidateStats() {
	g.statsMu.Lock()
	g.stats = nil
	g.statsMu.Unlock()
}

func (g *TenantGuard) auditAttempt(ctx context.Context, sess *session.Session, email string) {
	opts := []audit.EventOption{
		audit.WithMetadata("guard", string(ContextTenant)),
		audit.WithSession(sess.ID.String()),
	}
	if email != "" {
		opts = append(opts, audit.WithActor("", email))
	}
	_ = g.core.audit.Log(ctx, audit.ActionLoginAttempt, opts...)
}

func (g *TenantGuard) auditLoginFailure(ctx context.Context, sess *session.Session, email string, t *tenant.Tenant, err error) {
	opts := []audit.EventOption{
		audit.WithActor("", email),
		audit.WithSession(sess.ID.String()),
		audit.WithMetadata("guard", string(ContextTenant)),
	}
	if t != nil {
		opts = append(opts, audit.WithTenant(t.ID.String()))
	}
	_ = g.core.audit.LogFailure(ctx, audit.ActionLogin, err, opts...)
}
