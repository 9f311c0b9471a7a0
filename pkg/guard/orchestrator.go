package guard

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/callcocam/gatekeeper/pkg/audit"
	"github.com/callcocam/gatekeeper/pkg/logger"
	"github.com/callcocam/gatekeeper/pkg/scope"
	"github.com/callcocam/gatekeeper/pkg/session"
	"github.com/callcocam/gatekeeper/pkg/tenant"
)

// Orchestrator coordinates the two guards: it reads the session's
// current context, routes checks to the owning guard and performs the
// cross-guard transitions a single guard cannot do alone.
type Orchestrator struct {
	landlord   *LandlordGuard
	tenant     *TenantGuard
	sessions   session.Store
	tenants    tenant.Provider
	logger     *slog.Logger
	audit      audit.Logger
	permissive bool
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger sets the structured logger.
func WithOrchestratorLogger(log *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if log != nil {
			o.logger = log
		}
	}
}

// WithOrchestratorAudit sets the audit trail sink.
func WithOrchestratorAudit(trail audit.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if trail != nil {
			o.audit = trail
		}
	}
}

// WithOrchestratorPermissiveFallback mirrors the guards' fallback policy
// for Can checks on users without permission data.
func WithOrchestratorPermissiveFallback(permissive bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.permissive = permissive
	}
}

func NewOrchestrator(landlord *LandlordGuard, tenantGuard *TenantGuard, sessions session.Store, tenants tenant.Provider, opts ...OrchestratorOption) *Orchestrator {
	if landlord == nil || tenantGuard == nil {
		panic("guard: orchestrator requires both guards")
	}
	if sessions == nil {
		panic("guard: orchestrator requires a session store")
	}
	if tenants == nil {
		panic("guard: orchestrator requires a tenant provider")
	}
	o := &Orchestrator{
		landlord:   landlord,
		tenant:     tenantGuard,
		sessions:   sessions,
		tenants:    tenants,
		logger:     logger.Noop(),
		audit:      audit.NewLogger(audit.NewSlogStorage(logger.Noop())),
		permissive: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Landlord exposes the landlord guard.
func (o *Orchestrator) Landlord() *LandlordGuard { return o.landlord }

// Tenant exposes the tenant guard.
func (o *Orchestrator) Tenant() *TenantGuard { return o.tenant }

// CurrentContext returns the session's active context. Unknown marker
// values read as none.
func (o *Orchestrator) CurrentContext(sess *session.Session) Context {
	if sess == nil {
		return ContextNone
	}
	return currentContext(sess)
}

func (o *Orchestrator) IsLandlordContext(sess *session.Session) bool {
	return o.CurrentContext(sess) == ContextLandlord
}

func (o *Orchestrator) IsTenantContext(sess *session.Session) bool {
	return o.CurrentContext(sess) == ContextTenant
}

// ActiveGuard returns the guard owning the session's context, or nil
// when the session is unauthenticated.
func (o *Orchestrator) ActiveGuard(sess *session.Session) AuthGuard {
	switch o.CurrentContext(sess) {
	case ContextLandlord:
		if o.landlord.Check(sess) {
			return o.landlord
		}
	case ContextTenant:
		if o.tenant.Check(sess) {
			return o.tenant
		}
	}
	return nil
}

// SwitchToLandlord promotes a tenant session to the landlord context.
// The user must hold global landlord authority; the tenant context is
// fully torn down before the landlord login.
func (o *Orchestrator) SwitchToLandlord(ctx context.Context, sess *session.Session) bool {
	if !o.tenant.Check(sess) {
		return false
	}
	id, ok := o.tenant.UserID(sess)
	if !ok {
		return false
	}
	snap, _ := sessionValue[UserSnapshot](sess, SessionKeyTenantUser)
	// Authority comes from the landlord provider. The user may have
	// entered this tenant through a landlord context switch without
	// holding a membership, so the tenant provider cannot resolve them.
	user, err := o.landlord.core.provider.RetrieveByID(ctx, id)
	if err != nil || !HasGlobalAuthority(user) {
		o.logger.WarnContext(ctx, "context switch to landlord refused",
			logger.UserID(id.String()))
		_ = o.audit.LogFailure(ctx, audit.ActionContextSwitch, ErrUserNotFound,
			audit.WithActor(id.String(), snap.Email),
			audit.WithSession(sess.ID.String()),
			audit.WithMetadata("to", string(ContextLandlord)))
		return false
	}

	o.tenant.Logout(ctx, sess)
	if !o.landlord.LoginByID(ctx, sess, user.ID()) {
		return false
	}
	if sc, found := scope.FromContext(ctx); found {
		sc.Reset()
	}

	_ = o.audit.Log(ctx, audit.ActionContextSwitch,
		audit.WithActor(user.ID().String(), user.Email()),
		audit.WithSession(sess.ID.String()),
		audit.WithMetadata("to", string(ContextLandlord)))
	return true
}

// SwitchToTenant demotes a landlord session into a tenant context. The
// landlord identity is reinterpreted as a tenant user; unlike
// impersonation, no landlord state survives the switch.
func (o *Orchestrator) SwitchToTenant(ctx context.Context, sess *session.Session, tenantID uuid.UUID) bool {
	if !o.landlord.Check(sess) {
		return false
	}
	user, ok := o.landlord.User(ctx, sess)
	if !ok {
		return false
	}
	if !canAccessTenant(user, tenantID) {
		_ = o.audit.LogFailure(ctx, audit.ActionContextSwitch, ErrUserNotFound,
			audit.WithActor(user.ID().String(), user.Email()),
			audit.WithTenant(tenantID.String()),
			audit.WithSession(sess.ID.String()),
			audit.WithMetadata("to", string(ContextTenant)))
		return false
	}
	target, err := o.tenants.GetByID(ctx, tenantID)
	if err != nil || !target.IsActive() {
		return false
	}

	o.landlord.Logout(ctx, sess)
	// The landlord may not be a tenant member, so this goes through the
	// guard's internal login rather than the membership-checking provider.
	o.tenant.login(tenant.WithTenant(ctx, target), sess, user, target)

	_ = o.audit.Log(ctx, audit.ActionContextSwitch,
		audit.WithActor(user.ID().String(), user.Email()),
		audit.WithTenant(target.ID.String()),
		audit.WithSession(sess.ID.String()),
		audit.WithMetadata("to", string(ContextTenant)))
	return true
}

// ImpersonateTenant delegates to the landlord guard.
func (o *Orchestrator) ImpersonateTenant(ctx context.Context, sess *session.Session, tenantID uuid.UUID) bool {
	return o.landlord.ImpersonateTenant(ctx, sess, tenantID)
}

// StopTenantImpersonation delegates to the landlord guard.
func (o *Orchestrator) StopTenantImpersonation(ctx context.Context, sess *session.Session) bool {
	return o.landlord.StopTenantImpersonation(ctx, sess)
}

// LogoutAll tears down every authentication artifact: both guards,
// every session key the guards may have written and the data scope.
func (o *Orchestrator) LogoutAll(ctx context.Context, sess *session.Session) {
	if sess == nil {
		return
	}
	var actorID, actorEmail string
	if snap, ok := sessionValue[UserSnapshot](sess, SessionKeyLandlordUser); ok {
		actorID, actorEmail = snap.ID.String(), snap.Email
	} else if snap, ok := sessionValue[UserSnapshot](sess, SessionKeyTenantUser); ok {
		actorID, actorEmail = snap.ID.String(), snap.Email
	}

	o.landlord.Logout(ctx, sess)
	o.tenant.Logout(ctx, sess)
	for _, key := range SessionKeys() {
		sess.Delete(key)
	}
	sess.UserID = nil
	if sc, found := scope.FromContext(ctx); found {
		sc.Reset()
	}
	if err := o.sessions.Update(ctx, sess); err != nil {
		o.logger.ErrorContext(ctx, "session update failed during logout", logger.Error(err))
	}

	_ = o.audit.Log(ctx, audit.ActionLogoutAll,
		audit.WithActor(actorID, actorEmail),
		audit.WithSession(sess.ID.String()))
}

// Can answers a permission question against the active guard. The
// resource, when given, qualifies the action as "resource.action".
func (o *Orchestrator) Can(ctx context.Context, sess *session.Session, action, resource string) bool {
	if action == "" {
		return false
	}
	perm := action
	if resource != "" {
		perm = resource + "." + action
	}

	switch o.CurrentContext(sess) {
	case ContextLandlord:
		user, ok := o.landlord.User(ctx, sess)
		if !ok {
			return false
		}
		return userHasPermission(user, o.permissive, perm)
	case ContextTenant:
		return o.tenant.CanPerformAction(ctx, sess, perm)
	default:
		return false
	}
}

// State is a read-only snapshot of the session's authentication status.
type State struct {
	Context       Context              `json:"context"`
	Authenticated bool                 `json:"authenticated"`
	UserID        *uuid.UUID           `json:"user_id,omitempty"`
	CurrentTenant *tenant.Summary      `json:"current_tenant,omitempty"`
	Impersonating bool                 `json:"impersonating"`
	Impersonation *ImpersonationRecord `json:"impersonation,omitempty"`
	DebugMode     bool                 `json:"debug_mode,omitempty"`
}

// State reports the full authentication state for the session.
func (o *Orchestrator) State(ctx context.Context, sess *session.Session) State {
	st := State{Context: o.CurrentContext(sess)}
	if sess == nil {
		return st
	}

	active := o.ActiveGuard(sess)
	if active == nil {
		st.Context = ContextNone
		return st
	}
	st.Authenticated = true
	if id, ok := active.UserID(sess); ok {
		st.UserID = &id
	}
	if summary, ok := sessionValue[tenant.Summary](sess, SessionKeyCurrentTenant); ok {
		st.CurrentTenant = &summary
	}
	if rec, ok := o.landlord.ImpersonationTarget(sess); ok {
		st.Impersonating = true
		st.Impersonation = &rec
	}
	st.DebugMode = o.landlord.DebugMode(sess)
	return st
}
