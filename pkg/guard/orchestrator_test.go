package guard_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callcocam/gatekeeper/pkg/guard"
	"github.com/callcocam/gatekeeper/pkg/scope"
	"github.com/callcocam/gatekeeper/pkg/session"
	"github.com/callcocam/gatekeeper/pkg/tenant"
)

type orchestratorFixture struct {
	auth     *guard.Orchestrator
	tenants  *fakeTenantProvider
	sessions session.Store
}

func newOrchestratorFixture(t *testing.T, users ...guard.User) *orchestratorFixture {
	t.Helper()
	store := newFakeUserStore(users...)
	tenants := newFakeTenantProvider()
	sessions := session.NewMemoryStore(0)

	landlord := guard.NewLandlordGuard(guard.NewLandlordProvider(store), sessions, tenants)
	landlord.WithTenantLister(tenants)
	member := guard.NewTenantGuard(guard.NewTenantProvider(store), sessions, tenants)

	return &orchestratorFixture{
		auth:     guard.NewOrchestrator(landlord, member, sessions, tenants),
		tenants:  tenants,
		sessions: sessions,
	}
}

func TestOrchestrator_MutualExclusivity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	acme := activeTenant("Acme", "acme")
	dual := &testUser{
		id:       uuid.New(),
		email:    "dual@example.com",
		hash:     hashPassword(t, "secret"),
		landlord: true,
		tenants:  []uuid.UUID{acme.ID},
	}

	fix := newOrchestratorFixture(t, dual)
	fix.tenants.tenants[acme.ID] = acme
	sess := newTestSession(t, fix.sessions)

	require.True(t, fix.auth.Landlord().Attempt(ctx, sess, guard.Credentials{"email": "dual@example.com", "password": "secret"}))
	assert.True(t, fix.auth.Landlord().Check(sess))
	assert.False(t, fix.auth.Tenant().Check(sess))
	assert.Equal(t, guard.ContextLandlord, fix.auth.CurrentContext(sess))

	tenantCtx := tenant.WithTenant(ctx, acme)
	require.True(t, fix.auth.Tenant().Attempt(tenantCtx, sess, guard.Credentials{"email": "dual@example.com", "password": "secret"}))
	assert.True(t, fix.auth.Tenant().Check(sess))
	assert.False(t, fix.auth.Landlord().Check(sess))
	assert.Equal(t, guard.ContextTenant, fix.auth.CurrentContext(sess))

	// The active guard always follows the context marker.
	active := fix.auth.ActiveGuard(sess)
	require.NotNil(t, active)
	assert.Equal(t, guard.ContextTenant, active.Kind())
}

func TestOrchestrator_SwitchToLandlord(t *testing.T) {
	t.Parallel()

	acme := activeTenant("Acme", "acme")

	t.Run("promotes users with global authority", func(t *testing.T) {
		t.Parallel()

		owner := &testUser{
			id:       uuid.New(),
			email:    "owner@acme.test",
			hash:     hashPassword(t, "secret"),
			landlord: true,
			tenants:  []uuid.UUID{acme.ID},
		}
		fix := newOrchestratorFixture(t, owner)
		fix.tenants.tenants[acme.ID] = acme

		sc := scope.New()
		ctx := scope.WithScope(tenant.WithTenant(context.Background(), acme), sc)
		sess := newTestSession(t, fix.sessions)
		require.True(t, fix.auth.Tenant().Attempt(ctx, sess, guard.Credentials{"email": "owner@acme.test", "password": "secret"}))

		require.True(t, fix.auth.SwitchToLandlord(ctx, sess))

		assert.Equal(t, guard.ContextLandlord, fix.auth.CurrentContext(sess))
		assert.True(t, fix.auth.Landlord().Check(sess))
		assert.False(t, fix.auth.Tenant().Check(sess))
		assert.False(t, sess.Has("tenant_user"))
		assert.False(t, sess.Has("current_tenant_id"))
		assert.False(t, sc.Enabled())
	})

	t.Run("refuses plain members", func(t *testing.T) {
		t.Parallel()

		alice := &testUser{
			id:      uuid.New(),
			email:   "alice@acme.test",
			hash:    hashPassword(t, "secret"),
			roles:   []string{"member"},
			tenants: []uuid.UUID{acme.ID},
		}
		fix := newOrchestratorFixture(t, alice)
		fix.tenants.tenants[acme.ID] = acme

		ctx := tenant.WithTenant(context.Background(), acme)
		sess := newTestSession(t, fix.sessions)
		require.True(t, fix.auth.Tenant().Attempt(ctx, sess, guard.Credentials{"email": "alice@acme.test", "password": "secret"}))

		assert.False(t, fix.auth.SwitchToLandlord(ctx, sess))
		assert.Equal(t, guard.ContextTenant, fix.auth.CurrentContext(sess))
		assert.True(t, fix.auth.Tenant().Check(sess))
	})
}

func TestOrchestrator_SwitchVersusImpersonate(t *testing.T) {
	t.Parallel()

	acme := activeTenant("Acme", "acme")
	owner := &testUser{
		id:       uuid.New(),
		email:    "owner@example.com",
		hash:     hashPassword(t, "secret"),
		landlord: true,
	}

	login := func(t *testing.T) (*orchestratorFixture, *session.Session, context.Context) {
		t.Helper()
		fix := newOrchestratorFixture(t, owner)
		fix.tenants.tenants[acme.ID] = acme
		ctx := scope.WithScope(context.Background(), scope.New())
		sess := newTestSession(t, fix.sessions)
		require.True(t, fix.auth.Landlord().Attempt(ctx, sess, guard.Credentials{"email": "owner@example.com", "password": "secret"}))
		return fix, sess, ctx
	}

	t.Run("impersonation keeps the landlord context", func(t *testing.T) {
		t.Parallel()

		fix, sess, ctx := login(t)
		require.True(t, fix.auth.ImpersonateTenant(ctx, sess, acme.ID))

		assert.Equal(t, guard.ContextLandlord, fix.auth.CurrentContext(sess))
		assert.True(t, sess.Has("landlord_user"))
		assert.True(t, sess.Has("landlord_impersonating_tenant"))
		assert.True(t, fix.auth.Landlord().Check(sess))

		st := fix.auth.State(ctx, sess)
		assert.True(t, st.Impersonating)
		assert.Equal(t, guard.ContextLandlord, st.Context)
	})

	t.Run("switching replaces the context entirely", func(t *testing.T) {
		t.Parallel()

		fix, sess, ctx := login(t)
		require.True(t, fix.auth.SwitchToTenant(ctx, sess, acme.ID))

		assert.Equal(t, guard.ContextTenant, fix.auth.CurrentContext(sess))
		assert.False(t, sess.Has("landlord_user"))
		assert.False(t, sess.Has("landlord_impersonating_tenant"))
		assert.True(t, sess.Has("tenant_user"))
		assert.True(t, fix.auth.Tenant().Check(sess))
		assert.False(t, fix.auth.Landlord().Check(sess))
	})

	t.Run("switching to an inactive tenant is refused", func(t *testing.T) {
		t.Parallel()

		gone := suspendedTenant("Gone", "gone")
		fix, sess, ctx := login(t)
		fix.tenants.tenants[gone.ID] = gone

		assert.False(t, fix.auth.SwitchToTenant(ctx, sess, gone.ID))
		assert.Equal(t, guard.ContextLandlord, fix.auth.CurrentContext(sess))
	})
}

func TestOrchestrator_LogoutAll(t *testing.T) {
	t.Parallel()

	acme := activeTenant("Acme", "acme")
	owner := &testUser{
		id:       uuid.New(),
		email:    "owner@example.com",
		hash:     hashPassword(t, "secret"),
		landlord: true,
		roles:    []string{"super-admin"},
	}

	fix := newOrchestratorFixture(t, owner)
	fix.tenants.tenants[acme.ID] = acme

	sc := scope.New()
	ctx := scope.WithScope(context.Background(), sc)
	sess := newTestSession(t, fix.sessions)
	require.True(t, fix.auth.Landlord().Attempt(ctx, sess, guard.Credentials{"email": "owner@example.com", "password": "secret"}))
	require.True(t, fix.auth.Landlord().SetDebugMode(ctx, sess, true))
	require.True(t, fix.auth.ImpersonateTenant(ctx, sess, acme.ID))

	fix.auth.LogoutAll(ctx, sess)

	assert.Equal(t, guard.ContextNone, fix.auth.CurrentContext(sess))
	assert.Nil(t, fix.auth.ActiveGuard(sess))
	assert.Nil(t, sess.UserID)
	for _, key := range guard.SessionKeys() {
		assert.False(t, sess.Has(key), "key %q must be removed by logout", key)
	}
	assert.False(t, sc.Enabled())
	assert.Empty(t, sc.Bindings())
}

func TestOrchestrator_Can(t *testing.T) {
	t.Parallel()

	acme := activeTenant("Acme", "acme")

	t.Run("unauthenticated sessions can do nothing", func(t *testing.T) {
		t.Parallel()

		fix := newOrchestratorFixture(t)
		sess := newTestSession(t, fix.sessions)
		assert.False(t, fix.auth.Can(context.Background(), sess, "view", "reports"))
	})

	t.Run("landlord checks use landlord permissions", func(t *testing.T) {
		t.Parallel()

		admin := &testUser{
			id:    uuid.New(),
			email: "admin@example.com",
			hash:  hashPassword(t, "secret"),
			roles: []string{"admin"},
			perms: []string{"landlord.tenants.view"},
		}
		fix := newOrchestratorFixture(t, admin)
		ctx := context.Background()
		sess := newTestSession(t, fix.sessions)
		require.True(t, fix.auth.Landlord().Attempt(ctx, sess, guard.Credentials{"email": "admin@example.com", "password": "secret"}))

		assert.True(t, fix.auth.Can(ctx, sess, "view", "landlord.tenants"))
		assert.False(t, fix.auth.Can(ctx, sess, "delete", "landlord.tenants"))
	})

	t.Run("tenant checks route through the tenant guard", func(t *testing.T) {
		t.Parallel()

		alice := &testUser{
			id:      uuid.New(),
			email:   "alice@acme.test",
			hash:    hashPassword(t, "secret"),
			tenants: []uuid.UUID{acme.ID},
			perms:   []string{"invoices.create"},
		}
		fix := newOrchestratorFixture(t, alice)
		fix.tenants.tenants[acme.ID] = acme

		ctx := tenant.WithTenant(context.Background(), acme)
		sess := newTestSession(t, fix.sessions)
		require.True(t, fix.auth.Tenant().Attempt(ctx, sess, guard.Credentials{"email": "alice@acme.test", "password": "secret"}))

		assert.True(t, fix.auth.Can(ctx, sess, "create", "invoices"))
		assert.False(t, fix.auth.Can(ctx, sess, "delete", "invoices"))
	})
}

func TestOrchestrator_State(t *testing.T) {
	t.Parallel()

	acme := activeTenant("Acme", "acme")
	owner := &testUser{
		id:       uuid.New(),
		email:    "owner@example.com",
		hash:     hashPassword(t, "secret"),
		landlord: true,
	}

	fix := newOrchestratorFixture(t, owner)
	fix.tenants.tenants[acme.ID] = acme

	ctx := context.Background()
	sess := newTestSession(t, fix.sessions)

	st := fix.auth.State(ctx, sess)
	assert.Equal(t, guard.ContextNone, st.Context)
	assert.False(t, st.Authenticated)

	require.True(t, fix.auth.Landlord().Attempt(ctx, sess, guard.Credentials{"email": "owner@example.com", "password": "secret"}))
	require.True(t, fix.auth.ImpersonateTenant(ctx, sess, acme.ID))

	st = fix.auth.State(ctx, sess)
	assert.Equal(t, guard.ContextLandlord, st.Context)
	assert.True(t, st.Authenticated)
	require.NotNil(t, st.UserID)
	assert.Equal(t, owner.ID(), *st.UserID)
	assert.True(t, st.Impersonating)
	require.NotNil(t, st.CurrentTenant)
	assert.Equal(t, acme.ID, st.CurrentTenant.ID)
}
