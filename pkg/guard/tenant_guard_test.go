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

type tenantFixture struct {
	guard    *guard.TenantGuard
	store    *fakeUserStore
	tenants  *fakeTenantProvider
	sessions session.Store
}

func newTenantFixture(t *testing.T, opts []guard.GuardOption, users ...guard.User) *tenantFixture {
	t.Helper()
	store := newFakeUserStore(users...)
	tenants := newFakeTenantProvider()
	sessions := session.NewMemoryStore(0)
	return &tenantFixture{
		guard:    guard.NewTenantGuard(guard.NewTenantProvider(store), sessions, tenants, opts...),
		store:    store,
		tenants:  tenants,
		sessions: sessions,
	}
}

func TestTenantGuard_Attempt(t *testing.T) {
	t.Parallel()

	acme := activeTenant("Acme", "acme")
	alice := &testUser{
		id:      uuid.New(),
		email:   "alice@acme.test",
		name:    "Alice",
		hash:    hashPassword(t, "secret"),
		tenants: []uuid.UUID{acme.ID},
	}

	t.Run("establishes the tenant context and binds the scope", func(t *testing.T) {
		t.Parallel()

		fix := newTenantFixture(t, nil, alice)
		fix.tenants.tenants[acme.ID] = acme

		sc := scope.New()
		ctx := scope.WithScope(tenant.WithTenant(context.Background(), acme), sc)
		sess := newTestSession(t, fix.sessions)

		require.True(t, fix.guard.Attempt(ctx, sess, guard.Credentials{"email": "alice@acme.test", "password": "secret"}))
		assert.True(t, fix.guard.Check(sess))

		marker, _ := sess.GetString("current_context")
		assert.Equal(t, "tenant", marker)
		assert.True(t, sess.Has("tenant_user"))
		id, _ := sess.GetString("current_tenant_id")
		assert.Equal(t, acme.ID.String(), id)

		bound, ok := sc.TenantID()
		require.True(t, ok)
		assert.Equal(t, acme.ID.String(), bound)
		assert.True(t, sc.Enabled())
	})

	t.Run("login clears any landlord leftovers", func(t *testing.T) {
		t.Parallel()

		fix := newTenantFixture(t, nil, alice)
		fix.tenants.tenants[acme.ID] = acme

		ctx := tenant.WithTenant(context.Background(), acme)
		sess := newTestSession(t, fix.sessions)
		sess.Set("landlord_user", "stale")
		sess.Set("landlord_impersonating_tenant", "stale")
		sess.Set("landlord_debug_mode", true)

		require.True(t, fix.guard.Attempt(ctx, sess, guard.Credentials{"email": "alice@acme.test", "password": "secret"}))
		assert.False(t, sess.Has("landlord_user"))
		assert.False(t, sess.Has("landlord_impersonating_tenant"))
		assert.False(t, sess.Has("landlord_debug_mode"))
	})

	t.Run("no tenant refuses the attempt", func(t *testing.T) {
		t.Parallel()

		fix := newTenantFixture(t, nil, alice)
		sess := newTestSession(t, fix.sessions)

		assert.False(t, fix.guard.Attempt(context.Background(), sess, guard.Credentials{"email": "alice@acme.test", "password": "secret"}))
		assert.False(t, fix.guard.Check(sess))
	})

	t.Run("inactive tenant refuses before any user lookup", func(t *testing.T) {
		t.Parallel()

		gone := suspendedTenant("Gone", "gone")
		bob := &testUser{
			id:      uuid.New(),
			email:   "bob@gone.test",
			hash:    hashPassword(t, "secret"),
			tenants: []uuid.UUID{gone.ID},
		}
		fix := newTenantFixture(t, nil, bob)
		fix.tenants.tenants[gone.ID] = gone

		ctx := tenant.WithTenant(context.Background(), gone)
		sess := newTestSession(t, fix.sessions)

		assert.False(t, fix.guard.Attempt(ctx, sess, guard.Credentials{"email": "bob@gone.test", "password": "secret"}))
		assert.Zero(t, fix.store.lookups, "credentials must not be checked for an inactive tenant")
		assert.False(t, sess.Has("current_context"))
	})

	t.Run("non-member is refused", func(t *testing.T) {
		t.Parallel()

		other := activeTenant("Other", "other")
		fix := newTenantFixture(t, nil, alice)
		fix.tenants.tenants[other.ID] = other

		ctx := tenant.WithTenant(context.Background(), other)
		sess := newTestSession(t, fix.sessions)

		assert.False(t, fix.guard.Attempt(ctx, sess, guard.Credentials{"email": "alice@acme.test", "password": "secret"}))
		assert.False(t, fix.guard.Check(sess))
	})
}

func TestTenantGuard_Logout(t *testing.T) {
	t.Parallel()

	acme := activeTenant("Acme", "acme")
	alice := &testUser{
		id:      uuid.New(),
		email:   "alice@acme.test",
		hash:    hashPassword(t, "secret"),
		tenants: []uuid.UUID{acme.ID},
	}
	fix := newTenantFixture(t, nil, alice)
	fix.tenants.tenants[acme.ID] = acme

	sc := scope.New()
	ctx := scope.WithScope(tenant.WithTenant(context.Background(), acme), sc)
	sess := newTestSession(t, fix.sessions)
	require.True(t, fix.guard.Attempt(ctx, sess, guard.Credentials{"email": "alice@acme.test", "password": "secret"}))

	require.True(t, fix.guard.Logout(ctx, sess))

	assert.False(t, fix.guard.Check(sess))
	assert.Nil(t, sess.UserID)
	assert.False(t, sess.Has("tenant_user"))
	assert.False(t, sess.Has("current_tenant"))
	assert.False(t, sess.Has("current_tenant_id"))
	assert.False(t, sc.Enabled())
}

func TestTenantGuard_CurrentTenant(t *testing.T) {
	t.Parallel()

	acme := activeTenant("Acme", "acme")
	beta := activeTenant("Beta", "beta")
	alice := &testUser{
		id:      uuid.New(),
		email:   "alice@acme.test",
		hash:    hashPassword(t, "secret"),
		tenants: []uuid.UUID{acme.ID, beta.ID},
	}

	fix := newTenantFixture(t, nil, alice)
	fix.tenants.tenants[acme.ID] = acme
	fix.tenants.tenants[beta.ID] = beta

	loginCtx := tenant.WithTenant(context.Background(), acme)
	sess := newTestSession(t, fix.sessions)
	require.True(t, fix.guard.Attempt(loginCtx, sess, guard.Credentials{"email": "alice@acme.test", "password": "secret"}))

	t.Run("request context wins", func(t *testing.T) {
		got := fix.guard.CurrentTenant(tenant.WithTenant(context.Background(), beta), sess)
		require.NotNil(t, got)
		assert.Equal(t, beta.ID, got.ID)
	})

	t.Run("session binding is the fallback", func(t *testing.T) {
		got := fix.guard.CurrentTenant(context.Background(), sess)
		require.NotNil(t, got)
		assert.Equal(t, acme.ID, got.ID)
	})

	t.Run("scope binding is the last resort", func(t *testing.T) {
		bare := newTestSession(t, fix.sessions)
		sc := scope.New()
		sc.Enable()
		sc.Bind(scope.DefaultTenantKey, beta.ID.String())
		got := fix.guard.CurrentTenant(scope.WithScope(context.Background(), sc), bare)
		require.NotNil(t, got)
		assert.Equal(t, beta.ID, got.ID)
	})
}

func TestTenantGuard_SwitchTenant(t *testing.T) {
	t.Parallel()

	acme := activeTenant("Acme", "acme")
	beta := activeTenant("Beta", "beta")
	gone := suspendedTenant("Gone", "gone")

	newSwitchFixture := func(t *testing.T, member *testUser) (*tenantFixture, *session.Session, *scope.Scope, context.Context) {
		t.Helper()
		fix := newTenantFixture(t, nil, member)
		fix.tenants.tenants[acme.ID] = acme
		fix.tenants.tenants[beta.ID] = beta
		fix.tenants.tenants[gone.ID] = gone

		sc := scope.New()
		ctx := scope.WithScope(tenant.WithTenant(context.Background(), acme), sc)
		sess := newTestSession(t, fix.sessions)
		require.True(t, fix.guard.Attempt(ctx, sess, guard.Credentials{"email": member.email, "password": "secret"}))
		return fix, sess, sc, scope.WithScope(context.Background(), sc)
	}

	t.Run("rebinds session and scope to the target", func(t *testing.T) {
		t.Parallel()

		alice := &testUser{
			id:      uuid.New(),
			email:   "alice@acme.test",
			hash:    hashPassword(t, "secret"),
			tenants: []uuid.UUID{acme.ID, beta.ID},
		}
		fix, sess, sc, ctx := newSwitchFixture(t, alice)

		require.True(t, fix.guard.SwitchTenant(ctx, sess, beta.ID))

		id, _ := sess.GetString("current_tenant_id")
		assert.Equal(t, beta.ID.String(), id)
		bound, _ := sc.TenantID()
		assert.Equal(t, beta.ID.String(), bound)
		assert.True(t, fix.guard.Check(sess))
	})

	t.Run("refuses tenants the user does not belong to", func(t *testing.T) {
		t.Parallel()

		alice := &testUser{
			id:      uuid.New(),
			email:   "alice@acme.test",
			hash:    hashPassword(t, "secret"),
			tenants: []uuid.UUID{acme.ID},
		}
		fix, sess, sc, ctx := newSwitchFixture(t, alice)

		assert.False(t, fix.guard.SwitchTenant(ctx, sess, beta.ID))

		// Binding stays on the original tenant.
		id, _ := sess.GetString("current_tenant_id")
		assert.Equal(t, acme.ID.String(), id)
		bound, _ := sc.TenantID()
		assert.Equal(t, acme.ID.String(), bound)
	})

	t.Run("refuses inactive targets even for members", func(t *testing.T) {
		t.Parallel()

		alice := &testUser{
			id:      uuid.New(),
			email:   "alice@acme.test",
			hash:    hashPassword(t, "secret"),
			tenants: []uuid.UUID{acme.ID, gone.ID},
		}
		fix, sess, _, ctx := newSwitchFixture(t, alice)

		assert.False(t, fix.guard.SwitchTenant(ctx, sess, gone.ID))
		id, _ := sess.GetString("current_tenant_id")
		assert.Equal(t, acme.ID.String(), id)
	})
}

func TestTenantGuard_CanPerformAction(t *testing.T) {
	t.Parallel()

	acme := activeTenant("Acme", "acme")

	login := func(t *testing.T, fix *tenantFixture, email string) (*session.Session, context.Context) {
		t.Helper()
		fix.tenants.tenants[acme.ID] = acme
		ctx := tenant.WithTenant(context.Background(), acme)
		sess := newTestSession(t, fix.sessions)
		require.True(t, fix.guard.Attempt(ctx, sess, guard.Credentials{"email": email, "password": "secret"}))
		return sess, ctx
	}

	t.Run("bare permission grants", func(t *testing.T) {
		t.Parallel()

		alice := &testUser{
			id:      uuid.New(),
			email:   "alice@acme.test",
			hash:    hashPassword(t, "secret"),
			tenants: []uuid.UUID{acme.ID},
			perms:   []string{"invoices.create"},
		}
		fix := newTenantFixture(t, nil, alice)
		sess, ctx := login(t, fix, alice.email)

		assert.True(t, fix.guard.CanPerformAction(ctx, sess, "invoices.create"))
		assert.False(t, fix.guard.CanPerformAction(ctx, sess, "invoices.delete"))
	})

	t.Run("tenant-qualified permission grants only in that tenant", func(t *testing.T) {
		t.Parallel()

		alice := &testUser{
			id:      uuid.New(),
			email:   "alice@acme.test",
			hash:    hashPassword(t, "secret"),
			tenants: []uuid.UUID{acme.ID},
			perms:   []string{"tenant." + acme.ID.String() + ".reports.view"},
		}
		fix := newTenantFixture(t, nil, alice)
		sess, ctx := login(t, fix, alice.email)

		assert.True(t, fix.guard.CanPerformAction(ctx, sess, "reports.view"))
		assert.False(t, fix.guard.CanPerformAction(ctx, sess, "reports.edit"))
	})

	t.Run("wildcard permissions match", func(t *testing.T) {
		t.Parallel()

		alice := &testUser{
			id:      uuid.New(),
			email:   "alice@acme.test",
			hash:    hashPassword(t, "secret"),
			tenants: []uuid.UUID{acme.ID},
			perms:   []string{"invoices.*"},
		}
		fix := newTenantFixture(t, nil, alice)
		sess, ctx := login(t, fix, alice.email)

		assert.True(t, fix.guard.CanPerformAction(ctx, sess, "invoices.delete"))
	})

	t.Run("capability-free users follow the fallback policy", func(t *testing.T) {
		t.Parallel()

		memberID := uuid.New()
		member := &memberBareUser{
			bareUser: bareUser{id: memberID, email: "bare@acme.test", hash: hashPassword(t, "secret")},
			tenants:  []uuid.UUID{acme.ID},
		}

		permissive := newTenantFixture(t, nil, member)
		sess, ctx := login(t, permissive, member.email)
		assert.True(t, permissive.guard.CanPerformAction(ctx, sess, "anything.at_all"))

		strict := newTenantFixture(t, []guard.GuardOption{guard.WithPermissiveFallback(false)}, member)
		sess, ctx = login(t, strict, member.email)
		assert.False(t, strict.guard.CanPerformAction(ctx, sess, "anything.at_all"))
	})
}

// memberBareUser belongs to tenants but carries no permission data.
type memberBareUser struct {
	bareUser
	tenants []uuid.UUID
}

func (u *memberBareUser) BelongsToTenant(id uuid.UUID) bool {
	for _, t := range u.tenants {
		if t == id {
			return true
		}
	}
	return false
}
func (u *memberBareUser) TenantIDs() []uuid.UUID { return u.tenants }

func TestTenantGuard_Stats(t *testing.T) {
	t.Parallel()

	acme := activeTenant("Acme", "acme")
	alice := &testUser{
		id:      uuid.New(),
		email:   "alice@acme.test",
		hash:    hashPassword(t, "secret"),
		tenants: []uuid.UUID{acme.ID},
	}
	fix := newTenantFixture(t, nil, alice)
	fix.tenants.tenants[acme.ID] = acme

	ctx := tenant.WithTenant(context.Background(), acme)
	sess := newTestSession(t, fix.sessions)
	require.True(t, fix.guard.Attempt(ctx, sess, guard.Credentials{"email": "alice@acme.test", "password": "secret"}))

	stats, ok := fix.guard.Stats(ctx, sess)
	require.True(t, ok)
	assert.Equal(t, alice.ID(), stats.UserID)
	assert.Equal(t, acme.ID, stats.TenantID)
	assert.Equal(t, "Acme", stats.TenantName)
	assert.Equal(t, "starter", stats.Plan)
}
