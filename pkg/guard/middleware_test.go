package guard_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callcocam/gatekeeper/pkg/guard"
	"github.com/callcocam/gatekeeper/pkg/session"
	"github.com/callcocam/gatekeeper/pkg/tenant"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func jsonRequest(t *testing.T, ctx context.Context, target string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
	r.Header.Set("Accept", "application/json")
	return r
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

func TestRequireLandlord(t *testing.T) {
	t.Parallel()

	acme := activeTenant("Acme", "acme")
	owner := &testUser{
		id:       uuid.New(),
		email:    "owner@example.com",
		hash:     hashPassword(t, "secret"),
		landlord: true,
	}
	alice := &testUser{
		id:      uuid.New(),
		email:   "alice@acme.test",
		hash:    hashPassword(t, "secret"),
		tenants: []uuid.UUID{acme.ID},
	}
	cfg := guard.DefaultMiddlewareConfig()

	t.Run("admits authenticated landlords", func(t *testing.T) {
		t.Parallel()

		fix := newOrchestratorFixture(t, owner)
		sess := newTestSession(t, fix.sessions)
		ctx := context.Background()
		require.True(t, fix.auth.Landlord().Attempt(ctx, sess, guard.Credentials{"email": "owner@example.com", "password": "secret"}))

		var called bool
		rec := httptest.NewRecorder()
		fix.auth.RequireLandlord(cfg)(okHandler(&called)).
			ServeHTTP(rec, jsonRequest(t, session.WithSession(ctx, sess), "/landlord/dashboard"))

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing session gets 401", func(t *testing.T) {
		t.Parallel()

		fix := newOrchestratorFixture(t, owner)

		var called bool
		rec := httptest.NewRecorder()
		fix.auth.RequireLandlord(cfg)(okHandler(&called)).
			ServeHTTP(rec, jsonRequest(t, context.Background(), "/landlord/dashboard"))

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "landlord_authentication_required", decodeError(t, rec))
	})

	t.Run("tenant context gets 403", func(t *testing.T) {
		t.Parallel()

		fix := newOrchestratorFixture(t, alice)
		fix.tenants.tenants[acme.ID] = acme
		ctx := tenant.WithTenant(context.Background(), acme)
		sess := newTestSession(t, fix.sessions)
		require.True(t, fix.auth.Tenant().Attempt(ctx, sess, guard.Credentials{"email": "alice@acme.test", "password": "secret"}))

		var called bool
		rec := httptest.NewRecorder()
		fix.auth.RequireLandlord(cfg)(okHandler(&called)).
			ServeHTTP(rec, jsonRequest(t, session.WithSession(ctx, sess), "/landlord/dashboard"))

		assert.False(t, called)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "landlord_access_required", decodeError(t, rec))
	})

	t.Run("revoked authority gets 403", func(t *testing.T) {
		t.Parallel()

		fix := newOrchestratorFixture(t, owner)
		ctx := context.Background()
		sess := newTestSession(t, fix.sessions)
		require.True(t, fix.auth.Landlord().Attempt(ctx, sess, guard.Credentials{"email": "owner@example.com", "password": "secret"}))

		// The user disappears from the store mid-session.
		demotedStore := newFakeUserStore()
		demoted := guard.NewOrchestrator(
			guard.NewLandlordGuard(guard.NewLandlordProvider(demotedStore), fix.sessions, fix.tenants),
			guard.NewTenantGuard(guard.NewTenantProvider(demotedStore), fix.sessions, fix.tenants),
			fix.sessions, fix.tenants)

		var called bool
		rec := httptest.NewRecorder()
		demoted.RequireLandlord(cfg)(okHandler(&called)).
			ServeHTTP(rec, jsonRequest(t, session.WithSession(ctx, sess), "/landlord/dashboard"))

		assert.False(t, called)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "insufficient_landlord_permissions", decodeError(t, rec))
	})

	t.Run("browser requests redirect with a flash cookie", func(t *testing.T) {
		t.Parallel()

		fix := newOrchestratorFixture(t, owner)

		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/landlord/dashboard", nil)
		var called bool
		fix.auth.RequireLandlord(cfg)(okHandler(&called)).ServeHTTP(rec, r)

		assert.False(t, called)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/landlord/login", rec.Header().Get("Location"))

		cookies := rec.Result().Cookies()
		require.NotEmpty(t, cookies)
		assert.Equal(t, "gatekeeper_flash", cookies[0].Name)
	})
}

func TestRequireTenant(t *testing.T) {
	t.Parallel()

	acme := activeTenant("Acme", "acme")
	beta := activeTenant("Beta", "beta")
	alice := &testUser{
		id:      uuid.New(),
		email:   "alice@acme.test",
		hash:    hashPassword(t, "secret"),
		tenants: []uuid.UUID{acme.ID},
	}
	owner := &testUser{
		id:       uuid.New(),
		email:    "owner@example.com",
		hash:     hashPassword(t, "secret"),
		landlord: true,
	}
	cfg := guard.DefaultMiddlewareConfig()

	t.Run("admits members of the resolved tenant", func(t *testing.T) {
		t.Parallel()

		fix := newOrchestratorFixture(t, alice)
		fix.tenants.tenants[acme.ID] = acme
		ctx := tenant.WithTenant(context.Background(), acme)
		sess := newTestSession(t, fix.sessions)
		require.True(t, fix.auth.Tenant().Attempt(ctx, sess, guard.Credentials{"email": "alice@acme.test", "password": "secret"}))

		var called bool
		rec := httptest.NewRecorder()
		fix.auth.RequireTenant(cfg)(okHandler(&called)).
			ServeHTTP(rec, jsonRequest(t, session.WithSession(ctx, sess), "/dashboard"))

		assert.True(t, called)
	})

	t.Run("unresolved tenant gets 404", func(t *testing.T) {
		t.Parallel()

		fix := newOrchestratorFixture(t, alice)
		var called bool
		rec := httptest.NewRecorder()
		fix.auth.RequireTenant(cfg)(okHandler(&called)).
			ServeHTTP(rec, jsonRequest(t, context.Background(), "/dashboard"))

		assert.False(t, called)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "tenant_not_found", decodeError(t, rec))
	})

	t.Run("unauthenticated gets 401", func(t *testing.T) {
		t.Parallel()

		fix := newOrchestratorFixture(t, alice)
		fix.tenants.tenants[acme.ID] = acme
		ctx := tenant.WithTenant(context.Background(), acme)
		sess := newTestSession(t, fix.sessions)

		var called bool
		rec := httptest.NewRecorder()
		fix.auth.RequireTenant(cfg)(okHandler(&called)).
			ServeHTTP(rec, jsonRequest(t, session.WithSession(ctx, sess), "/dashboard"))

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthenticated", decodeError(t, rec))
	})

	t.Run("session bound to another tenant gets 403", func(t *testing.T) {
		t.Parallel()

		fix := newOrchestratorFixture(t, alice)
		fix.tenants.tenants[acme.ID] = acme
		fix.tenants.tenants[beta.ID] = beta

		loginCtx := tenant.WithTenant(context.Background(), acme)
		sess := newTestSession(t, fix.sessions)
		require.True(t, fix.auth.Tenant().Attempt(loginCtx, sess, guard.Credentials{"email": "alice@acme.test", "password": "secret"}))

		// The URL resolves beta while the session is bound to acme.
		requestCtx := session.WithSession(tenant.WithTenant(context.Background(), beta), sess)
		var called bool
		rec := httptest.NewRecorder()
		fix.auth.RequireTenant(cfg)(okHandler(&called)).
			ServeHTTP(rec, jsonRequest(t, requestCtx, "/dashboard"))

		assert.False(t, called)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "access_denied", decodeError(t, rec))
	})

	t.Run("impersonating landlord is admitted", func(t *testing.T) {
		t.Parallel()

		fix := newOrchestratorFixture(t, owner)
		fix.tenants.tenants[acme.ID] = acme

		ctx := context.Background()
		sess := newTestSession(t, fix.sessions)
		require.True(t, fix.auth.Landlord().Attempt(ctx, sess, guard.Credentials{"email": "owner@example.com", "password": "secret"}))
		require.True(t, fix.auth.ImpersonateTenant(ctx, sess, acme.ID))

		requestCtx := session.WithSession(tenant.WithTenant(ctx, acme), sess)
		var called bool
		rec := httptest.NewRecorder()
		fix.auth.RequireTenant(cfg)(okHandler(&called)).
			ServeHTTP(rec, jsonRequest(t, requestCtx, "/dashboard"))

		assert.True(t, called)
	})

	t.Run("landlord without impersonation gets 403", func(t *testing.T) {
		t.Parallel()

		fix := newOrchestratorFixture(t, owner)
		fix.tenants.tenants[acme.ID] = acme

		ctx := context.Background()
		sess := newTestSession(t, fix.sessions)
		require.True(t, fix.auth.Landlord().Attempt(ctx, sess, guard.Credentials{"email": "owner@example.com", "password": "secret"}))

		requestCtx := session.WithSession(tenant.WithTenant(ctx, acme), sess)
		var called bool
		rec := httptest.NewRecorder()
		fix.auth.RequireTenant(cfg)(okHandler(&called)).
			ServeHTTP(rec, jsonRequest(t, requestCtx, "/dashboard"))

		assert.False(t, called)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
