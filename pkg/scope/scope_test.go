package scope_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callcocam/gatekeeper/pkg/scope"
)

// fakeQuery records constraints so tests can observe what Apply did.
type fakeQuery struct {
	wheres map[string]string
	never  bool
}

func newFakeQuery() *fakeQuery {
	return &fakeQuery{wheres: make(map[string]string)}
}

func (q *fakeQuery) Where(column, value string) scope.Query {
	q.wheres[column] = value
	return q
}

func (q *fakeQuery) Never() scope.Query {
	q.never = true
	return q
}

func TestScope_EnableDisable(t *testing.T) {
	t.Parallel()

	s := scope.New()
	assert.False(t, s.Enabled())

	s.Enable()
	assert.True(t, s.Enabled())

	// Idempotent
	s.Enable()
	assert.True(t, s.Enabled())

	s.Disable()
	assert.False(t, s.Enabled())
	s.Disable()
	assert.False(t, s.Enabled())
}

func TestScope_Bind(t *testing.T) {
	t.Parallel()

	s := scope.New()
	s.Bind(scope.DefaultTenantKey, "5")

	require.True(t, s.Has(scope.DefaultTenantKey))
	v, ok := s.Value(scope.DefaultTenantKey)
	require.True(t, ok)
	assert.Equal(t, "5", v)

	// Overwrites prior value for the same key
	s.Bind(scope.DefaultTenantKey, "7")
	v, _ = s.Value(scope.DefaultTenantKey)
	assert.Equal(t, "7", v)
	assert.Len(t, s.Bindings(), 1)

	s.Bind("org_id", "9")
	bindings := s.Bindings()
	require.Len(t, bindings, 2)
	assert.Equal(t, scope.DefaultTenantKey, bindings[0].Key)
	assert.Equal(t, "org_id", bindings[1].Key)
}

func TestScope_Unbind(t *testing.T) {
	t.Parallel()

	s := scope.New()
	s.Bind(scope.DefaultTenantKey, "5")
	s.Unbind(scope.DefaultTenantKey)

	assert.False(t, s.Has(scope.DefaultTenantKey))
	_, ok := s.TenantID()
	assert.False(t, ok)
}

func TestScope_ApplyDisabled(t *testing.T) {
	t.Parallel()

	s := scope.New()
	s.Bind(scope.DefaultTenantKey, "5")

	q := newFakeQuery()
	s.Apply(q)

	assert.Empty(t, q.wheres)
	assert.False(t, q.never)
}

func TestScope_ApplyBound(t *testing.T) {
	t.Parallel()

	s := scope.New()
	s.Enable()
	s.Bind(scope.DefaultTenantKey, "5")

	q := newFakeQuery()
	s.Apply(q)

	assert.Equal(t, map[string]string{scope.DefaultTenantKey: "5"}, q.wheres)
	assert.False(t, q.never)
}

func TestScope_ApplyUnboundFailsClosed(t *testing.T) {
	t.Parallel()

	s := scope.New()
	s.Enable()

	q := newFakeQuery()
	s.Apply(q)

	assert.True(t, q.never, "enabled scope without bindings must match nothing")
	assert.Empty(t, q.wheres)
}

func TestScope_Reset(t *testing.T) {
	t.Parallel()

	s := scope.New()
	s.Enable()
	s.Bind(scope.DefaultTenantKey, "5")

	s.Reset()

	assert.False(t, s.Enabled())
	assert.Empty(t, s.Bindings())
}

func TestMiddleware_SeedsFreshScope(t *testing.T) {
	t.Parallel()

	var seen *scope.Scope
	handler := scope.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = scope.MustFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotNil(t, seen)
	assert.False(t, seen.Enabled())

	// Second request gets its own scope
	first := seen
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotSame(t, first, seen)
}

func TestFromContext_Missing(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := scope.FromContext(req.Context())
	assert.False(t, ok)

	assert.Panics(t, func() {
		scope.MustFromContext(req.Context())
	})
}
