package guard_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/callcocam/gatekeeper/pkg/guard"
	"github.com/callcocam/gatekeeper/pkg/session"
	"github.com/callcocam/gatekeeper/pkg/tenant"
)

// testUser implements every capability interface.
type testUser struct {
	id       uuid.UUID
	email    string
	name     string
	hash     []byte
	landlord bool
	roles    []string
	perms    []string
	tenants  []uuid.UUID
}

func (u *testUser) ID() uuid.UUID        { return u.id }
func (u *testUser) Email() string        { return u.email }
func (u *testUser) Name() string         { return u.name }
func (u *testUser) PasswordHash() []byte { return u.hash }
func (u *testUser) IsLandlord() bool     { return u.landlord }

func (u *testUser) HasRole(role string) bool {
	for _, r := range u.roles {
		if r == role {
			return true
		}
	}
	return false
}
func (u *testUser) Roles() []string { return u.roles }

func (u *testUser) HasPermission(perm string) bool {
	for _, p := range u.perms {
		if p == perm {
			return true
		}
	}
	return false
}
func (u *testUser) Permissions() []string { return u.perms }

func (u *testUser) BelongsToTenant(id uuid.UUID) bool {
	for _, t := range u.tenants {
		if t == id {
			return true
		}
	}
	return false
}
func (u *testUser) TenantIDs() []uuid.UUID { return u.tenants }

// bareUser implements only the base identity, no capabilities.
type bareUser struct {
	id    uuid.UUID
	email string
	hash  []byte
}

func (u *bareUser) ID() uuid.UUID        { return u.id }
func (u *bareUser) Email() string        { return u.email }
func (u *bareUser) Name() string         { return "Bare" }
func (u *bareUser) PasswordHash() []byte { return u.hash }

func hashPassword(t *testing.T, password string) []byte {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}

// fakeUserStore is an in-memory guard.UserStore. Setting failErr makes
// every lookup return it, simulating infrastructure failure.
type fakeUserStore struct {
	users   map[uuid.UUID]guard.User
	byEmail map[string]guard.User
	failErr error

	lookups int
}

func newFakeUserStore(users ...guard.User) *fakeUserStore {
	s := &fakeUserStore{
		users:   make(map[uuid.UUID]guard.User),
		byEmail: make(map[string]guard.User),
	}
	for _, u := range users {
		s.users[u.ID()] = u
		s.byEmail[u.Email()] = u
	}
	return s
}

func (s *fakeUserStore) FindByID(_ context.Context, id uuid.UUID) (guard.User, error) {
	s.lookups++
	if s.failErr != nil {
		return nil, s.failErr
	}
	u, ok := s.users[id]
	if !ok {
		return nil, guard.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (guard.User, error) {
	s.lookups++
	if s.failErr != nil {
		return nil, s.failErr
	}
	u, ok := s.byEmail[email]
	if !ok {
		return nil, guard.ErrUserNotFound
	}
	return u, nil
}

// fakeTenantProvider is an in-memory tenant.Provider and guard.TenantLister.
type fakeTenantProvider struct {
	tenants map[uuid.UUID]*tenant.Tenant
}

func newFakeTenantProvider(tenants ...*tenant.Tenant) *fakeTenantProvider {
	p := &fakeTenantProvider{tenants: make(map[uuid.UUID]*tenant.Tenant)}
	for _, t := range tenants {
		p.tenants[t.ID] = t
	}
	return p
}

func (p *fakeTenantProvider) GetByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	t, ok := p.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (p *fakeTenantProvider) GetBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	for _, t := range p.tenants {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (p *fakeTenantProvider) GetByDomain(_ context.Context, domain string) (*tenant.Tenant, error) {
	for _, t := range p.tenants {
		if t.Domain == domain {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (p *fakeTenantProvider) ListActive(_ context.Context) ([]*tenant.Tenant, error) {
	var out []*tenant.Tenant
	for _, t := range p.tenants {
		if t.IsActive() {
			out = append(out, t)
		}
	}
	return out, nil
}

func activeTenant(name, slug string) *tenant.Tenant {
	now := time.Now()
	return &tenant.Tenant{
		ID:        uuid.New(),
		Slug:      slug,
		Name:      name,
		Status:    tenant.StatusActive,
		Plan:      "starter",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func suspendedTenant(name, slug string) *tenant.Tenant {
	t := activeTenant(name, slug)
	t.Status = tenant.StatusSuspended
	return t
}

func newTestSession(t *testing.T, store session.Store) *session.Session {
	t.Helper()
	sess := session.New(uuid.NewString(), time.Hour)
	require.NoError(t, store.Create(context.Background(), sess))
	return sess
}
