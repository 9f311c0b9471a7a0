// Package memory provides in-memory user and tenant stores for tests
// and single-process development setups.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/callcocam/gatekeeper/internal/storage"
	"github.com/callcocam/gatekeeper/pkg/guard"
	"github.com/callcocam/gatekeeper/pkg/rbac"
	"github.com/callcocam/gatekeeper/pkg/tenant"
)

// UserStore keeps users in memory, keyed by id and lowercased email.
type UserStore struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]*storage.User
	byEmail    map[string]*storage.User
	authorizer rbac.Authorizer
}

func NewUserStore(authorizer rbac.Authorizer) *UserStore {
	return &UserStore{
		byID:       make(map[uuid.UUID]*storage.User),
		byEmail:    make(map[string]*storage.User),
		authorizer: authorizer,
	}
}

// Put inserts or replaces a user record.
func (s *UserStore) Put(rec storage.UserRecord) *storage.User {
	user := storage.NewUser(rec, s.authorizer)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[rec.ID] = user
	s.byEmail[strings.ToLower(rec.Email)] = user
	return user
}

// Remove deletes a user.
func (s *UserStore) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.byID[id]; ok {
		delete(s.byEmail, strings.ToLower(user.Email()))
		delete(s.byID, id)
	}
}

func (s *UserStore) FindByID(_ context.Context, id uuid.UUID) (guard.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, guard.ErrUserNotFound
	}
	return user, nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (guard.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, guard.ErrUserNotFound
	}
	return user, nil
}

// TenantStore keeps tenants in memory. It serves both tenant resolution
// and landlord-side tenant listings.
type TenantStore struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*tenant.Tenant
}

func NewTenantStore() *TenantStore {
	return &TenantStore{tenants: make(map[uuid.UUID]*tenant.Tenant)}
}

// Put inserts or replaces a tenant.
func (s *TenantStore) Put(t *tenant.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
}

func (s *TenantStore) GetByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (s *TenantStore) GetBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tenants {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (s *TenantStore) GetByDomain(_ context.Context, domain string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tenants {
		if t.Domain != "" && strings.EqualFold(t.Domain, domain) {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (s *TenantStore) ListActive(_ context.Context) ([]*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*tenant.Tenant
	for _, t := range s.tenants {
		if t.IsActive() {
			out = append(out, t)
		}
	}
	return out, nil
}
