package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a tenant.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Tenant represents an isolated customer organization. Only active tenants
// may be selected as the scoping target for new sessions.
type Tenant struct {
	ID           uuid.UUID  `json:"id"`
	Slug         string     `json:"slug"`
	Domain       string     `json:"domain,omitempty"`
	Name         string     `json:"name"`
	Status       Status     `json:"status"`
	Plan         string     `json:"plan"`
	MaxUsers     int        `json:"max_users"`
	MaxStorageMB int        `json:"max_storage_mb"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsActive reports whether the tenant may back new sessions.
// An expired tenant is not active regardless of its status column.
func (t *Tenant) IsActive() bool {
	if t == nil || t.Status != StatusActive {
		return false
	}
	if t.ExpiresAt != nil && time.Now().After(*t.ExpiresAt) {
		return false
	}
	return true
}

// Suspend transitions the tenant to suspended.
// Returns false if the tenant is already suspended.
func (t *Tenant) Suspend(now time.Time) bool {
	if t.Status == StatusSuspended {
		return false
	}
	t.Status = StatusSuspended
	t.UpdatedAt = now
	return true
}

// Activate transitions the tenant back to active.
// Returns false if the tenant is already active.
func (t *Tenant) Activate(now time.Time) bool {
	if t.Status == StatusActive {
		return false
	}
	t.Status = StatusActive
	t.UpdatedAt = now
	return true
}

// Summary is the session snapshot of a tenant, stored under the
// "current_tenant" session key.
type Summary struct {
	ID     uuid.UUID `json:"id"`
	Slug   string    `json:"slug"`
	Name   string    `json:"name"`
	Domain string    `json:"domain,omitempty"`
}

// Summary returns the session snapshot for the tenant.
func (t *Tenant) Summary() Summary {
	return Summary{
		ID:     t.ID,
		Slug:   t.Slug,
		Name:   t.Name,
		Domain: t.Domain,
	}
}

// Provider loads tenant records from a data source.
type Provider interface {
	// GetByID retrieves a tenant by its unique id.
	// Returns ErrTenantNotFound if no tenant matches.
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// GetBySlug retrieves a tenant by its URL-safe slug.
	// Returns ErrTenantNotFound if no tenant matches.
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)

	// GetByDomain retrieves a tenant by its custom domain.
	// Returns ErrTenantNotFound if no tenant matches.
	GetByDomain(ctx context.Context, domain string) (*Tenant, error)
}
