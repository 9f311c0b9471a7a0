// Package storage defines the persisted user model shared by the
// memory and Postgres backends.
package storage

import (
	"slices"

	"github.com/google/uuid"

	"github.com/callcocam/gatekeeper/pkg/rbac"
	"github.com/callcocam/gatekeeper/pkg/scopes"
)

// UserRecord is the raw persisted shape of a user, as scanned from the
// database or seeded in memory.
type UserRecord struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash []byte
	IsLandlord   bool
	Roles        []string
	Permissions  []string
	TenantIDs    []uuid.UUID
}

// User implements the identity and capability interfaces the guards
// consume. Role-derived permissions are expanded once at construction.
type User struct {
	rec   UserRecord
	perms []string
}

// NewUser builds a User from its record. When an authorizer is given,
// each role's effective permissions are folded into the user's direct
// permission grants.
func NewUser(rec UserRecord, authorizer rbac.Authorizer) *User {
	perms := slices.Clone(rec.Permissions)
	if authorizer != nil {
		for _, role := range rec.Roles {
			perms = append(perms, authorizer.PermissionsFor(role)...)
		}
	}
	return &User{rec: rec, perms: scopes.NormalizeScopes(perms)}
}

func (u *User) ID() uuid.UUID        { return u.rec.ID }
func (u *User) Email() string        { return u.rec.Email }
func (u *User) Name() string         { return u.rec.Name }
func (u *User) PasswordHash() []byte { return u.rec.PasswordHash }
func (u *User) IsLandlord() bool     { return u.rec.IsLandlord }

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.rec.Roles, role)
}

func (u *User) Roles() []string { return slices.Clone(u.rec.Roles) }

func (u *User) HasPermission(permission string) bool {
	return scopes.HasScope(u.perms, permission)
}

func (u *User) Permissions() []string { return slices.Clone(u.perms) }

func (u *User) BelongsToTenant(tenantID uuid.UUID) bool {
	return slices.Contains(u.rec.TenantIDs, tenantID)
}

func (u *User) TenantIDs() []uuid.UUID { return slices.Clone(u.rec.TenantIDs) }
