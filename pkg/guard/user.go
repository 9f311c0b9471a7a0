package guard

import (
	"github.com/google/uuid"

	"github.com/callcocam/gatekeeper/pkg/scopes"
)

// User is the minimal identity every guard operates on.
// Implementations return structs from their stores and may additionally
// satisfy the capability interfaces below.
type User interface {
	ID() uuid.UUID
	Email() string
	Name() string
	PasswordHash() []byte
}

// RoleHolder is implemented by users that carry named roles.
type RoleHolder interface {
	HasRole(role string) bool
	Roles() []string
}

// PermissionHolder is implemented by users that carry named permissions.
// Permissions may contain wildcards in the "resource.*" form.
type PermissionHolder interface {
	HasPermission(permission string) bool
	Permissions() []string
}

// TenantMember is implemented by users associated with one or more tenants,
// whether by column, relation or pivot table.
type TenantMember interface {
	BelongsToTenant(tenantID uuid.UUID) bool
	TenantIDs() []uuid.UUID
}

// LandlordFlagged is implemented by users with an explicit landlord flag.
type LandlordFlagged interface {
	IsLandlord() bool
}

// Landlord authority is granted by flag, role or a landlord.* permission,
// checked in that order.
var landlordRoles = []string{"landlord", "super-admin", "admin"}

// Global authority additionally unlocks access to every tenant.
var globalRoles = []string{"landlord", "super-admin"}

const landlordPermissionPrefix = "landlord."

// HasLandlordAuthority reports whether u may authenticate on the landlord side.
func HasLandlordAuthority(u User) bool {
	if u == nil {
		return false
	}
	if f, ok := u.(LandlordFlagged); ok && f.IsLandlord() {
		return true
	}
	if rh, ok := u.(RoleHolder); ok {
		for _, role := range landlordRoles {
			if rh.HasRole(role) {
				return true
			}
		}
	}
	if ph, ok := u.(PermissionHolder); ok {
		for _, perm := range ph.Permissions() {
			if len(perm) > len(landlordPermissionPrefix) && perm[:len(landlordPermissionPrefix)] == landlordPermissionPrefix {
				return true
			}
		}
	}
	return false
}

// HasGlobalAuthority reports whether u may act on any tenant without
// an explicit membership or access grant.
func HasGlobalAuthority(u User) bool {
	if u == nil {
		return false
	}
	if f, ok := u.(LandlordFlagged); ok && f.IsLandlord() {
		return true
	}
	if rh, ok := u.(RoleHolder); ok {
		for _, role := range globalRoles {
			if rh.HasRole(role) {
				return true
			}
		}
	}
	return false
}

// IsSuperAdmin reports whether u holds the super-admin role.
func IsSuperAdmin(u User) bool {
	rh, ok := u.(RoleHolder)
	return ok && rh.HasRole("super-admin")
}

// userHasPermission checks a set of alternative permission names against u.
// A user without permission support falls back to the permissive policy.
func userHasPermission(u User, permissive bool, perms ...string) bool {
	ph, ok := u.(PermissionHolder)
	if !ok {
		return permissive
	}
	for _, perm := range perms {
		if ph.HasPermission(perm) {
			return true
		}
		if scopes.HasScope(ph.Permissions(), perm) {
			return true
		}
	}
	return false
}
