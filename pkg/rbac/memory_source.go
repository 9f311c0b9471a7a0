package rbac

import (
	"context"
	"sync"
)

// inMemRoleSource serves a fixed role map with defensive copies.
type inMemRoleSource struct {
	mu    sync.RWMutex
	roles map[string]Role
}

// NewInMemRoleSource creates a role source from a map of roles. The
// input is deep-copied so later mutations do not leak in.
func NewInMemRoleSource(roles map[string]Role) RoleSource {
	rolesCopy := make(map[string]Role, len(roles))
	for name, role := range roles {
		rolesCopy[name] = copyRole(role)
	}
	return &inMemRoleSource{roles: rolesCopy}
}

func (s *inMemRoleSource) Load(ctx context.Context) (map[string]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// The authorizer treats the returned map as read-only.
	return s.roles, nil
}

func copyRole(role Role) Role {
	perms := make([]string, len(role.Permissions))
	copy(perms, role.Permissions)
	inherits := make([]string, len(role.Inherits))
	copy(inherits, role.Inherits)
	return Role{Permissions: perms, Inherits: inherits}
}
