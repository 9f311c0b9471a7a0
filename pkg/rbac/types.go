package rbac

import "github.com/callcocam/gatekeeper/pkg/scopes"

// MaxInheritanceDepth caps role inheritance nesting.
const MaxInheritanceDepth = 10

// Role is a named set of permissions with optional inheritance.
// Permissions use dot notation ("tenants.view") and support trailing
// wildcards ("landlord.*").
type Role struct {
	Permissions []string `yaml:"permissions"`
	Inherits    []string `yaml:"inherits"`
}

// Can checks a direct permission on the role, ignoring inheritance.
func (r *Role) Can(permission string) bool {
	return scopes.HasScope(r.Permissions, permission)
}
