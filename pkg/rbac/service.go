package rbac

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/callcocam/gatekeeper/pkg/scopes"
)

// Authorizer maps role names to effective permission sets. Inherited
// permissions are flattened at construction time, so runtime checks are
// lock-free map lookups.
type Authorizer interface {
	// Can checks if a role has the permission, direct or inherited.
	Can(roleName, permission string) error

	// CanAny checks if a role has any of the provided permissions.
	CanAny(roleName string, permissions ...string) error

	// CanAll checks if a role has all of the provided permissions.
	CanAll(roleName string, permissions ...string) error

	// CanFromContext checks the role stored in the context.
	CanFromContext(ctx context.Context, permission string) error

	// VerifyRole returns an error if the given role does not exist.
	VerifyRole(role string) error

	// GetRoles returns all role names, base roles first.
	GetRoles() []string

	// PermissionsFor returns the effective permission set of a role,
	// inherited permissions included. Unknown roles yield nil.
	PermissionsFor(roleName string) []string
}

// RoleSource provides the role definitions an Authorizer is built from.
type RoleSource interface {
	Load(ctx context.Context) (map[string]Role, error)
}

type authorizer struct {
	// rolePermissions is immutable after construction.
	rolePermissions map[string][]string
	sortedRoles     []string
}

// NewAuthorizer builds an Authorizer from the source, validating the
// inheritance graph and precomputing each role's effective permissions.
func NewAuthorizer(ctx context.Context, source RoleSource) (Authorizer, error) {
	roles, err := source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = make(map[string]Role)
	}

	if err := validateRoleInheritance(roles); err != nil {
		return nil, err
	}

	rolePermissions := make(map[string][]string)
	for roleName := range roles {
		all := collectPermissions(roleName, roles, make(map[string]bool), 0)
		rolePermissions[roleName] = scopes.NormalizeScopes(all)
	}

	return &authorizer{
		rolePermissions: rolePermissions,
		sortedRoles:     sortRolesByInheritance(roles),
	}, nil
}

func (a *authorizer) Can(roleName, permission string) error {
	permissions, exists := a.rolePermissions[roleName]
	if !exists {
		return ErrInvalidRole
	}
	if !scopes.HasScope(permissions, permission) {
		return ErrInsufficientPermissions
	}
	return nil
}

func (a *authorizer) CanAny(roleName string, permissions ...string) error {
	if len(permissions) == 0 {
		return nil
	}
	granted, exists := a.rolePermissions[roleName]
	if !exists {
		return ErrInvalidRole
	}
	if !scopes.HasAnyScopes(granted, permissions) {
		return ErrInsufficientPermissions
	}
	return nil
}

func (a *authorizer) CanAll(roleName string, permissions ...string) error {
	if len(permissions) == 0 {
		return nil
	}
	granted, exists := a.rolePermissions[roleName]
	if !exists {
		return ErrInvalidRole
	}
	if !scopes.HasAllScopes(granted, permissions) {
		return ErrInsufficientPermissions
	}
	return nil
}

func (a *authorizer) CanFromContext(ctx context.Context, permission string) error {
	role, ok := GetRoleFromContext(ctx)
	if !ok {
		return errors.Join(ErrRoleNotInContext, ErrInsufficientPermissions)
	}
	return a.Can(role, permission)
}

func (a *authorizer) VerifyRole(role string) error {
	if _, exists := a.rolePermissions[role]; !exists {
		return ErrInvalidRole
	}
	return nil
}

func (a *authorizer) GetRoles() []string {
	return a.sortedRoles
}

func (a *authorizer) PermissionsFor(roleName string) []string {
	permissions, exists := a.rolePermissions[roleName]
	if !exists {
		return nil
	}
	out := make([]string, len(permissions))
	copy(out, permissions)
	return out
}

func collectPermissions(roleName string, roles map[string]Role, visited map[string]bool, depth int) []string {
	if depth > MaxInheritanceDepth || visited[roleName] {
		return nil
	}
	visited[roleName] = true

	role, exists := roles[roleName]
	if !exists {
		return nil
	}

	result := make([]string, len(role.Permissions))
	copy(result, role.Permissions)
	for _, inherited := range role.Inherits {
		result = append(result, collectPermissions(inherited, roles, visited, depth+1)...)
	}
	return result
}

func sortRolesByInheritance(roles map[string]Role) []string {
	depths := make(map[string]int)
	visited := make(map[string]bool)
	for roleName := range roles {
		if !visited[roleName] {
			roleDepth(roleName, roles, depths, visited, make(map[string]bool))
		}
	}

	result := make([]string, 0, len(roles))
	for roleName := range roles {
		result = append(result, roleName)
	}
	slices.SortFunc(result, func(a, b string) int {
		if d := depths[a] - depths[b]; d != 0 {
			return d
		}
		// Stable order for roles at the same depth.
		return strings.Compare(a, b)
	})
	return result
}

func roleDepth(roleName string, roles map[string]Role, depths map[string]int, visited, inProcess map[string]bool) int {
	if visited[roleName] {
		return depths[roleName]
	}
	if inProcess[roleName] {
		return 0
	}
	inProcess[roleName] = true
	defer func() { inProcess[roleName] = false }()

	role, exists := roles[roleName]
	if !exists || len(role.Inherits) == 0 {
		depths[roleName] = 0
		visited[roleName] = true
		return 0
	}

	maxDepth := 0
	for _, inherited := range role.Inherits {
		if d := roleDepth(inherited, roles, depths, visited, inProcess) + 1; d > maxDepth {
			maxDepth = d
		}
	}
	depths[roleName] = maxDepth
	visited[roleName] = true
	return maxDepth
}

func validateRoleInheritance(roles map[string]Role) error {
	for roleName := range roles {
		if err := checkCircularInheritance(roleName, roles, []string{roleName}); err != nil {
			return err
		}
	}

	depths := make(map[string]int)
	visited := make(map[string]bool)
	for roleName := range roles {
		if !visited[roleName] {
			if d := roleDepth(roleName, roles, depths, visited, make(map[string]bool)); d > MaxInheritanceDepth {
				return errors.Join(ErrCircularInheritance,
					fmt.Errorf("inheritance depth exceeds maximum of %d", MaxInheritanceDepth))
			}
		}
	}
	return nil
}

func checkCircularInheritance(roleName string, roles map[string]Role, path []string) error {
	role, exists := roles[roleName]
	if !exists {
		return nil
	}
	for _, inherited := range role.Inherits {
		if slices.Contains(path, inherited) {
			return errors.Join(ErrCircularInheritance,
				fmt.Errorf("circular inheritance detected: %s -> %s", roleName, inherited))
		}
		if err := checkCircularInheritance(inherited, roles, append(path, inherited)); err != nil {
			return err
		}
	}
	return nil
}
