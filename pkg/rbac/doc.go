// Package rbac resolves role names into effective permission sets.
//
// Roles come from a RoleSource (in-memory map or YAML document), may
// inherit from each other and carry wildcard permissions. The
// Authorizer flattens the inheritance graph once at construction, so
// permission checks at request time are simple lookups. The storage
// layer uses PermissionsFor to expand a user's role into the permission
// list the guards evaluate.
package rbac
