// Package scopes implements the permission grammar used by the guards.
//
// Permissions are dot-delimited hierarchical strings ("tenants.read",
// "landlord.users.manage") with wildcard support: "*" grants everything and
// "landlord.*" grants the whole landlord namespace. Per-tenant grants follow
// the "tenant.{id}.access" shape; TenantIDsFromScopes recovers the tenant
// ids from a grant set and TenantQualified builds the tenant-qualified form
// of an action for membership-scoped checks.
package scopes
