package scopes

import (
	"fmt"
	"regexp"
)

// tenantAccessRe extracts the tenant identifier from a per-tenant access
// permission. Both numeric ids and UUIDs are accepted, e.g.
// "tenant.5.access" and "tenant.6f1b...c2.access".
var tenantAccessRe = regexp.MustCompile(`^tenant\.([0-9a-fA-F-]+)\.access$`)

// TenantAccessScope builds the per-tenant access permission for an id.
func TenantAccessScope(tenantID string) string {
	return fmt.Sprintf("tenant.%s.access", tenantID)
}

// TenantQualified builds the tenant-qualified form of an action,
// e.g. TenantQualified("reports.view", "5") -> "tenant.5.reports.view".
func TenantQualified(action, tenantID string) string {
	return fmt.Sprintf("tenant.%s.%s", tenantID, action)
}

// TenantIDsFromScopes extracts the tenant identifiers granted by
// "tenant.{id}.access"-shaped permissions. Non-matching scopes are ignored.
func TenantIDsFromScopes(scopes []string) []string {
	var ids []string
	for _, s := range scopes {
		if m := tenantAccessRe.FindStringSubmatch(s); m != nil {
			ids = append(ids, m[1])
		}
	}
	return ids
}
