package scopes

import (
	"slices"
	"sort"
	"strings"
)

const (
	// ScopeSeparator is used to separate multiple permission scopes in a string
	ScopeSeparator = " "

	// ScopeWildcard represents a wildcard scope that matches everything
	ScopeWildcard = "*"

	// ScopeDelimiter is used to separate scope parts (e.g., "tenants.read")
	ScopeDelimiter = "."
)

// ParseScopes converts a space-separated permission string into a slice.
// Trims spaces and removes empty entries. Returns nil for empty input.
func ParseScopes(scopesStr string) []string {
	scopesStr = strings.TrimSpace(scopesStr)
	if scopesStr == "" {
		return nil
	}

	parts := strings.Split(scopesStr, ScopeSeparator)
	scopes := make([]string, 0, len(parts))

	for i := range parts {
		if parts[i] = strings.TrimSpace(parts[i]); parts[i] != "" {
			scopes = append(scopes, parts[i])
		}
	}

	return scopes
}

// JoinScopes converts a slice of permission scopes back to a space-separated string.
func JoinScopes(scopes []string) string {
	if len(scopes) == 0 {
		return ""
	}
	return strings.Join(scopes, ScopeSeparator)
}

// ScopeMatches checks if a single scope matches a pattern.
//
// Pattern matching rules:
//   - Direct match: "tenants.read" matches "tenants.read"
//   - Global wildcard: "*" matches any scope
//   - Namespace wildcard: "landlord.*" matches any scope starting with "landlord."
func ScopeMatches(scope, pattern string) bool {
	if scope == pattern || pattern == ScopeWildcard {
		return true
	}

	if strings.HasSuffix(pattern, ScopeWildcard) {
		prefix := strings.TrimSuffix(pattern, ScopeWildcard)
		prefix = strings.TrimSuffix(prefix, ScopeDelimiter)
		return strings.HasPrefix(scope, prefix+ScopeDelimiter)
	}

	return false
}

// HasScope checks if the granted scopes contain a specific scope,
// honoring wildcards and hierarchical matching.
func HasScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if ScopeMatches(scope, s) {
			return true
		}
	}
	return false
}

// hasWildcard checks if any scope in the collection is the global wildcard.
func hasWildcard(scopes []string) bool {
	return slices.Contains(scopes, ScopeWildcard)
}

// HasAllScopes checks if the granted scopes cover every required scope.
// An empty required slice is always satisfied.
func HasAllScopes(scopes, required []string) bool {
	if len(required) == 0 {
		return true
	}
	if len(scopes) == 0 {
		return false
	}
	if hasWildcard(scopes) {
		return true
	}

	for _, req := range required {
		if !HasScope(scopes, req) {
			return false
		}
	}
	return true
}

// HasAnyScopes checks if the granted scopes cover at least one required scope.
// An empty required slice is always satisfied.
func HasAnyScopes(scopes, required []string) bool {
	if len(required) == 0 {
		return true
	}
	if len(scopes) == 0 {
		return false
	}
	if hasWildcard(scopes) {
		return true
	}

	for _, req := range required {
		if HasScope(scopes, req) {
			return true
		}
	}
	return false
}

// NormalizeScopes deduplicates and sorts a scope collection.
// Returns nil for empty input.
func NormalizeScopes(scopes []string) []string {
	if len(scopes) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(scopes))
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	sort.Strings(out)
	return out
}
