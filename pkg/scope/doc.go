// Package scope provides request-scoped tenant filtering state for
// multi-tenant data access.
//
// A Scope records whether tenant filtering is active and which column/value
// constraints must be applied to every tenant-scoped query in the request.
// Storage layers honor it through the Query hook:
//
//	rows := scope.MustFromContext(ctx).Apply(query)
//
// The contract is strict: enabled and bound filters, enabled and unbound
// matches nothing, disabled does not filter. Returning nothing for an
// enabled-but-unbound scope keeps a half-configured request from leaking
// cross-tenant data.
//
// Scopes are created per request by Middleware and travel through the
// request context, never through package-level state.
package scope
