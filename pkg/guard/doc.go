// Package guard implements dual-context authentication for multi-tenant
// applications: a landlord guard for operator-side users and a tenant
// guard for users working inside a single tenant.
//
// Both guards share one mechanism and differ only in injected policy.
// The landlord guard verifies landlord authority on every retrieval and
// adds tenant impersonation; the tenant guard verifies tenant membership
// and binds the request's data scope to the active tenant. A session
// holds exactly one context at a time, recorded under well-known session
// keys, and the Orchestrator performs the transitions between them.
//
// Identity lookups live behind IdentityProvider. User capabilities such
// as roles, permissions and tenant membership are optional interfaces on
// the User type; a user that lacks one simply does not grant through it.
//
// Basic wiring:
//
//	landlord := guard.NewLandlordGuard(guard.NewLandlordProvider(users), sessions, tenants)
//	member := guard.NewTenantGuard(guard.NewTenantProvider(users), sessions, tenants)
//	auth := guard.NewOrchestrator(landlord, member, sessions, tenants)
//
//	if auth.Landlord().Attempt(ctx, sess, guard.Credentials{"email": email, "password": pass}) {
//		// landlord context established
//	}
package guard
