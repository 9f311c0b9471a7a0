// Package gatekeeper is a dual-context authentication and authorization
// toolkit for multi-tenant SaaS applications.
//
// It keeps two mutually exclusive identities per browser session: a
// landlord (platform operator) and a tenant user. Guards authenticate
// each side against the application's user storage, an orchestrator
// moves sessions between the two contexts, and landlords can
// impersonate tenants without losing their own identity.
//
// The facade wires everything from two storage interfaces:
//
//	gk := gatekeeper.New(gatekeeper.DefaultConfig(), gatekeeper.Dependencies{
//	    Users:   userStore,
//	    Tenants: tenantStore,
//	})
//	http.ListenAndServe(":8080", gk.Handler())
//
// Every subsystem is usable on its own: pkg/guard holds the guards and
// orchestrator, pkg/session the cookie-session manager and stores,
// pkg/tenant resolution and the tenant entity, pkg/rbac role-based
// permissions, and pkg/audit the security event trail.
package gatekeeper
