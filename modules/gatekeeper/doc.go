// Package gatekeeper mounts the dual-context authentication API:
// landlord and tenant logins, context switching, impersonation, and
// session-state introspection, backed by the guard orchestrator.
package gatekeeper
