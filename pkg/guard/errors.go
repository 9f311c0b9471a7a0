package guard

import "errors"

var (
	// ErrUserNotFound is returned by identity providers when no matching
	// user exists in the provider's realm. Infrastructure failures degrade
	// to this error so callers treat them as a non-match.
	ErrUserNotFound = errors.New("guard.user_not_found")

	// ErrNoIdentifier is returned when credentials carry only a password.
	ErrNoIdentifier = errors.New("guard.no_identifier")

	// ErrNoTenant is returned by tenant-scoped lookups when no tenant
	// could be resolved for the request.
	ErrNoTenant = errors.New("guard.no_tenant")
)
