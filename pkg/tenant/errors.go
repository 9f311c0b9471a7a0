package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when a tenant cannot be found.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInactiveTenant is returned when trying to use a tenant that is
	// inactive, suspended, or expired.
	ErrInactiveTenant = errors.New("tenant is not active")

	// ErrNoTenantInContext is returned when a required tenant is missing
	// from the request context.
	ErrNoTenantInContext = errors.New("no tenant in context")

	// ErrLandlordHost signals that the request host belongs to the landlord
	// and tenant resolution must stop with "no tenant".
	ErrLandlordHost = errors.New("landlord host, no tenant resolution")
)
