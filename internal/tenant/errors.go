package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when a tenant id does not resolve.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrNoTenant is returned when tenant context is required but not present.
	ErrNoTenant = errors.New("no tenant in context")

	// ErrStopIteration can be returned from a Lister callback to end the
	// walk early without reporting an error.
	ErrStopIteration = errors.New("stop tenant iteration")
)
