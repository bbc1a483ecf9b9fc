package tenant

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const tenantContextKey contextKey = "tenant"

// Tenant is an owner of invoices and number sequences.
type Tenant struct {
	ID     uuid.UUID
	Slug   string
	Name   string
	Status string // active, pending, suspended, cancelled
}

// NewContext returns a new context with the tenant attached.
func NewContext(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantContextKey, t)
}

// FromContext extracts the tenant from the context.
// Returns nil if no tenant is present.
func FromContext(ctx context.Context) *Tenant {
	t, ok := ctx.Value(tenantContextKey).(*Tenant)
	if !ok {
		return nil
	}
	return t
}

// IDFromContext returns the tenant ID from context, or uuid.Nil.
func IDFromContext(ctx context.Context) uuid.UUID {
	t := FromContext(ctx)
	if t == nil {
		return uuid.Nil
	}
	return t.ID
}

// IsActive returns true if the tenant status is "active".
func (t *Tenant) IsActive() bool {
	return t != nil && t.Status == "active"
}

// String identifies the tenant in log lines.
func (t Tenant) String() string {
	if t.Slug == "" {
		return t.ID.String()
	}
	return t.Slug + " (" + t.ID.String() + ")"
}
