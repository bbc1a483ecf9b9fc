// Package worker consumes invoice events in the background.
//
// This file contains helpers for injecting tenant context into event
// handlers. Events carry only the tenant ID; handlers resolve the full tenant
// so downstream code can read it with tenant.FromContext.
package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/tenant"
)

// withTenantContext resolves tenantID and attaches the tenant to ctx.
//
// Without a resolver a minimal tenant (ID only, assumed active) is attached.
func withTenantContext(ctx context.Context, resolver tenant.Resolver, tenantID uuid.UUID) (context.Context, *tenant.Tenant, error) {
	if tenantID == uuid.Nil {
		return ctx, nil, tenant.ErrNoTenant
	}

	if resolver == nil {
		t := &tenant.Tenant{ID: tenantID, Status: "active"}
		return tenant.NewContext(ctx, t), t, nil
	}

	t, err := resolver.ByID(ctx, tenantID)
	if err != nil {
		return ctx, nil, fmt.Errorf("failed to resolve tenant %s: %w", tenantID, err)
	}
	return tenant.NewContext(ctx, t), t, nil
}
