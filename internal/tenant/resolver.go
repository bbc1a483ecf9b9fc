package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
)

// Resolver resolves tenants by identifier.
type Resolver interface {
	ByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
}

// DBResolver implements Resolver using database queries.
type DBResolver struct {
	queries repository.Querier
}

// NewDBResolver creates a new database-backed tenant resolver.
func NewDBResolver(queries repository.Querier) *DBResolver {
	return &DBResolver{queries: queries}
}

// ByID resolves a tenant by ID.
func (r *DBResolver) ByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	row, err := r.queries.GetTenantByID(ctx, repository.UUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	t := fromRow(row)
	return &t, nil
}

func fromRow(row repository.Tenant) Tenant {
	return Tenant{
		ID:     repository.ToUUID(row.ID),
		Slug:   row.Slug,
		Name:   row.Name,
		Status: row.Status,
	}
}

// Compile-time check that DBResolver implements Resolver.
var _ Resolver = (*DBResolver)(nil)
