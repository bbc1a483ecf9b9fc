package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
)

// DefaultPageSize is used when a Lister is built with a non-positive size.
const DefaultPageSize = 100

// Lister streams every tenant without loading them all at once.
type Lister interface {
	// Each calls fn for every tenant in id order. Iteration stops at the
	// first error fn returns; ErrStopIteration stops it without error.
	Each(ctx context.Context, fn func(Tenant) error) error
}

// DBLister pages through the tenants table by id.
type DBLister struct {
	queries  repository.Querier
	pageSize int32
}

// NewDBLister creates a database-backed tenant lister.
func NewDBLister(queries repository.Querier, pageSize int) *DBLister {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &DBLister{queries: queries, pageSize: int32(pageSize)}
}

// Each walks all tenants one page at a time.
func (l *DBLister) Each(ctx context.Context, fn func(Tenant) error) error {
	var after pgtype.UUID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rows, err := l.queries.ListTenantsPage(ctx, repository.ListTenantsPageParams{
			AfterID: after,
			Limit:   l.pageSize,
		})
		if err != nil {
			return fmt.Errorf("failed to list tenants: %w", err)
		}

		for _, row := range rows {
			if err := fn(fromRow(row)); err != nil {
				if errors.Is(err, ErrStopIteration) {
					return nil
				}
				return err
			}
		}

		if int32(len(rows)) < l.pageSize {
			return nil
		}
		after = rows[len(rows)-1].ID
	}
}

var _ Lister = (*DBLister)(nil)
