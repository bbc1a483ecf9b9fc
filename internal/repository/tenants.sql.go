package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listTenantsPage = `-- name: ListTenantsPage :many
SELECT id, slug, name, status, created_at, updated_at
FROM tenants
WHERE ($1::uuid IS NULL OR id > $1::uuid)
ORDER BY id
LIMIT $2
`

type ListTenantsPageParams struct {
	AfterID pgtype.UUID
	Limit   int32
}

// ListTenantsPage returns up to Limit tenants ordered by id, starting after
// AfterID. An invalid AfterID starts from the beginning.
func (q *Queries) ListTenantsPage(ctx context.Context, arg ListTenantsPageParams) ([]Tenant, error) {
	rows, err := q.db.Query(ctx, listTenantsPage, arg.AfterID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Tenant{}
	for rows.Next() {
		var i Tenant
		if err := rows.Scan(
			&i.ID,
			&i.Slug,
			&i.Name,
			&i.Status,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTenantByID = `-- name: GetTenantByID :one
SELECT id, slug, name, status, created_at, updated_at
FROM tenants
WHERE id = $1
`

func (q *Queries) GetTenantByID(ctx context.Context, id pgtype.UUID) (Tenant, error) {
	row := q.db.QueryRow(ctx, getTenantByID, id)
	var i Tenant
	err := row.Scan(
		&i.ID,
		&i.Slug,
		&i.Name,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
