package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const incrementNumberSequence = `-- name: IncrementNumberSequence :one
UPDATE number_sequences
SET next_number = next_number + 1,
    updated_at = now()
WHERE tenant_id = $1
  AND document_type = $2
  AND year = $3
RETURNING next_number - 1
`

type IncrementNumberSequenceParams struct {
	TenantID     pgtype.UUID
	DocumentType string
	Year         int32
}

// IncrementNumberSequence issues the stored next_number and bumps it in one
// statement. Returns pgx.ErrNoRows when no sequence row exists.
func (q *Queries) IncrementNumberSequence(ctx context.Context, arg IncrementNumberSequenceParams) (int64, error) {
	row := q.db.QueryRow(ctx, incrementNumberSequence, arg.TenantID, arg.DocumentType, arg.Year)
	var issued int64
	err := row.Scan(&issued)
	return issued, err
}

const seedNumberSequence = `-- name: SeedNumberSequence :one
INSERT INTO number_sequences (tenant_id, document_type, year, next_number)
VALUES ($1, $2, $3, $4::bigint + 1)
ON CONFLICT (tenant_id, document_type, year) DO NOTHING
RETURNING next_number - 1
`

type SeedNumberSequenceParams struct {
	TenantID     pgtype.UUID
	DocumentType string
	Year         int32
	Issued       int64
}

// SeedNumberSequence creates the sequence row with Issued already consumed.
// Returns pgx.ErrNoRows when another allocation created the row first.
func (q *Queries) SeedNumberSequence(ctx context.Context, arg SeedNumberSequenceParams) (int64, error) {
	row := q.db.QueryRow(ctx, seedNumberSequence,
		arg.TenantID,
		arg.DocumentType,
		arg.Year,
		arg.Issued,
	)
	var issued int64
	err := row.Scan(&issued)
	return issued, err
}
