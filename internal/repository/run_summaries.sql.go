package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const runSummaryColumns = `id, type, run_at, total_processed, total_successful, total_failed,
    tenants_processed, duration_ms, per_tenant_results, error_message, error_stack, created_at`

const createRunSummary = `-- name: CreateRunSummary :one
INSERT INTO run_summaries (
    id, type, run_at, total_processed, total_successful, total_failed,
    tenants_processed, duration_ms, per_tenant_results, error_message, error_stack
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)
RETURNING ` + runSummaryColumns

type CreateRunSummaryParams struct {
	ID               pgtype.UUID
	Type             string
	RunAt            pgtype.Timestamptz
	TotalProcessed   int32
	TotalSuccessful  int32
	TotalFailed      int32
	TenantsProcessed int32
	DurationMs       int64
	PerTenantResults []byte
	ErrorMessage     pgtype.Text
	ErrorStack       pgtype.Text
}

func (q *Queries) CreateRunSummary(ctx context.Context, arg CreateRunSummaryParams) (RunSummary, error) {
	row := q.db.QueryRow(ctx, createRunSummary,
		arg.ID,
		arg.Type,
		arg.RunAt,
		arg.TotalProcessed,
		arg.TotalSuccessful,
		arg.TotalFailed,
		arg.TenantsProcessed,
		arg.DurationMs,
		arg.PerTenantResults,
		arg.ErrorMessage,
		arg.ErrorStack,
	)
	var i RunSummary
	err := row.Scan(
		&i.ID,
		&i.Type,
		&i.RunAt,
		&i.TotalProcessed,
		&i.TotalSuccessful,
		&i.TotalFailed,
		&i.TenantsProcessed,
		&i.DurationMs,
		&i.PerTenantResults,
		&i.ErrorMessage,
		&i.ErrorStack,
		&i.CreatedAt,
	)
	return i, err
}

const getLatestRunSummary = `-- name: GetLatestRunSummary :one
SELECT ` + runSummaryColumns + `
FROM run_summaries
ORDER BY run_at DESC
LIMIT 1
`

func (q *Queries) GetLatestRunSummary(ctx context.Context) (RunSummary, error) {
	row := q.db.QueryRow(ctx, getLatestRunSummary)
	var i RunSummary
	err := row.Scan(
		&i.ID,
		&i.Type,
		&i.RunAt,
		&i.TotalProcessed,
		&i.TotalSuccessful,
		&i.TotalFailed,
		&i.TenantsProcessed,
		&i.DurationMs,
		&i.PerTenantResults,
		&i.ErrorMessage,
		&i.ErrorStack,
		&i.CreatedAt,
	)
	return i, err
}
