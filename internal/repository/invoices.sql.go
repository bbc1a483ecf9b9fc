package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const invoiceColumns = `id, tenant_id, invoice_number, status, content, invoice_date, valid_until,
    is_recurring_template, recurring_status, recurring_interval,
    recurring_next_execution_date, recurring_end_date, recurring_total_generated,
    recurring_last_generated_at, recurring_auto_send_email, recurring_parent_id,
    recurring_cycle_date, is_generated_from_recurring, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var i Invoice
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.InvoiceNumber,
		&i.Status,
		&i.Content,
		&i.InvoiceDate,
		&i.ValidUntil,
		&i.IsRecurringTemplate,
		&i.RecurringStatus,
		&i.RecurringInterval,
		&i.RecurringNextExecutionDate,
		&i.RecurringEndDate,
		&i.RecurringTotalGenerated,
		&i.RecurringLastGeneratedAt,
		&i.RecurringAutoSendEmail,
		&i.RecurringParentID,
		&i.RecurringCycleDate,
		&i.IsGeneratedFromRecurring,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listDueTemplates = `-- name: ListDueTemplates :many
SELECT ` + invoiceColumns + `
FROM invoices
WHERE tenant_id = $1
  AND is_recurring_template = TRUE
  AND recurring_status = 'active'
  AND recurring_next_execution_date <= $2::date
ORDER BY recurring_next_execution_date, id
`

type ListDueTemplatesParams struct {
	TenantID pgtype.UUID
	AsOf     pgtype.Date
}

func (q *Queries) ListDueTemplates(ctx context.Context, arg ListDueTemplatesParams) ([]Invoice, error) {
	rows, err := q.db.Query(ctx, listDueTemplates, arg.TenantID, arg.AsOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Invoice{}
	for rows.Next() {
		i, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTemplate = `-- name: GetTemplate :one
SELECT ` + invoiceColumns + `
FROM invoices
WHERE id = $1
  AND tenant_id = $2
  AND is_recurring_template = TRUE
`

type GetTemplateParams struct {
	ID       pgtype.UUID
	TenantID pgtype.UUID
}

func (q *Queries) GetTemplate(ctx context.Context, arg GetTemplateParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getTemplate, arg.ID, arg.TenantID))
}

const getInvoice = `-- name: GetInvoice :one
SELECT ` + invoiceColumns + `
FROM invoices
WHERE id = $1
  AND tenant_id = $2
`

type GetInvoiceParams struct {
	ID       pgtype.UUID
	TenantID pgtype.UUID
}

func (q *Queries) GetInvoice(ctx context.Context, arg GetInvoiceParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoice, arg.ID, arg.TenantID))
}

const getGeneratedInvoiceForCycle = `-- name: GetGeneratedInvoiceForCycle :one
SELECT ` + invoiceColumns + `
FROM invoices
WHERE tenant_id = $1
  AND recurring_parent_id = $2
  AND recurring_cycle_date = $3
  AND is_generated_from_recurring = TRUE
`

type GetGeneratedInvoiceForCycleParams struct {
	TenantID           pgtype.UUID
	RecurringParentID  pgtype.UUID
	RecurringCycleDate pgtype.Date
}

func (q *Queries) GetGeneratedInvoiceForCycle(ctx context.Context, arg GetGeneratedInvoiceForCycleParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getGeneratedInvoiceForCycle,
		arg.TenantID,
		arg.RecurringParentID,
		arg.RecurringCycleDate,
	))
}

const createInvoice = `-- name: CreateInvoice :one
INSERT INTO invoices (
    id, tenant_id, invoice_number, status, content, invoice_date, valid_until,
    recurring_parent_id, recurring_cycle_date, is_generated_from_recurring,
    created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11
)
RETURNING ` + invoiceColumns

type CreateInvoiceParams struct {
	ID                       pgtype.UUID
	TenantID                 pgtype.UUID
	InvoiceNumber            pgtype.Text
	Status                   string
	Content                  []byte
	InvoiceDate              pgtype.Timestamptz
	ValidUntil               pgtype.Timestamptz
	RecurringParentID        pgtype.UUID
	RecurringCycleDate       pgtype.Date
	IsGeneratedFromRecurring bool
	CreatedAt                pgtype.Timestamptz
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, createInvoice,
		arg.ID,
		arg.TenantID,
		arg.InvoiceNumber,
		arg.Status,
		arg.Content,
		arg.InvoiceDate,
		arg.ValidUntil,
		arg.RecurringParentID,
		arg.RecurringCycleDate,
		arg.IsGeneratedFromRecurring,
		arg.CreatedAt,
	))
}

const advanceTemplate = `-- name: AdvanceTemplate :one
UPDATE invoices
SET recurring_next_execution_date = $4,
    recurring_total_generated = recurring_total_generated + 1,
    recurring_last_generated_at = $5,
    recurring_status = CASE WHEN $6::boolean THEN 'completed' ELSE recurring_status END,
    updated_at = $5
WHERE id = $1
  AND tenant_id = $2
  AND is_recurring_template = TRUE
  AND recurring_status = 'active'
  AND recurring_next_execution_date = $3
RETURNING ` + invoiceColumns

type AdvanceTemplateParams struct {
	ID                        pgtype.UUID
	TenantID                  pgtype.UUID
	ExpectedNextExecutionDate pgtype.Date
	NextExecutionDate         pgtype.Date
	LastGeneratedAt           pgtype.Timestamptz
	Complete                  bool
}

// AdvanceTemplate moves the template to its next cycle in a single statement.
// It only matches while the stored date still equals ExpectedNextExecutionDate,
// so a repeated call for the same cycle returns pgx.ErrNoRows.
func (q *Queries) AdvanceTemplate(ctx context.Context, arg AdvanceTemplateParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, advanceTemplate,
		arg.ID,
		arg.TenantID,
		arg.ExpectedNextExecutionDate,
		arg.NextExecutionDate,
		arg.LastGeneratedAt,
		arg.Complete,
	))
}

const countInvoiceNumbers = `-- name: CountInvoiceNumbers :one
SELECT count(*)
FROM invoices
WHERE tenant_id = $1
  AND invoice_number IS NOT NULL
  AND invoice_number LIKE $2::text || '%'
`

type CountInvoiceNumbersParams struct {
	TenantID pgtype.UUID
	Prefix   string
}

func (q *Queries) CountInvoiceNumbers(ctx context.Context, arg CountInvoiceNumbersParams) (int64, error) {
	row := q.db.QueryRow(ctx, countInvoiceNumbers, arg.TenantID, arg.Prefix)
	var count int64
	err := row.Scan(&count)
	return count, err
}
